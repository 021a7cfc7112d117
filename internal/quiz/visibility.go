package quiz

import "sync/atomic"

// visibilityWatch is the subscription to the focus-loss signal. It forwards
// at most one signal, and only while armed. A watch is never re-armed after it
// has fired.
type visibilityWatch struct {
	armed atomic.Bool
	fired atomic.Bool
}

func (w *visibilityWatch) arm() {
	if !w.fired.Load() {
		w.armed.Store(true)
	}
}

func (w *visibilityWatch) disarm() {
	w.armed.Store(false)
}

// trigger reports whether this signal should be forwarded.
func (w *visibilityWatch) trigger() bool {
	if !w.armed.Load() {
		return false
	}
	if !w.fired.CompareAndSwap(false, true) {
		return false
	}
	w.armed.Store(false)
	return true
}
