package quiz

import (
	"sync"
	"time"
)

// countdown emits one event per interval until stopped. It never decides when
// time is up; the reducer counts the ticks.
type countdown struct {
	stop chan struct{}
	once sync.Once
}

func startCountdown(interval time.Duration, emit func()) *countdown {
	c := &countdown{stop: make(chan struct{})}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				emit()
			case <-c.stop:
				return
			}
		}
	}()
	return c
}

// Stop is safe to call more than once and on a nil countdown.
func (c *countdown) Stop() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.stop) })
}
