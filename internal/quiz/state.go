// Package quiz implements the quiz session state machine: a pure reducer over
// session values plus a single-goroutine controller that feeds it events from
// the user, the countdown and the visibility signal.
package quiz

import (
	"time"

	"quizwhiz-service/internal/domain"
)

// State is the lifecycle position of a session.
type State int

const (
	StateLoading State = iota
	StateReady
	StateActive
	StateFinished
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FinishCause records which trigger ended an active session.
type FinishCause int

const (
	CauseNone FinishCause = iota
	CauseCompleted
	CauseTimeout
	CauseTabSwitch
)

func (c FinishCause) String() string {
	switch c {
	case CauseCompleted:
		return "completed"
	case CauseTimeout:
		return "timeout"
	case CauseTabSwitch:
		return "tabSwitch"
	default:
		return "none"
	}
}

func (c FinishCause) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Session is one quiz attempt. Values are treated as immutable: the reducer
// copies before it changes anything.
type Session struct {
	ID        string
	Params    domain.Parameters
	State     State
	Questions []domain.Question
	Current   int
	Answers   []domain.Answer
	// Selected is the in-progress choice for the current question.
	Selected string
	// Confirmed is set while a recorded answer is on display.
	Confirmed bool
	// TimeLimit and Remaining are in seconds.
	TimeLimit       int
	Remaining       int
	Cause           FinishCause
	TabSwitched     bool
	NoticeDismissed bool
	Err             error
	Result          *domain.Result

	// finalized is the one-time finish latch; it is never cleared.
	finalized bool
}

// Finalized reports whether the finish transition has run.
func (s Session) Finalized() bool {
	return s.finalized
}

// Event is an input of the reducer.
type Event interface {
	isEvent()
}

// Begin replaces the session with a fresh one in the loading state.
type Begin struct {
	SessionID string
	Params    domain.Parameters
	TimeLimit int
}

// Generated delivers the questions produced for SessionID.
type Generated struct {
	SessionID string
	Questions []domain.Question
}

// GenerationFailed moves SessionID from loading to error.
type GenerationFailed struct {
	SessionID string
	Err       error
}

// Start begins the timed answering phase.
type Start struct{}

// Select marks a choice for the current question without recording it.
type Select struct {
	Choice string
}

// Confirm records the selected choice for the current question.
type Confirm struct{}

// Advance moves past question Index once its display delay has elapsed.
type Advance struct {
	SessionID string
	Index     int
}

// Tick is one second of the countdown.
type Tick struct {
	SessionID string
}

// Hidden is the visibility/focus-loss signal.
type Hidden struct {
	SessionID string
}

// DismissNotice acknowledges the tab-switch notice.
type DismissNotice struct{}

func (Begin) isEvent()            {}
func (Generated) isEvent()        {}
func (GenerationFailed) isEvent() {}
func (Start) isEvent()            {}
func (Select) isEvent()           {}
func (Confirm) isEvent()          {}
func (Advance) isEvent()          {}
func (Tick) isEvent()             {}
func (Hidden) isEvent()           {}
func (DismissNotice) isEvent()    {}

// EffectKind enumerates side effects requested by the reducer.
type EffectKind int

const (
	EffectStartTimer EffectKind = iota
	EffectStopTimer
	EffectWatchVisibility
	EffectUnwatchVisibility
	EffectScheduleAdvance
	EffectPersist
)

// Effect is a side effect the controller performs after a transition.
type Effect struct {
	Kind  EffectKind
	Index int
}

// TimeLimit converts the per-question allowance into whole seconds.
func TimeLimit(numQuestions int, perQuestion time.Duration) int {
	return int((time.Duration(numQuestions) * perQuestion) / time.Second)
}
