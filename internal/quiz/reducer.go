package quiz

import (
	"fmt"
	"time"

	"quizwhiz-service/internal/domain"
)

// Reduce applies ev to s and returns the next session together with the side
// effects to run. It is pure: the same inputs always give the same outputs and
// s is never modified. Events that do not apply in the current state (late
// generation results, ticks after finishing, focus loss before starting) are
// ignored without error; user actions that do not apply return an error and
// leave the session unchanged.
func Reduce(s Session, ev Event, now time.Time) (Session, []Effect, error) {
	switch e := ev.(type) {
	case Begin:
		next := Session{
			ID:        e.SessionID,
			Params:    e.Params,
			State:     StateLoading,
			TimeLimit: e.TimeLimit,
			Remaining: e.TimeLimit,
		}
		return next, []Effect{{Kind: EffectStopTimer}, {Kind: EffectUnwatchVisibility}}, nil

	case Generated:
		if s.State != StateLoading || e.SessionID != s.ID {
			return s, nil, nil
		}
		if len(e.Questions) == 0 {
			s.State = StateError
			s.Err = fmt.Errorf("%w: no questions were generated", domain.ErrGenerationFailed)
			return s, nil, nil
		}
		s.State = StateReady
		s.Questions = e.Questions
		s.Answers = make([]domain.Answer, len(e.Questions))
		s.Current = 0
		return s, nil, nil

	case GenerationFailed:
		if s.State != StateLoading || e.SessionID != s.ID {
			return s, nil, nil
		}
		s.State = StateError
		s.Err = e.Err
		return s, nil, nil

	case Start:
		if s.State != StateReady {
			return s, nil, fmt.Errorf("%w: cannot start a %s quiz", domain.ErrInvalidTransition, s.State)
		}
		s.State = StateActive
		s.Remaining = s.TimeLimit
		return s, []Effect{{Kind: EffectStartTimer}, {Kind: EffectWatchVisibility}}, nil

	case Select:
		if err := requireActive(s); err != nil {
			return s, nil, err
		}
		if s.Confirmed {
			return s, nil, domain.ErrAnswerPending
		}
		if !s.Questions[s.Current].HasOption(e.Choice) {
			return s, nil, fmt.Errorf("%w: %q", domain.ErrUnknownOption, e.Choice)
		}
		s.Selected = e.Choice
		return s, nil, nil

	case Confirm:
		if err := requireActive(s); err != nil {
			return s, nil, err
		}
		if s.Confirmed {
			return s, nil, domain.ErrAnswerPending
		}
		if s.Selected == "" {
			return s, nil, domain.ErrNoAnswerSelected
		}
		s.Answers = recordAnswer(s.Answers, s.Current, s.Selected)
		s.Confirmed = true
		return s, []Effect{{Kind: EffectScheduleAdvance, Index: s.Current}}, nil

	case Advance:
		if s.State != StateActive || e.SessionID != s.ID || !s.Confirmed || e.Index != s.Current {
			return s, nil, nil
		}
		if s.Current < len(s.Questions)-1 {
			s.Current++
			s.Selected = ""
			s.Confirmed = false
			return s, nil, nil
		}
		return finish(s, CauseCompleted, now)

	case Tick:
		if s.State != StateActive || e.SessionID != s.ID {
			return s, nil, nil
		}
		if s.Remaining > 0 {
			s.Remaining--
		}
		if s.Remaining > 0 {
			return s, nil, nil
		}
		return finish(s, CauseTimeout, now)

	case Hidden:
		if s.State != StateActive || e.SessionID != s.ID {
			return s, nil, nil
		}
		return finish(s, CauseTabSwitch, now)

	case DismissNotice:
		s.NoticeDismissed = true
		return s, nil, nil
	}
	return s, nil, fmt.Errorf("%w: unsupported event %T", domain.ErrInvalidTransition, ev)
}

// finish is the single finalization path. The latch makes repeated requests
// from the timer, the visibility signal or the last confirmation no-ops.
func finish(s Session, cause FinishCause, now time.Time) (Session, []Effect, error) {
	if s.finalized {
		return s, nil, nil
	}
	s.finalized = true

	if s.Selected != "" && !s.Confirmed {
		s.Answers = recordAnswer(s.Answers, s.Current, s.Selected)
	}
	s.State = StateFinished
	s.Cause = cause
	s.TabSwitched = cause == CauseTabSwitch
	s.Confirmed = false

	s.Result = &domain.Result{
		Subject:      s.Params.Subject,
		Topic:        s.Params.Topic,
		NumQuestions: len(s.Questions),
		Score:        Score(s.Questions, s.Answers),
		Timestamp:    now,
	}
	return s, []Effect{
		{Kind: EffectStopTimer},
		{Kind: EffectUnwatchVisibility},
		{Kind: EffectPersist},
	}, nil
}

func requireActive(s Session) error {
	if s.State != StateActive {
		return fmt.Errorf("%w: quiz is %s", domain.ErrInvalidTransition, s.State)
	}
	return nil
}

// recordAnswer returns a copy of answers with index set to choice.
func recordAnswer(answers []domain.Answer, index int, choice string) []domain.Answer {
	next := make([]domain.Answer, len(answers))
	copy(next, answers)
	next[index] = domain.Answered(choice)
	return next
}
