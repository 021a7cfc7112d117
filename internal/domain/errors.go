package domain

import "errors"

var (
	// ErrInvalidParameters is returned when quiz setup input is missing or out of range.
	ErrInvalidParameters = errors.New("invalid quiz parameters")
	// ErrUnknownSubject indicates the subject is not part of the curriculum.
	ErrUnknownSubject = errors.New("unknown subject")
	// ErrUnknownTopic indicates the topic does not belong to the subject (or week).
	ErrUnknownTopic = errors.New("unknown topic")
	// ErrGenerationFailed covers any failure or empty result from question generation.
	ErrGenerationFailed = errors.New("question generation failed")
	// ErrExplanationFailed is scoped to a single explanation request.
	ErrExplanationFailed = errors.New("explanation failed")
	// ErrSessionNotFound is returned when a quiz session is not registered.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrNoAnswerSelected rejects a confirm without a selected answer.
	ErrNoAnswerSelected = errors.New("no answer selected")
	// ErrAnswerPending rejects input while a confirmed answer is on display.
	ErrAnswerPending = errors.New("answer already confirmed")
	// ErrInvalidTransition is returned for actions that do not apply in the current state.
	ErrInvalidTransition = errors.New("action not allowed in current state")
	// ErrQuestionOutOfRange indicates a question index outside the session.
	ErrQuestionOutOfRange = errors.New("question index out of range")
	// ErrUnknownOption indicates a selected choice that is not one of the options.
	ErrUnknownOption = errors.New("choice is not one of the options")
)
