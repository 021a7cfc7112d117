package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"quizwhiz-service/internal/domain"
	"quizwhiz-service/internal/quiz"
)

var (
	errBadPayload         = errors.New("invalid message payload")
	errUnsupportedMessage = errors.New("unsupported message type")
	errMissingUser        = errors.New("userId is required")
)

// errorCode maps domain failures onto stable codes clients can switch on.
func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidParameters), errors.Is(err, errMissingUser):
		return "invalid_parameters"
	case errors.Is(err, domain.ErrGenerationFailed):
		return "generation_failed"
	case errors.Is(err, domain.ErrExplanationFailed):
		return "explanation_failed"
	case errors.Is(err, domain.ErrNoAnswerSelected):
		return "no_answer_selected"
	case errors.Is(err, domain.ErrAnswerPending):
		return "answer_pending"
	case errors.Is(err, domain.ErrUnknownOption):
		return "unknown_option"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrQuestionOutOfRange):
		return "question_out_of_range"
	case errors.Is(err, domain.ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, errBadPayload):
		return "bad_payload"
	case errors.Is(err, errUnsupportedMessage):
		return "unsupported_message"
	case errors.Is(err, quiz.ErrClosed):
		return "closed"
	default:
		return "internal"
	}
}

func statusFor(err error) int {
	switch errorCode(err) {
	case "invalid_parameters", "bad_payload":
		return http.StatusBadRequest
	case "session_not_found":
		return http.StatusNotFound
	case "explanation_failed", "generation_failed":
		return http.StatusBadGateway
	case "internal":
		return http.StatusInternalServerError
	default:
		return http.StatusConflict
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorPayload{Code: errorCode(err), Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func identityFrom(r *http.Request) (domain.Identity, error) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		return domain.Identity{}, errMissingUser
	}
	return domain.Identity{UserID: userID, Role: domain.ParseRole(r.URL.Query().Get("role"))}, nil
}
