package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Role distinguishes students from teachers; teachers may build longer quizzes.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// ParseRole maps free-form input to a role, defaulting to student.
func ParseRole(raw string) Role {
	if Role(raw) == RoleTeacher {
		return RoleTeacher
	}
	return RoleStudent
}

// Identity is the authenticated caller. It is always passed explicitly.
type Identity struct {
	UserID string
	Role   Role
}

// Question models an MCQ question; CorrectAnswer is always one of Options.
type Question struct {
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// HasOption reports whether choice is one of the question's options.
func (q Question) HasOption(choice string) bool {
	for _, opt := range q.Options {
		if opt == choice {
			return true
		}
	}
	return false
}

// Answer is a recorded choice. The zero value is "unanswered".
type Answer struct {
	Choice   string
	Answered bool
}

// Unanswered is the placeholder for a question with no recorded choice.
var Unanswered = Answer{}

// Answered wraps a choice as a recorded answer.
func Answered(choice string) Answer {
	return Answer{Choice: choice, Answered: true}
}

// Matches reports strict equality with the correct answer; unanswered never matches.
func (a Answer) Matches(correct string) bool {
	return a.Answered && a.Choice == correct
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if !a.Answered {
		return []byte("null"), nil
	}
	return json.Marshal(a.Choice)
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = Unanswered
		return nil
	}
	var choice string
	if err := json.Unmarshal(data, &choice); err != nil {
		return err
	}
	*a = Answered(choice)
	return nil
}

// GenerationRequest is the input of the question generation service.
type GenerationRequest struct {
	Subject      string
	Week         string
	Topic        string
	NumQuestions int
}

// ExplanationRequest is the input of the explanation service.
type ExplanationRequest struct {
	Subject       string `json:"subject"`
	Week          string `json:"week,omitempty"`
	Topic         string `json:"topic"`
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	Correct       bool   `json:"isCorrect"`
	CorrectAnswer string `json:"correctAnswer,omitempty"`
}

// CacheKey identifies the explanation of one (question, answer) pair.
func (r ExplanationRequest) CacheKey() string {
	h := sha256.New()
	for _, part := range []string{r.Subject, r.Week, r.Topic, r.Question, r.Answer, r.CorrectAnswer} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	if r.Correct {
		h.Write([]byte{1})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Result is derived once from a finished session and never mutated.
type Result struct {
	Subject      string    `json:"subject"`
	Topic        string    `json:"topic"`
	NumQuestions int       `json:"numQuestions"`
	Score        int       `json:"score"`
	Timestamp    time.Time `json:"timestamp"`
}

// Percentage is round(100 * score / numQuestions).
func (r Result) Percentage() int {
	return Percentage(r.Score, r.NumQuestions)
}

// HistoryRecord is a persisted result owned by a user.
type HistoryRecord struct {
	UserID string `json:"userId"`
	Result
}

// Percentage rounds half away from zero, matching the results screen.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*score + total) / (2 * total)
}
