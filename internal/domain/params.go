package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Question count bounds per role.
const (
	MinQuestions        = 1
	MaxQuestionsStudent = 20
	MaxQuestionsTeacher = 50
)

// Parameters configure a quiz attempt. They travel from setup to the session
// as a flat, string-typed key/value set.
type Parameters struct {
	Subject      string `json:"subject"`
	Week         string `json:"week,omitempty"`
	Topic        string `json:"topic"`
	NumQuestions int    `json:"numQuestions"`
}

// Limits bound the number of questions a role may request.
type Limits struct {
	Student int
	Teacher int
}

// DefaultLimits mirrors the setup forms: 20 for students, 50 for teachers.
func DefaultLimits() Limits {
	return Limits{Student: MaxQuestionsStudent, Teacher: MaxQuestionsTeacher}
}

// Max returns the question cap for a role.
func (l Limits) Max(role Role) int {
	if role == RoleTeacher {
		return l.Teacher
	}
	return l.Student
}

// Validate checks required fields and the question bound for role.
func (p Parameters) Validate(role Role, limits Limits) error {
	if strings.TrimSpace(p.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidParameters)
	}
	if strings.TrimSpace(p.Topic) == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidParameters)
	}
	max := limits.Max(role)
	if p.NumQuestions < MinQuestions || p.NumQuestions > max {
		return fmt.Errorf("%w: numQuestions must be between %d and %d", ErrInvalidParameters, MinQuestions, max)
	}
	return nil
}

// Query encodes the parameters as URL query values.
func (p Parameters) Query() url.Values {
	v := url.Values{}
	v.Set("subject", p.Subject)
	v.Set("topic", p.Topic)
	v.Set("numQuestions", strconv.Itoa(p.NumQuestions))
	if p.Week != "" {
		v.Set("week", p.Week)
	}
	return v
}

// ParseParameters decodes query values produced by Query. Missing or
// malformed values yield ErrInvalidParameters.
func ParseParameters(v url.Values) (Parameters, error) {
	p := Parameters{
		Subject: v.Get("subject"),
		Week:    v.Get("week"),
		Topic:   v.Get("topic"),
	}
	raw := v.Get("numQuestions")
	if raw == "" {
		return p, fmt.Errorf("%w: numQuestions is required", ErrInvalidParameters)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return p, fmt.Errorf("%w: numQuestions %q is not an integer", ErrInvalidParameters, raw)
	}
	p.NumQuestions = n
	if p.Subject == "" || p.Topic == "" {
		return p, fmt.Errorf("%w: subject and topic are required", ErrInvalidParameters)
	}
	return p, nil
}

// GenerationRequest converts the parameters into a generation call input.
func (p Parameters) GenerationRequest() GenerationRequest {
	return GenerationRequest{
		Subject:      p.Subject,
		Week:         p.Week,
		Topic:        p.Topic,
		NumQuestions: p.NumQuestions,
	}
}
