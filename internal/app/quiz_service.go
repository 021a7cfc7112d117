package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"quizwhiz-service/internal/curriculum"
	"quizwhiz-service/internal/domain"
	"quizwhiz-service/internal/quiz"
)

// SessionRepository abstracts how live quiz controllers are registered (in-memory, Redis, etc).
type SessionRepository interface {
	Put(ctx context.Context, id string, c *quiz.Controller)
	Get(id string) (*quiz.Controller, bool)
	Delete(ctx context.Context, id string)
}

// HistoryStore persists finished results per user, most recent first.
type HistoryStore interface {
	Append(ctx context.Context, userID string, result domain.Result) error
	List(ctx context.Context, userID string, limit int) ([]domain.Result, error)
}

// Explainer explains why an answer was right or wrong.
type Explainer interface {
	Explain(ctx context.Context, req domain.ExplanationRequest) (string, error)
}

// QuizService contains the core quiz use cases.
type QuizService struct {
	sessions  SessionRepository
	history   HistoryStore
	catalog   *curriculum.Catalog
	generator quiz.Generator
	explainer Explainer
	cfg       quiz.Config
	clock     func() time.Time
}

// Option customizes a QuizService.
type Option func(*QuizService)

// WithClock overrides the clock handed to new controllers.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) {
		s.clock = now
	}
}

func NewQuizService(sessions SessionRepository, history HistoryStore, catalog *curriculum.Catalog, generator quiz.Generator, explainer Explainer, cfg quiz.Config, opts ...Option) *QuizService {
	s := &QuizService{
		sessions:  sessions,
		history:   history,
		catalog:   catalog,
		generator: generator,
		explainer: explainer,
		cfg:       cfg,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the curriculum quizzes are checked against.
func (s *QuizService) Catalog() *curriculum.Catalog {
	return s.catalog
}

// Limits returns the per-role question limits.
func (s *QuizService) Limits() domain.Limits {
	return s.cfg.Limits
}

// CheckParameters validates setup input for identity before any session exists.
func (s *QuizService) CheckParameters(identity domain.Identity, params domain.Parameters) error {
	if err := params.Validate(identity.Role, s.cfg.Limits); err != nil {
		return err
	}
	return s.catalog.Check(params)
}

// Open registers a controller for identity and runs it until ctx is canceled.
// The returned id addresses the controller in later calls.
func (s *QuizService) Open(ctx context.Context, identity domain.Identity) (string, *quiz.Controller) {
	id := uuid.NewString()
	c := quiz.NewController(identity, s.generator, s.history, s.cfg,
		quiz.WithClock(s.clock),
		quiz.WithParamsCheck(s.catalog.Check),
	)
	s.sessions.Put(ctx, id, c)
	go c.Run(ctx)
	go func() {
		<-c.Done()
		// the caller's ctx is already canceled here
		s.sessions.Delete(context.Background(), id)
		slog.Debug("quiz controller closed", "controller_id", id, "user_id", identity.UserID)
	}()
	return id, c
}

// Begin loads a new quiz on a registered controller.
func (s *QuizService) Begin(id string, params domain.Parameters) (string, error) {
	c, ok := s.sessions.Get(id)
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	return c.Load(params)
}

// Explain asks for an explanation of a single answer. Failures are scoped to
// this call.
func (s *QuizService) Explain(ctx context.Context, req domain.ExplanationRequest) (string, error) {
	if strings.TrimSpace(req.Question) == "" || req.Subject == "" || req.Topic == "" {
		return "", fmt.Errorf("%w: question, subject and topic are required", domain.ErrInvalidParameters)
	}
	if req.Week == "" {
		if week, ok := s.catalog.WeekOf(req.Subject, req.Topic); ok {
			req.Week = week
		}
	}
	return s.explainer.Explain(ctx, req)
}

// ExplainQuestion explains question index of the finished session held by controller id.
func (s *QuizService) ExplainQuestion(ctx context.Context, id string, index int) (string, error) {
	c, ok := s.sessions.Get(id)
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	question, answer, err := c.ReviewQuestion(index)
	if err != nil {
		return "", err
	}
	params := c.Session().Params
	return s.Explain(ctx, ExplanationFor(params, question, answer))
}

// ExplanationFor builds the explanation input for one reviewed question.
func ExplanationFor(params domain.Parameters, question domain.Question, answer domain.Answer) domain.ExplanationRequest {
	given := answer.Choice
	if !answer.Answered {
		given = "No answer"
	}
	return domain.ExplanationRequest{
		Subject:       params.Subject,
		Week:          params.Week,
		Topic:         params.Topic,
		Question:      question.Text,
		Answer:        given,
		Correct:       answer.Matches(question.CorrectAnswer),
		CorrectAnswer: question.CorrectAnswer,
	}
}

// History returns up to limit results of userID, most recent first. A
// non-positive limit returns everything.
func (s *QuizService) History(ctx context.Context, userID string, limit int) ([]domain.Result, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", domain.ErrInvalidParameters)
	}
	return s.history.List(ctx, userID, limit)
}

// SubjectProgress aggregates a user's results for one subject.
type SubjectProgress struct {
	Subject    string `json:"subject"`
	Quizzes    int    `json:"quizzes"`
	Correct    int    `json:"correct"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

// Progress is the per-subject dashboard of a user.
type Progress struct {
	UserID   string            `json:"userId"`
	Subjects []SubjectProgress `json:"subjects"`
	Correct  int               `json:"correct"`
	Total    int               `json:"total"`
	Overall  int               `json:"percentage"`
}

// Progress sums score and question counts per curriculum subject. Every
// catalog subject is listed, including those without results.
func (s *QuizService) Progress(ctx context.Context, userID string) (Progress, error) {
	results, err := s.History(ctx, userID, 0)
	if err != nil {
		return Progress{}, err
	}
	return Summarize(userID, s.catalog.Subjects(), results), nil
}

// Summarize aggregates results into per-subject progress in catalog order.
// Results for subjects outside subjects are ignored.
func Summarize(userID string, subjects []string, results []domain.Result) Progress {
	bySubject := make(map[string]*SubjectProgress, len(subjects))
	out := Progress{UserID: userID, Subjects: make([]SubjectProgress, len(subjects))}
	for i, name := range subjects {
		out.Subjects[i] = SubjectProgress{Subject: name}
		bySubject[name] = &out.Subjects[i]
	}

	for _, r := range results {
		p, ok := bySubject[r.Subject]
		if !ok {
			continue
		}
		p.Quizzes++
		p.Correct += r.Score
		p.Total += r.NumQuestions
		out.Correct += r.Score
		out.Total += r.NumQuestions
	}

	for i := range out.Subjects {
		out.Subjects[i].Percentage = domain.Percentage(out.Subjects[i].Correct, out.Subjects[i].Total)
	}
	out.Overall = domain.Percentage(out.Correct, out.Total)
	return out
}
