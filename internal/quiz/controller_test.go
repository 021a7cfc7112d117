package quiz_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"quizwhiz-service/internal/domain"
	"quizwhiz-service/internal/quiz"
)

type stubGenerator struct {
	questions []domain.Question
	err       error
	block     chan struct{}
	calls     int
	mu        sync.Mutex
}

func (g *stubGenerator) Generate(ctx context.Context, req domain.GenerationRequest) ([]domain.Question, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.err != nil {
		return nil, g.err
	}
	n := min(req.NumQuestions, len(g.questions))
	return g.questions[:n], nil
}

type recordingHistory struct {
	mu      sync.Mutex
	results []domain.Result
	saved   chan struct{}
	err     error
}

func newRecordingHistory() *recordingHistory {
	return &recordingHistory{saved: make(chan struct{}, 8)}
}

func (h *recordingHistory) Append(_ context.Context, userID string, result domain.Result) error {
	h.mu.Lock()
	h.results = append(h.results, result)
	h.mu.Unlock()
	h.saved <- struct{}{}
	return h.err
}

func (h *recordingHistory) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.results)
}

func questions() []domain.Question {
	return []domain.Question{
		{Text: "Which element marks the main content?", Options: []string{"<main>", "<div>"}, CorrectAnswer: "<main>"},
		{Text: "Which element wraps navigation?", Options: []string{"<nav>", "<menu>"}, CorrectAnswer: "<nav>"},
		{Text: "Which element is self-contained?", Options: []string{"<article>", "<span>"}, CorrectAnswer: "<article>"},
	}
}

func fastConfig() quiz.Config {
	cfg := quiz.DefaultConfig()
	cfg.ConfirmDelay = 5 * time.Millisecond
	cfg.GenerationTimeout = 5 * time.Second
	return cfg
}

func startController(t *testing.T, gen quiz.Generator, history quiz.HistoryAppender, cfg quiz.Config) (*quiz.Controller, context.CancelFunc) {
	t.Helper()
	c := quiz.NewController(domain.Identity{UserID: "u1", Role: domain.RoleStudent}, gen, history, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-c.Done()
	})
	return c, cancel
}

func waitFor(t *testing.T, c *quiz.Controller, desc string, cond func(quiz.Snapshot) bool) quiz.Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap := c.Snapshot()
		if cond(snap) {
			return snap
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s; last snapshot %+v", desc, c.Snapshot())
	return quiz.Snapshot{}
}

func inState(s quiz.State) func(quiz.Snapshot) bool {
	return func(snap quiz.Snapshot) bool { return snap.State == s }
}

func waitSaved(t *testing.T, h *recordingHistory) {
	t.Helper()
	select {
	case <-h.saved:
	case <-time.After(5 * time.Second):
		t.Fatalf("result was not saved")
	}
}

func TestControllerCompletesQuiz(t *testing.T) {
	history := newRecordingHistory()
	c, _ := startController(t, &stubGenerator{questions: questions()}, history, fastConfig())

	if _, err := c.Load(domain.Parameters{Subject: "HTML", Topic: "Semantic HTML", NumQuestions: 3}); err != nil {
		t.Fatalf("load: %v", err)
	}
	waitFor(t, c, "ready", inState(quiz.StateReady))
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i, choice := range []string{"<main>", "<menu>", "<article>"} {
		waitFor(t, c, "question", func(s quiz.Snapshot) bool { return s.Index == i && !s.Confirmed })
		if err := c.Confirm(); !errors.Is(err, domain.ErrNoAnswerSelected) {
			t.Fatalf("expected confirm without selection to fail, got %v", err)
		}
		if err := c.Select(choice); err != nil {
			t.Fatalf("select: %v", err)
		}
		if err := c.Confirm(); err != nil {
			t.Fatalf("confirm: %v", err)
		}
	}

	snap := waitFor(t, c, "finished", inState(quiz.StateFinished))
	if snap.Result.Score != 2 || snap.Result.Percentage != 67 || snap.Result.Cause != quiz.CauseCompleted {
		t.Fatalf("unexpected result %+v", snap.Result)
	}
	waitSaved(t, history)
	if history.results[0].Score != 2 || history.results[0].NumQuestions != 3 {
		t.Fatalf("unexpected persisted result %+v", history.results[0])
	}
}

func TestControllerTabSwitchFinishesOnce(t *testing.T) {
	history := newRecordingHistory()
	c, _ := startController(t, &stubGenerator{questions: questions()}, history, fastConfig())

	// switching tabs before the quiz starts has no effect
	c.ReportHidden()
	if _, err := c.Load(domain.Parameters{Subject: "HTML", Topic: "Semantic HTML", NumQuestions: 3}); err != nil {
		t.Fatalf("load: %v", err)
	}
	waitFor(t, c, "ready", inState(quiz.StateReady))
	c.ReportHidden()
	if err := c.Start(); err != nil {
		t.Fatalf("start after early signal: %v", err)
	}

	if err := c.Select("<main>"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := c.Confirm(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	waitFor(t, c, "second question", func(s quiz.Snapshot) bool { return s.Index == 1 })

	c.ReportHidden()
	c.ReportHidden()
	snap := waitFor(t, c, "finished", inState(quiz.StateFinished))
	if !snap.TabSwitchNotice || snap.Result.Cause != quiz.CauseTabSwitch {
		t.Fatalf("expected tab switch notice, got %+v", snap)
	}
	want := []domain.Answer{domain.Answered("<main>"), domain.Unanswered, domain.Unanswered}
	for i := range want {
		if snap.Answers[i] != want[i] {
			t.Fatalf("answers = %+v, want %+v", snap.Answers, want)
		}
	}

	waitSaved(t, history)
	time.Sleep(20 * time.Millisecond)
	if history.count() != 1 {
		t.Fatalf("expected exactly one persisted result, got %d", history.count())
	}

	if err := c.DismissNotice(); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if c.Snapshot().TabSwitchNotice {
		t.Fatalf("notice should be dismissed")
	}
}

func TestControllerTimerExpiry(t *testing.T) {
	history := newRecordingHistory()
	cfg := fastConfig()
	cfg.TickInterval = time.Millisecond
	c, _ := startController(t, &stubGenerator{questions: questions()}, history, cfg)

	if _, err := c.Load(domain.Parameters{Subject: "HTML", Topic: "Semantic HTML", NumQuestions: 1}); err != nil {
		t.Fatalf("load: %v", err)
	}
	ready := waitFor(t, c, "ready", inState(quiz.StateReady))
	if ready.RemainingSeconds != 90 {
		t.Fatalf("expected 90 seconds, got %d", ready.RemainingSeconds)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	snap := waitFor(t, c, "finished", inState(quiz.StateFinished))
	if snap.Result.Cause != quiz.CauseTimeout || snap.Result.Score != 0 {
		t.Fatalf("unexpected result %+v", snap.Result)
	}
	if len(snap.Answers) != 1 || snap.Answers[0] != domain.Unanswered {
		t.Fatalf("expected one unanswered slot, got %+v", snap.Answers)
	}
	waitSaved(t, history)
}

func TestControllerGenerationFailure(t *testing.T) {
	history := newRecordingHistory()
	c, _ := startController(t, &stubGenerator{err: errors.New("model unavailable")}, history, fastConfig())

	if _, err := c.Load(domain.Parameters{Subject: "HTML", Topic: "Semantic HTML", NumQuestions: 3}); err != nil {
		t.Fatalf("load: %v", err)
	}
	snap := waitFor(t, c, "error", inState(quiz.StateError))
	if snap.Total != 0 || snap.Answers != nil || snap.Result != nil {
		t.Fatalf("expected no session content, got %+v", snap)
	}
	if err := c.Start(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected start to fail in error state, got %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if history.count() != 0 {
		t.Fatalf("expected no persistence call")
	}
}

func TestControllerInvalidParameters(t *testing.T) {
	gen := &stubGenerator{questions: questions()}
	c, _ := startController(t, gen, nil, fastConfig())

	_, err := c.Load(domain.Parameters{Subject: "HTML", NumQuestions: 3})
	if !errors.Is(err, domain.ErrInvalidParameters) {
		t.Fatalf("expected invalid parameters, got %v", err)
	}
	if c.Snapshot().State != quiz.StateError {
		t.Fatalf("expected error state")
	}
	gen.mu.Lock()
	defer gen.mu.Unlock()
	if gen.calls != 0 {
		t.Fatalf("generation must not be called for invalid parameters")
	}
}

func TestControllerParamsCheckRejectsBeforeGeneration(t *testing.T) {
	gen := &stubGenerator{questions: questions()}
	c := quiz.NewController(domain.Identity{UserID: "u1", Role: domain.RoleTeacher}, gen, nil, fastConfig(),
		quiz.WithParamsCheck(func(p domain.Parameters) error {
			if p.Subject != "HTML" {
				return fmt.Errorf("%w: %w", domain.ErrInvalidParameters, domain.ErrUnknownSubject)
			}
			return nil
		}),
	)
	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-c.Done()
	})

	_, err := c.Load(domain.Parameters{Subject: "Cobol", Topic: "Decks", NumQuestions: 3})
	if !errors.Is(err, domain.ErrUnknownSubject) {
		t.Fatalf("expected unknown subject, got %v", err)
	}
	if c.Snapshot().State != quiz.StateError {
		t.Fatalf("expected error state")
	}

	// teachers may ask for more than the student cap
	if _, err := c.Load(domain.Parameters{Subject: "HTML", Topic: "Semantic HTML", NumQuestions: 30}); err != nil {
		t.Fatalf("load: %v", err)
	}
	waitFor(t, c, "ready", inState(quiz.StateReady))
}

func TestControllerDiscardsLateResultAfterReload(t *testing.T) {
	gen := &stubGenerator{questions: questions(), block: make(chan struct{})}
	c, _ := startController(t, gen, nil, fastConfig())

	first, err := c.Load(domain.Parameters{Subject: "HTML", Topic: "Semantic HTML", NumQuestions: 3})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	second, err := c.Load(domain.Parameters{Subject: "HTML", Topic: "HTML Forms", NumQuestions: 2})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if first == second {
		t.Fatalf("sessions must have distinct ids")
	}
	close(gen.block)

	snap := waitFor(t, c, "ready", inState(quiz.StateReady))
	if snap.SessionID != second || snap.Params.Topic != "HTML Forms" || snap.Total != 2 {
		t.Fatalf("late result corrupted the new session: %+v", snap)
	}
}

func TestControllerPersistenceFailureDoesNotBlockResults(t *testing.T) {
	history := newRecordingHistory()
	history.err = errors.New("firestore down")
	c, _ := startController(t, &stubGenerator{questions: questions()}, history, fastConfig())

	if _, err := c.Load(domain.Parameters{Subject: "HTML", Topic: "Semantic HTML", NumQuestions: 1}); err != nil {
		t.Fatalf("load: %v", err)
	}
	waitFor(t, c, "ready", inState(quiz.StateReady))
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := c.Select("<main>"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := c.Confirm(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	snap := waitFor(t, c, "finished", inState(quiz.StateFinished))
	if snap.Result.Score != 1 || snap.Error != "" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	waitSaved(t, history)
}

func TestControllerSubscribeStreamsSnapshots(t *testing.T) {
	c, _ := startController(t, &stubGenerator{questions: questions()}, nil, fastConfig())

	updates, cancel := c.Subscribe()
	defer cancel()

	if _, err := c.Load(domain.Parameters{Subject: "HTML", Topic: "Semantic HTML", NumQuestions: 3}); err != nil {
		t.Fatalf("load: %v", err)
	}
	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap := <-updates:
			if snap.State == quiz.StateReady {
				if snap.Question != nil {
					t.Fatalf("question must not be shown before start")
				}
				return
			}
		case <-deadline:
			t.Fatalf("no ready snapshot received")
		}
	}
}

func TestReviewQuestionRequiresFinishedSession(t *testing.T) {
	c, _ := startController(t, &stubGenerator{questions: questions()}, nil, fastConfig())
	if _, err := c.Load(domain.Parameters{Subject: "HTML", Topic: "Semantic HTML", NumQuestions: 1}); err != nil {
		t.Fatalf("load: %v", err)
	}
	waitFor(t, c, "ready", inState(quiz.StateReady))
	if _, _, err := c.ReviewQuestion(0); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected review to be refused before finishing, got %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	c.ReportHidden()
	waitFor(t, c, "finished", inState(quiz.StateFinished))

	q, a, err := c.ReviewQuestion(0)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if q.CorrectAnswer != "<main>" || a != domain.Unanswered {
		t.Fatalf("unexpected review %+v / %+v", q, a)
	}
	if _, _, err := c.ReviewQuestion(5); !errors.Is(err, domain.ErrQuestionOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
}
