package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"quizwhiz-service/internal/domain"
)

// ErrClosed is returned by controller actions after Run has returned.
var ErrClosed = errors.New("quiz controller closed")

// Generator produces the questions of a quiz.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) ([]domain.Question, error)
}

// HistoryAppender persists finished results per user.
type HistoryAppender interface {
	Append(ctx context.Context, userID string, result domain.Result) error
}

// Config tunes timing and limits of a controller.
type Config struct {
	PerQuestion       time.Duration
	ConfirmDelay      time.Duration
	TickInterval      time.Duration
	GenerationTimeout time.Duration
	PersistTimeout    time.Duration
	Limits            domain.Limits
}

// DefaultConfig allows 1.5 minutes per question and shows a confirmed answer
// for half a second.
func DefaultConfig() Config {
	return Config{
		PerQuestion:       90 * time.Second,
		ConfirmDelay:      500 * time.Millisecond,
		TickInterval:      time.Second,
		GenerationTimeout: 2 * time.Minute,
		PersistTimeout:    10 * time.Second,
		Limits:            domain.DefaultLimits(),
	}
}

type envelope struct {
	event Event
	reply chan error
}

// Controller owns one quiz flow for one user. All transitions run on the
// goroutine executing Run; every other method only enqueues events.
type Controller struct {
	identity domain.Identity
	gen      Generator
	history  HistoryAppender
	cfg      Config
	now      func() time.Time
	check    func(domain.Parameters) error

	events chan envelope
	done   chan struct{}

	mu          sync.RWMutex
	session     Session
	watch       *visibilityWatch
	subscribers map[chan Snapshot]struct{}

	// owned by the Run goroutine
	timer     *countdown
	cancelGen context.CancelFunc
	persisted *sync.Once

	wg sync.WaitGroup
}

// Option customizes a controller.
type Option func(*Controller)

// WithClock overrides the clock used for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithParamsCheck adds a validation step run after the role limits, such as
// a curriculum lookup.
func WithParamsCheck(check func(domain.Parameters) error) Option {
	return func(c *Controller) {
		c.check = check
	}
}

// NewController builds a controller for identity. history may be nil.
func NewController(identity domain.Identity, gen Generator, history HistoryAppender, cfg Config, opts ...Option) *Controller {
	c := &Controller{
		identity:    identity,
		gen:         gen,
		history:     history,
		cfg:         cfg,
		now:         time.Now,
		events:      make(chan envelope, 64),
		done:        make(chan struct{}),
		watch:       &visibilityWatch{},
		subscribers: make(map[chan Snapshot]struct{}),
		persisted:   &sync.Once{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Identity returns the user the controller acts for.
func (c *Controller) Identity() domain.Identity {
	return c.identity
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Run consumes events until ctx is canceled. In-flight history writes are
// allowed to finish before Run returns.
func (c *Controller) Run(ctx context.Context) {
	defer c.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-c.events:
			err := c.apply(env.event)
			if env.reply != nil {
				env.reply <- err
			}
		}
	}
}

func (c *Controller) shutdown() {
	c.timer.Stop()
	c.timer = nil
	if c.cancelGen != nil {
		c.cancelGen()
	}
	c.mu.Lock()
	c.watch.disarm()
	for ch := range c.subscribers {
		delete(c.subscribers, ch)
		close(ch)
	}
	c.mu.Unlock()
	close(c.done)
	c.wg.Wait()
}

// Load starts a new session for params, abandoning any previous one. Invalid
// parameters put the session straight into the error state and are returned.
func (c *Controller) Load(params domain.Parameters) (string, error) {
	id := uuid.NewString()
	begin := Begin{
		SessionID: id,
		Params:    params,
		TimeLimit: TimeLimit(params.NumQuestions, c.cfg.PerQuestion),
	}
	if err := c.dispatch(begin); err != nil {
		return "", err
	}

	err := params.Validate(c.identity.Role, c.cfg.Limits)
	if err == nil && c.check != nil {
		err = c.check(params)
	}
	if err != nil {
		if derr := c.dispatch(GenerationFailed{SessionID: id, Err: err}); derr != nil {
			return id, derr
		}
		return id, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.GenerationTimeout)
	c.post(generationStarted{cancel: cancel})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		questions, err := c.gen.Generate(ctx, params.GenerationRequest())
		if err != nil {
			slog.Warn("question generation failed",
				"session_id", id,
				"user_id", c.identity.UserID,
				"subject", params.Subject,
				"topic", params.Topic,
				"error", err,
			)
			c.post(GenerationFailed{SessionID: id, Err: fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)})
			return
		}
		c.post(Generated{SessionID: id, Questions: questions})
	}()
	return id, nil
}

// Start begins the countdown of a ready session.
func (c *Controller) Start() error {
	return c.dispatch(Start{})
}

// Select marks choice for the current question.
func (c *Controller) Select(choice string) error {
	return c.dispatch(Select{Choice: choice})
}

// Confirm records the selected choice; it fails without a selection.
func (c *Controller) Confirm() error {
	return c.dispatch(Confirm{})
}

// DismissNotice hides the tab-switch notice.
func (c *Controller) DismissNotice() error {
	return c.dispatch(DismissNotice{})
}

// ReportHidden delivers the visibility signal. Only the first signal of an
// active session has any effect.
func (c *Controller) ReportHidden() {
	c.mu.RLock()
	watch, id := c.watch, c.session.ID
	c.mu.RUnlock()
	if watch.trigger() {
		c.post(Hidden{SessionID: id})
	}
}

// Snapshot returns the current client view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.Snapshot()
}

// Session returns a copy of the current session.
func (c *Controller) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// ReviewQuestion returns question index and the recorded answer of a finished session.
func (c *Controller) ReviewQuestion(index int) (domain.Question, domain.Answer, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.session
	if s.State != StateFinished {
		return domain.Question{}, domain.Answer{}, fmt.Errorf("%w: quiz is %s", domain.ErrInvalidTransition, s.State)
	}
	if index < 0 || index >= len(s.Questions) {
		return domain.Question{}, domain.Answer{}, domain.ErrQuestionOutOfRange
	}
	return s.Questions[index], s.Answers[index], nil
}

// Subscribe returns a channel of snapshots, starting with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	c.subscribers[ch] = struct{}{}
	ch <- c.session.Snapshot()
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

// generationStarted hands the cancel func of a generation call to the loop.
type generationStarted struct {
	cancel context.CancelFunc
}

func (generationStarted) isEvent() {}

func (c *Controller) dispatch(ev Event) error {
	reply := make(chan error, 1)
	select {
	case c.events <- envelope{event: ev, reply: reply}:
	case <-c.done:
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-c.done:
		return ErrClosed
	}
}

func (c *Controller) post(ev Event) {
	select {
	case c.events <- envelope{event: ev}:
	case <-c.done:
	}
}

func (c *Controller) apply(ev Event) error {
	if started, ok := ev.(generationStarted); ok {
		if c.cancelGen != nil {
			c.cancelGen()
		}
		c.cancelGen = started.cancel
		return nil
	}

	c.mu.Lock()
	prev := c.session
	next, effects, err := Reduce(prev, ev, c.now())
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if _, fresh := ev.(Begin); fresh {
		c.watch.disarm()
		c.watch = &visibilityWatch{}
		c.persisted = &sync.Once{}
		if c.cancelGen != nil {
			c.cancelGen()
			c.cancelGen = nil
		}
	}
	c.session = next
	c.broadcastLocked()
	c.mu.Unlock()

	for _, eff := range effects {
		c.run(eff, next)
	}
	return nil
}

func (c *Controller) run(eff Effect, s Session) {
	switch eff.Kind {
	case EffectStartTimer:
		c.timer.Stop()
		id := s.ID
		c.timer = startCountdown(c.cfg.TickInterval, func() { c.post(Tick{SessionID: id}) })
	case EffectStopTimer:
		c.timer.Stop()
		c.timer = nil
	case EffectWatchVisibility:
		c.mu.RLock()
		c.watch.arm()
		c.mu.RUnlock()
	case EffectUnwatchVisibility:
		c.mu.RLock()
		c.watch.disarm()
		c.mu.RUnlock()
	case EffectScheduleAdvance:
		id, index := s.ID, eff.Index
		time.AfterFunc(c.cfg.ConfirmDelay, func() { c.post(Advance{SessionID: id, Index: index}) })
	case EffectPersist:
		c.persist(s)
	}
}

// persist writes the result once per session without blocking the loop.
// Failures are logged and never reach the user.
func (c *Controller) persist(s Session) {
	if c.history == nil || s.Result == nil {
		return
	}
	result := *s.Result
	c.persisted.Do(func() {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PersistTimeout)
			defer cancel()
			if err := c.history.Append(ctx, c.identity.UserID, result); err != nil {
				slog.Error("failed to save quiz result",
					"session_id", s.ID,
					"user_id", c.identity.UserID,
					"error", err,
				)
				return
			}
			slog.Info("quiz result saved",
				"session_id", s.ID,
				"user_id", c.identity.UserID,
				"score", result.Score,
				"num_questions", result.NumQuestions,
				"cause", s.Cause.String(),
			)
		}()
	})
}

func (c *Controller) broadcastLocked() {
	snap := c.session.Snapshot()
	for ch := range c.subscribers {
		select {
		case ch <- snap:
		default:
			// drop the stale snapshot so a slow reader cannot block the loop
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
