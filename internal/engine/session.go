// Package engine drives a single timed quiz attempt: question sequencing,
// per-answer grading against the remote authority, countdown-driven forced
// finish, and post-completion review. Every transition of a session is applied
// on one goroutine — commands, grading resolutions and timer ticks are
// serialized through the session's run loop, so no two transitions can race.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quizpath/session-gateway/internal/model"
	"github.com/rs/zerolog"
)

// Grader is the session's view of the remote grading authority. Correctness
// is decided exclusively by the remote side.
type Grader interface {
	Grade(ctx context.Context, questionID, selectedOption string) (*model.Feedback, error)
}

// GraderFunc adapts a function to the Grader interface.
type GraderFunc func(ctx context.Context, questionID, selectedOption string) (*model.Feedback, error)

// Grade implements Grader.
func (f GraderFunc) Grade(ctx context.Context, questionID, selectedOption string) (*model.Feedback, error) {
	return f(ctx, questionID, selectedOption)
}

// Config assembles a Session.
type Config struct {
	UserID    string
	ChapterID string
	// Questions is the loaded, validated, non-empty question set. The session
	// copies it and owns the copy exclusively.
	Questions []model.Question
	Grader    Grader
	Log       zerolog.Logger
	// OnFinish, if set, runs on the session goroutine exactly once when the
	// summary freezes, whether the finish was user-driven or forced.
	OnFinish func(model.Summary)
}

type command struct {
	fn    func() error
	reply chan error
}

// Session is one timed attempt at a chapter's question set. All exported
// methods are safe for concurrent use; they funnel into the run loop.
type Session struct {
	ID        uuid.UUID
	UserID    string
	ChapterID string
	StartedAt time.Time

	grader   Grader
	onFinish func(model.Summary)
	log      zerolog.Logger

	// State below is owned by the run loop goroutine.
	questions    []model.Question
	current      int
	score        int
	mode         model.Mode
	pending      string          // option retained after a grading failure, for retry
	feedback     *model.Feedback // grading outcome of the current question
	summary      *model.Summary  // non-nil once finished; frozen, never recomputed
	deadline     time.Time
	totalSeconds int
	frozenRemain int // remaining seconds captured at the moment of finishing
	dropped      int

	now      func() time.Time
	ticks    <-chan time.Time
	stopTick func()

	cmds      chan command
	events    chan Event
	closing   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates and starts a session. The countdown is seeded from the question
// count and starts immediately; it never re-seeds for the lifetime of the
// session. An empty question set is rejected with ErrEmptyQuestionSet.
func New(cfg Config) (*Session, error) {
	s, err := newSession(cfg, time.Now)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(time.Second)
	s.ticks = ticker.C
	s.stopTick = ticker.Stop

	go s.run()

	s.log.Info().
		Int("questions", len(s.questions)).
		Int("total_seconds", s.totalSeconds).
		Msg("Session started")

	return s, nil
}

// newSession builds a session without a tick source or running loop. Tests
// inject a manual tick channel and clock before starting the loop.
func newSession(cfg Config, now func() time.Time) (*Session, error) {
	if len(cfg.Questions) == 0 {
		return nil, ErrEmptyQuestionSet
	}

	questions := make([]model.Question, len(cfg.Questions))
	copy(questions, cfg.Questions)

	id := uuid.New()
	start := now()
	total := time.Duration(len(questions)*model.PerQuestionSeconds) * time.Second

	return &Session{
		ID:           id,
		UserID:       cfg.UserID,
		ChapterID:    cfg.ChapterID,
		StartedAt:    start,
		grader:       cfg.Grader,
		onFinish:     cfg.OnFinish,
		log:          cfg.Log.With().Str("component", "session").Str("session_id", id.String()).Logger(),
		questions:    questions,
		mode:         model.ModeActive,
		deadline:     start.Add(total),
		totalSeconds: int(total / time.Second),
		now:          now,
		stopTick:     func() {},
		cmds:         make(chan command),
		events:       make(chan Event, 16),
		closing:      make(chan struct{}),
		done:         make(chan struct{}),
	}, nil
}

// run serializes every state transition. A tick that arrives while a grading
// call is executing is observed only after the submission resolves, so a
// forced finish can never race a grading result into an inconsistent score.
func (s *Session) run() {
	defer func() {
		s.stopTick()
		close(s.events)
		close(s.done)
	}()

	for {
		select {
		case <-s.closing:
			return
		case cmd := <-s.cmds:
			cmd.reply <- cmd.fn()
			// The deadline may have passed while the command (typically a
			// grading call) was executing. The command's transition has
			// committed; forced finish comes strictly after it.
			if s.countdownRunning() && s.remaining() == 0 {
				s.finish()
			}
		case <-s.ticks:
			s.handleTick()
		}
	}
}

func (s *Session) handleTick() {
	if !s.countdownRunning() {
		// A tick buffered before the ticker stopped. Ignore.
		return
	}
	remaining := s.remaining()
	s.emit(Event{Type: EventTick, Index: s.current, Remaining: remaining})
	if remaining == 0 {
		s.finish()
	}
}

func (s *Session) countdownRunning() bool {
	return s.summary == nil && (s.mode == model.ModeActive || s.mode == model.ModeFeedback)
}

// remaining reports whole seconds until the deadline, rounded up, clamped at
// zero. Monotonically non-increasing while the countdown runs.
func (s *Session) remaining() int {
	d := s.deadline.Sub(s.now())
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// finish freezes the score exactly once. Timer-driven and user-driven
// finishes are identical: same transition, same summary shape.
func (s *Session) finish() {
	if s.summary != nil {
		return
	}
	s.frozenRemain = s.remaining()
	s.pending = ""
	s.feedback = nil
	s.mode = model.ModeFinished
	sum := model.Summary{Score: s.score, Total: len(s.questions)}
	s.summary = &sum
	s.stopTick()

	s.log.Info().
		Int("score", sum.Score).
		Int("total", sum.Total).
		Int("remaining_seconds", s.frozenRemain).
		Msg("Session finished")

	s.emit(Event{Type: EventFinished, Index: s.current, Summary: &sum})
	if s.onFinish != nil {
		s.onFinish(sum)
	}
}

func (s *Session) submit(ctx context.Context, option string) error {
	if s.mode != model.ModeActive {
		return ErrWrongMode
	}
	if option == "" {
		return ErrNoSelection
	}
	q := &s.questions[s.current]
	if q.Answered() {
		return ErrAlreadyAnswered
	}
	if !q.HasOption(option) {
		return ErrUnknownOption
	}

	fb, err := s.grader.Grade(ctx, q.ID, option)
	if err != nil {
		// Retain the attempted option so the client can retry without
		// re-selecting. The question stays unanswered: no partial credit.
		s.pending = option
		s.log.Warn().Err(err).Str("question_id", q.ID).Msg("Grading failed")
		return fmt.Errorf("%w: %v", ErrGrading, err)
	}

	sel := option
	q.UserSelection = &sel
	q.CorrectOption = &fb.CorrectOption
	q.Explanation = &fb.Explanation
	if fb.Correct {
		s.score++
	}
	s.pending = ""
	s.feedback = fb
	s.mode = model.ModeFeedback

	s.emit(Event{Type: EventFeedback, Index: s.current, Feedback: fb})
	return nil
}

func (s *Session) advance() error {
	if s.mode != model.ModeFeedback {
		return ErrWrongMode
	}
	if s.current+1 < len(s.questions) {
		s.current++
		s.pending = ""
		s.feedback = nil
		s.mode = model.ModeActive
		return nil
	}
	s.finish()
	return nil
}

func (s *Session) finishNow() error {
	if s.mode != model.ModeActive && s.mode != model.ModeFeedback {
		return ErrWrongMode
	}
	// A selected-but-unsubmitted option is discarded, not graded.
	s.finish()
	return nil
}

func (s *Session) enterReview() error {
	switch s.mode {
	case model.ModeFinished:
		s.mode = model.ModeReview
		s.current = 0
		return nil
	case model.ModeReview:
		// Re-entry restarts the replay; the summary never changes.
		s.current = 0
		return nil
	default:
		return ErrNotFinished
	}
}

// do runs fn on the session goroutine and waits for its result.
func (s *Session) do(ctx context.Context, fn func() error) error {
	reply := make(chan error, 1)
	select {
	case s.cmds <- command{fn: fn, reply: reply}:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrClosed
	}
}

// Submit grades the given option for the current question. On grading failure
// the question remains answerable, the attempted option is retained for
// retry, and the error wraps ErrGrading.
func (s *Session) Submit(ctx context.Context, option string) error {
	return s.do(ctx, func() error { return s.submit(ctx, option) })
}

// Advance moves past the feedback of the current question: to the next
// question, or into the finished state when the last question's feedback is
// advanced past.
func (s *Session) Advance(ctx context.Context) error {
	return s.do(ctx, func() error { return s.advance() })
}

// Finish ends the session early at the user's request. Confirmation is the
// client's concern; the effect is identical to timer expiry.
func (s *Session) Finish(ctx context.Context) error {
	return s.do(ctx, func() error { return s.finishNow() })
}

// EnterReview switches a finished session into read-only replay, resetting
// the position to the first question. The frozen summary is untouched.
func (s *Session) EnterReview(ctx context.Context) error {
	return s.do(ctx, func() error { return s.enterReview() })
}

// Events returns the session's notification stream. The channel closes on
// teardown. Intended for a single subscriber.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Expired reports whether the countdown deadline passed more than grace ago.
// The deadline is fixed at construction and never re-seeded, so this is safe
// to call from any goroutine without going through the run loop.
func (s *Session) Expired(now time.Time, grace time.Duration) bool {
	return now.After(s.deadline.Add(grace))
}

// Close tears the session down: the countdown stops, and no event or late
// grading result is applied afterwards. Blocks until the run loop has exited.
// Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.closing) })
	<-s.done
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.dropped++
	}
}
