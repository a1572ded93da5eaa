package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/quizpath/session-gateway/internal/model"
	"github.com/rs/zerolog"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// answerKey maps question ID to its correct option. The fake grader stands in
// for the remote authority; the session itself never sees the key.
type answerKey map[string]string

func (k answerKey) grader() Grader {
	return GraderFunc(func(_ context.Context, questionID, selectedOption string) (*model.Feedback, error) {
		correct, ok := k[questionID]
		if !ok {
			return nil, fmt.Errorf("unknown question %s", questionID)
		}
		return &model.Feedback{
			Correct:       selectedOption == correct,
			CorrectOption: correct,
			Explanation:   "because " + correct,
		}, nil
	})
}

func makeQuestions(n int) ([]model.Question, answerKey) {
	questions := make([]model.Question, n)
	key := make(answerKey, n)
	for i := range questions {
		id := fmt.Sprintf("q%d", i+1)
		questions[i] = model.Question{
			ID:      id,
			Text:    "question " + id,
			Options: []string{"A", "B", "C", "D"},
		}
		key[id] = "A"
	}
	return questions, key
}

type testSession struct {
	*Session
	clock *fakeClock
	ticks chan time.Time
}

func startSession(t *testing.T, questions []model.Question, grader Grader, onFinish func(model.Summary)) *testSession {
	t.Helper()

	clock := newFakeClock()
	s, err := newSession(Config{
		UserID:    "user-1",
		ChapterID: "chapter-1",
		Questions: questions,
		Grader:    grader,
		Log:       zerolog.Nop(),
		OnFinish:  onFinish,
	}, clock.Now)
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}

	ticks := make(chan time.Time)
	s.ticks = ticks
	go s.run()
	t.Cleanup(s.Close)

	return &testSession{Session: s, clock: clock, ticks: ticks}
}

// tick advances the clock and delivers one tick, then synchronizes on the run
// loop so the tick's effects are visible to the caller.
func (ts *testSession) tick(t *testing.T, d time.Duration) {
	t.Helper()
	ts.clock.Advance(d)
	ts.ticks <- ts.clock.Now()
	if _, err := ts.View(context.Background()); err != nil {
		t.Fatalf("view after tick: %v", err)
	}
}

func mustView(t *testing.T, s *Session) *View {
	t.Helper()
	v, err := s.View(context.Background())
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	return v
}

func TestEmptyQuestionSetRejected(t *testing.T) {
	_, err := newSession(Config{Log: zerolog.Nop()}, time.Now)
	if !errors.Is(err, ErrEmptyQuestionSet) {
		t.Fatalf("err = %v, want ErrEmptyQuestionSet", err)
	}
}

func TestCountdownSeededFromQuestionCount(t *testing.T) {
	questions, key := makeQuestions(5)
	ts := startSession(t, questions, key.grader(), nil)

	v := mustView(t, ts.Session)
	if v.Remaining != 5*model.PerQuestionSeconds {
		t.Fatalf("remaining = %d, want %d", v.Remaining, 5*model.PerQuestionSeconds)
	}
	if v.Mode != model.ModeActive {
		t.Fatalf("mode = %s, want ACTIVE", v.Mode)
	}

	ts.tick(t, time.Second)
	if got := mustView(t, ts.Session).Remaining; got != 5*model.PerQuestionSeconds-1 {
		t.Fatalf("remaining after tick = %d, want %d", got, 5*model.PerQuestionSeconds-1)
	}
}

func TestAllCorrectRun(t *testing.T) {
	ctx := context.Background()
	questions, key := makeQuestions(3)

	var finishes []model.Summary
	ts := startSession(t, questions, key.grader(), func(sum model.Summary) {
		finishes = append(finishes, sum)
	})

	for i := 0; i < 3; i++ {
		if err := ts.Submit(ctx, "A"); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		v := mustView(t, ts.Session)
		if v.Mode != model.ModeFeedback {
			t.Fatalf("mode after submit = %s, want FEEDBACK", v.Mode)
		}
		if v.Score != i+1 {
			t.Fatalf("score = %d, want %d", v.Score, i+1)
		}
		if err := ts.Advance(ctx); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}

	v := mustView(t, ts.Session)
	if v.Mode != model.ModeFinished {
		t.Fatalf("mode = %s, want FINISHED", v.Mode)
	}
	if v.Summary == nil || v.Summary.Score != 3 || v.Summary.Total != 3 {
		t.Fatalf("summary = %+v, want {3 3}", v.Summary)
	}
	if v.Remaining == 0 {
		t.Fatal("expected time left on a fast finish")
	}
	if len(finishes) != 1 {
		t.Fatalf("onFinish fired %d times, want 1", len(finishes))
	}
}

func TestTimerExpiryForcesFinish(t *testing.T) {
	ctx := context.Background()
	questions, key := makeQuestions(5)

	finished := 0
	ts := startSession(t, questions, key.grader(), func(model.Summary) { finished++ })

	// Answer two questions: one correct, one wrong.
	if err := ts.Submit(ctx, "A"); err != nil {
		t.Fatalf("submit 1: %v", err)
	}
	if err := ts.Advance(ctx); err != nil {
		t.Fatalf("advance 1: %v", err)
	}
	if err := ts.Submit(ctx, "B"); err != nil {
		t.Fatalf("submit 2: %v", err)
	}
	if err := ts.Advance(ctx); err != nil {
		t.Fatalf("advance 2: %v", err)
	}

	// Let the whole budget elapse.
	ts.tick(t, time.Duration(5*model.PerQuestionSeconds+1)*time.Second)

	v := mustView(t, ts.Session)
	if v.Mode != model.ModeFinished {
		t.Fatalf("mode = %s, want FINISHED", v.Mode)
	}
	if v.Summary.Score != 1 || v.Summary.Total != 5 {
		t.Fatalf("summary = %+v, want {1 5}", v.Summary)
	}

	// A repeated zero-tick must not fire the finish twice.
	ts.ticks <- ts.clock.Now()
	mustView(t, ts.Session)
	if finished != 1 {
		t.Fatalf("onFinish fired %d times, want 1", finished)
	}

	// The three unreached questions stay unanswered.
	if err := ts.EnterReview(ctx); err != nil {
		t.Fatalf("enter review: %v", err)
	}
	entries, sum, err := ts.Review(ctx)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if sum.Score != 1 {
		t.Fatalf("review score = %d, want 1", sum.Score)
	}
	for i := 2; i < 5; i++ {
		if entries[i].UserSelection != nil {
			t.Fatalf("question %d has a selection after forced finish", i)
		}
	}
}

func TestGradingFailureRetainsSelection(t *testing.T) {
	ctx := context.Background()
	questions, key := makeQuestions(2)

	failures := 1
	flaky := GraderFunc(func(gctx context.Context, qid, sel string) (*model.Feedback, error) {
		if failures > 0 {
			failures--
			return nil, errors.New("connection refused")
		}
		return key.grader().Grade(gctx, qid, sel)
	})

	ts := startSession(t, questions, flaky, nil)

	err := ts.Submit(ctx, "A")
	if !errors.Is(err, ErrGrading) {
		t.Fatalf("err = %v, want ErrGrading", err)
	}

	v := mustView(t, ts.Session)
	if v.Mode != model.ModeActive {
		t.Fatalf("mode after failed grading = %s, want ACTIVE", v.Mode)
	}
	if v.Pending != "A" {
		t.Fatalf("pending = %q, want retained selection A", v.Pending)
	}
	if v.Question.UserSelection != nil {
		t.Fatal("question recorded a selection despite grading failure")
	}
	if v.Score != 0 {
		t.Fatalf("score = %d, want 0 (no partial credit)", v.Score)
	}

	// Retry succeeds.
	if err := ts.Submit(ctx, "A"); err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	v = mustView(t, ts.Session)
	if v.Mode != model.ModeFeedback || v.Score != 1 {
		t.Fatalf("after retry: mode=%s score=%d, want FEEDBACK/1", v.Mode, v.Score)
	}
	if v.Pending != "" {
		t.Fatalf("pending = %q after success, want empty", v.Pending)
	}
}

func TestSubmitGuards(t *testing.T) {
	ctx := context.Background()
	questions, key := makeQuestions(2)
	ts := startSession(t, questions, key.grader(), nil)

	if err := ts.Submit(ctx, ""); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("empty option: err = %v, want ErrNoSelection", err)
	}
	if err := ts.Submit(ctx, "Z"); !errors.Is(err, ErrUnknownOption) {
		t.Fatalf("unknown option: err = %v, want ErrUnknownOption", err)
	}

	if err := ts.Submit(ctx, "A"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	// In feedback mode another submission is a mode violation.
	if err := ts.Submit(ctx, "B"); !errors.Is(err, ErrWrongMode) {
		t.Fatalf("submit in feedback: err = %v, want ErrWrongMode", err)
	}

	// Even if the mode were active again, an answered question is immutable.
	if err := ts.do(ctx, func() error { ts.mode = model.ModeActive; return nil }); err != nil {
		t.Fatalf("force mode: %v", err)
	}
	if err := ts.Submit(ctx, "B"); !errors.Is(err, ErrAlreadyAnswered) {
		t.Fatalf("resubmit answered: err = %v, want ErrAlreadyAnswered", err)
	}
}

func TestExplicitFinishMatchesExpiry(t *testing.T) {
	ctx := context.Background()
	questions, key := makeQuestions(3)
	ts := startSession(t, questions, key.grader(), nil)

	if err := ts.Submit(ctx, "A"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := ts.Advance(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}

	if err := ts.Finish(ctx); err != nil {
		t.Fatalf("finish: %v", err)
	}
	v := mustView(t, ts.Session)
	if v.Mode != model.ModeFinished {
		t.Fatalf("mode = %s, want FINISHED", v.Mode)
	}
	// Same payload shape as a timer-driven finish.
	if v.Summary.Score != 1 || v.Summary.Total != 3 {
		t.Fatalf("summary = %+v, want {1 3}", v.Summary)
	}

	// Finishing twice is rejected, not re-applied.
	if err := ts.Finish(ctx); !errors.Is(err, ErrWrongMode) {
		t.Fatalf("second finish: err = %v, want ErrWrongMode", err)
	}
}

func TestReviewIsIdempotentAndReadOnly(t *testing.T) {
	ctx := context.Background()
	questions, key := makeQuestions(2)
	ts := startSession(t, questions, key.grader(), nil)

	if err := ts.EnterReview(ctx); !errors.Is(err, ErrNotFinished) {
		t.Fatalf("review before finish: err = %v, want ErrNotFinished", err)
	}

	if err := ts.Submit(ctx, "A"); err != nil {
		t.Fatalf("submit 1: %v", err)
	}
	if err := ts.Advance(ctx); err != nil {
		t.Fatalf("advance 1: %v", err)
	}
	if err := ts.Submit(ctx, "C"); err != nil {
		t.Fatalf("submit 2: %v", err)
	}
	if err := ts.Advance(ctx); err != nil {
		t.Fatalf("advance 2: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := ts.EnterReview(ctx); err != nil {
			t.Fatalf("enter review #%d: %v", i+1, err)
		}
		entries, sum, err := ts.Review(ctx)
		if err != nil {
			t.Fatalf("review #%d: %v", i+1, err)
		}
		if sum.Score != 1 || sum.Total != 2 {
			t.Fatalf("summary = %+v, want {1 2}", sum)
		}
		if len(entries) != 2 {
			t.Fatalf("entries = %d, want 2", len(entries))
		}
		if entries[0].ID != "q1" || entries[1].ID != "q2" {
			t.Fatal("review entries are not in original order")
		}
		if *entries[0].UserSelection != "A" || *entries[1].UserSelection != "C" {
			t.Fatal("review mutated user selections")
		}
		if *entries[1].CorrectOption != "A" {
			t.Fatalf("correct option = %q, want A", *entries[1].CorrectOption)
		}
		if entries[0].Explanation == nil {
			t.Fatal("explanation missing in review")
		}
	}

	// Index resets to the start on entering review.
	if got := mustView(t, ts.Session).Index; got != 0 {
		t.Fatalf("index in review = %d, want 0", got)
	}
}

func TestExpiryDuringGradingAppliesGradeFirst(t *testing.T) {
	ctx := context.Background()
	questions, key := makeQuestions(2)

	var ts *testSession
	slow := GraderFunc(func(gctx context.Context, qid, sel string) (*model.Feedback, error) {
		// The deadline passes while this grading call is in flight.
		ts.clock.Advance(time.Duration(2*model.PerQuestionSeconds+5) * time.Second)
		return key.grader().Grade(gctx, qid, sel)
	})

	ts = startSession(t, questions, slow, nil)

	if err := ts.Submit(ctx, "A"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// The grading result committed before the forced finish: the answer
	// counts, and the session is finished.
	v := mustView(t, ts.Session)
	if v.Mode != model.ModeFinished {
		t.Fatalf("mode = %s, want FINISHED", v.Mode)
	}
	if v.Summary.Score != 1 || v.Summary.Total != 2 {
		t.Fatalf("summary = %+v, want {1 2}", v.Summary)
	}
}

func TestExpiryDuringFailedGradingLeavesUnanswered(t *testing.T) {
	ctx := context.Background()
	questions, _ := makeQuestions(2)

	var ts *testSession
	failing := GraderFunc(func(context.Context, string, string) (*model.Feedback, error) {
		ts.clock.Advance(time.Duration(2*model.PerQuestionSeconds+5) * time.Second)
		return nil, errors.New("timeout")
	})

	ts = startSession(t, questions, failing, nil)

	if err := ts.Submit(ctx, "A"); !errors.Is(err, ErrGrading) {
		t.Fatalf("err = %v, want ErrGrading", err)
	}

	v := mustView(t, ts.Session)
	if v.Mode != model.ModeFinished {
		t.Fatalf("mode = %s, want FINISHED", v.Mode)
	}
	if v.Summary.Score != 0 {
		t.Fatalf("score = %d, want 0 — ungraded questions never count", v.Summary.Score)
	}
	if v.Question.UserSelection != nil {
		t.Fatal("question answered despite failed grading")
	}
}

func TestCloseStopsSession(t *testing.T) {
	ctx := context.Background()
	questions, key := makeQuestions(2)
	ts := startSession(t, questions, key.grader(), nil)

	ts.Close()

	if err := ts.Submit(ctx, "A"); !errors.Is(err, ErrClosed) {
		t.Fatalf("submit after close: err = %v, want ErrClosed", err)
	}
	if _, open := <-ts.Events(); open {
		// Drain until closed: emission stops with the run loop.
		for range ts.Events() {
		}
	}
	// Close is idempotent.
	ts.Close()
}

func TestTickEventsCarryRemaining(t *testing.T) {
	questions, key := makeQuestions(2)
	ts := startSession(t, questions, key.grader(), nil)

	ts.tick(t, time.Second)
	ts.tick(t, time.Second)

	ev := <-ts.Events()
	if ev.Type != EventTick || ev.Remaining != 2*model.PerQuestionSeconds-1 {
		t.Fatalf("first tick event = %+v", ev)
	}
	ev = <-ts.Events()
	if ev.Remaining != 2*model.PerQuestionSeconds-2 {
		t.Fatalf("second tick event = %+v", ev)
	}
}

// Replaying the same user actions against the same grading responses must
// always yield the same final summary.
func TestDeterministicReplay(t *testing.T) {
	ctx := context.Background()
	script := []string{"A", "B", "A", "D"}

	run := func() model.Summary {
		questions, key := makeQuestions(4)
		ts := startSession(t, questions, key.grader(), nil)
		for _, sel := range script {
			if err := ts.Submit(ctx, sel); err != nil {
				t.Fatalf("submit %q: %v", sel, err)
			}
			if err := ts.Advance(ctx); err != nil {
				t.Fatalf("advance after %q: %v", sel, err)
			}
		}
		return *mustView(t, ts.Session).Summary
	}

	first := run()
	for i := 0; i < 3; i++ {
		if got := run(); got != first {
			t.Fatalf("replay %d produced %+v, want %+v", i, got, first)
		}
	}
}
