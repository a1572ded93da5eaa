package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quizpath/session-gateway/internal/config"
	"github.com/quizpath/session-gateway/internal/engine"
	"github.com/quizpath/session-gateway/internal/model"
	"github.com/quizpath/session-gateway/internal/upstream"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotSessionOwner = errors.New("session belongs to another user")
	ErrSessionActive   = errors.New("an active session already exists for this user")
)

const (
	// SessionReapGrace is how long past its countdown deadline an abandoned
	// session survives in the registry before eviction. Matches the slack on
	// the Redis active-session marker TTL.
	SessionReapGrace = time.Hour
	reapInterval     = time.Minute
)

// SessionService owns the live quiz sessions hosted by the gateway. Sessions
// exist only in memory: teardown discards all per-question state, and a new
// attempt always starts empty. One live session per user.
type SessionService struct {
	cfg      *config.Config
	upstream *upstream.Client
	rdb      *redis.Client
	log      zerolog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*engine.Session
	byUser   map[string]uuid.UUID

	now func() time.Time
}

// NewSessionService creates a new SessionService.
func NewSessionService(cfg *config.Config, up *upstream.Client, rdb *redis.Client, log zerolog.Logger) *SessionService {
	return &SessionService{
		cfg:      cfg,
		upstream: up,
		rdb:      rdb,
		log:      log.With().Str("component", "session_service").Logger(),
		sessions: make(map[uuid.UUID]*engine.Session),
		byUser:   make(map[string]uuid.UUID),
		now:      time.Now,
	}
}

// Create loads a chapter's question set (exactly once) and starts a session
// with the countdown running. The load happens before the session exists:
// a failed or empty load means no session, no timer.
func (s *SessionService) Create(ctx context.Context, userID, chapterID, token string) (*engine.Session, error) {
	s.mu.RLock()
	prevID, active := s.byUser[userID]
	prev := s.sessions[prevID]
	s.mu.RUnlock()
	if active {
		// A finished, expired or closed leftover must not lock the user out:
		// a client that crashed or navigated away never calls teardown.
		if prev == nil || !s.reclaimable(ctx, prev) {
			return nil, ErrSessionActive
		}
		s.evict(prev, "stale session replaced")
	}

	questions, err := s.loadQuestions(ctx, chapterID, token)
	if err != nil {
		return nil, err
	}

	grader := engine.GraderFunc(func(gctx context.Context, questionID, selectedOption string) (*model.Feedback, error) {
		return s.upstream.SubmitAttempt(gctx, upstream.AttemptRequest{
			QuestionID:     questionID,
			SelectedOption: selectedOption,
			ChapterID:      chapterID,
		}, token)
	})

	sess, err := engine.New(engine.Config{
		UserID:    userID,
		ChapterID: chapterID,
		Questions: questions,
		Grader:    grader,
		Log:       s.log,
		OnFinish: func(sum model.Summary) {
			s.enqueueAttempt(userID, chapterID, sum)
		},
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if _, raced := s.byUser[userID]; raced {
		s.mu.Unlock()
		sess.Close()
		return nil, ErrSessionActive
	}
	s.sessions[sess.ID] = sess
	s.byUser[userID] = sess.ID
	s.mu.Unlock()

	// Best-effort marker so other gateway features can see the active
	// session; the in-memory map is the source of truth.
	ttl := time.Duration(len(questions)*model.PerQuestionSeconds)*time.Second + SessionReapGrace
	if err := s.rdb.Set(ctx, config.CacheKey.UserActiveSessionKey(userID), sess.ID.String(), ttl).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to mark active session in Redis")
	}

	return sess, nil
}

// Get returns a live session, enforcing ownership.
func (s *SessionService) Get(sessionID uuid.UUID, userID string) (*engine.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.UserID != userID {
		return nil, ErrNotSessionOwner
	}
	return sess, nil
}

// Teardown closes and forgets a session. The countdown is cancelled and any
// late grading response is discarded with the session.
func (s *SessionService) Teardown(ctx context.Context, sessionID uuid.UUID, userID string) error {
	sess, err := s.Get(sessionID, userID)
	if err != nil {
		return err
	}

	s.evict(sess, "session torn down")
	return nil
}

// reclaimable reports whether a registered session no longer represents a
// live attempt: already closed, past its deadline plus grace, or resting in
// a post-finish mode. ACTIVE and FEEDBACK sessions inside their time budget
// are never reclaimed.
func (s *SessionService) reclaimable(ctx context.Context, sess *engine.Session) bool {
	if sess.Expired(s.now(), SessionReapGrace) {
		return true
	}
	view, err := sess.View(ctx)
	if err != nil {
		// Closed session still in the registry.
		return errors.Is(err, engine.ErrClosed)
	}
	return view.Mode == model.ModeFinished || view.Mode == model.ModeReview
}

// evict closes a session and removes it from the registry and the Redis
// marker. Safe to call for an already-closed session.
func (s *SessionService) evict(sess *engine.Session, reason string) {
	sess.Close()

	s.mu.Lock()
	delete(s.sessions, sess.ID)
	if s.byUser[sess.UserID] == sess.ID {
		delete(s.byUser, sess.UserID)
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.rdb.Del(ctx, config.CacheKey.UserActiveSessionKey(sess.UserID)).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to clear active session marker")
	}

	s.log.Info().
		Str("session_id", sess.ID.String()).
		Str("user_id", sess.UserID).
		Msg(reason)
}

// StartReaper evicts abandoned sessions until ctx is cancelled. A session is
// abandoned once its countdown deadline lies more than SessionReapGrace in
// the past — by then it has long force-finished, and a client that cared
// would have torn it down or started review.
func (s *SessionService) StartReaper(ctx context.Context) {
	s.log.Info().Msg("Session reaper started")
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reapExpired()
		}
	}
}

func (s *SessionService) reapExpired() {
	now := s.now()

	s.mu.RLock()
	var expired []*engine.Session
	for _, sess := range s.sessions {
		if sess.Expired(now, SessionReapGrace) {
			expired = append(expired, sess)
		}
	}
	s.mu.RUnlock()

	for _, sess := range expired {
		s.evict(sess, "abandoned session reaped")
	}
}

// CloseAll tears down every live session. Used on shutdown.
func (s *SessionService) CloseAll() {
	s.mu.Lock()
	sessions := make([]*engine.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[uuid.UUID]*engine.Session)
	s.byUser = make(map[string]uuid.UUID)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}

// loadQuestions serves a chapter's question set, preferring the Redis cache.
// Cached payloads were stripped of correctness on first load, so the cache
// can never leak answers. Redis being down degrades to pass-through.
func (s *SessionService) loadQuestions(ctx context.Context, chapterID, token string) ([]model.Question, error) {
	key := config.CacheKey.ChapterQuestionsKey(chapterID)

	if raw, err := s.rdb.Get(ctx, key).Result(); err == nil {
		var questions []model.Question
		if jsonErr := json.Unmarshal([]byte(raw), &questions); jsonErr == nil && len(questions) > 0 {
			return questions, nil
		}
		s.log.Warn().Str("chapter_id", chapterID).Msg("Discarding unreadable cached questions")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Question cache read failed, falling through to upstream")
	}

	questions, err := s.upstream.FetchQuestions(ctx, chapterID, token)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("chapter %s: %w", chapterID, engine.ErrEmptyQuestionSet)
	}

	if raw, err := json.Marshal(questions); err == nil {
		if err := s.rdb.Set(ctx, key, raw, s.cfg.QuestionCacheTTL).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Question cache write failed")
		}
	}

	return questions, nil
}

// enqueueAttempt pushes a finished-session summary onto the persistence
// queue. Runs on the session goroutine, so it gets its own bounded context.
func (s *SessionService) enqueueAttempt(userID, chapterID string, sum model.Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	raw, _ := json.Marshal(model.Attempt{
		UserID:     userID,
		ChapterID:  chapterID,
		Score:      sum.Score,
		Total:      sum.Total,
		FinishedAt: time.Now().UTC(),
	})

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAttemptsQueue, raw).Err(); err != nil {
		s.log.Error().Err(err).
			Str("user_id", userID).
			Str("chapter_id", chapterID).
			Msg("Failed to enqueue attempt — history entry lost")
	}
}
