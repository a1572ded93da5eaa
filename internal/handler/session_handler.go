package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quizpath/session-gateway/internal/engine"
	"github.com/quizpath/session-gateway/internal/middleware"
	"github.com/quizpath/session-gateway/internal/model"
	"github.com/quizpath/session-gateway/internal/response"
	"github.com/quizpath/session-gateway/internal/service"
	"github.com/quizpath/session-gateway/internal/upstream"
	"github.com/quizpath/session-gateway/internal/validator"
	"github.com/rs/zerolog"
)

// SessionHandler drives quiz sessions over the HTTP surface. Navigation is
// the client's concern: the handler only reports session state, including the
// finishing summary, and the client decides where to go.
type SessionHandler struct {
	sessions *service.SessionService
	log      zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *service.SessionService, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		log:      log.With().Str("component", "session_handler").Logger(),
	}
}

// CreateSession godoc
// POST /api/v1/sessions
// Loads the chapter's questions (exactly once) and starts the countdown.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, err := h.sessions.Create(c.Request.Context(), claims.UserID(), req.ChapterID, middleware.GetToken(c))
	if err != nil {
		h.failSessionError(c, err)
		return
	}

	view, err := sess.View(c.Request.Context())
	if err != nil {
		h.failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, view)
}

// GetSession godoc
// GET /api/v1/sessions/:session_id
// Returns the current session snapshot: mode, position, score, remaining time
// and the current question (without correctness before grading).
func (h *SessionHandler) GetSession(c *gin.Context) {
	sess, ok := h.resolve(c)
	if !ok {
		return
	}

	view, err := sess.View(c.Request.Context())
	if err != nil {
		h.failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// SubmitAnswer godoc
// POST /api/v1/sessions/:session_id/answer
// Grades the selected option against the remote authority.
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	sess, ok := h.resolve(c)
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := sess.Submit(c.Request.Context(), req.SelectedOption); err != nil {
		h.failSessionError(c, err)
		return
	}

	view, err := sess.View(c.Request.Context())
	if err != nil {
		h.failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// Advance godoc
// POST /api/v1/sessions/:session_id/advance
// Moves past the current feedback; finishing after the last question.
func (h *SessionHandler) Advance(c *gin.Context) {
	h.transition(c, func(sess *engine.Session) error {
		return sess.Advance(c.Request.Context())
	})
}

// Finish godoc
// POST /api/v1/sessions/:session_id/finish
// Explicit early finish. Unsubmitted selections are discarded ungraded.
func (h *SessionHandler) Finish(c *gin.Context) {
	h.transition(c, func(sess *engine.Session) error {
		return sess.Finish(c.Request.Context())
	})
}

// EnterReview godoc
// POST /api/v1/sessions/:session_id/review
// Switches a finished session into read-only replay.
func (h *SessionHandler) EnterReview(c *gin.Context) {
	h.transition(c, func(sess *engine.Session) error {
		return sess.EnterReview(c.Request.Context())
	})
}

// GetReview godoc
// GET /api/v1/sessions/:session_id/review
// Returns the full replay with the frozen summary. No network, no mutation.
func (h *SessionHandler) GetReview(c *gin.Context) {
	sess, ok := h.resolve(c)
	if !ok {
		return
	}

	entries, summary, err := sess.Review(c.Request.Context())
	if err != nil {
		h.failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"questions": entries,
		"summary":   summary,
	})
}

// Teardown godoc
// DELETE /api/v1/sessions/:session_id
// Exits the session. All per-question state is discarded; the countdown is
// cancelled; a late grading response will never be applied.
func (h *SessionHandler) Teardown(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.sessions.Teardown(c.Request.Context(), sessionID, claims.UserID()); err != nil {
		h.failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "closed"})
}

// transition applies a state transition and responds with the fresh view.
func (h *SessionHandler) transition(c *gin.Context, op func(*engine.Session) error) {
	sess, ok := h.resolve(c)
	if !ok {
		return
	}

	if err := op(sess); err != nil {
		h.failSessionError(c, err)
		return
	}

	view, err := sess.View(c.Request.Context())
	if err != nil {
		h.failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// resolve parses the session ID and enforces ownership.
func (h *SessionHandler) resolve(c *gin.Context) (*engine.Session, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, false
	}

	sess, err := h.sessions.Get(sessionID, claims.UserID())
	if err != nil {
		h.failSessionError(c, err)
		return nil, false
	}
	return sess, true
}

// failSessionError maps domain errors onto response codes.
func (h *SessionHandler) failSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, engine.ErrClosed):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotSessionOwner):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrSessionActive):
		response.Fail(c, http.StatusConflict, response.ErrSessionActive)
	case errors.Is(err, engine.ErrEmptyQuestionSet):
		response.Fail(c, http.StatusNotFound, response.ErrQuestionsUnavailable)
	case errors.Is(err, upstream.ErrMalformedPayload):
		response.Fail(c, http.StatusBadGateway, response.ErrMalformedQuestions)
	case errors.Is(err, upstream.ErrUnavailable):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrUpstreamUnavailable)
	case errors.Is(err, engine.ErrGrading):
		response.Fail(c, http.StatusBadGateway, response.ErrGradingUnavailable)
	case errors.Is(err, engine.ErrNoSelection):
		response.Fail(c, http.StatusBadRequest, response.ErrNoSelection)
	case errors.Is(err, engine.ErrUnknownOption):
		response.Fail(c, http.StatusBadRequest, response.ErrUnknownOption)
	case errors.Is(err, engine.ErrAlreadyAnswered):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyAnswered)
	case errors.Is(err, engine.ErrWrongMode):
		response.Fail(c, http.StatusConflict, response.ErrWrongMode)
	case errors.Is(err, engine.ErrNotFinished):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotFinished)
	default:
		h.log.Error().Err(err).Msg("Unhandled session error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
