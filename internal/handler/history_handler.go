package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/quizpath/session-gateway/internal/middleware"
	"github.com/quizpath/session-gateway/internal/response"
	"github.com/quizpath/session-gateway/internal/service"
	"github.com/rs/zerolog"
)

// HistoryHandler serves the persisted attempt history.
type HistoryHandler struct {
	history *service.HistoryService
	log     zerolog.Logger
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(history *service.HistoryService, log zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{
		history: history,
		log:     log.With().Str("component", "history_handler").Logger(),
	}
}

// GetProgress godoc
// GET /api/v1/progress?limit=50
// Returns the caller's finished attempts, newest first.
func (h *HistoryHandler) GetProgress(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	attempts, err := h.history.ListByUser(c.Request.Context(), claims.UserID(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list attempts")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, attempts)
}
