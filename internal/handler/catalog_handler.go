package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizpath/session-gateway/internal/middleware"
	"github.com/quizpath/session-gateway/internal/response"
	"github.com/quizpath/session-gateway/internal/service"
	"github.com/quizpath/session-gateway/internal/upstream"
	"github.com/rs/zerolog"
)

// CatalogHandler proxies the content catalog so clients never talk to the
// content provider directly.
type CatalogHandler struct {
	catalog *service.CatalogService
	log     zerolog.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService, log zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		log:     log.With().Str("component", "catalog_handler").Logger(),
	}
}

// GetSubjects godoc
// GET /api/v1/catalog/subjects
func (h *CatalogHandler) GetSubjects(c *gin.Context) {
	subjects, err := h.catalog.Subjects(c.Request.Context(), middleware.GetToken(c))
	if err != nil {
		h.failCatalogError(c, err)
		return
	}

	response.Success(c, http.StatusOK, subjects)
}

// GetChapters godoc
// GET /api/v1/catalog/subjects/:subject_id/chapters
func (h *CatalogHandler) GetChapters(c *gin.Context) {
	subjectID := c.Param("subject_id")
	if subjectID == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	chapters, err := h.catalog.Chapters(c.Request.Context(), subjectID, middleware.GetToken(c))
	if err != nil {
		h.failCatalogError(c, err)
		return
	}

	response.Success(c, http.StatusOK, chapters)
}

func (h *CatalogHandler) failCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, upstream.ErrMalformedPayload):
		response.Fail(c, http.StatusBadGateway, response.ErrMalformedQuestions)
	case errors.Is(err, upstream.ErrUnavailable):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrUpstreamUnavailable)
	default:
		h.log.Error().Err(err).Msg("Unhandled catalog error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
