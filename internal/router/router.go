package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/quizpath/session-gateway/internal/config"
	"github.com/quizpath/session-gateway/internal/handler"
	"github.com/quizpath/session-gateway/internal/middleware"
	"github.com/quizpath/session-gateway/internal/response"
	"github.com/quizpath/session-gateway/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Catalog *handler.CatalogHandler
	Session *handler.SessionHandler
	History *handler.HistoryHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Session creation is the expensive path (question fetch + countdown
	// start), so it gets its own per-IP limiter.
	createLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. API Group (JWT) ────────────────────────────────────────────
	api := router.Group("/api/v1")
	api.Use(middleware.RequireUserJWT(authService))
	{
		api.GET("/catalog/subjects", handlers.Catalog.GetSubjects)
		api.GET("/catalog/subjects/:subject_id/chapters", handlers.Catalog.GetChapters)

		api.POST("/sessions", createLimiter.Middleware(), handlers.Session.CreateSession)
		api.GET("/sessions/:session_id", handlers.Session.GetSession)
		api.POST("/sessions/:session_id/answer", handlers.Session.SubmitAnswer)
		api.POST("/sessions/:session_id/advance", handlers.Session.Advance)
		api.POST("/sessions/:session_id/finish", handlers.Session.Finish)
		api.POST("/sessions/:session_id/review", handlers.Session.EnterReview)
		api.GET("/sessions/:session_id/review", handlers.Session.GetReview)
		api.DELETE("/sessions/:session_id", handlers.Session.Teardown)

		api.GET("/progress", handlers.History.GetProgress)
	}

	// ─── 2. WebSocket Group (WS Auth) ──────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireUserWSAuth(authService))
	{
		ws.GET("/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	return router
}
