package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/quizpath/session-gateway/internal/engine"
	"github.com/quizpath/session-gateway/internal/middleware"
	"github.com/quizpath/session-gateway/internal/service"
	ws "github.com/quizpath/session-gateway/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams session state over WebSocket: countdown ticks every
// second, grading feedback, and the forced-finish notification.
type WSHandler struct {
	sessions *service.SessionService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessions *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/:session_id/stream
// Upgrades to WebSocket. The server pushes tick/feedback/finished events and
// accepts the same actions as the HTTP surface.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	sess, err := h.sessions.Get(sessionID, claims.UserID())
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Str("user_id", claims.UserID()).
		Str("session_id", sessionID.String()).
		Logger()

	wsLog.Info().Msg("Client connected")

	// Initial full snapshot so a reconnecting client can resync immediately.
	view, err := sess.View(c.Request.Context())
	if err != nil {
		conn.WriteError("session closed")
		return
	}
	if err := conn.WriteEvent(ws.EventState, view); err != nil {
		return
	}

	quit := make(chan struct{})
	defer close(quit)
	go h.pumpEvents(sess, conn, quit, wsLog)

	for {
		var msg ws.RequestPayload
		if err := conn.ReadRequest(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		h.handleAction(c, sess, conn, &msg, wsLog)
	}
}

// pumpEvents forwards session events to the client until the session closes
// or the client disconnects.
func (h *WSHandler) pumpEvents(sess *engine.Session, conn *ws.Conn, quit <-chan struct{}, wsLog zerolog.Logger) {
	events := sess.Events()
	for {
		select {
		case <-quit:
			return
		case ev, ok := <-events:
			if !ok {
				conn.WriteError("session closed")
				return
			}
			if err := h.pushEvent(conn, ev); err != nil {
				wsLog.Debug().Err(err).Msg("Event push failed")
				return
			}
		}
	}
}

func (h *WSHandler) pushEvent(conn *ws.Conn, ev engine.Event) error {
	switch ev.Type {
	case engine.EventTick:
		return conn.WriteEvent(ws.EventTick, gin.H{"remaining_seconds": ev.Remaining})
	case engine.EventFeedback:
		return conn.WriteEvent(ws.EventFeedback, gin.H{
			"question_index": ev.Index,
			"feedback":       ev.Feedback,
		})
	case engine.EventFinished:
		return conn.WriteEvent(ws.EventFinished, ev.Summary)
	default:
		return nil
	}
}

// handleAction applies one client action and replies with the fresh view.
func (h *WSHandler) handleAction(c *gin.Context, sess *engine.Session, conn *ws.Conn, msg *ws.RequestPayload, wsLog zerolog.Logger) {
	ctx := c.Request.Context()

	var err error
	switch msg.Action {
	case ws.ActionSubmit:
		err = sess.Submit(ctx, msg.Option)
	case ws.ActionAdvance:
		err = sess.Advance(ctx)
	case ws.ActionFinish:
		err = sess.Finish(ctx)
	case ws.ActionReview:
		err = sess.EnterReview(ctx)
	case ws.ActionPing:
		conn.WritePong()
		return
	default:
		wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
		conn.WriteError("unknown action: " + string(msg.Action))
		return
	}

	if err != nil {
		conn.WriteError(err.Error())
		return
	}

	view, err := sess.View(ctx)
	if err != nil {
		conn.WriteError("session closed")
		return
	}
	conn.WriteEvent(ws.EventState, view)
}
