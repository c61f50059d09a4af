package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/student-records/internal/middleware"
	"github.com/stemsi/student-records/internal/model"
	ws "github.com/stemsi/student-records/internal/websocket"
)

// ChangeFeed streams committed student mutations.
type ChangeFeed interface {
	Changes(ctx context.Context) (<-chan model.StudentChange, error)
}

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow-list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients such as the terminal dashboard.
				return true
			}
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler pushes student change notifications to dashboards.
type WSHandler struct {
	feed       ChangeFeed
	log        zerolog.Logger
	upgrader   websocket.Upgrader
	pingPeriod time.Duration
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(feed ChangeFeed, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		feed:       feed,
		log:        log.With().Str("component", "ws_handler").Logger(),
		upgrader:   buildUpgrader(allowedOrigins),
		pingPeriod: ws.PingPeriod,
	}
}

// StudentChanges godoc
// WS /ws/v1/students/changes?token=...
// Sends a student_changed event after every committed mutation.
func (h *WSHandler) StudentChanges(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := h.feed.Changes(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Change feed unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "change feed unavailable"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("user_id", claims.UserID).Logger()
	wsLog.Info().Msg("Dashboard connected")

	// gorilla allows a single writer, so the reader hands pongs to the loop below.
	pongs := make(chan struct{}, 1)
	go func() {
		defer cancel()
		ws.KeepAlive(conn)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				}
				return
			}
			if msg.Action == ws.ActionPing {
				select {
				case pongs <- struct{}{}:
				default:
				}
			}
		}
	}()

	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wsLog.Debug().Msg("Dashboard disconnected")
			return
		case change, ok := <-changes:
			if !ok {
				ws.WriteError(conn, "change feed closed")
				return
			}
			if err := ws.WriteTyped(conn, ws.NewChangeEvent(change)); err != nil {
				return
			}
		case <-pongs:
			if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
				return
			}
		case <-ticker.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		}
	}
}
