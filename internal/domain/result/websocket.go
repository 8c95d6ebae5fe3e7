package result

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"productlogik/internal/pkg/jwt"
	"productlogik/internal/pkg/response"
)

const (
	defaultPollInterval = 2 * time.Second
	pingInterval        = 30 * time.Second
	pongWait            = 60 * time.Second
	writeWait           = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the token query parameter authenticates the connection
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type TokenValidator interface {
	ValidateToken(tokenStr string) (*jwt.Claims, error)
}

type wsEvent struct {
	Type  string        `json:"type"`
	Data  *AnalysisView `json:"data,omitempty"`
	Error *wsError      `json:"error,omitempty"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WSHandler streams the analysis payload for one upload until it reaches a
// terminal status, as an alternative to polling the GET endpoint.
type WSHandler struct {
	service      *Service
	tokens       TokenValidator
	pollInterval time.Duration
	log          *zap.Logger
}

func NewWSHandler(service *Service, tokens TokenValidator, pollInterval time.Duration) *WSHandler {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &WSHandler{
		service:      service,
		tokens:       tokens,
		pollInterval: pollInterval,
		log:          zap.L().Named("analysis-ws"),
	}
}

// Stream handles GET /analysis/:upload_id/ws?token=JWT
func (h *WSHandler) Stream(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "AUTH_TOKEN_MISSING", "Token is required. Use ?token=YOUR_JWT_TOKEN")
		return
	}
	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		return
	}

	uploadID := c.Param("upload_id")
	view, err := h.service.Get(c.Request.Context(), uploadID, claims.UserID)
	if err != nil {
		writeGetError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go h.readLoop(conn, cancel)

	h.pushUntilTerminal(ctx, conn, uploadID, claims.UserID, view)
}

func (h *WSHandler) pushUntilTerminal(ctx context.Context, conn *websocket.Conn, uploadID string, userID int64, view *AnalysisView) {
	poll := time.NewTicker(h.pollInterval)
	defer poll.Stop()
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	var lastStatus Status
	for {
		if view.Status != lastStatus {
			if err := h.write(conn, wsEvent{Type: "analysis", Data: view}); err != nil {
				return
			}
			lastStatus = view.Status
		}
		if view.Terminal() {
			h.close(conn, websocket.CloseNormalClosure, "analysis "+string(view.Status))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		case <-poll.C:
		}

		next, err := h.service.Get(ctx, uploadID, userID)
		if err != nil {
			h.log.Warn("analysis poll failed", zap.String("upload_id", uploadID), zap.Error(err))
			_ = h.write(conn, wsEvent{Type: "error", Error: &wsError{Code: "ANALYSIS_FAILED", Message: "Failed to load analysis"}})
			h.close(conn, websocket.CloseInternalServerErr, "")
			return
		}
		view = next
	}
}

// readLoop only drains control frames; clients are not expected to send data.
func (h *WSHandler) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket closed", zap.Error(err))
			}
			return
		}
	}
}

func (h *WSHandler) write(conn *websocket.Conn, ev wsEvent) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}

func (h *WSHandler) close(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
}
