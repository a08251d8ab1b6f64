package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/boothsim/internal/api"
	"github.com/ashureev/boothsim/internal/identity"
	"github.com/ashureev/boothsim/internal/simulation"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
)

const writeTimeout = 10 * time.Second

// Frame types.
const (
	FrameTurn      = "turn"
	FrameEnd       = "end"
	FramePing      = "ping"
	FrameReply     = "reply"
	FrameCompleted = "completed"
	FrameError     = "error"
	FramePong      = "pong"
)

// clientFrame is a message from the browser.
type clientFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// serverFrame is a message to the browser.
type serverFrame struct {
	Type  string        `json:"type"`
	Turn  *api.TurnView `json:"turn,omitempty"`
	Score any           `json:"score,omitempty"`
	Error string        `json:"error,omitempty"`
}

// WebSocketHandler serves the live turn channel.
type WebSocketHandler struct {
	svc           *simulation.Service
	sm            *SessionManager
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(svc *simulation.Service, sm *SessionManager, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		svc:           svc,
		sm:            sm,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for the websocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	traineeID := identity.TraineeIDFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")
	slog.Info("Live connection request", "trainee_id", traineeID, "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}
	if _, err := h.svc.Get(r.Context(), traineeID, sessionID); err != nil {
		status, code := api.StatusFor(err)
		api.Error(w, status, code)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	h.sm.Register(sessionID, ws)
	defer h.sm.Unregister(sessionID, ws)

	h.readLoop(r.Context(), ws, traineeID, sessionID)
	slog.Info("Live session ended", "session_id", sessionID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, traineeID, sessionID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket closed", "session_id", sessionID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "session_id", sessionID)
			}
			return
		}

		var msg clientFrame
		if err := json.Unmarshal(data, &msg); err != nil {
			h.send(ctx, ws, serverFrame{Type: FrameError, Error: "invalid_frame"})
			continue
		}

		switch msg.Type {
		case FrameTurn:
			res, err := h.svc.Turn(ctx, traineeID, sessionID, msg.Content)
			if err != nil {
				_, code := api.StatusFor(err)
				h.send(ctx, ws, serverFrame{Type: FrameError, Error: code})
				continue
			}
			view := api.NewTurnView(res)
			h.send(ctx, ws, serverFrame{Type: FrameReply, Turn: &view})
			if res.Completed {
				h.send(ctx, ws, serverFrame{Type: FrameCompleted, Score: res.Score})
				return
			}
		case FrameEnd:
			_, score, err := h.svc.End(ctx, traineeID, sessionID)
			if err != nil {
				_, code := api.StatusFor(err)
				h.send(ctx, ws, serverFrame{Type: FrameError, Error: code})
				continue
			}
			h.send(ctx, ws, serverFrame{Type: FrameCompleted, Score: score})
			return
		case FramePing:
			h.send(ctx, ws, serverFrame{Type: FramePong})
		default:
			h.send(ctx, ws, serverFrame{Type: FrameError, Error: "unknown_frame"})
		}
	}
}

func (h *WebSocketHandler) send(ctx context.Context, ws *websocket.Conn, frame serverFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		slog.Error("Failed to encode frame", "error", err)
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := ws.Write(writeCtx, websocket.MessageText, data); err != nil {
		slog.Debug("WebSocket write error", "error", err, "type", frame.Type)
	}
}
