package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/functional-assessment/backend/internal/infrastructure/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 4096
	sendBufferSize = 16
)

// Frame types written to interview sockets
const (
	FrameStatus = "status"
	FrameTurn   = "turn"
	FrameError  = "error"
)

// socketFrame is the envelope of every server message
type socketFrame struct {
	Type   string      `json:"type"`
	Data   interface{} `json:"data,omitempty"`
	Status int         `json:"status,omitempty"`
	Error  string      `json:"error,omitempty"`
	Code   string      `json:"code,omitempty"`
}

// WebSocketHandler runs an interview over a WebSocket: each text frame
// {"message": "..."} is one turn and is answered with a turn frame.
type WebSocketHandler struct {
	service  AssessmentService
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewWebSocketHandler creates a new WebSocket handler.
// A nil checkOrigin accepts every origin.
func NewWebSocketHandler(service AssessmentService, checkOrigin func(r *http.Request) bool) *WebSocketHandler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &WebSocketHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: log.With().Str("component", "websocket").Logger(),
	}
}

// ServeSession handles GET /api/assessment/sessions/{id}/ws
func (h *WebSocketHandler) ServeSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "session ID is required")
		return
	}

	status, err := h.service.GetStatus(r.Context(), sessionID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("session_id", sessionID).Msg("websocket upgrade failed")
		return
	}

	logger := observability.WithTraceContext(r.Context(), h.logger).With().Str("session_id", sessionID).Logger()
	logger.Debug().Msg("websocket connected")

	send := make(chan socketFrame, sendBufferSize)
	done := make(chan struct{})
	go h.writePump(conn, send, done, logger)

	h.enqueue(send, done, socketFrame{Type: FrameStatus, Data: status})
	h.readPump(r.Context(), conn, sessionID, send, done, logger)
	close(send)
}

func (h *WebSocketHandler) readPump(ctx context.Context, conn *websocket.Conn, sessionID string, send chan<- socketFrame, done <-chan struct{}, logger zerolog.Logger) {
	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}

		var req respondRequest
		if err := json.Unmarshal(data, &req); err != nil {
			h.enqueue(send, done, socketFrame{Type: FrameError, Status: http.StatusBadRequest, Error: "invalid message payload"})
			continue
		}
		if len(req.Message) > maxMessageLength {
			h.enqueue(send, done, socketFrame{Type: FrameError, Status: http.StatusBadRequest, Error: "message is too long"})
			continue
		}

		result, err := h.service.Respond(ctx, sessionID, req.Message)
		if err != nil {
			status, body := errorBody(err)
			h.enqueue(send, done, socketFrame{Type: FrameError, Status: status, Error: body["error"], Code: body["code"]})
			continue
		}
		if !h.enqueue(send, done, socketFrame{Type: FrameTurn, Data: newTurnResponse(result)}) {
			return
		}
	}
}

func (h *WebSocketHandler) writePump(conn *websocket.Conn, send <-chan socketFrame, done chan<- struct{}, logger zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		close(done)
	}()

	for {
		select {
		case frame, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(frame); err != nil {
				logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue hands a frame to the write pump; false once the pump has exited
func (h *WebSocketHandler) enqueue(send chan<- socketFrame, done <-chan struct{}, frame socketFrame) bool {
	select {
	case send <- frame:
		return true
	case <-done:
		return false
	}
}
