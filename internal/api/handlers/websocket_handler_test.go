package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/functional-assessment/backend/internal/api/handlers"
	"github.com/zatekoja/functional-assessment/backend/internal/application/services"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/functional-assessment/backend/pkg/errors"
)

type frame struct {
	Type   string                 `json:"type"`
	Data   map[string]interface{} `json:"data"`
	Status int                    `json:"status"`
	Error  string                 `json:"error"`
	Code   string                 `json:"code"`
}

func newSocketServer(t *testing.T, service handlers.AssessmentService) *httptest.Server {
	t.Helper()
	handler := handlers.NewWebSocketHandler(service, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/assessment/sessions/{id}/ws", handler.ServeSession)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, sessionID string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/assessment/sessions/" + sessionID + "/ws"
	return websocket.DefaultDialer.Dial(url, nil)
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestWebSocketHandler_ServeSession(t *testing.T) {
	mockService := new(MockAssessmentService)
	mockService.On("GetStatus", mock.Anything, "sess-1").Return(&services.SessionStatus{SessionID: "sess-1", Progress: "0/18"}, nil)
	mockService.On("Respond", mock.Anything, "sess-1", "yes").Return(&services.TurnResult{
		Session:        entities.NewSession("sess-1", "", fixedNow),
		Message:        "First question",
		Phase:          entities.PhaseIADL,
		Progress:       "0/18",
		ShouldContinue: true,
	}, nil)
	mockService.On("Respond", mock.Anything, "sess-1", "late").Return(nil, apperrors.NewSessionTerminalError("sess-1", "assessment complete"))

	server := newSocketServer(t, mockService)
	conn, _, err := dial(t, server, "sess-1")
	require.NoError(t, err)
	defer conn.Close()

	status := readFrame(t, conn)
	assert.Equal(t, handlers.FrameStatus, status.Type)
	assert.Equal(t, "0/18", status.Data["progress"])

	require.NoError(t, conn.WriteJSON(map[string]string{"message": "yes"}))
	turn := readFrame(t, conn)
	assert.Equal(t, handlers.FrameTurn, turn.Type)
	assert.Equal(t, "sess-1", turn.Data["session_id"])
	assert.Equal(t, "First question", turn.Data["message"])

	require.NoError(t, conn.WriteJSON(map[string]string{"message": "late"}))
	failed := readFrame(t, conn)
	assert.Equal(t, handlers.FrameError, failed.Type)
	assert.Equal(t, http.StatusConflict, failed.Status)
	assert.Equal(t, "SESSION_TERMINAL", failed.Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	invalid := readFrame(t, conn)
	assert.Equal(t, http.StatusBadRequest, invalid.Status)

	mockService.AssertExpectations(t)
}

func TestWebSocketHandler_UnknownSession(t *testing.T) {
	mockService := new(MockAssessmentService)
	mockService.On("GetStatus", mock.Anything, "missing").Return(nil, apperrors.NewSessionNotFoundError("missing"))

	server := newSocketServer(t, mockService)
	_, resp, err := dial(t, server, "missing")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
