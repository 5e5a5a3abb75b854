package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/zatekoja/functional-assessment/backend/internal/application/services"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/repositories"
)

const (
	maxRequestBodyBytes = 16 << 10
	maxMessageLength    = 2000
	maxPatientIDLength  = 128
	maxMetadataEntries  = 20
)

// AssessmentService defines the assessment operations used by the HTTP and stream handlers.
type AssessmentService interface {
	CreateSession(ctx context.Context, patientID string, metadata map[string]string) (*services.TurnResult, error)
	Respond(ctx context.Context, sessionID, input string) (*services.TurnResult, error)
	GetStatus(ctx context.Context, sessionID string) (*services.SessionStatus, error)
	GetSummary(ctx context.Context, sessionID string) (*services.SessionSummary, error)
	GetTranscript(ctx context.Context, sessionID string) ([]entities.ConversationMessage, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ListSessions(ctx context.Context, filter repositories.SessionFilter) ([]*services.SessionStatus, error)
	Info() *services.AssessmentInfo
	RenderReport(ctx context.Context, sessionID string) ([]byte, string, error)
}

// AssessmentHandler serves the assessment REST API
type AssessmentHandler struct {
	service AssessmentService
}

// NewAssessmentHandler creates a new assessment handler
func NewAssessmentHandler(service AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{service: service}
}

type createSessionRequest struct {
	PatientID string            `json:"patient_id"`
	Metadata  map[string]string `json:"metadata"`
}

type respondRequest struct {
	Message string `json:"message"`
}

// turnResponse is the body returned for every conversational turn
type turnResponse struct {
	SessionID string `json:"session_id"`
	*services.TurnResult
}

func newTurnResponse(result *services.TurnResult) turnResponse {
	resp := turnResponse{TurnResult: result}
	if result.Session != nil {
		resp.SessionID = result.Session.ID
	}
	return resp
}

// CreateSession handles POST /api/assessment/sessions
func (h *AssessmentHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	req.PatientID = strings.TrimSpace(req.PatientID)
	if len(req.PatientID) > maxPatientIDLength {
		respondWithError(w, http.StatusBadRequest, "patient_id is too long")
		return
	}
	if len(req.Metadata) > maxMetadataEntries {
		respondWithError(w, http.StatusBadRequest, "too many metadata entries")
		return
	}

	result, err := h.service.CreateSession(r.Context(), req.PatientID, req.Metadata)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, newTurnResponse(result))
}

// Respond handles POST /api/assessment/sessions/{id}/respond
func (h *AssessmentHandler) Respond(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "session ID is required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if len(req.Message) > maxMessageLength {
		respondWithError(w, http.StatusBadRequest, "message is too long")
		return
	}

	result, err := h.service.Respond(r.Context(), sessionID, req.Message)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, newTurnResponse(result))
}

// GetStatus handles GET /api/assessment/sessions/{id}
func (h *AssessmentHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.GetStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, status)
}

// GetSummary handles GET /api/assessment/sessions/{id}/summary
func (h *AssessmentHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetSummary(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

// GetTranscript handles GET /api/assessment/sessions/{id}/transcript
func (h *AssessmentHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	messages, err := h.service.GetTranscript(r.Context(), sessionID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"messages":   messages,
		"count":      len(messages),
	})
}

// GetReport handles GET /api/assessment/sessions/{id}/report
func (h *AssessmentHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	data, contentType, err := h.service.RenderReport(r.Context(), sessionID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\"assessment-"+sessionID+".pdf\"")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// DeleteSession handles DELETE /api/assessment/sessions/{id}
func (h *AssessmentHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSessions handles GET /api/assessment/sessions
// Active sessions are listed unless active=false is passed.
func (h *AssessmentHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repositories.SessionFilter{
		PatientID:  strings.TrimSpace(query.Get("patient_id")),
		ActiveOnly: true,
	}

	if v := query.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid active parameter")
			return
		}
		filter.ActiveOnly = active
	}
	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			respondWithError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		filter.Limit = limit
	}
	if v := query.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			respondWithError(w, http.StatusBadRequest, "invalid offset parameter")
			return
		}
		filter.Offset = offset
	}

	sessions, err := h.service.ListSessions(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetInfo handles GET /api/assessment/info
func (h *AssessmentHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.service.Info())
}
