package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/zatekoja/functional-assessment/backend/pkg/errors"
)

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps an application error onto an HTTP status.
// Internal failures never leak their message to the client.
func respondWithAppError(w http.ResponseWriter, err error) {
	status, body := errorBody(err)
	respondWithJSON(w, status, body)
}

// errorBody returns the HTTP status and client-facing body for err
func errorBody(err error) (int, map[string]string) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		log.Error().Err(err).Msg("unhandled error")
		return http.StatusInternalServerError, map[string]string{"error": "internal server error"}
	}

	switch appErr.Type {
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound, map[string]string{"error": appErr.Message}
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest, map[string]string{"error": appErr.Message}
	case apperrors.ErrorTypeConflict, apperrors.ErrorTypeSessionTerminal:
		return http.StatusConflict, map[string]string{
			"error": appErr.Message,
			"code":  string(appErr.Type),
		}
	default:
		log.Error().Err(err).Str("error_type", string(appErr.Type)).Msg("request failed")
		return http.StatusInternalServerError, map[string]string{"error": "internal server error"}
	}
}
