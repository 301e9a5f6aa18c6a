package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"quizcraft-backend/internal/models"
	"quizcraft-backend/internal/services"
	"quizcraft-backend/internal/store"
)

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch e := err.(type) {
	case *services.ValidationError:
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", e.Fields, r))
		return
	case *services.NotFoundError:
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", e.Message, r))
		return
	case *services.UnavailableError:
		writeJSON(w, http.StatusServiceUnavailable, errorResp("AI_UNAVAILABLE", e.Message, r))
		return
	}

	switch {
	case errors.Is(err, store.ErrEmptyTitle), errors.Is(err, store.ErrNoValidCards), errors.Is(err, store.ErrBadStatus):
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", err.Error(), r))
	case errors.Is(err, store.ErrNotReady):
		writeJSON(w, http.StatusServiceUnavailable, errorResp("NOT_READY", "Store is still loading", r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Something went wrong", r))
	}
}
