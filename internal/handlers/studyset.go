package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quizcraft-backend/internal/models"
	"quizcraft-backend/internal/store"
)

type StudySetHandler struct {
	store *store.Store
}

func NewStudySetHandler(s *store.Store) *StudySetHandler {
	return &StudySetHandler{store: s}
}

func (h *StudySetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateStudySetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	set, err := h.store.AddStudySet(req.Title, req.Cards)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"set": set})
}

func (h *StudySetHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"sets": h.store.ListStudySets()})
}

func (h *StudySetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	set, ok := h.store.GetStudySetByID(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Study set not found", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"set": set})
}

func (h *StudySetHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var upd models.StudySetUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	// An unknown id is deliberately a no-op, not an error.
	if err := h.store.UpdateStudySet(id, upd); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Study set updated"})
}

func (h *StudySetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.DeleteStudySet(id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Study set deleted"})
}

// RecordSession closes out a flashcard review or a completed test. Score
// is optional; plain review sessions carry only a duration.
func (h *StudySetHandler) RecordSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.RecordSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.Score != nil && (*req.Score < 0 || *req.Score > 100) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "score must be between 0 and 100", r))
		return
	}
	if req.DurationSeconds < 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "duration_seconds must not be negative", r))
		return
	}

	if err := h.store.RecordStudySession(id, req.Score, req.DurationSeconds); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Session recorded",
		"stats":   h.store.UserStats(),
	})
}
