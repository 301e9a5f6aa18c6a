package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quizcraft-backend/internal/models"
	"quizcraft-backend/internal/store"
)

type ProgressHandler struct {
	store *store.Store
}

func NewProgressHandler(s *store.Store) *ProgressHandler {
	return &ProgressHandler{store: s}
}

func (h *ProgressHandler) Update(w http.ResponseWriter, r *http.Request) {
	setID := chi.URLParam(r, "id")

	var req models.UpdateProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.CardID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "card_id is required", r))
		return
	}

	if err := h.store.UpdateProgress(setID, req.CardID, req.Status); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"summary": h.store.ProgressSummary(setID),
	})
}

func (h *ProgressHandler) Get(w http.ResponseWriter, r *http.Request) {
	setID := chi.URLParam(r, "id")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"progress": h.store.GetProgress(setID),
		"summary":  h.store.ProgressSummary(setID),
	})
}

// Clear resets every card in the set to unseen.
func (h *ProgressHandler) Clear(w http.ResponseWriter, r *http.Request) {
	setID := chi.URLParam(r, "id")

	if err := h.store.ClearProgress(setID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Progress cleared"})
}
