package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quizcraft-backend/internal/models"
	"quizcraft-backend/internal/services"
	"quizcraft-backend/internal/store"
	"quizcraft-backend/internal/testgen"
)

type TestHandler struct {
	store  *store.Store
	gemini *services.GeminiService
}

func NewTestHandler(s *store.Store, gemini *services.GeminiService) *TestHandler {
	return &TestHandler{store: s, gemini: gemini}
}

// Build generates a fresh multiple-choice test for a set. With use_ai the
// distractors come from the AI collaborator, falling back per card to
// sibling sampling when a generation fails; without it (or without an API
// key) sampling is used throughout.
func (h *TestHandler) Build(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.BuildTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	set, ok := h.store.GetStudySetByID(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Study set not found", r))
		return
	}

	var gen testgen.DistractorGenerator
	if req.UseAI && h.gemini.Available() {
		gen = h.gemini
	}

	questions := testgen.BuildTest(r.Context(), set, gen)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"set_id":    set.ID,
		"questions": questions,
	})
}
