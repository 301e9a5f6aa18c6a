package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"quizcraft-backend/internal/models"
	"quizcraft-backend/internal/services"
	"quizcraft-backend/internal/store"
)

const maxUploadBytes = 20 << 20 // 20 MB

// GenerateHandler drives AI-assisted set creation and the non-AI CSV
// import path. While one generation for a target is in flight, a second
// request for the same target is rejected rather than queued.
type GenerateHandler struct {
	store       *store.Store
	gemini      *services.GeminiService
	fileExtract *services.FileExtractService
	importer    *services.CardImportService

	mu       sync.Mutex
	inflight map[string]bool
}

func NewGenerateHandler(s *store.Store, gemini *services.GeminiService, fileExtract *services.FileExtractService, importer *services.CardImportService) *GenerateHandler {
	return &GenerateHandler{
		store:       s,
		gemini:      gemini,
		fileExtract: fileExtract,
		importer:    importer,
		inflight:    make(map[string]bool),
	}
}

func (h *GenerateHandler) tryAcquire(target string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.inflight[target] {
		return false
	}
	h.inflight[target] = true
	return true
}

func (h *GenerateHandler) release(target string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.inflight, target)
}

// FromText generates a flashcard set from pasted text. This is AI-only:
// with no API key configured there is no fallback, so the failure is
// surfaced explicitly.
func (h *GenerateHandler) FromText(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateFlashcardsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "text is required", r))
		return
	}
	if !h.gemini.Available() {
		writeJSON(w, http.StatusServiceUnavailable, errorResp("AI_UNAVAILABLE", "AI generation requires a configured API key", r))
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Generated Study Set"
	}

	target := "text:" + title
	if !h.tryAcquire(target) {
		writeJSON(w, http.StatusConflict, errorResp("GENERATION_IN_PROGRESS", "A generation for this target is already running", r))
		return
	}
	defer h.release(target)

	generated, err := h.gemini.GenerateFlashcards(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	set, err := h.store.AddStudySet(title, generated.Cards)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := map[string]interface{}{"set": set}
	if generated.StudyGuide != nil {
		resp["study_guide"] = generated.StudyGuide
	}
	writeJSON(w, http.StatusCreated, resp)
}

// FromUpload creates a set from an uploaded document. CSV files take the
// plain import path; everything else is text-extracted and handed to the
// AI, which means it needs a configured API key.
func (h *GenerateHandler) FromUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid multipart form", r))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "file is required", r))
		return
	}
	defer file.Close()

	filename := header.Filename
	ext := strings.ToLower(filepath.Ext(filename))

	target := "file:" + filename
	if !h.tryAcquire(target) {
		writeJSON(w, http.StatusConflict, errorResp("GENERATION_IN_PROGRESS", "A generation for this file is already running", r))
		return
	}
	defer h.release(target)

	if ext == ".csv" {
		cards, err := h.importer.ParseCards(file)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Failed to parse CSV data", r))
			return
		}
		h.createImportedSet(w, r, services.TitleFromFilename(filename), cards)
		return
	}

	if !h.fileExtract.IsSupported(filename) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Unsupported file type", r))
		return
	}
	if !h.gemini.Available() {
		writeJSON(w, http.StatusServiceUnavailable, errorResp("AI_UNAVAILABLE", "AI generation requires a configured API key", r))
		return
	}

	// The extractors work from a path, so stage the upload in a temp file.
	tmp, err := os.CreateTemp("", "quizcraft-upload-*"+ext)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to stage upload", r))
		return
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.ReadFrom(file); err != nil {
		tmp.Close()
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to stage upload", r))
		return
	}
	tmp.Close()

	text, err := h.fileExtract.ExtractTextFromPath(tmp.Name())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No extractable text found in file", r))
		return
	}

	req := models.GenerateFlashcardsRequest{
		Text:              text,
		NumCards:          parseFormInt(r, "num_cards", 10),
		Difficulty:        r.FormValue("difficulty"),
		Subject:           r.FormValue("subject"),
		IncludeStudyGuide: r.FormValue("include_study_guide") == "true",
	}

	generated, err := h.gemini.GenerateFlashcards(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	set, err := h.store.AddStudySet(services.TitleFromFilename(filename), generated.Cards)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := map[string]interface{}{"set": set}
	if generated.StudyGuide != nil {
		resp["study_guide"] = generated.StudyGuide
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ImportText creates a set from pasted CSV-format card data. No AI
// involved.
func (h *GenerateHandler) ImportText(w http.ResponseWriter, r *http.Request) {
	var req models.ImportCardsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "text is required", r))
		return
	}

	cards, err := h.importer.ParseCards(strings.NewReader(req.Text))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Failed to parse card data", r))
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = services.DefaultImportTitle
	}
	h.createImportedSet(w, r, title, cards)
}

// StudyGuide generates a guide for an existing set from its cards and the
// learner's progress marks. AI-only, no fallback.
func (h *GenerateHandler) StudyGuide(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	set, ok := h.store.GetStudySetByID(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Study set not found", r))
		return
	}
	if !h.gemini.Available() {
		writeJSON(w, http.StatusServiceUnavailable, errorResp("AI_UNAVAILABLE", "AI generation requires a configured API key", r))
		return
	}

	target := "guide:" + id
	if !h.tryAcquire(target) {
		writeJSON(w, http.StatusConflict, errorResp("GENERATION_IN_PROGRESS", "A study guide for this set is already being generated", r))
		return
	}
	defer h.release(target)

	guide, err := h.gemini.GenerateStudyGuide(r.Context(), set, h.store.GetProgress(id))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"study_guide": guide})
}

func (h *GenerateHandler) createImportedSet(w http.ResponseWriter, r *http.Request, title string, cards []models.Card) {
	if len(cards) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No valid data found to import. Please check your format.", r))
		return
	}

	set, err := h.store.AddStudySet(title, cards)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"set": set})
}

func parseFormInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.FormValue(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
