package handlers

import (
	"io"
	"net/http"

	"quizcraft-backend/internal/store"
)

// SnapshotHandler backs the manual backup/restore flow, the documented
// way to move data between isolated instances.
type SnapshotHandler struct {
	store *store.Store
}

func NewSnapshotHandler(s *store.Store) *SnapshotHandler {
	return &SnapshotHandler{store: s}
}

func (h *SnapshotHandler) Export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="quizcraft-backup.json"`)
	writeJSON(w, http.StatusOK, h.store.ExportSnapshot())
}

// Import applies a backup envelope. The body is handed to the store as
// raw bytes: parse failure applies nothing and comes back as a tagged
// result, never a panic.
func (h *SnapshotHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Failed to read request body", r))
		return
	}

	result := h.store.ImportSnapshot(data)
	if !result.Success {
		writeJSON(w, http.StatusBadRequest, errorResp("IMPORT_ERROR", result.Message, r))
		return
	}

	writeJSON(w, http.StatusOK, result)
}
