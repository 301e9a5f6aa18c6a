package handlers

import (
	"net/http"
	"strconv"

	"quizcraft-backend/internal/store"
)

type DashboardHandler struct {
	store *store.Store
}

func NewDashboardHandler(s *store.Store) *DashboardHandler {
	return &DashboardHandler{store: s}
}

// Stats returns the global aggregates plus the persistence health so the
// UI can show a non-blocking warning when writes are failing.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stats":       h.store.UserStats(),
		"save_status": h.store.SaveStatus(),
	})
}

func (h *DashboardHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := 5
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sets": h.store.RecentStudySets(limit),
	})
}
