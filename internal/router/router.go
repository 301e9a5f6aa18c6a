package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"quizcraft-backend/internal/handlers"
	"quizcraft-backend/internal/middleware"
)

func New(
	studySetHandler *handlers.StudySetHandler,
	progressHandler *handlers.ProgressHandler,
	testHandler *handlers.TestHandler,
	snapshotHandler *handlers.SnapshotHandler,
	generateHandler *handlers.GenerateHandler,
	dashboardHandler *handlers.DashboardHandler,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{frontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Requested-With", "Accept", "Origin"},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler)

	// AI generation rate limiter (20 req/min per IP)
	generateLimiter := middleware.NewRateLimiter(20, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Study Set Routes ────
		r.Route("/study-sets", func(r chi.Router) {
			r.Post("/", studySetHandler.Create)
			r.Get("/", studySetHandler.List)
			r.Get("/{id}", studySetHandler.Get)
			r.Put("/{id}", studySetHandler.Update)
			r.Delete("/{id}", studySetHandler.Delete)
			r.Post("/{id}/sessions", studySetHandler.RecordSession)

			r.Put("/{id}/progress", progressHandler.Update)
			r.Get("/{id}/progress", progressHandler.Get)
			r.Delete("/{id}/progress", progressHandler.Clear)

			r.Post("/{id}/test", testHandler.Build)

			r.Group(func(r chi.Router) {
				r.Use(generateLimiter.Middleware)
				r.Post("/{id}/study-guide", generateHandler.StudyGuide)
			})
		})

		// ──── Generation & Import Routes ────
		r.Route("/generate", func(r chi.Router) {
			r.Use(generateLimiter.Middleware)
			r.Post("/text", generateHandler.FromText)
			r.Post("/upload", generateHandler.FromUpload)
		})

		r.Route("/import", func(r chi.Router) {
			r.Post("/text", generateHandler.ImportText)
		})

		// ──── Snapshot Routes ────
		r.Route("/snapshot", func(r chi.Router) {
			r.Get("/", snapshotHandler.Export)
			r.Post("/", snapshotHandler.Import)
		})

		// ──── Dashboard Routes ────
		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/stats", dashboardHandler.Stats)
			r.Get("/recent", dashboardHandler.Recent)
		})
	})

	return r
}
