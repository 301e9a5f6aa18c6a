package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizcraft-backend/internal/config"
	"quizcraft-backend/internal/handlers"
	"quizcraft-backend/internal/router"
	"quizcraft-backend/internal/services"
	"quizcraft-backend/internal/storage"
	"quizcraft-backend/internal/store"
)

func main() {
	log.Println("🚀 Starting QuizCraft Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Open Local Blob Storage ────
	blobs, err := storage.NewLocalStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("✗ Failed to open data directory: %v", err)
	}
	log.Printf("✓ Data directory ready (%s)", cfg.DataDir)

	// ──── Step 3: Load the Card Set Store ────
	cardStore := store.New(blobs)
	if err := cardStore.Load(); err != nil {
		log.Fatalf("✗ Store load failed: %v", err)
	}
	log.Println("✓ Study sets loaded")

	// ──── Step 4: Initialize Gemini Client (optional) ────
	var geminiService *services.GeminiService
	if cfg.GeminiAPIKey != "" {
		geminiService, err = services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
		if err != nil {
			log.Fatalf("✗ Gemini client initialization failed: %v", err)
		}
		defer geminiService.Close()
		log.Printf("✓ Gemini client initialized (%s)", cfg.GeminiModel)
	} else {
		log.Println("• GEMINI_API_KEY not set, AI features disabled")
	}

	// ──── Initialize Services ────
	fileExtractService := services.NewFileExtractService()
	cardImportService := services.NewCardImportService()

	// ──── Initialize Handlers ────
	studySetHandler := handlers.NewStudySetHandler(cardStore)
	progressHandler := handlers.NewProgressHandler(cardStore)
	testHandler := handlers.NewTestHandler(cardStore, geminiService)
	snapshotHandler := handlers.NewSnapshotHandler(cardStore)
	generateHandler := handlers.NewGenerateHandler(cardStore, geminiService, fileExtractService, cardImportService)
	dashboardHandler := handlers.NewDashboardHandler(cardStore)

	// ──── Step 5: Start HTTP Server ────
	r := router.New(
		studySetHandler,
		progressHandler,
		testHandler,
		snapshotHandler,
		generateHandler,
		dashboardHandler,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ QuizCraft Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
