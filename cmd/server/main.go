package main

import (
	"context"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"dictation/internal/audio"
	"dictation/internal/config"
	"dictation/internal/handlers"
	"dictation/internal/kvstore"
	"dictation/internal/repository"
	"dictation/internal/security"
	"dictation/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	sources, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		log.Fatalf("Failed to load sources: %v", err)
	}

	log.Printf("Source catalog loaded: %v", sources.LanguageCodes())

	ctx := context.Background()

	// Open the record store (sql, redis or memory)
	store, closeStore, err := kvstore.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()

	log.Printf("Record store ready (backend: %s)", cfg.StoreBackend)

	// Initialize repositories
	records := repository.NewRecordRepository(store, sources)
	selections := repository.NewSelectionRepository(store)

	// Initialize services
	loader, err := service.NewPoolLoader(sources, cfg.DataBaseURL, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		log.Fatalf("Failed to create pool loader: %v", err)
	}
	engine := service.NewSessionEngine(sources, records, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	dictation := service.NewDictationService(sources, loader, records, selections, engine)

	if selection := dictation.LastSelection(ctx); selection != nil {
		if _, err := dictation.LoadPool(ctx, selection.Language, selection.Grade); err != nil {
			log.Printf("Warning: Failed to preload %s/%s: %v", selection.Language, selection.Grade, err)
		}
	}

	audioDir := filepath.Join(cfg.StaticFilesPath, "audio")
	if err := os.MkdirAll(audioDir, 0755); err != nil {
		log.Fatalf("Failed to create audio directory: %v", err)
	}
	ttsService := audio.NewTTSService(audioDir)

	reportMailer, err := service.NewReportMailer(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.Debug)
	if err != nil {
		log.Printf("Warning: Report mailer unavailable: %v", err)
		reportMailer = nil
	}

	// Initialize handlers
	var reports handlers.ReportSender
	if reportMailer != nil {
		reports = reportMailer
	}
	dictationHandler := handlers.NewDictationHandler(dictation, ttsService, reports, cfg.SpeechRate, cfg.Debug)

	reportLimiter := security.NewRateLimiter(5, time.Hour)
	defer reportLimiter.Stop()
	dictationHandler.LimitReports(reportLimiter)

	// Setup routes
	mux := http.NewServeMux()

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticFilesPath))))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(cfg.StaticFilesPath, "index.html"))
	})

	dictationHandler.RegisterRoutes(mux)

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	ttsService.Wait()
}
