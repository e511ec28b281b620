package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/sanjeevkumarraob/drive-search-service/internal/api"
	"github.com/sanjeevkumarraob/drive-search-service/internal/artifact"
	"github.com/sanjeevkumarraob/drive-search-service/internal/auth"
	"github.com/sanjeevkumarraob/drive-search-service/internal/config"
	"github.com/sanjeevkumarraob/drive-search-service/internal/document"
	"github.com/sanjeevkumarraob/drive-search-service/internal/document/extractor"
	"github.com/sanjeevkumarraob/drive-search-service/internal/document/heuristics"
	"github.com/sanjeevkumarraob/drive-search-service/internal/document/ocr"
	"github.com/sanjeevkumarraob/drive-search-service/internal/drive"
	"github.com/sanjeevkumarraob/drive-search-service/internal/pipeline"
	"github.com/sanjeevkumarraob/drive-search-service/internal/search"
	"github.com/sanjeevkumarraob/drive-search-service/internal/session"
	"github.com/sanjeevkumarraob/drive-search-service/internal/unidoc"
)

func main() {
	// Initialize logger
	logger := log.New(os.Stdout, "DRIVE-SEARCH: ", log.Ldate|log.Ltime|log.Lshortfile)

	// A missing .env is normal outside development
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Printf("WARNING: failed to load .env: %v", err)
	}

	cfg, err := config.Load("")
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Configuration error: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := unidoc.SetLicenseKey(cfg.UnidocLicenseKey); err != nil {
		logger.Printf("WARNING: %v", err)
	}
	if !unidoc.Licensed() {
		logger.Printf("No unioffice license, Word documents are read and written with the built-in WordprocessingML codec")
	}

	// Session and ticket secrets
	sessionSecret := cfg.Session.Secret
	if sessionSecret == "" {
		sessionSecret = "dev-session-secret-change-me-now!"
		logger.Printf("WARNING: Using insecure default session key. Set SESSION_SECRET environment variable for production.")
	}
	ticketSecret := cfg.Session.TicketSecret
	if ticketSecret == "" {
		ticketSecret = sessionSecret
	}

	store := session.NewCookieStore(sessionSecret, cfg.IsProduction())
	sessionManager := session.NewSessionManager(logger, store, int(cfg.Session.MaxAge.Seconds()))

	googleAuth := auth.NewGoogleAuth(auth.GoogleConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
		Scopes:       cfg.Google.Scopes,
	}, logger)

	// Initialize Drive client
	driveClient := drive.NewClient(drive.Config{
		BaseURL:         cfg.Drive.BaseURL,
		DriveID:         cfg.Drive.TeamDriveID,
		MaxDownloadSize: cfg.Drive.MaxDownloadSize,
		Timeout:         cfg.Drive.Timeout,
	}, logger)
	if cfg.Drive.TeamDriveID == "" {
		logger.Printf("TEAM_DRIVE_ID not set, searching all drives")
	}

	// Initialize document processor
	var converter *extractor.Converter
	if cfg.Extract.DocConverter != "none" {
		converter = extractor.NewConverter(cfg.Extract.DocConverter, "", cfg.Extract.ConvertTimeout)
	}
	var ocrProcessor *ocr.Processor
	if p := ocr.NewProcessor(cfg.Extract.OCRLanguages...); p.Available() {
		ocrProcessor = p
	} else {
		logger.Printf("OCR not available, images will not be extracted")
	}
	docProcessor := document.NewProcessor(logger, converter, ocrProcessor, document.Options{
		MaxFileSize: cfg.Extract.MaxFileSize,
		Normalize: heuristics.NormalizeOptions{
			Marker:     cfg.Extract.Marker,
			LineBudget: cfg.Extract.LineBudget,
		},
	})

	artifacts, err := artifact.NewStore(artifact.Config{
		Dir: cfg.Artifact.Dir,
		TTL: cfg.Artifact.TTL,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize artifact store: %v", err)
	}
	defer artifacts.Close()

	handler := api.NewHandler(api.Dependencies{
		GoogleAuth:     googleAuth,
		SessionManager: sessionManager,
		Tickets:        auth.NewTicketManager(ticketSecret, cfg.Session.TicketDuration),
		Drive:          driveClient,
		Search:         search.NewOrchestrator(driveClient, logger),
		Exporter:       pipeline.NewExporter(driveClient, docProcessor, artifacts, logger),
		Processor:      docProcessor,
		Artifacts:      artifacts,
		MaxUploadSize:  cfg.Extract.MaxFileSize,
	}, logger)

	router := api.NewRouter(handler, cfg.Origins(), logger)

	// Start server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	go func() {
		logger.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Printf("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Printf("Server shutdown failed: %v", err)
	}
}
