package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jameswalter4566/aicrmworking/internal/call"
	"github.com/jameswalter4566/aicrmworking/internal/config"
	"github.com/jameswalter4566/aicrmworking/internal/records"
	"github.com/jameswalter4566/aicrmworking/internal/telephony"
	"github.com/jameswalter4566/aicrmworking/internal/webhook"
	"github.com/jameswalter4566/aicrmworking/pkg/logger"
)

// Server is the call-routing webhook server.
type Server struct {
	cfg    *config.Config
	router *mux.Router
}

// NewServer wires configuration, the call-control client, the record-store
// forwarder, the controller, and the webhook routes.
func NewServer(cfg *config.Config) *Server {
	if _, err := logger.Init(os.Getenv("LOG_ENV")); err != nil {
		logger.Base().Error("failed to initialize zap logger, falling back to std log")
	}

	var control telephony.CallControl
	if cfg.HasAccountCredentials() {
		control = telephony.NewClient(cfg.AccountSID, cfg.AuthToken)
	} else {
		// Voice actions degrade to spoken apologies; there is no reason to
		// refuse to start, the provider still needs valid callback answers.
		logger.Base().Warn("provider credentials not configured, call control disabled")
	}
	if !cfg.HasCallerID() {
		logger.Base().Warn("caller ID number not configured, dial actions will apologize")
	}

	rec := records.NewClient(cfg.RecordsBaseURL, cfg.RecordsServiceKey)
	controller := call.NewController(cfg, control, rec)

	router := mux.NewRouter()
	webhook.NewHandler(cfg, controller).SetupRoutes(router)

	return &Server{cfg: cfg, router: router}
}

// Start runs the HTTP server until it fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.cfg.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Base().Info("starting server", zap.String("addr", addr))
	return server.ListenAndServe()
}

func main() {
	// Load .env file for local development if it exists. This will not
	// override environment variables set by the deployment.
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: .env file not found or skipped (expected in production): %v", err)
	}

	cfg := config.Load()
	server := NewServer(cfg)
	defer logger.Sync()

	if err := server.Start(); err != nil {
		log.Fatalf("server failed to start: %v", err)
	}
}
