package webhook

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jameswalter4566/aicrmworking/internal/call"
	"github.com/jameswalter4566/aicrmworking/internal/config"
	"github.com/jameswalter4566/aicrmworking/internal/markup"
	"github.com/jameswalter4566/aicrmworking/pkg/logger"
	"github.com/jameswalter4566/aicrmworking/pkg/metrics"
)

// Handler exposes the call webhook endpoint. One endpoint serves both the
// telephony provider's callbacks and the browser softphone's management
// requests; the classifier sorts out which is which.
type Handler struct {
	cfg        *config.Config
	controller *call.Controller
}

// NewHandler creates the webhook handler.
func NewHandler(cfg *config.Config, controller *call.Controller) *Handler {
	return &Handler{cfg: cfg, controller: controller}
}

// SetupRoutes registers all routes.
func (h *Handler) SetupRoutes(router *mux.Router) {
	webhookRouter := router.PathPrefix("/api/twilio").Subrouter()
	webhookRouter.Use(CORSMiddleware)
	webhookRouter.Use(LoggingMiddleware)
	webhookRouter.Use(SignatureMiddleware(h.cfg.AuthToken, h.cfg.PublicBaseURL))

	webhookRouter.HandleFunc("", h.HandleCallWebhook).Methods("POST", "GET", "OPTIONS")
	webhookRouter.HandleFunc("/token", h.HandleToken).Methods("POST", "OPTIONS")

	router.HandleFunc("/healthz", h.HandleHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	logger.Base().Info("call webhook routes registered")
}

// HandleCallWebhook normalizes, classifies, and dispatches one callback.
// Every outcome, including an internal panic, is answered with HTTP 200 and
// a well-formed body: the provider treats anything else as a reason to
// retry or abandon the call.
func (h *Handler) HandleCallWebhook(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Base().Error("panic in call webhook", zap.Any("panic", rec))
			writeResponse(w, call.Response{ContentType: markup.ContentType, Body: markup.Apology})
		}
	}()

	params := ParseRequest(r)
	action := Classify(params)
	metrics.WebhookRequests.WithLabelValues(string(action)).Inc()

	logger.Base().Info("call webhook request",
		zap.String("action", string(action)),
		zap.String("call_sid", params.First("CallSid", "callSid")),
		zap.String("lead_id", params.LeadID()),
	)
	logger.Base().Debug("call webhook params", zap.Any("params", params))

	resp := h.controller.Dispatch(r.Context(), action, params)
	writeResponse(w, resp)
}

// HandleHealth is the liveness probe.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

func writeResponse(w http.ResponseWriter, resp call.Response) {
	w.Header().Set("Content-Type", resp.ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(resp.Body)); err != nil {
		logger.Base().Warn("failed to write webhook response", zap.Error(err))
	}
}
