package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jameswalter4566/aicrmworking/pkg/logger"
	"github.com/jameswalter4566/aicrmworking/pkg/metrics"
)

// Client forwards call outcomes to the external record store. The store is an
// external collaborator: a single upsert keyed by lead reference. Forwarding
// failures are logged and counted but never change the webhook response.
type Client struct {
	BaseURL    string
	ServiceKey string
	HTTPClient *http.Client
}

// Outcome is the upsert payload.
type Outcome struct {
	LeadID    string `json:"leadId"`
	CallSid   string `json:"callSid,omitempty"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewClient creates a record-store client. A nil client is returned when no
// endpoint is configured; all methods are nil-safe no-ops in that case.
func NewClient(baseURL, serviceKey string) *Client {
	if baseURL == "" {
		logger.Base().Info("record store not configured, outcomes will not be forwarded")
		return nil
	}
	return &Client{
		BaseURL:    baseURL,
		ServiceKey: serviceKey,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// UpsertOutcome records the outcome of one call attempt against the lead.
// Errors are returned for logging only; callers must not fail on them.
func (c *Client) UpsertOutcome(ctx context.Context, outcome Outcome) error {
	if c == nil {
		return nil
	}
	if outcome.Timestamp == "" {
		outcome.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	jsonData, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	url := fmt.Sprintf("%s/call-outcomes", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.ServiceKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.ServiceKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("record store error: status=%d, body=%s", resp.StatusCode, string(bodyBytes))
	}

	logger.Base().Debug("call outcome forwarded",
		zap.String("lead_id", outcome.LeadID),
		zap.String("call_sid", outcome.CallSid),
		zap.String("status", outcome.Status),
	)
	return nil
}

// Forward upserts and swallows the error after logging it. This is what the
// controller calls on the response path.
func (c *Client) Forward(ctx context.Context, leadID, callSid, status string) {
	if c == nil {
		return
	}
	err := c.UpsertOutcome(ctx, Outcome{LeadID: leadID, CallSid: callSid, Status: status})
	if err != nil {
		metrics.RecordForwardFailures.Inc()
		logger.Base().Warn("failed to forward call outcome",
			zap.String("lead_id", leadID),
			zap.String("call_sid", callSid),
			zap.Error(err),
		)
	}
}
