package telephony

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jameswalter4566/aicrmworking/pkg/logger"
	"github.com/jameswalter4566/aicrmworking/pkg/metrics"
)

// Call is the subset of the provider call resource the controller needs.
type Call struct {
	Sid    string
	Status string
	To     string
	From   string
}

// CreateCallInput describes an outbound call placement.
type CreateCallInput struct {
	To             string
	From           string
	Markup         string // voice-control markup executed when the callee answers
	StatusCallback string // URL notified on lifecycle transitions
	TimeoutSeconds int
}

// CallControl is the call-control surface this service consumes from the
// telephony provider: create, fetch, list in-progress, and terminate.
type CallControl interface {
	CreateCall(ctx context.Context, in CreateCallInput) (*Call, error)
	FetchCall(ctx context.Context, sid string) (*Call, error)
	ListInProgress(ctx context.Context) ([]Call, error)
	TerminateCall(ctx context.Context, sid string) error
}

// statusCallbackEvents are the lifecycle transitions the provider reports to
// the status-callback URL.
var statusCallbackEvents = []string{"initiated", "ringing", "answered", "completed"}

// Client implements CallControl against the Twilio REST API. Outbound calls
// are throttled by a rate limiter and guarded by a circuit breaker so a
// misbehaving provider degrades to fast ProviderError responses instead of
// piling up blocked webhook requests.
type Client struct {
	rest    *twilio.RestClient
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewClient creates a call-control client. accountSID and authToken must be
// non-empty; callers are expected to check credentials before constructing.
func NewClient(accountSID, authToken string) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "call-control",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Base().Warn("call-control circuit state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		rest: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		breaker: breaker,
	}
}

// CreateCall places an outbound call that executes the given markup when
// answered and reports lifecycle events to the status-callback URL.
func (c *Client) CreateCall(ctx context.Context, in CreateCallInput) (*Call, error) {
	params := &api.CreateCallParams{}
	params.SetTo(in.To)
	params.SetFrom(in.From)
	params.SetTwiml(in.Markup)
	if in.StatusCallback != "" {
		params.SetStatusCallback(in.StatusCallback)
		params.SetStatusCallbackEvent(statusCallbackEvents)
		params.SetStatusCallbackMethod("POST")
	}
	if in.TimeoutSeconds > 0 {
		params.SetTimeout(in.TimeoutSeconds)
	}

	resp, err := execute(ctx, c, "create", func() (*api.ApiV2010Call, error) {
		return c.rest.Api.CreateCall(params)
	})
	if err != nil {
		return nil, fmt.Errorf("create call: %w", err)
	}
	call := fromResource(resp)
	logger.Base().Info("outbound call created",
		zap.String("call_sid", call.Sid),
		zap.String("to", in.To),
		zap.String("status", call.Status),
	)
	return call, nil
}

// FetchCall retrieves the current state of one call.
func (c *Client) FetchCall(ctx context.Context, sid string) (*Call, error) {
	resp, err := execute(ctx, c, "fetch", func() (*api.ApiV2010Call, error) {
		return c.rest.Api.FetchCall(sid, &api.FetchCallParams{})
	})
	if err != nil {
		return nil, fmt.Errorf("fetch call %s: %w", sid, err)
	}
	return fromResource(resp), nil
}

// ListInProgress returns every call the provider reports as in progress.
func (c *Client) ListInProgress(ctx context.Context) ([]Call, error) {
	params := &api.ListCallParams{}
	params.SetStatus("in-progress")

	resp, err := execute(ctx, c, "list", func() ([]api.ApiV2010Call, error) {
		return c.rest.Api.ListCall(params)
	})
	if err != nil {
		return nil, fmt.Errorf("list in-progress calls: %w", err)
	}
	calls := make([]Call, 0, len(resp))
	for i := range resp {
		calls = append(calls, *fromResource(&resp[i]))
	}
	return calls, nil
}

// TerminateCall asks the provider to end the call by moving it to completed.
func (c *Client) TerminateCall(ctx context.Context, sid string) error {
	params := &api.UpdateCallParams{}
	params.SetStatus("completed")

	_, err := execute(ctx, c, "terminate", func() (*api.ApiV2010Call, error) {
		return c.rest.Api.UpdateCall(sid, params)
	})
	if err != nil {
		return fmt.Errorf("terminate call %s: %w", sid, err)
	}
	logger.Base().Info("call terminated", zap.String("call_sid", sid))
	return nil
}

// execute runs one provider request through the limiter and breaker and
// records metrics for it.
func execute[T any](ctx context.Context, c *Client, operation string, fn func() (T, error)) (T, error) {
	var zero T
	if err := c.limiter.Wait(ctx); err != nil {
		return zero, err
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	metrics.ProviderLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ProviderCalls.WithLabelValues(operation, "error").Inc()
		return zero, err
	}
	metrics.ProviderCalls.WithLabelValues(operation, "ok").Inc()
	return result.(T), nil
}

func fromResource(resp *api.ApiV2010Call) *Call {
	call := &Call{}
	if resp.Sid != nil {
		call.Sid = *resp.Sid
	}
	if resp.Status != nil {
		call.Status = *resp.Status
	}
	if resp.To != nil {
		call.To = *resp.To
	}
	if resp.From != nil {
		call.From = *resp.From
	}
	return call
}
