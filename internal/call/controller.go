package call

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jameswalter4566/aicrmworking/internal/config"
	"github.com/jameswalter4566/aicrmworking/internal/markup"
	"github.com/jameswalter4566/aicrmworking/internal/records"
	"github.com/jameswalter4566/aicrmworking/internal/telephony"
	"github.com/jameswalter4566/aicrmworking/pkg/logger"
)

// Response is what one action handler produces. Body is always a complete,
// well-formed document; the transport layer writes it with HTTP 200.
type Response struct {
	ContentType string
	Body        string
}

// Ring timeout for outbound dials. Shorter than the provider default so
// no-answer surfaces faster.
const dialTimeoutSeconds = 20

// Spoken messages. The dial-status mapping is closed; anything outside it
// falls into the templated generic message.
const (
	msgWait           = "Please wait while we connect your call."
	msgNoNumber       = "No phone number was provided. Goodbye."
	msgClosing        = "The call has been completed. Goodbye."
	msgConfigApology  = "We are sorry, the calling service is not configured correctly. Please try again later. Goodbye."
	msgDialCompleted  = "The call has ended. Thank you."
	msgDialBusy       = "The line is busy. Please try again later."
	msgDialNoAnswer   = "There was no answer. Please try again later."
	msgDialFailed     = "The call could not be connected. Please check the number and try again."
	msgDialGenericFmt = "The call ended with a status of %s. Goodbye."
)

var dialStatusMessages = map[string]string{
	"completed": msgDialCompleted,
	"busy":      msgDialBusy,
	"no-answer": msgDialNoAnswer,
	"failed":    msgDialFailed,
}

// Controller executes the business logic for each call action. It is
// stateless: everything it needs arrives in the request or lives in
// read-only configuration, so concurrent callbacks for the same call are
// independently idempotent.
type Controller struct {
	cfg     *config.Config
	control telephony.CallControl
	records *records.Client
}

// NewController creates a controller. control may be nil when provider
// credentials are absent; affected actions degrade per the error taxonomy.
func NewController(cfg *config.Config, control telephony.CallControl, rec *records.Client) *Controller {
	return &Controller{
		cfg:     cfg,
		control: control,
		records: rec,
	}
}

// Dispatch routes one classified request to its handler. Every branch
// returns a complete response; nothing escapes as an error.
func (c *Controller) Dispatch(ctx context.Context, action Action, p Params) Response {
	switch action {
	case ActionGetConfig:
		return c.GetConfig()
	case ActionMakeCall:
		return c.MakeCall(ctx, p)
	case ActionClientCall:
		return c.ClientCall(p)
	case ActionStatusCallback:
		return c.StatusCallback(ctx, p)
	case ActionDialStatus:
		return c.DialStatus(ctx, p)
	case ActionCheckStatus:
		return c.CheckStatus(ctx, p)
	case ActionEndCall:
		return c.EndCall(ctx, p)
	case ActionHangupAll:
		return c.HangupAll(ctx)
	case ActionConferenceStatus:
		return c.ConferenceStatus()
	default:
		return c.Unknown(p)
	}
}

// GetConfig returns the configured caller-ID number. No provider call.
func (c *Controller) GetConfig() Response {
	if !c.cfg.HasCallerID() {
		return jsonError((&ConfigurationError{Missing: "caller ID number"}).Error())
	}
	return jsonBody(map[string]any{
		"success":     true,
		"phoneNumber": c.cfg.CallerID,
	})
}

// MakeCall places an outbound call to the requested number and returns the
// provider-assigned call identifier as JSON.
func (c *Controller) MakeCall(ctx context.Context, p Params) Response {
	if c.control == nil || !c.cfg.HasAccountCredentials() || !c.cfg.HasCallerID() {
		logger.Base().Error("makeCall without provider configuration")
		return xmlBody(markup.SayHangup(msgConfigApology))
	}

	phone := p.First("phoneNumber", "phone_number")
	to := NormalizePhone(phone)
	if to == "" {
		return jsonError((&ValidationError{Field: "phoneNumber"}).Error())
	}
	leadID := p.LeadID()

	created, err := c.control.CreateCall(ctx, telephony.CreateCallInput{
		To:             to,
		From:           c.cfg.CallerID,
		Markup:         markup.Dial(to, c.cfg.CallerID, fmt.Sprint(dialTimeoutSeconds), ""),
		StatusCallback: c.callbackURL(ActionStatusCallback, leadID),
		TimeoutSeconds: dialTimeoutSeconds,
	})
	if err != nil {
		perr := &ProviderError{Op: "create", Err: err}
		logger.Base().Error("failed to place outbound call",
			zap.String("to", to),
			zap.String("lead_id", leadID),
			zap.Error(err),
		)
		return jsonError(perr.Error())
	}

	return jsonBody(map[string]any{
		"success": true,
		"callSid": created.Sid,
	})
}

// ClientCall answers a browser-originated dial with markup that speaks a
// short wait message and then dials the destination. The dial-result action
// URL carries the lead reference so the follow-up request correlates without
// any server-side session.
func (c *Controller) ClientCall(p Params) Response {
	if !c.cfg.HasCallerID() {
		logger.Base().Error("clientCall without caller ID configured")
		return xmlBody(markup.SayHangup(msgConfigApology))
	}

	phone := p.First("phoneNumber", "phone_number", "To")
	if phone == "" || phone == c.cfg.CallerID {
		logger.Base().Warn("client call with no destination number",
			zap.String("from", p["From"]),
		)
		return xmlBody(markup.SayHangup(msgNoNumber))
	}

	to := NormalizePhone(phone)
	if to == "" {
		logger.Base().Warn("client call with undialable destination",
			zap.String("from", p["From"]),
		)
		return xmlBody(markup.SayHangup(msgNoNumber))
	}
	actionURL := c.callbackURL(ActionDialStatus, p.LeadID())
	logger.Base().Info("dialing client call",
		zap.String("to", to),
		zap.String("from", p["From"]),
		zap.String("lead_id", p.LeadID()),
	)
	return xmlBody(markup.SayThenDial(msgWait, to, c.cfg.CallerID, fmt.Sprint(dialTimeoutSeconds), actionURL))
}

// StatusCallback acknowledges a lifecycle transition. Only the terminal
// completed status speaks a closing message; everything else is answered
// with an empty, well-formed document.
func (c *Controller) StatusCallback(ctx context.Context, p Params) Response {
	sid := p.First("CallSid", "callSid")
	status := p.First("CallStatus", "status")
	leadID := p.LeadID()

	logger.Base().Info("call status callback",
		zap.String("call_sid", sid),
		zap.String("status", status),
		zap.String("lead_id", leadID),
	)
	switch status {
	case "busy", "no-answer", "failed":
		logger.Base().Warn("call ended without connecting",
			zap.String("call_sid", sid),
			zap.String("status", status),
		)
	}

	c.records.Forward(ctx, leadID, sid, status)

	if status == "completed" {
		return xmlBody(markup.Say(msgClosing))
	}
	return xmlBody(markup.Empty())
}

// DialStatus reports how a dialed leg ended. The mapping is closed; unknown
// outcomes get the generic templated message rather than an error.
func (c *Controller) DialStatus(ctx context.Context, p Params) Response {
	status := p.First("DialCallStatus", "dialCallStatus")
	sid := p.First("CallSid", "callSid")

	msg, ok := dialStatusMessages[status]
	if !ok {
		if status == "" {
			status = "unknown"
		}
		msg = fmt.Sprintf(msgDialGenericFmt, status)
	}

	logger.Base().Info("dial result",
		zap.String("call_sid", sid),
		zap.String("dial_status", status),
		zap.String("lead_id", p.LeadID()),
	)
	c.records.Forward(ctx, p.LeadID(), sid, status)

	return xmlBody(markup.SayHangup(msg))
}

// CheckStatus relays the provider's status for one call. Sentinel
// identifiers resolve to a synthetic pending status without a provider call.
func (c *Controller) CheckStatus(ctx context.Context, p Params) Response {
	sid := p.First("callSid", "CallSid")
	if sid == "" {
		return jsonError((&ValidationError{Field: "callSid"}).Error())
	}
	if sid == PendingCallSid || sid == BrowserCallSid {
		return jsonBody(map[string]any{"success": true, "status": "pending"})
	}
	if c.control == nil {
		return jsonError((&ConfigurationError{Missing: "provider credentials"}).Error())
	}

	fetched, err := c.control.FetchCall(ctx, sid)
	if err != nil {
		perr := &ProviderError{Op: "fetch", Err: err}
		logger.Base().Error("failed to fetch call status",
			zap.String("call_sid", sid),
			zap.Error(err),
		)
		return jsonError(perr.Error())
	}
	return jsonBody(map[string]any{"success": true, "status": fetched.Status})
}

// EndCall terminates one call. The browser-managed sentinel succeeds without
// a provider call since no provider leg exists.
func (c *Controller) EndCall(ctx context.Context, p Params) Response {
	sid := p.First("callSid", "CallSid")
	if sid == "" {
		return jsonError((&ValidationError{Field: "callSid"}).Error())
	}
	if sid == BrowserCallSid {
		return jsonBody(map[string]any{"success": true})
	}
	if c.control == nil {
		return jsonError((&ConfigurationError{Missing: "provider credentials"}).Error())
	}

	if err := c.control.TerminateCall(ctx, sid); err != nil {
		perr := &ProviderError{Op: "terminate", Err: err}
		logger.Base().Error("failed to end call",
			zap.String("call_sid", sid),
			zap.Error(err),
		)
		return jsonError(perr.Error())
	}
	return jsonBody(map[string]any{"success": true})
}

// HangupAll terminates every in-progress call concurrently and reports the
// attempted count. A single call's failure is captured and logged without
// blocking or cancelling the others.
func (c *Controller) HangupAll(ctx context.Context) Response {
	if c.control == nil {
		return jsonError((&ConfigurationError{Missing: "provider credentials"}).Error())
	}

	calls, err := c.control.ListInProgress(ctx)
	if err != nil {
		perr := &ProviderError{Op: "list", Err: err}
		logger.Base().Error("failed to list in-progress calls", zap.Error(err))
		return jsonError(perr.Error())
	}

	var wg sync.WaitGroup
	var failed atomic.Int32
	for _, active := range calls {
		wg.Add(1)
		go func(sid string) {
			defer wg.Done()
			if err := c.control.TerminateCall(ctx, sid); err != nil {
				failed.Add(1)
				logger.Base().Warn("failed to hang up call",
					zap.String("call_sid", sid),
					zap.Error(err),
				)
			}
		}(active.Sid)
	}
	wg.Wait()

	logger.Base().Info("hangup all finished",
		zap.Int("attempted", len(calls)),
		zap.Int32("failed", failed.Load()),
	)
	return jsonBody(map[string]any{
		"success": true,
		"count":   len(calls),
	})
}

// ConferenceStatus acknowledges conference lifecycle events with an empty
// document. Routing them through the generic status path would speak a
// message into a live conference.
func (c *Controller) ConferenceStatus() Response {
	return xmlBody(markup.Empty())
}

// Unknown names the unrecognized action in a JSON diagnostic. HTTP 200, so
// the provider does not retry.
func (c *Controller) Unknown(p Params) Response {
	raw := p["action"]
	if raw == "" {
		return jsonError("unable to determine call action from request")
	}
	return jsonError(fmt.Sprintf("unrecognized action: %s", raw))
}

// callbackURL builds the follow-up webhook URL that threads the lead
// reference through the provider and back.
func (c *Controller) callbackURL(action Action, leadID string) string {
	if c.cfg.PublicBaseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/api/twilio?action=%s&leadId=%s",
		c.cfg.PublicBaseURL, action, url.QueryEscape(leadID))
}

func jsonBody(payload map[string]any) Response {
	data, err := json.Marshal(payload)
	if err != nil {
		// Marshal of a flat string/bool map cannot realistically fail, but the
		// callback contract still requires a valid body.
		return Response{ContentType: "application/json", Body: `{"success":false,"error":"internal encoding error"}`}
	}
	return Response{ContentType: "application/json", Body: string(data)}
}

func jsonError(message string) Response {
	return jsonBody(map[string]any{"success": false, "error": message})
}

func xmlBody(doc string) Response {
	return Response{ContentType: markup.ContentType, Body: doc}
}
