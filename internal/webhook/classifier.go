package webhook

import (
	"strings"

	"go.uber.org/zap"

	"github.com/jameswalter4566/aicrmworking/internal/call"
	"github.com/jameswalter4566/aicrmworking/pkg/logger"
)

// Provider callbacks never carry an explicit action, so intent is
// reconstructed from which fields co-occur. The rules are an ordered list of
// predicate→action pairs evaluated top to bottom; the ordering is a designed
// tie-break. Client-originated dials must win over generic status inference
// because they need an outbound dial, not an acknowledgment.
type rule struct {
	name   string
	when   func(p call.Params) bool
	action call.Action
}

var classifierRules = []rule{
	{
		// A client-protocol caller with a destination is always a client dial,
		// even when the provider attached a call identifier and status fields.
		name: "client caller with destination",
		when: func(p call.Params) bool {
			return isClientCaller(p) && p.First("phoneNumber", "phone_number") != ""
		},
		action: call.ActionClientCall,
	},
	{
		name: "destination with no status fields",
		when: func(p call.Params) bool {
			return p.First("phoneNumber", "phone_number") != "" && !hasStatusFields(p)
		},
		action: call.ActionClientCall,
	},
	{
		// Conference events must not reach the generic status path, which
		// would speak a message into a live conference.
		name: "conference event",
		when: func(p call.Params) bool {
			if p.First("ConferenceSid", "conferenceSid") != "" {
				return true
			}
			event := strings.ToLower(p.First("StatusCallbackEvent", "CallbackSource", "EventType"))
			return strings.Contains(event, "conference")
		},
		action: call.ActionConferenceStatus,
	},
	{
		name: "call identifier with status marker",
		when: func(p call.Params) bool {
			if p.First("CallSid", "callSid") == "" {
				return false
			}
			return p.First("CallStatus", "status") != "" ||
				p["CallbackSource"] != "" ||
				p["StatusCallback"] != ""
		},
		action: call.ActionStatusCallback,
	},
	{
		// A client caller with no destination still routes to the client-call
		// handler, which speaks the "no number provided" path.
		name:   "client caller without destination",
		when:   isClientCaller,
		action: call.ActionClientCall,
	},
}

// Classify resolves exactly one action for a normalized request. An explicit
// action parameter takes precedence over every heuristic; an explicit but
// unrecognized value is terminal unknown.
func Classify(p call.Params) call.Action {
	if raw := p["action"]; raw != "" {
		if action, ok := call.LookupAction(raw); ok {
			return action
		}
		logger.Base().Warn("explicit action not recognized", zap.String("action", raw))
		return call.ActionUnknown
	}

	for _, r := range classifierRules {
		if r.when(p) {
			logClassification(r, p)
			return r.action
		}
	}
	return call.ActionUnknown
}

func isClientCaller(p call.Params) bool {
	return strings.HasPrefix(p.First("From", "Caller"), call.ClientAddressPrefix)
}

func hasStatusFields(p call.Params) bool {
	return p.First("CallStatus", "status") != "" ||
		p.First("DialCallStatus", "dialCallStatus") != ""
}

func logClassification(r rule, p call.Params) {
	fields := []zap.Field{
		zap.String("rule", r.name),
		zap.String("action", string(r.action)),
		zap.String("call_sid", p.First("CallSid", "callSid")),
	}
	// Terminal and negative statuses are worth flagging here, but they never
	// change the resolved action.
	if status := p.First("CallStatus", "status"); status != "" {
		fields = append(fields, zap.String("call_status", status))
		switch status {
		case "busy", "no-answer", "failed", "completed":
			logger.Base().Info("terminal call status observed during classification", fields...)
			return
		}
	}
	logger.Base().Debug("request classified", fields...)
}
