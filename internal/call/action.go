package call

import (
	"regexp"
	"strings"
)

// Action is the closed set of call actions one webhook request can represent.
// Exactly one action is resolved per request; ActionUnknown is terminal and
// always answered with a diagnostic JSON body.
type Action string

const (
	ActionGetConfig        Action = "getConfig"
	ActionMakeCall         Action = "makeCall"
	ActionClientCall       Action = "clientCall"
	ActionStatusCallback   Action = "statusCallback"
	ActionDialStatus       Action = "dialStatus"
	ActionCheckStatus      Action = "checkStatus"
	ActionEndCall          Action = "endCall"
	ActionHangupAll        Action = "hangupAll"
	ActionConferenceStatus Action = "conferenceStatus"
	ActionUnknown          Action = "unknown"
)

// knownActions maps explicit action parameter values to their Action.
var knownActions = map[string]Action{
	string(ActionGetConfig):        ActionGetConfig,
	string(ActionMakeCall):         ActionMakeCall,
	string(ActionClientCall):       ActionClientCall,
	string(ActionStatusCallback):   ActionStatusCallback,
	string(ActionDialStatus):       ActionDialStatus,
	string(ActionCheckStatus):      ActionCheckStatus,
	string(ActionEndCall):          ActionEndCall,
	string(ActionHangupAll):        ActionHangupAll,
	string(ActionConferenceStatus): ActionConferenceStatus,
}

// LookupAction resolves an explicit action parameter value. ok is false for
// values outside the enumeration.
func LookupAction(raw string) (Action, bool) {
	a, ok := knownActions[raw]
	return a, ok
}

// Sentinel call identifiers. These are never issued by the provider; they
// signal local call states for which no provider call exists, and every
// handler that takes a call identifier short-circuits on them.
const (
	// PendingCallSid marks a call attempt whose provider identifier has not
	// been issued yet.
	PendingCallSid = "pending-sid"
	// BrowserCallSid marks a leg managed entirely by the in-browser softphone.
	BrowserCallSid = "browser-call"
)

// ClientAddressPrefix marks a caller identity originated by the in-browser
// softphone rather than the phone network.
const ClientAddressPrefix = "client:"

// DefaultLeadID is the lead reference used when a request carries none. The
// lead reference is correlation-only and never required for correctness.
const DefaultLeadID = "unknown"

// Params is a normalized webhook request: a flat key/value view merged from
// URL query parameters and the parsed body. Query-derived keys are populated
// first and are never overwritten by body fields, so a URL-supplied action
// always wins.
type Params map[string]string

// First returns the first non-empty value among the given keys.
func (p Params) First(keys ...string) string {
	for _, k := range keys {
		if v := p[k]; v != "" {
			return v
		}
	}
	return ""
}

// LeadID returns the lead reference carried by the request, or the default
// placeholder when absent.
func (p Params) LeadID() string {
	if v := p.First("leadId", "leadID"); v != "" {
		return v
	}
	return DefaultLeadID
}

var e164Pattern = regexp.MustCompile(`^\+[0-9]+$`)
var nonDigits = regexp.MustCompile(`[^0-9]`)

// NormalizePhone coerces a dialable destination to an E.164-like form:
// strip non-digits, prefix +, and assume a US country code for bare
// ten-digit numbers. Client addresses and numbers already in E.164 pass
// through untouched. An input with no digits at all normalizes to the
// empty string so validation can reject it.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, ClientAddressPrefix) {
		return s
	}
	if e164Pattern.MatchString(s) {
		return s
	}
	digits := nonDigits.ReplaceAllString(s, "")
	if digits == "" {
		return ""
	}
	if len(digits) == 10 {
		return "+1" + digits
	}
	return "+" + digits
}
