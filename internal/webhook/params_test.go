package webhook

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestQueryOnly(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/twilio?action=checkStatus&callSid=CA1", nil)
	p := ParseRequest(r)
	assert.Equal(t, "checkStatus", p["action"])
	assert.Equal(t, "CA1", p["callSid"])
}

func TestParseRequestJSONBody(t *testing.T) {
	body := `{"phoneNumber":"5551234567","leadId":"lead-9","retries":3,"urgent":true,"nested":{"skip":1},"note":null}`
	r := httptest.NewRequest("POST", "/api/twilio", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	p := ParseRequest(r)
	assert.Equal(t, "5551234567", p["phoneNumber"])
	assert.Equal(t, "lead-9", p["leadId"])
	assert.Equal(t, "3", p["retries"])
	assert.Equal(t, "true", p["urgent"])
	assert.NotContains(t, p, "nested")
	assert.NotContains(t, p, "note")
}

func TestParseRequestFormBody(t *testing.T) {
	body := "CallSid=CA1&CallStatus=completed&From=%2B15550001111"
	r := httptest.NewRequest("POST", "/api/twilio", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	p := ParseRequest(r)
	assert.Equal(t, "CA1", p["CallSid"])
	assert.Equal(t, "completed", p["CallStatus"])
	assert.Equal(t, "+15550001111", p["From"])
}

func TestParseRequestMultipartBody(t *testing.T) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("phoneNumber", "5551234567"))
	require.NoError(t, w.WriteField("leadId", "lead-3"))
	require.NoError(t, w.Close())

	r := httptest.NewRequest("POST", "/api/twilio", &buf)
	r.Header.Set("Content-Type", w.FormDataContentType())

	p := ParseRequest(r)
	assert.Equal(t, "5551234567", p["phoneNumber"])
	assert.Equal(t, "lead-3", p["leadId"])
}

func TestParseRequestQueryWinsOverBody(t *testing.T) {
	body := `{"action":"endCall","callSid":"CA9"}`
	r := httptest.NewRequest("POST", "/api/twilio?action=makeCall", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	p := ParseRequest(r)
	assert.Equal(t, "makeCall", p["action"], "URL-supplied action must never be overwritten")
	assert.Equal(t, "CA9", p["callSid"])
}

func TestParseRequestMislabeledJSONFallsBackToForm(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/twilio", strings.NewReader("CallSid=CA1&CallStatus=busy"))
	r.Header.Set("Content-Type", "application/json")

	p := ParseRequest(r)
	assert.Equal(t, "CA1", p["CallSid"])
	assert.Equal(t, "busy", p["CallStatus"])
}

func TestParseRequestMissingContentTypeTriesJSONThenForm(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/twilio", strings.NewReader(`{"action":"getConfig"}`))
	p := ParseRequest(r)
	assert.Equal(t, "getConfig", p["action"])

	r = httptest.NewRequest("POST", "/api/twilio", strings.NewReader("action=getConfig"))
	p = ParseRequest(r)
	assert.Equal(t, "getConfig", p["action"])
}

func TestParseRequestGarbageBodyYieldsQueryParams(t *testing.T) {
	for _, contentType := range []string{"application/json", "text/plain", ""} {
		r := httptest.NewRequest("POST", "/api/twilio?action=hangupAll", strings.NewReader("%%%not=a;body{{"))
		if contentType != "" {
			r.Header.Set("Content-Type", contentType)
		}
		p := ParseRequest(r)
		assert.Equal(t, "hangupAll", p["action"], contentType)
	}
}

func TestParseRequestEmptyBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/twilio", strings.NewReader("   "))
	r.Header.Set("Content-Type", "application/json")
	p := ParseRequest(r)
	assert.Empty(t, p)
}

func TestParseRequestRestoresBody(t *testing.T) {
	body := "CallSid=CA1&CallStatus=ringing"
	r := httptest.NewRequest("POST", "/api/twilio", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	_ = ParseRequest(r)
	replayed, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	assert.Equal(t, body, string(replayed), "body must stay readable for the signature check")
}
