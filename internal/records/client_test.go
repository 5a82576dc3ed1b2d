package records

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientWithoutEndpointIsNil(t *testing.T) {
	c := NewClient("", "key")
	assert.Nil(t, c)

	// nil client methods are no-ops
	assert.NoError(t, c.UpsertOutcome(context.Background(), Outcome{LeadID: "lead-1", Status: "completed"}))
	c.Forward(context.Background(), "lead-1", "CA1", "completed")
}

func TestUpsertOutcome(t *testing.T) {
	var got Outcome
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/call-outcomes", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "service-key")
	err := c.UpsertOutcome(context.Background(), Outcome{
		LeadID:  "lead-7",
		CallSid: "CA1",
		Status:  "completed",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer service-key", auth)
	assert.Equal(t, "lead-7", got.LeadID)
	assert.Equal(t, "CA1", got.CallSid)
	assert.Equal(t, "completed", got.Status)
	assert.NotEmpty(t, got.Timestamp, "a missing timestamp is filled in")
}

func TestUpsertOutcomeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	err := c.UpsertOutcome(context.Background(), Outcome{LeadID: "lead-1", Status: "busy"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=500")
}

func TestForwardSwallowsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	// must not panic or propagate
	c.Forward(context.Background(), "lead-1", "CA1", "failed")
}
