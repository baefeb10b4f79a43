package vapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(1000))
}

func TestCreateCall(t *testing.T) {
	var gotBody CallRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/call/phone", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(Call{ID: "call-123", Status: "queued"})
	})

	call, err := client.CreateCall(context.Background(), CallRequest{
		AssistantID:   "asst-1",
		PhoneNumberID: "phone-1",
		Customer:      Customer{Number: "+15551234567"},
		Metadata:      map[string]any{"business_name": "Ace Plumbing"},
	})
	require.NoError(t, err)

	assert.Equal(t, "call-123", call.ID)
	assert.False(t, call.Terminal())
	assert.Equal(t, "asst-1", gotBody.AssistantID)
	assert.Equal(t, "+15551234567", gotBody.Customer.Number)
}

func TestGetCall_Terminal(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/call/call-123", r.URL.Path)
		json.NewEncoder(w).Encode(Call{
			ID:          "call-123",
			Status:      "ended",
			EndedReason: "customer-did-not-answer",
			Duration:    14.7,
			Messages: []CallMessage{
				{Role: "assistant", Content: "Sorry wrong number!"},
				{Role: "user", Message: "hello?"},
			},
		})
	})

	call, err := client.GetCall(context.Background(), "call-123")
	require.NoError(t, err)

	assert.True(t, call.Terminal())
	assert.Equal(t, "customer-did-not-answer", call.EndedReason)
	require.Len(t, call.Messages, 2)
	assert.Equal(t, "Sorry wrong number!", call.Messages[0].Text())
	assert.Equal(t, "hello?", call.Messages[1].Text())
}

func TestAPIError_RateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
	})

	_, err := client.CreateCall(context.Background(), CallRequest{})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.True(t, apiErr.RateLimited())
}

func TestAPIError_NotRateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
	})

	_, err := client.GetCall(context.Background(), "call-1")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.False(t, apiErr.RateLimited())
}

func TestListAssistants(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/assistant", r.URL.Path)
		json.NewEncoder(w).Encode([]Assistant{
			{ID: "asst-1", Name: "Stealth"},
			{ID: "asst-2", Name: "Other"},
		})
	})

	assistants, err := client.ListAssistants(context.Background())
	require.NoError(t, err)
	require.Len(t, assistants, 2)
	assert.Equal(t, "Stealth", assistants[0].Name)
}

func TestEnsureAssistant_ReusesExisting(t *testing.T) {
	var created bool
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]Assistant{{ID: "asst-1", Name: "Stealth"}})
		case http.MethodPost:
			created = true
			json.NewEncoder(w).Encode(Assistant{ID: "asst-new", Name: "Stealth"})
		}
	})

	id, err := EnsureAssistant(context.Background(), client, "Stealth")
	require.NoError(t, err)
	assert.Equal(t, "asst-1", id)
	assert.False(t, created)
}

func TestEnsureAssistant_CreatesMissing(t *testing.T) {
	var gotReq AssistantRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]Assistant{})
		case http.MethodPost:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
			json.NewEncoder(w).Encode(Assistant{ID: "asst-new", Name: "Stealth"})
		}
	})

	id, err := EnsureAssistant(context.Background(), client, "Stealth")
	require.NoError(t, err)
	assert.Equal(t, "asst-new", id)

	assert.Equal(t, "Stealth", gotReq.Name)
	assert.Equal(t, "assistant-waits-for-user", gotReq.FirstMessageMode)
	assert.Equal(t, 15, gotReq.SilenceTimeoutSeconds)
	assert.Equal(t, 60, gotReq.MaxDurationSeconds)
	assert.True(t, gotReq.EndCallFunction)
	assert.False(t, gotReq.RecordingEnabled)
}
