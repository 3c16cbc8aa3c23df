package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "blendguard/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastOptions = Options{
	Timeout:        time.Second,
	MaxRetries:     3,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     5 * time.Millisecond,
	BreakerDelay:   time.Second,
}

func TestPostJSON_RetriesServerErrors(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]string
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "XLM-123", payload["position_id"])
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, fastOptions)
	resp, err := client.PostJSON(context.Background(), "/send", map[string]string{"position_id": "XLM-123"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(resp))
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestPostJSON_ClientErrorNotRetried(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"description":"chat not found"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, fastOptions)
	_, err := client.PostJSON(context.Background(), "/send", map[string]string{})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, string(apiErr.Body), "chat not found")
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestPostJSON_ExhaustedRetries(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, fastOptions)
	_, err := client.PostJSON(context.Background(), "/send", map[string]string{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.Equal(t, int32(4), atomic.LoadInt32(&attempts))
}

func TestAPIError_Classification(t *testing.T) {
	assert.ErrorIs(t, &APIError{StatusCode: 429}, apperrors.ErrRateLimitExceeded)
	assert.ErrorIs(t, &APIError{StatusCode: 401}, apperrors.ErrAuthenticationFailed)
	assert.ErrorIs(t, &APIError{StatusCode: 502}, apperrors.ErrUpstream)
	assert.ErrorIs(t, &APIError{StatusCode: 404}, apperrors.ErrInvalidRequest)
}
