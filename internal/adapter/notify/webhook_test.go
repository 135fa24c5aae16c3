package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingwingfly/cradle-system/internal/platform/httpclient"
)

func TestWebhook_Fired(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, nil, nil)
	wh.Fired(context.Background(), "wake", 42)

	assert.Equal(t, "fired", got.Kind)
	assert.Equal(t, "wake", got.Trigger)
	assert.Equal(t, uint64(42), got.Elapsed)
	assert.NotEmpty(t, got.At)
}

func TestWebhook_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, nil, nil)
	wh.retry.InitialDelay = 1
	wh.Stopped(context.Background(), 10)

	assert.Equal(t, int32(3), calls.Load(), "two 503s then success")
}

func TestWebhook_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, nil, nil)
	wh.retry.InitialDelay = 1
	wh.Aborted(context.Background(), 5, assert.AnError)

	assert.Equal(t, int32(1), calls.Load(), "400 is not retryable")
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(&httpclient.StatusError{Status: 503}))
	assert.True(t, isTransient(&httpclient.StatusError{Status: 429}))
	assert.False(t, isTransient(&httpclient.StatusError{Status: 404}))
	assert.True(t, isTransient(assert.AnError), "non-status errors count as transient")
}
