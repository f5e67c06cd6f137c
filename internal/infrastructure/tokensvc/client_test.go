package tokensvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-email-service/internal/config"
	"github.com/go-email-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.ServiceEndpoint{URL: srv.URL, Timeout: time.Second}, nil, nil)
}

func statusHandler(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	}
}

// --- Generate ---

func TestGenerate_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, generatePath, r.URL.Path)
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(1), req.UserID)
		_ = json.NewEncoder(w).Encode(generateResponse{TokenValue: "tokenValue123"})
	})

	token, err := c.Generate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "tokenValue123", token)
}

func TestGenerate_NoUsableToken(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"empty body": statusHandler(http.StatusOK),
		"empty value": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"tokenValue":""}`))
		},
		"server error": statusHandler(http.StatusInternalServerError),
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newTestClient(t, h).Generate(context.Background(), 1)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrTokenGeneration))
			assert.Contains(t, err.Error(), "could not generate token")
		})
	}
}

func TestGenerate_ErrorHidesServiceAddress(t *testing.T) {
	srv := httptest.NewServer(statusHandler(http.StatusInternalServerError))
	t.Cleanup(srv.Close)
	core, logs := observer.New(zap.ErrorLevel)
	c := NewClient(config.ServiceEndpoint{URL: srv.URL, Timeout: time.Second}, nil, zap.New(core))

	_, err := c.Generate(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, "could not generate token", err.Error())
	assert.NotContains(t, err.Error(), srv.URL)

	// the cause stays available to operators
	entries := logs.FilterMessage("token generation failed").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "unexpected status 500")
}

// --- Validate ---

func TestValidate_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, validatePath, r.URL.Path)
		var req validateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tokenValue123", req.TokenValue)
		_, _ = w.Write([]byte(`{"valid":true,"userId":1}`))
	})

	outcome, err := c.Validate(context.Background(), "tokenValue123")
	require.NoError(t, err)
	assert.Equal(t, &domain.TokenValidationOutcome{Valid: true, UserID: 1}, outcome)
}

func TestValidate_StatusMapping(t *testing.T) {
	cases := []struct {
		name string
		code int
		want error
		msg  string
	}{
		{"not found", http.StatusNotFound, domain.ErrTokenNotFound, "token not found: tok"},
		{"gone", http.StatusGone, domain.ErrTokenExpired, "token expired: tok"},
		{"conflict", http.StatusConflict, domain.ErrTokenAlreadyUsed, "token already used: tok"},
		{"server error", http.StatusInternalServerError, domain.ErrTokenServiceUnavailable, "token service is currently unavailable"},
		{"bad gateway", http.StatusBadGateway, domain.ErrTokenServiceUnavailable, "token service is currently unavailable"},
		{"unexpected client error", http.StatusTeapot, domain.ErrTokenServiceUnavailable, "token service is currently unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestClient(t, statusHandler(tc.code)).Validate(context.Background(), "tok")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want))
			assert.Equal(t, tc.msg, err.Error())
		})
	}
}

func TestValidate_LogsTokenFingerprintOnly(t *testing.T) {
	srv := httptest.NewServer(statusHandler(http.StatusServiceUnavailable))
	t.Cleanup(srv.Close)
	core, logs := observer.New(zap.DebugLevel)
	c := NewClient(config.ServiceEndpoint{URL: srv.URL, Timeout: time.Second}, nil, zap.New(core))

	_, err := c.Validate(context.Background(), "live-secret-token")
	require.ErrorIs(t, err, domain.ErrTokenServiceUnavailable)

	require.NotEmpty(t, logs.All())
	for _, e := range logs.All() {
		for _, v := range e.ContextMap() {
			assert.NotContains(t, fmt.Sprint(v), "live-secret-token")
		}
	}
	failed := logs.FilterMessage("token validation failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, tokenRef("live-secret-token"), failed[0].ContextMap()["token_ref"])
	assert.Len(t, tokenRef("live-secret-token"), 8)
}

func TestValidate_TransportError(t *testing.T) {
	srv := httptest.NewServer(statusHandler(http.StatusOK))
	srv.Close()
	c := NewClient(config.ServiceEndpoint{URL: srv.URL, Timeout: time.Second}, nil, nil)

	_, err := c.Validate(context.Background(), "tok")
	assert.ErrorIs(t, err, domain.ErrTokenServiceUnavailable)
}

func TestValidate_EmptyBody(t *testing.T) {
	_, err := newTestClient(t, statusHandler(http.StatusOK)).Validate(context.Background(), "tok")
	assert.ErrorIs(t, err, domain.ErrTokenServiceUnavailable)
}

func TestValidate_ReportedInvalid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"valid":false,"userId":1}`))
	})
	_, err := c.Validate(context.Background(), "tok")
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}

// A stub token service that remembers what it minted: generate then validate
// yields the same user, and a second validate of the same token is rejected.
func TestGenerateThenValidate_RoundTrip(t *testing.T) {
	var used atomic.Bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case generatePath:
			_, _ = w.Write([]byte(`{"tokenValue":"T1"}`))
		case validatePath:
			if used.Swap(true) {
				w.WriteHeader(http.StatusConflict)
				return
			}
			_, _ = w.Write([]byte(`{"valid":true,"userId":42}`))
		}
	})

	token, err := c.Generate(context.Background(), 42)
	require.NoError(t, err)

	outcome, err := c.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenValidationOutcome{Valid: true, UserID: 42}, *outcome)

	_, err = c.Validate(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrTokenAlreadyUsed)
}
