package lookup

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	var hits atomic.Int32
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, "unavailable")
			return
		}
		_, _ = io.WriteString(w, `{"status":"ok","details":[]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, WithCircuitBreaker(2, time.Minute)).(*httpClient)
	now := time.Now()
	c.breaker.nowFunc = func() time.Time { return now }
	ctx := context.Background()
	req := Request{Postcode: "2000", HouseNumber: "1"}

	for i := 0; i < 2; i++ {
		_, err := c.Lookup(ctx, req)
		require.Error(t, err)
		assert.True(t, IsTransient(err))
	}
	assert.Equal(t, breakerOpen, c.breaker.currentState())

	_, err := c.Lookup(ctx, req)
	assert.True(t, errors.Is(err, ErrCircuitOpen))
	assert.Equal(t, int32(2), hits.Load())

	// Probe after the reset timeout closes the breaker on success.
	healthy.Store(true)
	now = now.Add(2 * time.Minute)
	resp, err := c.Lookup(ctx, req)
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, breakerClosed, c.breaker.currentState())
	assert.Equal(t, int32(3), hits.Load())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := newCircuitBreaker(1, time.Second)
	now := time.Now()
	cb.nowFunc = func() time.Time { return now }
	transient := newTransientError(errors.New("boom"), http.StatusBadGateway)

	fail := func(context.Context) (int, error) { return 0, transient }

	_, err := executeBreaker(context.Background(), cb, fail)
	require.Error(t, err)
	assert.Equal(t, breakerOpen, cb.currentState())

	now = now.Add(2 * time.Second)
	_, err = executeBreaker(context.Background(), cb, fail)
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, breakerOpen, cb.currentState())
}

func TestCircuitBreaker_NonTransientDoesNotTrip(t *testing.T) {
	cb := newCircuitBreaker(1, time.Second)
	permanent := func(context.Context) (int, error) { return 0, errors.New("bad request") }

	for i := 0; i < 3; i++ {
		_, err := executeBreaker(context.Background(), cb, permanent)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrCircuitOpen))
	}
	assert.Equal(t, breakerClosed, cb.currentState())
}

func TestCircuitBreaker_DisabledByDefault(t *testing.T) {
	c := NewClient("http://example.invalid").(*httpClient)
	assert.Nil(t, c.breaker)

	c = NewClient("http://example.invalid", WithCircuitBreaker(0, time.Second)).(*httpClient)
	assert.Nil(t, c.breaker)
}

func TestBreakerState_String(t *testing.T) {
	assert.Equal(t, "closed", breakerClosed.String())
	assert.Equal(t, "open", breakerOpen.String())
	assert.Equal(t, "half-open", breakerHalfOpen.String())
	assert.Equal(t, "unknown", breakerState(9).String())
}

type panickingTransport struct{}

func (panickingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	panic("transport exploded")
}

func TestCircuitBreaker_PanicDuringHalfOpenReopens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"ok","details":[]}`)
	}))
	defer srv.Close()

	cb := newCircuitBreaker(1, time.Minute)
	now := time.Now()
	cb.nowFunc = func() time.Time { return now }
	transient := newTransientError(errors.New("connection reset by peer"), 0)

	_, err := executeBreaker(context.Background(), cb, func(context.Context) (int, error) { return 0, transient })
	require.Error(t, err)
	require.Equal(t, breakerOpen, cb.currentState())

	// The half-open probe panics inside the transport.
	now = now.Add(2 * time.Minute)
	c := newTestClient(srv.URL, WithHTTPClient(&http.Client{Transport: panickingTransport{}})).(*httpClient)
	c.breaker = cb
	assert.Panics(t, func() {
		_, _ = c.Lookup(context.Background(), Request{Postcode: "2000", HouseNumber: "1"})
	})
	assert.Equal(t, breakerOpen, cb.currentState())

	// After another reset timeout a healthy probe closes the breaker.
	now = now.Add(2 * time.Minute)
	c.http = srv.Client()
	resp, err := c.Lookup(context.Background(), Request{Postcode: "2000", HouseNumber: "1"})
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, breakerClosed, cb.currentState())
}
