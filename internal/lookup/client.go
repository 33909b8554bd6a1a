// Package lookup talks to the address lookup endpoint and serves a
// fixture-backed stand-in for local development.
package lookup

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/addressbook-cli/internal/model"
)

// AddressesPath is the lookup endpoint path relative to the base URL.
const AddressesPath = "/api/getAddresses"

// StatusOK is the response status marking a successful lookup.
const StatusOK = "ok"

// Client looks up candidate addresses for a postcode and house number.
type Client interface {
	Lookup(ctx context.Context, req Request) (*Response, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, req Request) (*Response, error)

// Lookup implements Client.
func (f ClientFunc) Lookup(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Request is a lookup query. Values are sent as given.
type Request struct {
	Postcode    string `json:"postcode"`
	HouseNumber string `json:"houseNumber"`
}

// Response is the lookup wire format.
type Response struct {
	Status       string             `json:"status"`
	Details      []model.RawAddress `json:"details,omitempty"`
	ErrorMessage string             `json:"errormessage,omitempty"`

	// HTTPStatus is the transport status code; zero means not set by a transport.
	HTTPStatus int `json:"-"`
}

// OK reports whether the response is a successful lookup.
func (r *Response) OK() bool {
	if r == nil {
		return false
	}
	httpOK := r.HTTPStatus == 0 || (r.HTTPStatus >= 200 && r.HTTPStatus < 300)
	return httpOK && r.Status == StatusOK
}

// Option configures the HTTP client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets the requests-per-second limit. Zero or less disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMaxAttempts sets the total number of attempts for transient failures.
func WithMaxAttempts(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.retry.maxAttempts = n
		}
	}
}

// WithBackoff sets the initial and maximum delay between attempts.
func WithBackoff(initial, maxDelay time.Duration) Option {
	return func(c *httpClient) {
		if initial > 0 {
			c.retry.initialBackoff = initial
		}
		if maxDelay > 0 {
			c.retry.maxBackoff = maxDelay
		}
	}
}

// WithCircuitBreaker stops calling the service after threshold consecutive
// transient failures until resetTimeout has passed. Zero threshold disables
// the breaker.
func WithCircuitBreaker(threshold int, resetTimeout time.Duration) Option {
	return func(c *httpClient) {
		if threshold > 0 {
			c.breaker = newCircuitBreaker(threshold, resetTimeout)
		}
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   retryConfig
	breaker *circuitBreaker
}

// NewClient creates an HTTP lookup Client for the given base URL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(10, 10),
		retry:   defaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup implements Client. Errors are transport failures; a well-formed
// failure response is returned with a nil error.
func (c *httpClient) Lookup(ctx context.Context, req Request) (*Response, error) {
	attempt := func(ctx context.Context) (*Response, error) {
		return withRetry(ctx, c.retry, func(ctx context.Context) (*Response, error) {
			return c.do(ctx, req)
		})
	}
	if c.breaker == nil {
		return attempt(ctx)
	}
	return executeBreaker(ctx, c.breaker, attempt)
}

func (c *httpClient) do(ctx context.Context, req Request) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "lookup: rate limit")
	}

	params := url.Values{
		"postcode":     {req.Postcode},
		"streetnumber": {req.HouseNumber},
	}
	reqURL := c.baseURL + AddressesPath + "?" + params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "lookup: build request")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "lookup: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "lookup: read body")
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		if isTransientStatus(resp.StatusCode) {
			return nil, newTransientError(eris.Errorf("lookup: returned status %d", resp.StatusCode), resp.StatusCode)
		}
		return nil, eris.Wrapf(err, "lookup: parse response (status %d)", resp.StatusCode)
	}
	out.HTTPStatus = resp.StatusCode

	zap.L().Debug("lookup: response",
		zap.String("postcode", req.Postcode),
		zap.String("house_number", req.HouseNumber),
		zap.Int("http_status", resp.StatusCode),
		zap.String("status", out.Status),
		zap.Int("details", len(out.Details)),
	)
	return &out, nil
}
