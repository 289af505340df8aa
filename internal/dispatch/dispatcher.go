package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

const (
	// Consecutive transport failures before the breaker opens
	breakerThreshold = 5
	// How long an open breaker rejects calls before probing again
	breakerCooldown = 30 * time.Second
)

// Options configures a Dispatcher
type Options struct {
	BaseURL    string        // Server root, e.g. "http://localhost:5000"
	Timeout    time.Duration // Per-attempt timeout (0 = wait forever)
	Retry      bool          // Retry once after a transport failure
	Breaker    bool          // Open a circuit breaker after repeated transport failures
	HTTPClient *http.Client  // Defaults to a fresh client
	Logger     *slog.Logger  // Defaults to slog.Default()
}

// Dispatcher posts JSON payloads to the reading server
type Dispatcher struct {
	baseURL *url.URL
	client  *http.Client
	timeout time.Duration
	retry   bool
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// New creates a dispatcher for the server at opts.BaseURL
func New(opts Options) (*Dispatcher, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("server URL is required")
	}

	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if !base.IsAbs() || base.Host == "" {
		return nil, fmt.Errorf("server URL must be absolute: %s", opts.BaseURL)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		baseURL: base,
		client:  client,
		timeout: opts.Timeout,
		retry:   opts.Retry,
		logger:  logger,
	}

	if opts.Breaker {
		d.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "readalong-" + base.Host,
			Timeout: breakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerThreshold
			},
			// Only transport failures count against the server
			IsSuccessful: func(err error) bool {
				var te *TransportError
				return err == nil || !errors.As(err, &te)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
		})
	}

	return d, nil
}

// BaseURL returns the server root the dispatcher talks to
func (d *Dispatcher) BaseURL() string {
	return d.baseURL.String()
}

// Resolve turns a server-relative reference (e.g. "/tts/abc.wav") into an absolute URL
func (d *Dispatcher) Resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid reference %q: %w", ref, err)
	}
	return d.baseURL.ResolveReference(u).String(), nil
}

// PostJSON sends payload as a JSON POST to endpoint and decodes the JSON reply into out.
// The reply is decoded whatever the HTTP status is: the server reports
// application errors as JSON bodies on 4xx/5xx responses.
func (d *Dispatcher) PostJSON(ctx context.Context, endpoint string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request for %s: %w", endpoint, err)
	}

	target, err := d.Resolve(endpoint)
	if err != nil {
		return err
	}

	attempts := 1
	if d.retry {
		attempts = 2
	}

	var data []byte
	for attempt := 1; attempt <= attempts; attempt++ {
		data, err = d.attempt(ctx, target, body)
		if err == nil {
			break
		}

		var te *TransportError
		if !errors.As(err, &te) || ctx.Err() != nil {
			return err
		}
		if attempt < attempts {
			d.logger.Warn("Retrying request", "endpoint", endpoint, "error", err)
		}
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w from %s: %v", ErrMalformedResponse, endpoint, err)
	}

	return nil
}

// Fetch downloads a server resource such as a generated audio file
func (d *Dispatcher) Fetch(ctx context.Context, ref string) (io.ReadCloser, error) {
	target, err := d.Resolve(ref)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: target, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	return resp.Body, nil
}

func (d *Dispatcher) attempt(ctx context.Context, target string, body []byte) ([]byte, error) {
	if d.breaker == nil {
		return d.roundTrip(ctx, target, body)
	}

	res, err := d.breaker.Execute(func() (interface{}, error) {
		return d.roundTrip(ctx, target, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &TransportError{Endpoint: target, Err: err}
	}
	if err != nil {
		return nil, err
	}

	return res.([]byte), nil
}

func (d *Dispatcher) roundTrip(ctx context.Context, target string, body []byte) ([]byte, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: target, Err: err}
	}

	d.logger.Debug("Request completed", "url", target, "status", resp.StatusCode, "request_id", requestID, "bytes", len(data))
	return data, nil
}
