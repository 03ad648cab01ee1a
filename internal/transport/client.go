package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client is a thin wrapper over http.Client used for every control-plane
// call in the cluster. It is safe for concurrent use.
type Client struct {
	http   *http.Client
	logger *zap.Logger
}

// New builds a Client with the given per-call timeout. A nil logger
// defaults to zap.NewNop().
func New(timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// PostJSON POSTs body (marshaled to JSON) to url and decodes a JSON
// response into out. If out is nil the response body is drained and
// discarded (used for plain-ack endpoints).
//
// A transport-level failure (DNS, connection refused, timeout) is
// returned wrapped with the URL. A status of 300 or above is returned as
// a *StatusError, and a response body that fails to decode as a
// *MalformedResponseError, so callers can distinguish them from a
// transport failure and choose to log-and-continue instead of aborting.
func (c *Client) PostJSON(ctx context.Context, url string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("transport: encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("transport: %s: %w", url, err)
	}
	defer resp.Body.Close()

	return c.decodeResponse(url, resp, out)
}

// GetJSON issues a GET to url and decodes a JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("transport: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("transport: %s: %w", url, err)
	}
	defer resp.Body.Close()

	return c.decodeResponse(url, resp, out)
}

func (c *Client) decodeResponse(url string, resp *http.Response, out any) error {
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{URL: url, Status: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		_, err := io.Copy(io.Discard, resp.Body)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &MalformedResponseError{URL: url, Err: err}
	}
	return nil
}

// StatusError is returned when a control-plane call completes but with a
// status of 300 or above, most notably the 403 the auth rule returns on a
// credentials mismatch.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transport: %s returned status %d: %s", e.URL, e.Status, e.Body)
}

// IsForbidden reports whether err is a StatusError carrying a 403, the
// auth rule's mismatch response.
func IsForbidden(err error) bool {
	se, ok := err.(*StatusError)
	return ok && se.Status == http.StatusForbidden
}

// MalformedResponseError wraps a JSON decode failure on an otherwise
// successful response. Per the error-handling taxonomy this is logged and
// substituted with a zero result in aggregation, not treated as fatal.
type MalformedResponseError struct {
	URL string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("transport: %s: malformed response: %v", e.URL, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
