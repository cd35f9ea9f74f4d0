// Package httpclient provides the HTTP client used by the LLM providers.
//
// The client performs exactly one attempt per call. Callers bound latency with
// the request context and the client timeout; failures are surfaced as typed
// errors so they can be classified upstream.
package httpclient

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/kart-io/los-insight/pkg/utils/json"
)

// maxErrorBody caps how much of an error response body is kept.
const maxErrorBody = 4096

// StatusError is returned when the server answers with a 4xx/5xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status code %d: %s", e.StatusCode, e.Body)
}

// AsStatusError unwraps err into a *StatusError if possible.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Client is a wrapper around http.Client with trace propagation and JSON helpers.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new HTTP client wrapper.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Do executes req once after injecting the W3C trace context headers.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.injectTraceContext(req)
	return c.httpClient.Do(req)
}

// DoJSON executes a JSON request, decodes the response into v and closes the body.
func (c *Client) DoJSON(req *http.Request, v interface{}) error {
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// injectTraceContext 将当前 Span 的追踪信息写入请求头，无活跃 Span 时不做任何事。
func (c *Client) injectTraceContext(req *http.Request) {
	if req == nil || req.Context() == nil {
		return
	}

	propagator := otel.GetTextMapPropagator()
	if propagator == nil {
		return
	}
	propagator.Inject(req.Context(), propagation.HeaderCarrier(req.Header))
}
