package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/quizly/backend/core"
	"github.com/quizly/backend/services/metrics"
)

const (
	headerForwardedAuth = "X-Forwarded-Authorization"
	headerRequestID     = "X-Request-ID"

	maxErrorBody = 1 << 16
)

// Client talks JSON to one upstream service.
type Client struct {
	name    string
	baseURL string
	apiKey  string
	keyHdr  string
	http    *http.Client
}

// RequestOption customises a single request.
type RequestOption func(r *http.Request)

func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

func WithQuery(params url.Values) RequestOption {
	return func(r *http.Request) { r.URL.RawQuery = params.Encode() }
}

func NewClient(name string, conf core.ServiceConfig, timeout time.Duration) *Client {
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(conf.BaseURL, "/"),
		apiKey:  conf.APIKey,
		keyHdr:  conf.APIKeyHeader,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string { return c.name }

// Do sends in (if not nil) as JSON and decodes a 2xx reply into out (if not nil).
// Other replies are returned as *Error.
func (c *Client) Do(ctx context.Context, method, path string, in, out interface{}, opts ...RequestOption) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "%s: encoding request", c.name)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrapf(err, "%s: building request", c.name)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(ctx, req)
	if id := core.RequestIDFrom(ctx); id != "" {
		req.Header.Set(headerRequestID, id)
	}
	for _, opt := range opts {
		opt(req)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	metrics.UpstreamDuration.WithLabelValues(c.name, method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(c.name, method, "error").Inc()
		return errors.Wrapf(err, "%s: %s %s", c.name, method, path)
	}
	defer res.Body.Close()
	metrics.UpstreamRequests.WithLabelValues(c.name, method, strconv.Itoa(res.StatusCode)).Inc()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return &Error{Service: c.name, StatusCode: res.StatusCode, Message: ExtractMessage(res.StatusCode, raw)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrapf(err, "%s: reading response", c.name)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err = json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "%s: decoding response", c.name)
	}
	return nil
}

// authorize sets the service credentials and forwards the caller's bearer token.
func (c *Client) authorize(ctx context.Context, req *http.Request) {
	caller, _ := core.CallerFrom(ctx)
	switch {
	case c.apiKey != "" && c.keyHdr != "" && !strings.EqualFold(c.keyHdr, "Authorization"):
		req.Header.Set(c.keyHdr, c.apiKey)
		if caller.Token != "" {
			req.Header.Set("Authorization", "Bearer "+caller.Token)
		}
	case c.apiKey != "":
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		if caller.Token != "" {
			req.Header.Set(headerForwardedAuth, "Bearer "+caller.Token)
		}
	case caller.Token != "":
		req.Header.Set("Authorization", "Bearer "+caller.Token)
	}
}

func escape(segment string) string { return url.PathEscape(segment) }
