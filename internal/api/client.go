// Package api is the gateway to the gamerlink REST backend. Every backend
// capability is one method on Client; all of them share credential
// attachment from the session store and a single normalized error shape.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "gamerlink/client/internal/api"

// Sessions is the credential source the client reads on every authenticated
// call and writes after login or registration.
type Sessions interface {
	Token() string
	Login(token, username string) error
	Logout() error
}

type sendFunc func(req *http.Request) (*http.Response, error)

type Client struct {
	baseURL      string
	sessions     Sessions
	httpClient   *http.Client
	log          *slog.Logger
	tracer       trace.Tracer
	propagator   propagation.TextMapPropagator
	retry        RetryPolicy
	newRequestID func() string
	send         sendFunc
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

func WithRetry(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

func WithRequestIDFunc(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newRequestID = fn
		}
	}
}

// New returns a client for the backend at baseURL. sessions may be nil, in
// which case every authenticated call fails as unauthenticated.
func New(baseURL string, sessions Sessions, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}

	c := &Client{
		baseURL:      baseURL,
		sessions:     sessions,
		httpClient:   &http.Client{},
		log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:       otel.GetTracerProvider().Tracer(tracerName),
		propagator:   otel.GetTextMapPropagator(),
		newRequestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.send = withRetry(c.httpClient.Do, c.retry, c.log)
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type authMode int

const (
	authNone authMode = iota
	authOptional
	authRequired
)

// request is the per-call envelope description.
type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	auth   authMode
	// notFound replaces the server message on a 404.
	notFound string
}

// do runs one request through Building -> InFlight -> Succeeded/Failed. The
// token is read once, before anything else, so a concurrent logout cannot
// change what an already issued call sends.
func (c *Client) do(ctx context.Context, r request, out any) error {
	token := ""
	if r.auth != authNone {
		token = c.token()
	}

	ctx, span := c.tracer.Start(ctx, "gamerlink."+r.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", r.method),
			attribute.String("url.path", r.path),
		),
	)
	defer span.End()

	if r.auth == authRequired && token == "" {
		return c.fail(span, r, errUnauthenticated(r.op), 0)
	}

	req, err := c.newRequest(ctx, r, token)
	if err != nil {
		return c.fail(span, r, errInvalidInput(r.op, err.Error()), 0)
	}

	start := time.Now()
	resp, err := c.send(req)
	if err != nil {
		return c.fail(span, r, errTransport(r.op, err), time.Since(start))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(span, r, errTransport(r.op, err), time.Since(start))
	}
	elapsed := time.Since(start)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := serverMessage(body)
		if resp.StatusCode == http.StatusNotFound && r.notFound != "" {
			msg = r.notFound
		}
		return c.fail(span, r, errFromStatus(r.op, resp.StatusCode, msg), elapsed)
	}

	c.log.Debug("api request",
		"op", r.op,
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"duration", elapsed,
		"request_id", req.Header.Get("X-Request-Id"),
	)

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return c.fail(span, r, errInvalidResponse(r.op, resp.StatusCode, err), elapsed)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, r request, token string) (*http.Request, error) {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", c.newRequestID())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	c.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))
	return req, nil
}

func (c *Client) fail(span trace.Span, r request, apiErr *Error, elapsed time.Duration) error {
	span.RecordError(apiErr)
	span.SetStatus(codes.Error, apiErr.Message)
	span.SetAttributes(attribute.String("gamerlink.error.kind", string(apiErr.Kind)))

	c.log.Warn("api request failed",
		"op", r.op,
		"method", r.method,
		"path", r.path,
		"kind", apiErr.Kind,
		"status", apiErr.Status,
		"duration", elapsed,
		"err", apiErr.Message,
	)
	return apiErr
}

func (c *Client) token() string {
	if c.sessions == nil {
		return ""
	}
	return c.sessions.Token()
}

// serverMessage extracts the "error" field of a JSON error body.
func serverMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Error)
}

func userPath(prefix, username string) string {
	return prefix + url.PathEscape(username)
}
