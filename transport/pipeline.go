package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/eureka/logger"
	"github.com/kbukum/eureka/resilience"
	"github.com/kbukum/eureka/resolver"
	"github.com/kbukum/eureka/version"
)

const defaultTimeout = 30 * time.Second

// Middleware transforms an outgoing request before execution. Returning
// a nil request (or an error) aborts the call without retrying.
type Middleware func(*http.Request) (*http.Request, error)

// Config configures the request pipeline.
type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// RetryDelay is the linear backoff base: retry n waits n*RetryDelay.
	RetryDelay time.Duration
	// Timeout bounds each individual HTTP call.
	Timeout time.Duration
	// Middleware transforms every outgoing request. Optional.
	Middleware Middleware
}

// ApplyDefaults fills zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Request describes one call to the registry server.
type Request struct {
	// Method is the HTTP method.
	Method string
	// Path is appended to the resolved server base URL.
	Path string
	// Body is the raw request body, already encoded.
	Body []byte
	// Headers are request-specific headers (override the JSON defaults).
	Headers map[string]string
}

// Response is the result of a pipeline call.
type Response struct {
	StatusCode int
	Body       []byte
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Pipeline executes registry requests: resolve a server for the current
// attempt, run the middleware, execute, and retry across candidates with
// linear backoff.
type Pipeline struct {
	resolver   resolver.ClusterResolver
	httpClient *http.Client
	middleware Middleware
	retry      resilience.RetryConfig
	log        *logger.Logger
}

// New creates a Pipeline on top of the given cluster resolver.
func New(cfg Config, res resolver.ClusterResolver, log *logger.Logger) *Pipeline {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	log = log.WithComponent("transport")

	retry := resilience.RetryConfig{
		MaxAttempts: cfg.MaxRetries + 1,
		BaseDelay:   cfg.RetryDelay,
		RetryIf:     IsRetryable,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			log.Warn("retrying eureka request", logger.Fields(
				logger.FieldAttempt, attempt,
				logger.FieldError, err.Error(),
				"backoff", backoff.String(),
			))
		},
	}

	return &Pipeline{
		resolver:   res,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		middleware: cfg.Middleware,
		retry:      retry,
		log:        log,
	}
}

// Do executes the request with retries. Each attempt re-resolves the base
// URL, so successive attempts may land on different servers. Backoff is
// scheduled on a timer, never by synchronous recursion.
func (p *Pipeline) Do(ctx context.Context, req Request) (*Response, error) {
	return resilience.Retry(ctx, p.retry, func(attempt int) (*Response, error) {
		return p.doOnce(ctx, req, attempt)
	})
}

// doOnce runs the three pipeline stages for a single attempt.
func (p *Pipeline) doOnce(ctx context.Context, req Request, attempt int) (*Response, error) {
	base, err := p.resolver.Resolve(ctx, attempt)
	if err != nil {
		return nil, NewResolutionError(err)
	}

	httpReq, err := p.buildRequest(ctx, base, req)
	if err != nil {
		return nil, err
	}

	if p.middleware != nil {
		transformed, err := p.middleware(httpReq)
		if err != nil {
			return nil, NewMiddlewareError("request middleware failed", err)
		}
		if transformed == nil {
			return nil, NewMiddlewareError("request middleware returned no request", nil)
		}
		httpReq = transformed
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewTransportError(err)
	}

	result := &Response{StatusCode: resp.StatusCode, Body: body}
	if !result.IsSuccess() {
		return nil, NewProtocolError(resp.StatusCode, body)
	}
	return result, nil
}

func (p *Pipeline) buildRequest(ctx context.Context, base string, req Request) (*http.Request, error) {
	url := joinURL(base, req.Path)

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, NewTransportError(err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

func joinURL(base, path string) string {
	base = strings.TrimRight(base, "/")
	if path == "" {
		return base
	}
	return base + "/" + strings.TrimLeft(path, "/")
}
