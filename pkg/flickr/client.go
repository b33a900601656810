package flickr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// CallInfo describes one completed Execute for observers
type CallInfo struct {
	Method     string
	Outcome    Outcome
	HTTPStatus int
	ErrorCode  int
	Cached     bool
	Duration   time.Duration
	StartedAt  time.Time
}

// Observer is notified after every completed call
type Observer interface {
	ObserveCall(ctx context.Context, call CallInfo)
}

// Client is a Flickr API client. It is read-only after construction and
// may be shared by concurrent callers.
type Client struct {
	config    *ClientConfig
	transport Transport
	logger    *slog.Logger
	token     string
}

// NewClient creates a new Flickr API client
func NewClient(config *ClientConfig) *Client {
	cfg := withDefaults(config)
	return &Client{
		config: cfg,
		transport: &HTTPTransport{
			Client: &http.Client{Timeout: cfg.Timeout},
		},
		logger: loggerOrDiscard(cfg.Logger),
	}
}

// NewClientWithTransport creates a new Flickr API client that sends
// requests through transport.
func NewClientWithTransport(config *ClientConfig, transport Transport) *Client {
	c := NewClient(config)
	if transport != nil {
		c.transport = transport
	}
	return c
}

func withDefaults(config *ClientConfig) *ClientConfig {
	cfg := *DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.RESTURL == "" {
		cfg.RESTURL = DefaultRESTURL
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.UploadURL == "" {
		cfg.UploadURL = DefaultUploadURL
	}
	if cfg.ReplaceURL == "" {
		cfg.ReplaceURL = DefaultReplaceURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultClientTimeout
	}
	cfg.Observers = append([]Observer(nil), cfg.Observers...)
	cfg.UncachedMethods = append([]string(nil), cfg.UncachedMethods...)
	return &cfg
}

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger.With("component", "flickr")
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Credentials returns the client's key and secret
func (c *Client) Credentials() Credentials {
	return c.config.Credentials()
}

// Token returns the auth token carried by the client, if any
func (c *Client) Token() string {
	return c.token
}

// WithToken returns a copy of the client that sends auth_token with
// every call.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// BuildRequest builds a signed request for the REST endpoint
func (c *Client) BuildRequest(method string, args Args) *Request {
	return BuildRequest(c.Credentials(), method, c.withToken(args), c.config.RESTURL)
}

func (c *Client) withToken(args Args) Args {
	if c.token == "" {
		return args
	}
	if _, ok := args["auth_token"]; ok {
		return args
	}
	out := args.Clone()
	out["auth_token"] = c.token
	return out
}

// Execute calls method and returns the classified response. Service
// failures and malformed responses are reported through the Response; the
// error is non-nil only when the request could not be completed.
func (c *Client) Execute(ctx context.Context, method string, args Args) (*Response, error) {
	return c.execute(ctx, c.BuildRequest(method, args))
}

// Call is Execute followed by Response.Err. It returns the rsp element of
// a successful call.
func (c *Client) Call(ctx context.Context, method string, args Args) (*Node, error) {
	resp, err := c.Execute(ctx, method, args)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

func (c *Client) execute(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	if body, ok := c.cached(ctx, req); ok {
		resp := Interpret(http.StatusOK, body)
		c.observe(ctx, req.Method, resp, true, start)
		return resp, nil
	}

	httpReq, err := req.HTTPRequest(ctx)
	if err != nil {
		return nil, err
	}
	status, body, err := c.send(httpReq)
	if err != nil {
		return nil, err
	}

	resp := Interpret(status, body)
	if resp.OK() {
		c.store(ctx, req, body)
	}
	c.observe(ctx, req.Method, resp, false, start)
	return resp, nil
}

// send performs the HTTP exchange and returns the status and the
// inflated body.
func (c *Client) send(req *http.Request) (int, []byte, error) {
	setAcceptEncoding(req, c.config.Compression)

	resp, err := c.transport.Send(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, inflate(resp.Header, body), nil
}

// cacheable reports whether responses to method may be served from and
// stored in the cache
func (c *Client) cacheable(method string) bool {
	if c.config.Cache == nil || strings.HasPrefix(method, authMethodPrefix) {
		return false
	}
	for _, m := range c.config.UncachedMethods {
		if m == method {
			return false
		}
	}
	return true
}

func (c *Client) cached(ctx context.Context, req *Request) ([]byte, bool) {
	if !c.cacheable(req.Method) {
		return nil, false
	}
	body, ok, err := c.config.Cache.Get(ctx, req.cacheKey())
	if err != nil {
		c.logger.Warn("cache lookup failed", "method", req.Method, "error", err)
		return nil, false
	}
	return body, ok
}

func (c *Client) store(ctx context.Context, req *Request, body []byte) {
	if !c.cacheable(req.Method) {
		return
	}
	if err := c.config.Cache.Set(ctx, req.cacheKey(), body); err != nil {
		c.logger.Warn("cache store failed", "method", req.Method, "error", err)
	}
}

func (c *Client) observe(ctx context.Context, method string, resp *Response, cached bool, start time.Time) {
	call := CallInfo{
		Method:     method,
		Outcome:    resp.Outcome,
		HTTPStatus: resp.HTTPStatus,
		ErrorCode:  resp.ErrorCode,
		Cached:     cached,
		Duration:   time.Since(start),
		StartedAt:  start,
	}
	c.logger.Debug("flickr call completed",
		"method", method,
		"outcome", resp.Outcome.String(),
		"status", resp.HTTPStatus,
		"cached", cached,
		"duration_ms", call.Duration.Milliseconds())
	for _, o := range c.config.Observers {
		o.ObserveCall(ctx, call)
	}
}
