package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MethodGet    = http.MethodGet
	MethodPost   = http.MethodPost
	MethodPut    = http.MethodPut
	MethodDelete = http.MethodDelete
	MethodPatch  = http.MethodPatch
)

// DefaultTimeout is the upper bound applied to every outbound request.
const DefaultTimeout = 30 * time.Second

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerRequestID     = "X-Request-ID"

	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// CredentialProvider returns the bearer token to attach to outbound requests.
// An empty token means the request is sent without an Authorization header.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// CredentialFunc adapts a function to CredentialProvider.
type CredentialFunc func(ctx context.Context) (string, error)

// Token implements CredentialProvider.
func (f CredentialFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// RequestObserver receives the outcome of every request. status is 0 when no
// response was received.
type RequestObserver interface {
	ObserveRequest(method, path string, status int, dur time.Duration)
}

// ClientOption configures Client.
type ClientOption func(*Client)

// RequestOptions holds HTTP request parameters. Path is relative to the
// client's base URL.
type RequestOptions struct {
	Method  string
	Path    string
	Headers map[string]string
	Query   url.Values
	Body    interface{}
	// Form sends a map[string]string body as application/x-www-form-urlencoded.
	Form bool
}

// Client sends requests to a single service origin.
type Client struct {
	baseURL     *url.URL
	timeout     time.Duration
	credentials CredentialProvider
	observer    RequestObserver
	client      *http.Client
}

// NewClient creates a new HTTP client bound to baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: u,
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		c.client = &http.Client{}
	}
	c.client.Timeout = c.timeout
	return c, nil
}

// Send dispatches a request and decodes a successful JSON response into dest.
// dest may be nil, *[]byte or *json.RawMessage for raw bodies.
func (c *Client) Send(ctx context.Context, opts *RequestOptions, dest interface{}) error {
	req, err := c.buildRequest(ctx, opts)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.observe(opts, 0, time.Since(start))
		return &TransportError{
			Method:  opts.Method,
			Path:    opts.Path,
			timeout: isTimeout(ctx, err),
			Err:     err,
		}
	}
	defer resp.Body.Close()
	c.observe(opts, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, err := io.ReadAll(resp.Body)
		se := newServiceError(resp.StatusCode, body)
		if err != nil {
			se.Truncated = true
		}
		return se
	}

	if dest == nil {
		return nil
	}

	switch v := dest.(type) {
	case *[]byte:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return c.readError(ctx, opts, err)
		}
		*v = body
	case *json.RawMessage:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return c.readError(ctx, opts, err)
		}
		*v = body
	default:
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			if isDecodeError(err) && !isTimeout(ctx, err) {
				return fmt.Errorf("decode json: %w", err)
			}
			return c.readError(ctx, opts, err)
		}
	}

	return nil
}

// readError reports a body that could not be read to the end as a transport
// failure.
func (c *Client) readError(ctx context.Context, opts *RequestOptions, err error) *TransportError {
	return &TransportError{Method: opts.Method, Path: opts.Path, timeout: isTimeout(ctx, err), Err: err}
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

// BaseURL returns the configured service origin.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) buildRequest(ctx context.Context, opts *RequestOptions) (*http.Request, error) {
	body, err := c.createRequestBody(opts)
	if err != nil {
		return nil, fmt.Errorf("create body: %w", err)
	}

	u := *c.baseURL
	u.Path = c.baseURL.Path + "/" + strings.TrimLeft(opts.Path, "/")
	if len(opts.Query) > 0 {
		u.RawQuery = opts.Query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	c.addHeaders(req, opts)

	if c.credentials != nil {
		token, err := c.credentials.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("read credentials: %w", err)
		}
		if token != "" {
			req.Header.Set(headerAuthorization, "Bearer "+token)
		}
	}

	return req, nil
}

func (c *Client) createRequestBody(opts *RequestOptions) (io.Reader, error) {
	if opts.Body == nil {
		return nil, nil
	}

	switch v := opts.Body.(type) {
	case []byte:
		return bytes.NewBuffer(v), nil
	case io.Reader:
		return v, nil
	case string:
		return strings.NewReader(v), nil
	default:
		if opts.Form {
			formData, ok := opts.Body.(map[string]string)
			if !ok {
				return nil, fmt.Errorf("form body must be map[string]string, got %T", opts.Body)
			}
			values := url.Values{}
			for k, v := range formData {
				values.Set(k, v)
			}
			return strings.NewReader(values.Encode()), nil
		}

		jsonBody, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal json: %w", err)
		}
		return bytes.NewBuffer(jsonBody), nil
	}
}

func (c *Client) addHeaders(req *http.Request, opts *RequestOptions) {
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	if req.Header.Get(headerContentType) == "" && req.Body != nil {
		if opts.Form {
			req.Header.Set(headerContentType, contentTypeForm)
		} else {
			req.Header.Set(headerContentType, contentTypeJSON)
		}
	}
	if req.Header.Get(headerRequestID) == "" {
		req.Header.Set(headerRequestID, uuid.NewString())
	}
}

func (c *Client) observe(opts *RequestOptions, status int, dur time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(opts.Method, opts.Path, status, dur)
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// WithTimeout sets client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithCredentials injects the token source used for the Authorization header.
func WithCredentials(p CredentialProvider) ClientOption {
	return func(c *Client) {
		c.credentials = p
	}
}

// WithObserver registers a per-request observer.
func WithObserver(o RequestObserver) ClientOption {
	return func(c *Client) {
		c.observer = o
	}
}

// WithHTTPClient replaces the underlying *http.Client. Its Timeout is
// overwritten by the configured bound.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		cp := *hc
		c.client = &cp
	}
}

// StatusLabel renders a status code for metrics labels.
func StatusLabel(status int) string {
	if status == 0 {
		return "transport_error"
	}
	return strconv.Itoa(status)
}
