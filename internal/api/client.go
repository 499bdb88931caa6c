// Package api is the JSON-over-HTTP transport to the authentication backend.
//
// It knows endpoint paths, request and response shapes, and how to turn a
// failed exchange into one of three failure kinds: [ErrNetwork],
// [ErrMalformedResponse] or a [*ServerError]. It does not rewrite messages
// for display; that is the flows' job.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxResponseBytes = 1 << 20

var (
	// ErrNetwork covers transport failures: refused connections, timeouts,
	// cancelled contexts.
	ErrNetwork = errors.New("api: network failure")
	// ErrMalformedResponse is returned when a response body is not the JSON
	// the endpoint promises.
	ErrMalformedResponse = errors.New("api: malformed response")
)

// ServerError is a non-2xx response carrying the backend's failure body.
type ServerError struct {
	Status  int
	Message string
	Code    string
	Err     string
}

func (e *ServerError) Error() string {
	if text := e.Text(); text != "" {
		return fmt.Sprintf("api: server rejected request (%d): %s", e.Status, text)
	}
	return fmt.Sprintf("api: server rejected request (%d)", e.Status)
}

// Text returns message, falling back to error.
func (e *ServerError) Text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err
}

// Paths lists the endpoint paths relative to the base URL.
type Paths struct {
	VerifyToken        string `yaml:"verify_token" toml:"verify_token"`
	Login              string `yaml:"login" toml:"login"`
	Signup             string `yaml:"signup" toml:"signup"`
	SignupVerify       string `yaml:"signup_verify" toml:"signup_verify"`
	ForgotPassword     string `yaml:"forgot_password" toml:"forgot_password"`
	ResetPassword      string `yaml:"reset_password" toml:"reset_password"`
	ResendVerification string `yaml:"resend_verification" toml:"resend_verification"`
	GoogleAuth         string `yaml:"google_auth" toml:"google_auth"`
	UserPreferences    string `yaml:"user_preferences" toml:"user_preferences"`
}

func DefaultPaths() Paths {
	return Paths{
		VerifyToken:        "/api/verify-token",
		Login:              "/api/login",
		Signup:             "/api/signup",
		SignupVerify:       "/api/signup/verify",
		ForgotPassword:     "/api/forgot-password",
		ResetPassword:      "/api/reset-password",
		ResendVerification: "/api/resend-verification",
		GoogleAuth:         "/api/auth/google",
		UserPreferences:    "/api/user-preferences",
	}
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Paths      Paths
	HTTPClient *http.Client
	UserAgent  string
	// RequestID returns the X-Request-ID for a request. An empty result
	// falls back to a random uuid.
	RequestID func(context.Context) string
	// Observe receives the latency of every exchange that got a response.
	Observe func(endpoint Endpoint, d time.Duration)
}

// Client performs the backend exchanges.
type Client struct {
	base      string
	paths     Paths
	http      *http.Client
	userAgent string
	requestID func(context.Context) string
	observe   func(Endpoint, time.Duration)
}

func New(opts Options) *Client {
	c := &Client{
		base:      strings.TrimRight(opts.BaseURL, "/"),
		paths:     opts.Paths,
		http:      opts.HTTPClient,
		userAgent: opts.UserAgent,
		requestID: opts.RequestID,
		observe:   opts.Observe,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
	}
	if c.requestID == nil {
		c.requestID = func(context.Context) string { return "" }
	}
	if c.observe == nil {
		c.observe = func(Endpoint, time.Duration) {}
	}
	return c
}

type failureBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Error   string `json:"error"`
}

// do sends body to the path configured for endpoint and decodes a 2xx
// response into out. A nil out accepts any (or no) body. bearer, when set,
// is sent as an Authorization header.
func (c *Client) do(ctx context.Context, endpoint Endpoint, method, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+c.paths.Path(endpoint), reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	reqID := c.requestID(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", reqID)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.observe(endpoint, time.Since(start))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var fb failureBody
		if len(bytes.TrimSpace(data)) > 0 {
			if err := json.Unmarshal(data, &fb); err != nil {
				return fmt.Errorf("%w: status %d: %v", ErrMalformedResponse, resp.StatusCode, err)
			}
		}
		return &ServerError{Status: resp.StatusCode, Message: fb.Message, Code: fb.Code, Err: fb.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// IsNetwork reports whether err is a transport or parse failure.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrMalformedResponse)
}

// AsServerError extracts a *ServerError from err.
func AsServerError(err error) (*ServerError, bool) {
	var se *ServerError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
