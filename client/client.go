package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

const errorBodyLimit = 4096

// TokenProvider supplies the credential attached to outgoing requests.
// An empty token with a nil error means the request goes out unauthenticated.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Config configures a Client. BaseURL is required; everything else has a
// usable default.
type Config struct {
	BaseURL string
	Tokens  TokenProvider
	// Scheme is the Authorization header scheme. The TaskFlow backend
	// uses DRF token auth, so the default is "Token".
	Scheme     string
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Client talks to the remote TaskFlow API.
type Client struct {
	baseURL string
	tokens  TokenProvider
	scheme  string
	http    *http.Client
	log     *log.Logger
}

// New creates a Client from the given config.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("client: base URL is required")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("client: invalid base URL: %w", err)
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "Token"
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Client{
		baseURL: base,
		tokens:  cfg.Tokens,
		scheme:  scheme,
		http:    hc,
		log:     logger,
	}, nil
}

// APIError is a non-success response from the remote API. Detail carries
// the "detail" string from the response body when the server sent one.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("api: status %d", e.Status)
}

// ErrorDetail returns the server-provided detail message, if any.
func (e *APIError) ErrorDetail() string { return e.Detail }

func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := sonic.Unmarshal(body, &payload); err == nil {
		apiErr.Detail = payload.Detail
	}
	return apiErr
}

// do performs one API round trip. A non-nil body is sent as JSON; a
// non-nil out receives the decoded response body. Non-2xx statuses come
// back as *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (err error) {
	metrics, ctx := startCallMetrics(ctx, c.log, method, path)
	status := 0
	defer func() { metrics.End(status, err) }()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, merr := sonic.Marshal(body)
		if merr != nil {
			metrics.SetErrorStage("encode")
			return merr
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		metrics.SetErrorStage("request")
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, terr := c.tokens.Token(ctx)
		if terr != nil {
			metrics.SetErrorStage("auth")
			return fmt.Errorf("token provider: %w", terr)
		}
		if token != "" {
			req.Header.Set("Authorization", c.scheme+" "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.SetErrorStage("transport")
		return err
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.SetErrorStage("status")
		return newAPIError(resp)
	}
	if out == nil {
		return nil
	}
	dec := sonic.ConfigStd.NewDecoder(resp.Body)
	if err := dec.Decode(out); err != nil {
		metrics.SetErrorStage("decode")
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
