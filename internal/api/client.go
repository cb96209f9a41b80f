// Package api is a typed client for the bookkeeping HTTP API.
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

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/credentials"
	"github.com/Veraticus/the-books-must-balance/internal/service"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Config configures the API client.
type Config struct {
	// Base is the transport under the auth layer. Defaults to http.DefaultTransport.
	Base    http.RoundTripper
	BaseURL string
	Timeout time.Duration
}

// Client talks JSON over HTTP to the bookkeeping API.
type Client struct {
	baseURL *url.URL
	// authed attaches the bearer token; anonymous is used for login only.
	authed    *http.Client
	anonymous *http.Client
}

var (
	_ service.AuthAPI           = (*Client)(nil)
	_ service.ReconciliationAPI = (*Client)(nil)
	_ service.ImportAPI         = (*Client)(nil)
)

// NewClient creates a client whose requests are authenticated from creds.
func NewClient(cfg Config, creds service.CredentialStore) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL", common.ErrMissingConfig)
	}
	if creds == nil {
		return nil, fmt.Errorf("%w: credential store", common.ErrMissingConfig)
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: base URL: %w", common.ErrInvalidConfig, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: base URL must be http or https: %s", common.ErrInvalidConfig, cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	transport := cfg.Base
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		baseURL: base,
		authed: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &oauth2.Transport{
				Source: credentials.TokenSource(context.Background(), creds),
				Base:   transport,
			},
		},
		anonymous: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
	}, nil
}

// endpoint joins the base URL with an already escaped path.
func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.RawPath = c.baseURL.EscapedPath() + path
	if unescaped, err := url.PathUnescape(u.RawPath); err == nil {
		u.Path = unescaped
	} else {
		u.Path = c.baseURL.Path + path
		u.RawPath = ""
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// doJSON sends an optional JSON body and decodes the (possibly enveloped) response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(c.authed, req, path, out)
}

func (c *Client) send(httpClient *http.Client, req *http.Request, path string, out any) error {
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", req.Method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	slog.Debug("API request",
		"method", req.Method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Method:     req.Method,
			Path:       path,
			Status:     resp.Status,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(unwrapEnvelope(data), out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// unwrapEnvelope returns the "data" member of a {"success":..,"data":..}
// envelope, or the body unchanged when it is not enveloped.
func unwrapEnvelope(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return body
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil || envelope.Data == nil {
		return body
	}
	return envelope.Data
}

// businessPath builds an escaped path under /businesses/{id}; every segment
// is escaped on its own so ids cannot add path segments.
func businessPath(businessID string, parts ...string) string {
	var b strings.Builder
	b.WriteString("/businesses/")
	b.WriteString(url.PathEscape(businessID))
	for _, p := range parts {
		b.WriteString("/")
		b.WriteString(url.PathEscape(p))
	}
	return b.String()
}
