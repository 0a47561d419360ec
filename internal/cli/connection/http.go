package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yndnr/shardmap-go/internal/server/httpserver/handler"
	"github.com/yndnr/shardmap-go/internal/server/localserver"
	"github.com/yndnr/shardmap-go/pkg/shardmap"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx reply from the server. It matches the shardmap
// sentinel with the same code under errors.Is.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Is reports whether target is a shardmap error with the same code.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*shardmap.Error)
	return ok && t.Code == e.Code
}

// HTTPClient talks to shardmap-server over HTTP.
type HTTPClient struct {
	baseURL  string
	password string
	client   *http.Client
}

// UnixScheme prefixes a server address that names a local socket, as in
// unix:///run/shardmap.sock.
const UnixScheme = "unix://"

// NewHTTPClient creates a client for server. A bare host:port gets an
// http:// prefix; a unix:// address dials the management socket.
func NewHTTPClient(server, password string) *HTTPClient {
	client := &http.Client{Timeout: DefaultTimeout}

	if socket, ok := strings.CutPrefix(server, UnixScheme); ok {
		client.Transport = &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socket)
			},
		}
		return &HTTPClient{
			baseURL:  "http://localhost",
			password: password,
			client:   client,
		}
	}

	baseURL := strings.TrimSuffix(server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &HTTPClient{
		baseURL:  baseURL,
		password: password,
		client:   client,
	}
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Insert stores key only if it is absent.
func (c *HTTPClient) Insert(ctx context.Context, key string, value []byte) (*handler.KeyResponse, error) {
	var out handler.KeyResponse
	if err := c.do(ctx, http.MethodPut, keyPath(key), valueBody(value), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get reads key.
func (c *HTTPClient) Get(ctx context.Context, key string) (*handler.KeyResponse, error) {
	var out handler.KeyResponse
	if err := c.do(ctx, http.MethodGet, keyPath(key), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes key.
func (c *HTTPClient) Delete(ctx context.Context, key string) error {
	return c.do(ctx, http.MethodDelete, keyPath(key), nil, nil)
}

// Replace swaps the value of an existing key.
func (c *HTTPClient) Replace(ctx context.Context, key string, value []byte) (*handler.KeyResponse, error) {
	var out handler.KeyResponse
	if err := c.do(ctx, http.MethodPost, keyPath(key)+"/replace", valueBody(value), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats fetches bucket occupancy.
func (c *HTTPClient) Stats(ctx context.Context) (*handler.StatsResponse, error) {
	var out handler.StatsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks the liveness probe.
func (c *HTTPClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// LocalStatus fetches process status. Only served on the local socket.
func (c *HTTPClient) LocalStatus(ctx context.Context) (*localserver.Status, error) {
	var out localserver.Status
	if err := c.do(ctx, http.MethodGet, "/local/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reload asks the server to re-read its config file. Only served on the
// local socket.
func (c *HTTPClient) Reload(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/local/reload", nil, nil)
}

func keyPath(key string) string {
	return "/v1/keys/" + url.PathEscape(key)
}

func valueBody(value []byte) any {
	s, enc := handler.EncodeValue(value)
	return handler.ValueRequest{Value: &s, Encoding: enc}
}

// do sends a request and decodes the envelope's data into target.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, target any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.password != "" {
		req.Header.Set("Authorization", "Bearer "+c.password)
	}
	req.Header.Set("User-Agent", "shardmap-cli")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	return ParseResponse(resp, target)
}

// ParseResponse decodes a Response envelope. Data is decoded into target
// when target is non-nil; error replies become *APIError.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	var env struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Code = env.Code
			apiErr.Message = env.Message
		}
		return apiErr
	}
	if target == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if decodeErr != nil {
		return fmt.Errorf("parse response: %w", decodeErr)
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return fmt.Errorf("parse response data: %w", err)
	}
	return nil
}
