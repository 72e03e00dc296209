package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/loopdocs/docdesk/internal/contexts"
	"github.com/loopdocs/docdesk/internal/log"
)

type Config struct {
	BaseURL string        `conf:"base_url" yaml:"base_url" json:"base_url"`
	Token   string        `conf:"token" yaml:"token" json:"token"`
	Timeout time.Duration `conf:"timeout" yaml:"timeout" json:"timeout"`

	// TraceHeader and DepartmentHeader propagate the request context to
	// the server. Defaults match the server's middleware.
	TraceHeader      string `conf:"trace_header" yaml:"trace_header" json:"trace_header"`
	DepartmentHeader string `conf:"department_header" yaml:"department_header" json:"department_header"`
}

func DefaultConfig() Config {
	return Config{
		Timeout:          30 * time.Second,
		TraceHeader:      "X-Trace-Id",
		DepartmentHeader: "X-Department",
	}
}

// Client is the HTTP implementation of Gateway.
type Client struct {
	config Config
	client *http.Client
}

var _ Gateway = (*Client)(nil)

func NewClient(config Config) *Client {
	if config.TraceHeader == "" {
		config.TraceHeader = DefaultConfig().TraceHeader
	}

	if config.DepartmentHeader == "" {
		config.DepartmentHeader = DefaultConfig().DepartmentHeader
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Client{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
	}
}

// NewClientWithHTTPClient builds a Client over a caller-supplied http.Client.
func NewClientWithHTTPClient(config Config, client *http.Client) *Client {
	c := NewClient(config)
	c.client = client

	return c
}

type listUsersResponse struct {
	Users []User `json:"users"`
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var out listUsersResponse
	if err := c.do(ctx, "list users", http.MethodGet, "/api/v1/users", nil, &out); err != nil {
		return nil, err
	}

	return out.Users, nil
}

type permissionDomainResponse struct {
	Codes []string `json:"codes"`
}

func (c *Client) PermissionDomain(ctx context.Context) ([]string, error) {
	var out permissionDomainResponse
	if err := c.do(ctx, "list permission domain", http.MethodGet, "/api/v1/permissions/domain", nil, &out); err != nil {
		return nil, err
	}

	return out.Codes, nil
}

func (c *Client) CreateUser(ctx context.Context, draft UserDraft) (*User, error) {
	var out User
	if err := c.do(ctx, "create user", http.MethodPost, "/api/v1/users", draft, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

type updatePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

func (c *Client) UpdateUserPermissions(ctx context.Context, userID string, codes []string) error {
	path := fmt.Sprintf("/api/v1/users/%s/permissions", userID)
	return c.do(ctx, "update user permissions", http.MethodPut, path, updatePermissionsRequest{Permissions: codes}, nil)
}

type batchUpdatePermissionsRequest struct {
	Updates map[string][]string `json:"updates"`
}

func (c *Client) BatchUpdateUserPermissions(ctx context.Context, updates map[string][]string) error {
	return c.do(ctx, "batch update user permissions", http.MethodPut, "/api/v1/users/permissions",
		batchUpdatePermissionsRequest{Updates: updates}, nil)
}

func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.do(ctx, "delete user", http.MethodDelete, "/api/v1/users/"+userID, nil, nil)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}

		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	if traceID, ok := contexts.GetTraceID(ctx); ok {
		req.Header.Set(c.config.TraceHeader, traceID)
	}

	if dept, ok := contexts.GetDepartment(ctx); ok {
		req.Header.Set(c.config.DepartmentHeader, dept.Acronym)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", op, err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn(ctx, "failed to close response body", log.Cause(err))
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", op, err)
	}

	if resp.StatusCode >= 400 {
		log.Debug(ctx, "gateway request rejected",
			log.String("op", op),
			log.String("method", method),
			log.String("path", path),
			log.Int("status_code", resp.StatusCode),
		)

		return &Error{Op: op, StatusCode: resp.StatusCode, Reason: errorReason(raw, resp.Status)}
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}

	return nil
}

// errorReason prefers the server's structured error message, falling back
// to the HTTP status line.
func errorReason(body []byte, status string) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		return er.Error
	}

	return status
}
