package taskapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// APIError is a non-2xx answer from the Task API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("task api returned %d: %s", e.StatusCode, e.Message)
}

// Client is a typed client for the Task API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client with a 30 second timeout and traced transport.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// WithHTTPClient swaps the underlying client, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set(APIKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRequestBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload errorResponse
		if json.Unmarshal(data, &payload) == nil && payload.Message != "" {
			apiErr.Message = payload.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, "/health", nil, nil, &h)
	return h, err
}

func (c *Client) CreateUser(ctx context.Context, in UserCreate) (User, error) {
	var u User
	err := c.do(ctx, http.MethodPost, "/users", nil, in, &u)
	return u, err
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	err := c.do(ctx, http.MethodGet, "/users", nil, nil, &users)
	return users, err
}

func (c *Client) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, nil, &u)
	return u, err
}

func (c *Client) ScheduleCall(ctx context.Context, in ScheduleCallCreate) (ScheduledCall, error) {
	var call ScheduledCall
	err := c.do(ctx, http.MethodPost, "/calls", nil, in, &call)
	return call, err
}

func (c *Client) ListCalls(ctx context.Context, f CallFilter) ([]ScheduledCall, error) {
	q := url.Values{}
	if f.UserID != "" {
		q.Set("user_id", f.UserID)
	}
	if f.Status != "" {
		q.Set("status_filter", string(f.Status))
	}
	var calls []ScheduledCall
	err := c.do(ctx, http.MethodGet, "/calls", q, nil, &calls)
	return calls, err
}

func (c *Client) GetCall(ctx context.Context, id string) (ScheduledCall, error) {
	var call ScheduledCall
	err := c.do(ctx, http.MethodGet, "/calls/"+url.PathEscape(id), nil, nil, &call)
	return call, err
}

func (c *Client) UpdateCallStatus(ctx context.Context, id string, status CallStatus) (ScheduledCall, error) {
	var call ScheduledCall
	q := url.Values{"new_status": {string(status)}}
	err := c.do(ctx, http.MethodPatch, "/calls/"+url.PathEscape(id)+"/status", q, nil, &call)
	return call, err
}

func (c *Client) CreateTask(ctx context.Context, in TaskCreate) (Task, error) {
	var t Task
	err := c.do(ctx, http.MethodPost, "/tasks", nil, in, &t)
	return t, err
}

func (c *Client) ListTasks(ctx context.Context, f TaskFilter) ([]Task, error) {
	q := url.Values{}
	if f.UserID != "" {
		q.Set("user_id", f.UserID)
	}
	if f.Status != "" {
		q.Set("status_filter", string(f.Status))
	}
	var tasks []Task
	err := c.do(ctx, http.MethodGet, "/tasks", q, nil, &tasks)
	return tasks, err
}

func (c *Client) GetTask(ctx context.Context, id string) (Task, error) {
	var t Task
	err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, nil, &t)
	return t, err
}

func (c *Client) UpdateTaskStatus(ctx context.Context, id string, status TaskStatus) (Task, error) {
	var t Task
	q := url.Values{"new_status": {string(status)}}
	err := c.do(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id)+"/status", q, nil, &t)
	return t, err
}
