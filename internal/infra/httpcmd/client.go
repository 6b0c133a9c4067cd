package httpcmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tvremote/internal/domain"
	"tvremote/internal/infra"
)

// Client talks to a command execution backend over HTTP. It can stand in
// for a session when a device has no control channel: every command is a
// single request and the response carries the outcome.
type Client struct {
	baseURL    string
	deviceID   string
	httpClient *http.Client
	retry      infra.RetryConfig
}

func NewClient(baseURL, deviceID string) *Client {
	return &Client{
		baseURL:    baseURL,
		deviceID:   deviceID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		retry:      infra.DefaultRetryConfig(),
	}
}

// APIError is a non-success answer from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error %d: %s", e.StatusCode, e.Message)
}

type ExecuteResult struct {
	Success      bool           `json:"success"`
	Command      domain.Command `json:"command"`
	DeviceID     string         `json:"deviceId"`
	ExecutedAt   time.Time      `json:"executedAt"`
	ResponseTime int64          `json:"responseTime"`
	Result       map[string]any `json:"result"`
	Error        string         `json:"error"`
}

type PingResult struct {
	Device       domain.Device `json:"device"`
	Reachable    bool          `json:"reachable"`
	ResponseTime int           `json:"responseTime"`
}

func (c *Client) ExecuteCommand(ctx context.Context, deviceID string, cmd domain.Command) (ExecuteResult, error) {
	body, err := json.Marshal(map[string]any{"command": cmd, "deviceId": deviceID})
	if err != nil {
		return ExecuteResult{}, fmt.Errorf("encoding command: %w", err)
	}

	var result ExecuteResult
	if err := c.do(ctx, http.MethodPost, "/api/command", body, &result); err != nil {
		return ExecuteResult{}, fmt.Errorf("executing command: %w", err)
	}
	return result, nil
}

// SendCommand executes cmd on the client's device and reports whether it
// succeeded.
func (c *Client) SendCommand(ctx context.Context, cmd domain.Command) (bool, error) {
	result, err := c.ExecuteCommand(ctx, c.deviceID, cmd)
	if err != nil {
		return false, err
	}
	if result.Error != "" {
		return false, &domain.DeviceError{Message: result.Error}
	}
	return result.Success, nil
}

func (c *Client) History(ctx context.Context, deviceID string, limit int) ([]domain.CommandRecord, int, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if deviceID != "" {
		q.Set("deviceId", deviceID)
	}

	path := "/api/command"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var result struct {
		Commands   []domain.CommandRecord `json:"commands"`
		TotalCount int                    `json:"totalCount"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, 0, fmt.Errorf("fetching history: %w", err)
	}
	return result.Commands, result.TotalCount, nil
}

// Discover lists the devices the backend currently sees.
func (c *Client) Discover(ctx context.Context) ([]domain.Device, error) {
	var result struct {
		Devices []domain.Device `json:"devices"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/discover", nil, &result); err != nil {
		return nil, fmt.Errorf("discovering devices: %w", err)
	}
	return result.Devices, nil
}

func (c *Client) Ping(ctx context.Context, deviceID string) (PingResult, error) {
	body, err := json.Marshal(map[string]string{"action": "ping", "deviceId": deviceID})
	if err != nil {
		return PingResult{}, fmt.Errorf("encoding ping: %w", err)
	}

	var result PingResult
	if err := c.do(ctx, http.MethodPost, "/api/discover", body, &result); err != nil {
		return PingResult{}, fmt.Errorf("pinging %s: %w", deviceID, err)
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var respBody []byte
	err := infra.WithRetry(ctx, c.retry, func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return &infra.PermanentError{Err: fmt.Errorf("creating request: %w", err)}
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode >= http.StatusBadRequest {
			apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
			if infra.IsRetryableHTTPStatus(resp.StatusCode) {
				return apiErr
			}
			return &infra.PermanentError{Err: apiErr}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		return string(bytes.TrimSpace(body))
	}
	return payload.Error
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
