// Package smartthings provides a client for the SmartThings-compatible
// device cloud API. All calls are authenticated with a bearer token and
// bounded by the client timeout; a non-2xx response is a hard failure
// carrying the HTTP status text. There are no retries at this layer.
package smartthings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/reevehome/reeve/internal/httpkit"
)

// Client is a device cloud REST API client. Construct one per credential
// and inject it; nothing in this package holds a shared instance.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a device cloud client. The timeout bounds every
// request; zero selects a 10 second default.
func NewClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		logger:  logger,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(timeout),
		),
	}
}

// APIError reports a non-2xx response from the device cloud. The status
// text is the user-visible failure reason; the body is kept only for
// diagnostics.
type APIError struct {
	StatusCode int
	StatusText string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.StatusText)
}

// IsTimeout reports whether err was caused by the request deadline rather
// than a cloud-side rejection or network refusal. Timeouts are a distinct
// failure signal for the pipeline and the pollers.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// ListDevices retrieves the full device list, following pagination.
func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	var all []Device
	url := c.baseURL + "/devices"
	for url != "" {
		var page PagedDevices
		if err := c.getURL(ctx, url, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		url = page.Links.Next
	}
	return all, nil
}

// GetDevice retrieves a single device record.
func (c *Client) GetDevice(ctx context.Context, deviceID string) (*Device, error) {
	var d Device
	if err := c.get(ctx, "/devices/"+deviceID, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDeviceStatus retrieves the full attribute state tree for a device.
func (c *Client) GetDeviceStatus(ctx context.Context, deviceID string) (*DeviceStatus, error) {
	var s DeviceStatus
	if err := c.get(ctx, "/devices/"+deviceID+"/status", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetDeviceHealth retrieves cloud connectivity state for a device.
func (c *Client) GetDeviceHealth(ctx context.Context, deviceID string) (*DeviceHealth, error) {
	var h DeviceHealth
	if err := c.get(ctx, "/devices/"+deviceID+"/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// ExecuteCommand sends a single capability command to a device.
func (c *Client) ExecuteCommand(ctx context.Context, deviceID string, cmd Command) error {
	return c.ExecuteCommands(ctx, deviceID, []Command{cmd})
}

// ExecuteCommands sends one or more capability commands to a device in a
// single request.
func (c *Client) ExecuteCommands(ctx context.Context, deviceID string, cmds []Command) error {
	if len(cmds) == 0 {
		return fmt.Errorf("no commands to execute")
	}
	body := map[string]any{"commands": cmds}
	c.logger.Debug("executing device commands",
		"device_id", deviceID,
		"commands", len(cmds),
		"capability", cmds[0].Capability,
		"command", cmds[0].Command,
	)
	return c.post(ctx, "/devices/"+deviceID+"/commands", body, nil)
}

// ListScenes retrieves all scenes, following pagination.
func (c *Client) ListScenes(ctx context.Context) ([]Scene, error) {
	var all []Scene
	url := c.baseURL + "/scenes"
	for url != "" {
		var page PagedScenes
		if err := c.getURL(ctx, url, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		url = page.Links.Next
	}
	return all, nil
}

// ExecuteScene runs a scene.
func (c *Client) ExecuteScene(ctx context.Context, sceneID string) error {
	return c.post(ctx, "/scenes/"+sceneID+"/execute", nil, nil)
}

// ListRooms retrieves the rooms of a location.
func (c *Client) ListRooms(ctx context.Context, locationID string) ([]Room, error) {
	var page PagedRooms
	if err := c.get(ctx, "/locations/"+locationID+"/rooms", &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// GetRoom retrieves a single room.
func (c *Client) GetRoom(ctx context.Context, locationID, roomID string) (*Room, error) {
	var r Room
	if err := c.get(ctx, "/locations/"+locationID+"/rooms/"+roomID, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// get performs a GET request against a path under the base URL.
func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.getURL(ctx, c.baseURL+path, result)
}

// getURL performs a GET request against a fully-qualified URL. Pagination
// follows _links.next, which the cloud returns absolute.
func (c *Client) getURL(ctx context.Context, url string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	// Drain and close to ensure connection reuse even when result is nil.
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Body:       httpkit.ReadErrorBody(resp.Body, 512),
		}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// post performs a POST request against a path under the base URL.
func (c *Client) post(ctx context.Context, path string, data any, result any) error {
	var reqBody []byte
	if data != nil {
		var err error
		reqBody, err = json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal data: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	// Drain and close to ensure connection reuse even when result is nil.
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Body:       httpkit.ReadErrorBody(resp.Body, 512),
		}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}
