// Package missions is a client for the mission endpoints of the control
// plane REST API.
package missions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/narvanalabs/mission-console/internal/models"
	"github.com/narvanalabs/mission-console/internal/validation"
)

// ErrNotFound is returned when the control plane has no such mission.
var ErrNotFound = errors.New("mission not found")

// StatusError is a non-2xx control-plane response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Body)
}

// Client talks to the control plane.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// NewClient creates a client for the control plane at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithToken returns a new client that sends token as a bearer credential.
func (c *Client) WithToken(token string) *Client {
	return &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		token:      token,
	}
}

// List returns every mission.
func (c *Client) List(ctx context.Context) ([]models.Mission, error) {
	var missions []models.Mission
	if err := c.do(ctx, http.MethodGet, "/api/missions", nil, &missions); err != nil {
		return nil, err
	}
	return missions, nil
}

// Get returns one mission.
func (c *Client) Get(ctx context.Context, id string) (*models.Mission, error) {
	var mission models.Mission
	if err := c.do(ctx, http.MethodGet, missionPath(id), nil, &mission); err != nil {
		return nil, err
	}
	return &mission, nil
}

// Create validates req, creates the mission and returns it as stored.
func (c *Client) Create(ctx context.Context, req *models.MissionRequest) (*models.Mission, error) {
	if err := validation.ValidateMissionRequest(req); err != nil {
		return nil, err
	}
	var mission models.Mission
	if err := c.do(ctx, http.MethodPost, "/api/missions", req, &mission); err != nil {
		return nil, err
	}
	return &mission, nil
}

// Update validates req and replaces a mission's settings.
func (c *Client) Update(ctx context.Context, id string, req *models.MissionRequest) (*models.Mission, error) {
	if err := validation.ValidateMissionRequest(req); err != nil {
		return nil, err
	}
	var mission models.Mission
	if err := c.do(ctx, http.MethodPut, missionPath(id), req, &mission); err != nil {
		return nil, err
	}
	return &mission, nil
}

// Delete removes a mission.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, missionPath(id), nil, nil)
}

// Ping checks that the control plane answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Close drops idle keep-alive connections to the control plane.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func missionPath(id string) string {
	return "/api/missions/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
