// Package health provides health check functionality for the console.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/narvanalabs/mission-console/internal/stream"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is fully operational.
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates the component is operational but with issues.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy indicates the component is not operational.
	StatusUnhealthy Status = "unhealthy"
)

// ComponentStatus represents the health status of a single component.
type ComponentStatus struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Response represents the health check response.
type Response struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
}

// StateReporter exposes the log stream's connectivity.
type StateReporter interface {
	State() stream.State
}

// Pinger is an interface for components that can be pinged.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker performs health checks for the console.
type Checker struct {
	stream       StateReporter
	controlPlane Pinger
	startTime    time.Time
	version      string
	timeout      time.Duration
	mu           sync.RWMutex
}

// NewChecker creates a new health checker. controlPlane may be nil.
func NewChecker(s StateReporter, controlPlane Pinger, version string) *Checker {
	return &Checker{
		stream:       s,
		controlPlane: controlPlane,
		startTime:    time.Now(),
		version:      version,
		timeout:      5 * time.Second,
	}
}

// SetTimeout sets the timeout for health checks.
func (c *Checker) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// Check performs all health checks and returns the aggregated response.
func (c *Checker) Check(ctx context.Context) *Response {
	c.mu.RLock()
	timeout := c.timeout
	c.mu.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	components := map[string]ComponentStatus{
		"log_stream": c.checkStream(),
	}
	if c.controlPlane != nil {
		components["control_plane"] = c.checkControlPlane(checkCtx)
	}

	overallStatus := StatusHealthy
	for _, comp := range components {
		if comp.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
			break
		}
		if comp.Status == StatusDegraded {
			overallStatus = StatusDegraded
		}
	}

	return &Response{
		Status:     overallStatus,
		Components: components,
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
	}
}

func (c *Checker) checkStream() ComponentStatus {
	if c.stream == nil {
		return ComponentStatus{Status: StatusUnhealthy, Message: "log stream not configured"}
	}

	switch state := c.stream.State(); state {
	case stream.StateConnected:
		return ComponentStatus{Status: StatusHealthy, Message: state.String()}
	case stream.StateConnecting:
		return ComponentStatus{Status: StatusDegraded, Message: state.String()}
	default:
		return ComponentStatus{Status: StatusUnhealthy, Message: state.String()}
	}
}

// checkControlPlane reports a failed ping as degraded; buffered logs are
// still served without the control plane.
func (c *Checker) checkControlPlane(ctx context.Context) ComponentStatus {
	if err := c.controlPlane.Ping(ctx); err != nil {
		return ComponentStatus{
			Status:  StatusDegraded,
			Message: "ping failed: " + err.Error(),
		}
	}
	return ComponentStatus{Status: StatusHealthy, Message: "reachable"}
}

// Handler returns an HTTP handler for health checks.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := c.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")

		switch response.Status {
		case StatusHealthy, StatusDegraded:
			w.WriteHeader(http.StatusOK)
		case StatusUnhealthy:
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(response)
	}
}
