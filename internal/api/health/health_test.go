package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/narvanalabs/mission-console/internal/stream"
)

type fixedState stream.State

func (s fixedState) State() stream.State { return stream.State(s) }

// MockPinger is a mock implementation of the Pinger interface for testing.
type MockPinger struct {
	ShouldFail bool
}

func (m *MockPinger) Ping(ctx context.Context) error {
	if m.ShouldFail {
		return errors.New("mock ping failed")
	}
	return nil
}

func TestPropertyHealthReflectsStreamState(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	genState := gen.OneConstOf(stream.StateConnecting, stream.StateConnected, stream.StateDisconnected)

	properties.Property("overall status follows the worst component", prop.ForAll(
		func(state stream.State, controlPlaneUp bool, version string) bool {
			checker := NewChecker(fixedState(state), &MockPinger{ShouldFail: !controlPlaneUp}, version)
			response := checker.Check(context.Background())

			if response.Version != version || len(response.Components) != 2 {
				return false
			}
			if response.Components["log_stream"].Message != state.String() {
				return false
			}

			var want Status
			switch {
			case state == stream.StateDisconnected:
				want = StatusUnhealthy
			case state == stream.StateConnecting || !controlPlaneUp:
				want = StatusDegraded
			default:
				want = StatusHealthy
			}
			return response.Status == want
		},
		genState,
		gen.Bool(),
		gen.RegexMatch("v?[0-9]+\\.[0-9]+\\.[0-9]+"),
	))

	properties.TestingRun(t)
}

func TestCheckWithoutControlPlane(t *testing.T) {
	response := NewChecker(fixedState(stream.StateConnected), nil, "dev").Check(context.Background())
	if _, ok := response.Components["control_plane"]; ok {
		t.Fatal("control_plane reported although not configured")
	}
	if response.Status != StatusHealthy {
		t.Fatalf("expected healthy, got %s", response.Status)
	}
}

func TestHandlerStatusCodes(t *testing.T) {
	tests := []struct {
		state stream.State
		code  int
	}{
		{stream.StateConnected, http.StatusOK},
		{stream.StateConnecting, http.StatusOK},
		{stream.StateDisconnected, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		NewChecker(fixedState(tt.state), nil, "dev").Handler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		if rec.Code != tt.code {
			t.Errorf("%s: got %d, want %d", tt.state, rec.Code, tt.code)
		}
		var body Response
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("%s: %v", tt.state, err)
		}
		if body.Components["log_stream"].Message != tt.state.String() {
			t.Errorf("%s: unexpected body %+v", tt.state, body)
		}
	}
}
