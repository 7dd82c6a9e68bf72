package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	apierrors "github.com/narvanalabs/mission-console/internal/api/errors"
	"github.com/narvanalabs/mission-console/internal/missions"
	"github.com/narvanalabs/mission-console/internal/models"
	"github.com/narvanalabs/mission-console/internal/schedule"
)

// MissionReader is the part of the control-plane client the console uses.
type MissionReader interface {
	List(ctx context.Context) ([]models.Mission, error)
	Get(ctx context.Context, id string) (*models.Mission, error)
}

// MissionView is a mission annotated for display.
type MissionView struct {
	models.Mission
	ScheduleDescription string     `json:"scheduleDescription"`
	NextRunAt           *time.Time `json:"nextRunAt,omitempty"`
}

// MissionHandler proxies mission reads from the control plane.
type MissionHandler struct {
	client MissionReader
	logger *slog.Logger
	now    func() time.Time
}

// NewMissionHandler creates a new mission handler. client may be nil when
// no control plane is configured.
func NewMissionHandler(client MissionReader, logger *slog.Logger) *MissionHandler {
	return &MissionHandler{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// List handles GET /v1/missions.
func (h *MissionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		WriteError(w, r, apierrors.NewUnavailableError("Control plane is not configured"))
		return
	}

	list, err := h.client.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list missions", "error", err)
		WriteError(w, r, apierrors.NewUpstreamError("Failed to list missions"))
		return
	}

	now := h.now()
	views := make([]MissionView, 0, len(list))
	for _, m := range list {
		views = append(views, annotate(m, now))
	}
	WriteJSON(w, http.StatusOK, views)
}

// Get handles GET /v1/missions/{missionID}.
func (h *MissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		WriteError(w, r, apierrors.NewUnavailableError("Control plane is not configured"))
		return
	}

	id := chi.URLParam(r, "missionID")
	m, err := h.client.Get(r.Context(), id)
	if errors.Is(err, missions.ErrNotFound) {
		WriteNotFound(w, r, "Mission not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get mission", "error", err, "mission_id", id)
		WriteError(w, r, apierrors.NewUpstreamError("Failed to get mission"))
		return
	}
	WriteJSON(w, http.StatusOK, annotate(*m, h.now()))
}

func annotate(m models.Mission, now time.Time) MissionView {
	view := MissionView{
		Mission:             m,
		ScheduleDescription: schedule.Describe(m.Schedule),
	}
	if !m.Enabled {
		return view
	}
	if c, err := schedule.ParseCron(m.Schedule); err == nil {
		if next, err := c.Next(now); err == nil {
			view.NextRunAt = &next
		}
	}
	return view
}
