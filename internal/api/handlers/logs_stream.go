package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/narvanalabs/mission-console/internal/logs"
	"github.com/narvanalabs/mission-console/internal/models"
	"github.com/narvanalabs/mission-console/internal/stream"
	"github.com/narvanalabs/mission-console/pkg/logger"
)

// DefaultPingInterval is how often an idle event stream is pinged.
const DefaultPingInterval = 15 * time.Second

// LogStreamHandler pushes the filtered view to clients via Server-Sent Events.
type LogStreamHandler struct {
	source       LogSource
	logger       *slog.Logger
	pingInterval time.Duration

	closing   chan struct{}
	closeOnce sync.Once
}

// NewLogStreamHandler creates a new log stream handler.
func NewLogStreamHandler(source LogSource, logger *slog.Logger) *LogStreamHandler {
	return &LogStreamHandler{
		source:       source,
		logger:       logger,
		pingInterval: DefaultPingInterval,
		closing:      make(chan struct{}),
	}
}

// Close ends every open stream. New streams end right after the snapshot.
func (h *LogStreamHandler) Close() {
	h.closeOnce.Do(func() { close(h.closing) })
}

// SetPingInterval overrides DefaultPingInterval.
func (h *LogStreamHandler) SetPingInterval(d time.Duration) {
	h.pingInterval = d
}

type snapshotEvent struct {
	State stream.State      `json:"state"`
	Logs  []models.LogEntry `json:"logs"`
}

type stateEvent struct {
	State string `json:"state"`
}

// Stream handles GET /v1/logs/stream.
//
// Events: "snapshot" with the current filtered view, then "log" for every
// appended entry that passes the filter, "reset" with the new view when
// the buffer is replaced or cleared or the stream fell behind, "state" on
// connectivity changes and "ping" while idle.
func (h *LogStreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	criteria, ok := criteriaFromRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteInternalError(w, r, "Streaming is not supported")
		return
	}

	// Subscribe before taking the snapshot so no change is missed. Changes
	// at or below the snapshot version are already part of it.
	sub := h.source.Subscribe()
	defer h.source.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log := (&logger.Logger{Logger: h.logger}).WithContext(r.Context()).With("subscriber_id", sub.ID)
	log.Info("log stream started", "level", criteria.Level, "category", criteria.Category, "search", criteria.Search)

	version := h.sendSnapshot(w, flusher, "snapshot", criteria)

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Info("log stream closed by client")
			return

		case <-h.closing:
			log.Info("log stream closed by server")
			return

		case <-ticker.C:
			h.sendEvent(w, flusher, "ping", map[string]int64{"time": time.Now().Unix()})

		case <-sub.Resync:
			log.Warn("log stream fell behind, resending view")
			version = h.sendSnapshot(w, flusher, "reset", criteria)

		case change, open := <-sub.Ch:
			if !open {
				log.Info("log stream closed by server")
				return
			}
			if change.Kind != logs.ChangeState && change.Version <= version {
				continue
			}
			switch change.Kind {
			case logs.ChangeAppended:
				if change.Entry != nil && criteria.Match(*change.Entry) {
					h.sendEvent(w, flusher, "log", change.Entry)
				}
			case logs.ChangeReplaced, logs.ChangeCleared:
				version = h.sendSnapshot(w, flusher, "reset", criteria)
			case logs.ChangeState:
				h.sendEvent(w, flusher, "state", stateEvent{State: change.State})
			}
		}
	}
}

// sendSnapshot sends the current filtered view as event and returns the
// buffer version it reflects.
func (h *LogStreamHandler) sendSnapshot(w http.ResponseWriter, flusher http.Flusher, event string, criteria logs.Criteria) uint64 {
	view, version := h.source.Snapshot(criteria)
	h.sendEvent(w, flusher, event, snapshotEvent{
		State: h.source.State(),
		Logs:  view,
	})
	return version
}

func (h *LogStreamHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("failed to marshal event data", "error", err, "event", event)
		return
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()
}
