package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/narvanalabs/mission-console/internal/logs"
	"github.com/narvanalabs/mission-console/internal/models"
	"github.com/narvanalabs/mission-console/internal/stream"
)

// LogSource is the live log view the handlers read from.
type LogSource interface {
	State() stream.State
	Dropped() uint64
	Len() int
	View(c logs.Criteria) []models.LogEntry
	Snapshot(c logs.Criteria) ([]models.LogEntry, uint64)
	ExportFilename(now time.Time) string
	Clear()
	Subscribe() *logs.Subscriber
	Unsubscribe(sub *logs.Subscriber)
}

// LogHandler handles the buffered log endpoints.
type LogHandler struct {
	source LogSource
	logger *slog.Logger
	now    func() time.Time
}

// NewLogHandler creates a new log handler.
func NewLogHandler(source LogSource, logger *slog.Logger) *LogHandler {
	return &LogHandler{
		source: source,
		logger: logger,
		now:    time.Now,
	}
}

// StatusResponse is returned by GET /v1/logs/status.
type StatusResponse struct {
	State   stream.State `json:"state"`
	Entries int          `json:"entries"`
	Dropped uint64       `json:"dropped"`
}

// ListResponse is returned by GET /v1/logs.
type ListResponse struct {
	Logs     []models.LogEntry `json:"logs"`
	Count    int               `json:"count"`
	Total    int               `json:"total"`
	Criteria logs.Criteria     `json:"criteria"`
}

// Status handles GET /v1/logs/status.
func (h *LogHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, StatusResponse{
		State:   h.source.State(),
		Entries: h.source.Len(),
		Dropped: h.source.Dropped(),
	})
}

// List handles GET /v1/logs - the filtered view as JSON.
func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	criteria, ok := criteriaFromRequest(w, r)
	if !ok {
		return
	}

	total := h.source.Len()
	view := h.source.View(criteria)
	WriteJSON(w, http.StatusOK, ListResponse{
		Logs:     view,
		Count:    len(view),
		Total:    total,
		Criteria: criteria,
	})
}

// Export handles GET /v1/logs/export - the filtered view as a text file.
// The body is gzip-encoded when the client accepts it.
func (h *LogHandler) Export(w http.ResponseWriter, r *http.Request) {
	criteria, ok := criteriaFromRequest(w, r)
	if !ok {
		return
	}

	filename := h.source.ExportFilename(h.now())
	view := h.source.View(criteria)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	w.Header().Set("Vary", "Accept-Encoding")

	var err error
	if acceptsGzip(r) {
		w.Header().Set("Content-Encoding", "gzip")
		err = logs.WriteExportGzip(w, view)
	} else {
		err = logs.WriteExport(w, view)
	}
	if err != nil {
		// Headers are gone; all that is left is to record it.
		h.logger.Error("failed to write export", "error", err, "filename", filename)
		return
	}

	h.logger.Info("logs exported", "filename", filename, "entries", len(view))
}

// Clear handles POST /v1/logs/clear.
func (h *LogHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.source.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// criteriaFromRequest parses level, category and search from the query
// string, writing a 400 on invalid input.
func criteriaFromRequest(w http.ResponseWriter, r *http.Request) (logs.Criteria, bool) {
	q := r.URL.Query()
	criteria, err := logs.ParseCriteria(q.Get("level"), q.Get("category"), q.Get("search"))
	if err != nil {
		WriteBadRequest(w, r, err.Error())
		return logs.Criteria{}, false
	}
	return criteria, true
}

func acceptsGzip(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.EqualFold(strings.TrimSpace(coding), "gzip") {
			return strings.ReplaceAll(params, " ", "") != "q=0"
		}
	}
	return false
}
