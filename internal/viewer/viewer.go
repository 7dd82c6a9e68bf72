// Package viewer ties the stream manager, the log buffer and the change
// broker into one owned object with a start/stop lifecycle.
package viewer

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/narvanalabs/mission-console/internal/logs"
	"github.com/narvanalabs/mission-console/internal/models"
	"github.com/narvanalabs/mission-console/internal/stream"
)

// Config holds the settings for a Viewer.
type Config struct {
	// URL is the stream endpoint, typically from stream.Endpoint.
	URL string
	// ReconnectDelay defaults to stream.DefaultReconnectDelay.
	ReconnectDelay time.Duration
	// MaxEntries bounds the buffer; zero keeps every entry.
	MaxEntries int
	// Product prefixes export file names.
	Product string
}

// Viewer is one live log view. Create it with New, call Start once and
// Stop when done; every Viewer has its own connection and buffer.
type Viewer struct {
	id      string
	product string
	buffer  *logs.Buffer
	broker  *logs.Broker
	manager *stream.Manager
	logger  *slog.Logger
}

// New creates a viewer that dials through dialer. Extra stream options
// (clock, listener) are applied after the defaults derived from cfg.
func New(cfg Config, dialer stream.Dialer, logger *slog.Logger, opts ...stream.Option) *Viewer {
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.NewString()
	logger = logger.With("component", "viewer", "viewer_id", id)

	v := &Viewer{
		id:      id,
		product: cfg.Product,
		buffer:  logs.NewBuffer(cfg.MaxEntries),
		broker:  logs.NewBroker(logger),
		logger:  logger,
	}

	managerOpts := []stream.Option{
		stream.WithLogger(logger),
		stream.WithReconnectDelay(cfg.ReconnectDelay),
		stream.WithStateListener(v.publishState),
	}
	v.manager = stream.NewManager(cfg.URL, dialer, v, append(managerOpts, opts...)...)
	return v
}

// ID returns the viewer's instance identifier.
func (v *Viewer) ID() string {
	return v.id
}

// Start connects to the stream in the background.
func (v *Viewer) Start(ctx context.Context) error {
	return v.manager.Start(ctx)
}

// Stop closes the connection, cancels any pending reconnect and closes all
// subscriptions.
func (v *Viewer) Stop() {
	v.manager.Stop()
	v.broker.Close()
}

// Shutdown adapts Stop to the shutdown coordinator.
func (v *Viewer) Shutdown(ctx context.Context) error {
	v.Stop()
	return nil
}

// State returns the current connection state.
func (v *Viewer) State() stream.State {
	return v.manager.State()
}

// Dropped returns the number of stream frames discarded as invalid.
func (v *Viewer) Dropped() uint64 {
	return v.manager.Dropped()
}

// Entries returns every buffered entry in arrival order.
func (v *Viewer) Entries() []models.LogEntry {
	return v.buffer.Entries()
}

// Len returns the number of buffered entries.
func (v *Viewer) Len() int {
	return v.buffer.Len()
}

// Version changes whenever the buffer does.
func (v *Viewer) Version() uint64 {
	return v.buffer.Version()
}

// View returns the filtered view for c.
func (v *Viewer) View(c logs.Criteria) []models.LogEntry {
	return logs.Project(v.buffer.Entries(), c)
}

// Export renders the filtered view as of now and names it after now.
func (v *Viewer) Export(c logs.Criteria, now time.Time) (filename, body string) {
	return v.ExportFilename(now), logs.Export(v.View(c))
}

// ExportFilename names an export taken at now.
func (v *Viewer) ExportFilename(now time.Time) string {
	return logs.ExportFilename(v.product, now)
}

// Snapshot returns the filtered view for c and the buffer version it was
// taken at.
func (v *Viewer) Snapshot(c logs.Criteria) ([]models.LogEntry, uint64) {
	entries, version := v.buffer.Snapshot()
	return logs.Project(entries, c), version
}

// Clear empties the buffer. It runs on the stream's event loop so it is
// ordered with ingestion. The connection is unaffected.
func (v *Viewer) Clear() {
	v.manager.Do(func() {
		version := v.buffer.Clear()
		v.broker.Publish(logs.Change{Kind: logs.ChangeCleared, Version: version})
	})
	v.logger.Info("log buffer cleared")
}

// Subscribe returns a subscription to buffer and state changes.
func (v *Viewer) Subscribe() *logs.Subscriber {
	return v.broker.Subscribe()
}

// Unsubscribe ends a subscription.
func (v *Viewer) Unsubscribe(sub *logs.Subscriber) {
	v.broker.Unsubscribe(sub)
}

// HandleHistory implements stream.Handler.
func (v *Viewer) HandleHistory(entries []models.LogEntry) {
	version := v.buffer.Replace(entries)
	v.broker.Publish(logs.Change{Kind: logs.ChangeReplaced, Version: version})
}

// HandleLog implements stream.Handler.
func (v *Viewer) HandleLog(entry models.LogEntry) {
	version := v.buffer.Append(entry)
	v.broker.Publish(logs.Change{Kind: logs.ChangeAppended, Entry: &entry, Version: version})
}

func (v *Viewer) publishState(s stream.State) {
	v.broker.Publish(logs.Change{Kind: logs.ChangeState, State: s.String()})
}
