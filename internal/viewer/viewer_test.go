package viewer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/narvanalabs/mission-console/internal/clock"
	"github.com/narvanalabs/mission-console/internal/logs"
	"github.com/narvanalabs/mission-console/internal/models"
	"github.com/narvanalabs/mission-console/internal/stream"
)

const waitTimeout = 2 * time.Second

type pipeConn struct {
	frames    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newPipeConn() *pipeConn {
	return &pipeConn{frames: make(chan []byte), closed: make(chan struct{})}
}

func (c *pipeConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.frames:
		return data, nil
	case <-c.closed:
		return nil, fmt.Errorf("%w: closed", stream.ErrConnClosed)
	}
}

func (c *pipeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

type pipeDialer struct {
	conn *pipeConn
}

func (d *pipeDialer) Dial(ctx context.Context, url string) (stream.Conn, error) {
	return d.conn, nil
}

func newTestViewer(t *testing.T) (*Viewer, *pipeConn, *logs.Subscriber) {
	t.Helper()
	conn := newPipeConn()
	v := New(Config{URL: "ws://test/ws/logs", Product: "mission-console"}, &pipeDialer{conn: conn}, nil,
		stream.WithClock(clock.Fake(time.Unix(0, 0))),
	)
	sub := v.Subscribe()
	if err := v.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(v.Stop)
	waitChange(t, sub, logs.ChangeState)
	return v, conn, sub
}

func waitChange(t *testing.T, sub *logs.Subscriber, kind logs.ChangeKind) logs.Change {
	t.Helper()
	select {
	case change := <-sub.Ch:
		if change.Kind != kind {
			t.Fatalf("got change %s, want %s", change.Kind, kind)
		}
		return change
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for %s", kind)
	}
	return logs.Change{}
}

func send(t *testing.T, conn *pipeConn, data []byte) {
	t.Helper()
	select {
	case conn.frames <- data:
	case <-time.After(waitTimeout):
		t.Fatal("timed out sending frame")
	}
}

func entry(level models.Level, category models.Category, message string) models.LogEntry {
	return models.LogEntry{
		Timestamp: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		Level:     level,
		Category:  category,
		Message:   message,
	}
}

func TestViewerFilteredScenario(t *testing.T) {
	v, conn, sub := newTestViewer(t)
	if v.State() != stream.StateConnected {
		t.Fatalf("expected connected, got %s", v.State())
	}

	send(t, conn, historyFrame(t, []models.LogEntry{
		entry(models.LevelInfo, models.CategoryMission, "mission started"),
		entry(models.LevelSuccess, models.CategoryEngagement, "engaged"),
		entry(models.LevelWarning, models.CategoryQuota, "quota 90%"),
	}))
	waitChange(t, sub, logs.ChangeReplaced)

	send(t, conn, logFrame(t, entry(models.LevelError, models.CategoryAPI, "upstream timeout")))
	change := waitChange(t, sub, logs.ChangeAppended)
	if change.Entry == nil || change.Entry.Message != "upstream timeout" {
		t.Fatalf("appended change missing entry: %+v", change)
	}
	send(t, conn, logFrame(t, entry(models.LevelInfo, models.CategorySystem, "heartbeat")))
	waitChange(t, sub, logs.ChangeAppended)

	if v.Len() != 5 {
		t.Fatalf("expected 5 entries, got %d", v.Len())
	}

	view := v.View(logs.Criteria{Level: "error", Category: logs.All})
	if len(view) != 1 || view[0].Message != "upstream timeout" {
		t.Fatalf("unexpected filtered view %+v", view)
	}

	name, body := v.Export(logs.Criteria{Level: "error", Category: logs.All}, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	if name != "mission-console-logs-2024-01-02-03-04-05.txt" {
		t.Errorf("unexpected export name %q", name)
	}
	if body != "2024-01-01T10:00:00Z [ERROR] [API] upstream timeout" {
		t.Errorf("unexpected export body %q", body)
	}
}

func TestViewerClearIsLocal(t *testing.T) {
	v, conn, sub := newTestViewer(t)

	send(t, conn, historyFrame(t, []models.LogEntry{
		entry(models.LevelInfo, models.CategoryMission, "one"),
	}))
	waitChange(t, sub, logs.ChangeReplaced)

	v.Clear()
	waitChange(t, sub, logs.ChangeCleared)

	if v.Len() != 0 || len(v.View(logs.DefaultCriteria())) != 0 {
		t.Fatal("expected empty buffer and view after Clear")
	}
	if v.State() != stream.StateConnected {
		t.Fatalf("Clear must not touch the connection, state %s", v.State())
	}

	send(t, conn, logFrame(t, entry(models.LevelInfo, models.CategorySystem, "after clear")))
	waitChange(t, sub, logs.ChangeAppended)
	if got := v.Entries(); len(got) != 1 || got[0].Message != "after clear" {
		t.Fatalf("unexpected entries after clear %+v", got)
	}
}

func TestViewerStopClosesSubscriptions(t *testing.T) {
	v, conn, sub := newTestViewer(t)

	v.Stop()
	select {
	case <-conn.closed:
	case <-time.After(waitTimeout):
		t.Fatal("Stop did not close the stream")
	}

	for range sub.Ch {
	}
	if err := v.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown after Stop: %v", err)
	}
}

func TestViewersAreIndependent(t *testing.T) {
	a, connA, subA := newTestViewer(t)
	b, _, _ := newTestViewer(t)

	if a.ID() == b.ID() {
		t.Fatal("viewers share an id")
	}

	send(t, connA, logFrame(t, entry(models.LevelInfo, models.CategorySystem, "only a")))
	waitChange(t, subA, logs.ChangeAppended)

	if a.Len() != 1 || b.Len() != 0 {
		t.Fatalf("buffers leaked between viewers: a=%d b=%d", a.Len(), b.Len())
	}
}

func historyFrame(t *testing.T, entries []models.LogEntry) []byte {
	t.Helper()
	data, err := stream.EncodeHistory(entries)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func logFrame(t *testing.T, e models.LogEntry) []byte {
	t.Helper()
	data, err := stream.EncodeLog(e)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestViewerClearIsOrderedWithIngestion(t *testing.T) {
	v, conn, sub := newTestViewer(t)

	const total = 100
	go func() {
		for i := 0; i < total; i++ {
			data, err := stream.EncodeLog(entry(models.LevelInfo, models.CategorySystem, fmt.Sprint(i)))
			if err != nil {
				return
			}
			select {
			case conn.frames <- data:
			case <-conn.closed:
				return
			}
		}
	}()

	var changes []logs.Change
	next := func() logs.Change {
		t.Helper()
		select {
		case change := <-sub.Ch:
			changes = append(changes, change)
			return change
		case <-time.After(waitTimeout):
			t.Fatalf("timed out after %d changes", len(changes))
		}
		return logs.Change{}
	}

	for i := 0; i < 20; i++ {
		next()
	}
	v.Clear()
	for len(changes) < total+1 {
		next()
	}

	afterClear := -1
	var last uint64
	for i, change := range changes {
		if change.Version <= last {
			t.Fatalf("change %d (%s) has version %d after %d", i, change.Kind, change.Version, last)
		}
		last = change.Version
		if change.Kind == logs.ChangeCleared {
			afterClear = 0
		} else if afterClear >= 0 {
			afterClear++
		}
	}
	if afterClear < 0 {
		t.Fatal("no cleared change published")
	}
	if v.Len() != afterClear {
		t.Fatalf("buffer holds %d entries, %d appends followed the clear", v.Len(), afterClear)
	}
}

func TestViewerSnapshotCarriesVersion(t *testing.T) {
	v, conn, sub := newTestViewer(t)

	send(t, conn, logFrame(t, entry(models.LevelError, models.CategoryAPI, "boom")))
	change := waitChange(t, sub, logs.ChangeAppended)

	view, version := v.Snapshot(logs.Criteria{Level: "error", Category: logs.All})
	if len(view) != 1 || version != change.Version || version != v.Version() {
		t.Fatalf("snapshot %v at version %d, change version %d", view, version, change.Version)
	}
}
