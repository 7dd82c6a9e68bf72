package logs

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/narvanalabs/mission-console/internal/models"
)

// **Property 1: Snapshot then appends**
// For any sequence of history and log operations, the buffer equals the last
// history payload followed by every log payload received after it.
func TestBufferOrdering(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("buffer is last snapshot plus later appends", prop.ForAll(
		func(ops []streamOp) bool {
			b := NewBuffer(0)
			var expected []models.LogEntry
			for _, op := range ops {
				if op.History {
					b.Replace(op.Logs)
					expected = append([]models.LogEntry(nil), op.Logs...)
				} else {
					b.Append(op.Entry)
					expected = append(expected, op.Entry)
				}
			}
			return entriesEqual(b.Entries(), expected)
		},
		gen.SliceOf(genStreamOp()),
	))

	properties.Property("duplicates are preserved", prop.ForAll(
		func(entry models.LogEntry, n int) bool {
			b := NewBuffer(0)
			for i := 0; i < n; i++ {
				b.Append(entry)
			}
			return b.Len() == n
		},
		genLogEntry(),
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t)
}

func TestBufferClear(t *testing.T) {
	b := NewBuffer(0)
	b.Replace([]models.LogEntry{
		{Timestamp: baseTime, Level: models.LevelInfo, Category: models.CategoryMission, Message: "one"},
		{Timestamp: baseTime, Level: models.LevelError, Category: models.CategoryAPI, Message: "two"},
	})
	b.Append(models.LogEntry{Timestamp: baseTime, Level: models.LevelInfo, Category: models.CategorySystem, Message: "three"})

	before := b.Version()
	b.Clear()

	if b.Len() != 0 {
		t.Fatalf("expected empty buffer, got %d entries", b.Len())
	}
	if got := Project(b.Entries(), DefaultCriteria()); len(got) != 0 {
		t.Fatalf("expected empty filtered view, got %d entries", len(got))
	}
	if b.Version() <= before {
		t.Error("Clear should advance the version")
	}
}

func TestBufferReplaceCopiesInput(t *testing.T) {
	input := []models.LogEntry{
		{Timestamp: baseTime, Level: models.LevelInfo, Category: models.CategoryMission, Message: "original"},
	}
	b := NewBuffer(0)
	b.Replace(input)
	input[0].Message = "mutated"

	if got := b.Entries()[0].Message; got != "original" {
		t.Fatalf("buffer aliased caller slice, got %q", got)
	}

	snapshot := b.Entries()
	snapshot[0].Message = "mutated"
	if got := b.Entries()[0].Message; got != "original" {
		t.Fatalf("Entries returned internal storage, got %q", got)
	}
}

func TestBufferBounded(t *testing.T) {
	b := NewBuffer(10)
	for i := 0; i < 25; i++ {
		b.Append(models.LogEntry{Timestamp: baseTime, Level: models.LevelInfo, Category: models.CategorySystem, Message: string(rune('a' + i))})
	}

	entries := b.Entries()
	if len(entries) > 10 {
		t.Fatalf("bounded buffer holds %d entries", len(entries))
	}
	if last := entries[len(entries)-1].Message; last != string(rune('a'+24)) {
		t.Fatalf("newest entry lost, last is %q", last)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Message <= entries[i-1].Message {
			t.Fatalf("entries reordered at %d", i)
		}
	}

	history := make([]models.LogEntry, 15)
	for i := range history {
		history[i] = models.LogEntry{Message: string(rune('A' + i))}
	}
	b.Replace(history)
	entries = b.Entries()
	if len(entries) != 10 || entries[0].Message != "F" {
		t.Fatalf("snapshot should keep the newest 10 entries, got %d starting at %q", len(entries), entries[0].Message)
	}
}

func TestBufferMutationsReturnVersion(t *testing.T) {
	b := NewBuffer(0)
	e := models.LogEntry{Timestamp: baseTime, Level: models.LevelInfo, Category: models.CategorySystem, Message: "x"}

	v1 := b.Replace([]models.LogEntry{e})
	v2 := b.Append(e)
	entries, snapshotVersion := b.Snapshot()
	v3 := b.Clear()

	if !(v1 < v2 && v2 < v3) {
		t.Fatalf("versions not increasing: %d %d %d", v1, v2, v3)
	}
	if snapshotVersion != v2 || len(entries) != 2 {
		t.Fatalf("snapshot at version %d with %d entries, want %d with 2", snapshotVersion, len(entries), v2)
	}
	if b.Version() != v3 {
		t.Fatalf("Version() = %d, want %d", b.Version(), v3)
	}
}
