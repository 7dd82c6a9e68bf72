// Package logs holds the ordered log store fed by the live stream and the
// pure projections derived from it.
package logs

import (
	"sync"

	"github.com/narvanalabs/mission-console/internal/models"
)

// Buffer is the ordered sequence of entries received over the stream.
// A history snapshot replaces it wholesale and each log event appends one
// entry to the end. Entries are never reordered or deduplicated.
//
// Only the stream event loop mutates a Buffer; the lock lets HTTP and
// terminal goroutines take snapshots concurrently.
type Buffer struct {
	mu         sync.RWMutex
	entries    []models.LogEntry
	maxEntries int
	version    uint64
}

// NewBuffer creates an empty buffer. A positive maxEntries bounds the
// buffer by dropping the oldest entries; zero means unbounded.
func NewBuffer(maxEntries int) *Buffer {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &Buffer{maxEntries: maxEntries}
}

// Replace swaps the buffer contents for a history snapshot and returns
// the new version.
func (b *Buffer) Replace(entries []models.LogEntry) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.maxEntries > 0 && len(entries) > b.maxEntries {
		entries = entries[len(entries)-b.maxEntries:]
	}
	b.entries = make([]models.LogEntry, len(entries))
	copy(b.entries, entries)
	b.version++
	return b.version
}

// Append adds a single entry to the end of the buffer and returns the new
// version.
func (b *Buffer) Append(entry models.LogEntry) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.maxEntries > 0 && len(b.entries) >= b.maxEntries {
		// Evict the oldest 10% in one step.
		removeCount := b.maxEntries / 10
		if removeCount < 1 {
			removeCount = 1
		}
		b.entries = append(b.entries[:0:0], b.entries[removeCount:]...)
	}
	b.entries = append(b.entries, entry)
	b.version++
	return b.version
}

// Entries returns a copy of the buffered entries in arrival order.
func (b *Buffer) Entries() []models.LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]models.LogEntry, len(b.entries))
	copy(result, b.entries)
	return result
}

// Clear empties the buffer and returns the new version. It is a local
// action and has no effect on the stream connection.
func (b *Buffer) Clear() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
	b.version++
	return b.version
}

// Snapshot returns a copy of the entries together with the version they
// belong to.
func (b *Buffer) Snapshot() ([]models.LogEntry, uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]models.LogEntry, len(b.entries))
	copy(result, b.entries)
	return result, b.version
}

// Len returns the number of buffered entries.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Version increases on every mutation. Readers can compare versions to
// decide whether a derived view is stale.
func (b *Buffer) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// MaxEntries returns the configured bound, or zero if unbounded.
func (b *Buffer) MaxEntries() int {
	return b.maxEntries
}
