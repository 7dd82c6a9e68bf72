package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Level is the severity of a log entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// Levels lists every valid level in display order.
var Levels = []Level{LevelInfo, LevelWarning, LevelError, LevelSuccess}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	switch l {
	case LevelInfo, LevelWarning, LevelError, LevelSuccess:
		return true
	}
	return false
}

// Category is the subsystem a log entry originates from.
type Category string

const (
	CategoryMission    Category = "mission"
	CategoryQuota      Category = "quota"
	CategoryEngagement Category = "engagement"
	CategoryAPI        Category = "api"
	CategorySystem     Category = "system"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryMission, CategoryQuota, CategoryEngagement, CategoryAPI, CategorySystem}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryMission, CategoryQuota, CategoryEngagement, CategoryAPI, CategorySystem:
		return true
	}
	return false
}

// LogEntry represents a single operational log event pushed by the backend.
// Entries are treated as immutable once decoded.
type LogEntry struct {
	Timestamp time.Time       `json:"timestamp"`
	Level     Level           `json:"level"`
	Category  Category        `json:"category"`
	Message   string          `json:"message"`
	MissionID string          `json:"missionId,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`

	// rawTimestamp is the timestamp text as received, if decoded.
	rawTimestamp string
}

// logEntryJSON is the wire form of LogEntry.
type logEntryJSON struct {
	Timestamp string          `json:"timestamp"`
	Level     Level           `json:"level"`
	Category  Category        `json:"category"`
	Message   string          `json:"message"`
	MissionID string          `json:"missionId,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// timestampLayouts are the ISO 8601 forms accepted on the wire. Fractional
// seconds are accepted after any of them.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05Z07",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an ISO 8601 date-time. Values without an offset
// are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized timestamp %q", ErrInvalidEntry, s)
}

// TimestampText returns the timestamp as received, or RFC 3339 with
// nanoseconds for entries built in process.
func (e LogEntry) TimestampText() string {
	if e.rawTimestamp != "" {
		return e.rawTimestamp
	}
	return e.Timestamp.Format(time.RFC3339Nano)
}

// MarshalJSON writes the timestamp as received.
func (e LogEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(logEntryJSON{
		Timestamp: e.TimestampText(),
		Level:     e.Level,
		Category:  e.Category,
		Message:   e.Message,
		MissionID: e.MissionID,
		Metadata:  e.Metadata,
	})
}

// UnmarshalJSON accepts any ISO 8601 timestamp and keeps its text. A
// missing timestamp decodes to the zero time and fails Validate.
func (e *LogEntry) UnmarshalJSON(data []byte) error {
	var wire logEntryJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	var ts time.Time
	if wire.Timestamp != "" {
		parsed, err := ParseTimestamp(wire.Timestamp)
		if err != nil {
			return err
		}
		ts = parsed
	}

	*e = LogEntry{
		Timestamp:    ts,
		Level:        wire.Level,
		Category:     wire.Category,
		Message:      wire.Message,
		MissionID:    wire.MissionID,
		Metadata:     wire.Metadata,
		rawTimestamp: wire.Timestamp,
	}
	return nil
}

// ErrInvalidEntry is returned by Validate for entries that cannot be ingested.
var ErrInvalidEntry = errors.New("invalid log entry")

// Validate checks that the entry carries a timestamp and known enum values.
func (e *LogEntry) Validate() error {
	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEntry)
	}
	if !e.Level.Valid() {
		return fmt.Errorf("%w: unknown level %q", ErrInvalidEntry, e.Level)
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidEntry, e.Category)
	}
	return nil
}
