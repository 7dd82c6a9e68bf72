package logs

import (
	"fmt"
	"strings"

	"github.com/narvanalabs/mission-console/internal/models"
)

// All is the criteria value that disables the level or category filter.
const All = "all"

// Criteria selects which entries appear in the filtered view. An empty
// level or category behaves like All.
type Criteria struct {
	Level    string `json:"level"`
	Category string `json:"category"`
	Search   string `json:"search"`
}

// DefaultCriteria matches every entry.
func DefaultCriteria() Criteria {
	return Criteria{Level: All, Category: All}
}

// ParseCriteria builds criteria from user input. Empty level or category
// mean All; unknown values are rejected.
func ParseCriteria(level, category, search string) (Criteria, error) {
	c := DefaultCriteria()
	c.Search = search

	if level != "" && level != All {
		if !models.Level(level).Valid() {
			return Criteria{}, fmt.Errorf("unknown level %q", level)
		}
		c.Level = level
	}
	if category != "" && category != All {
		if !models.Category(category).Valid() {
			return Criteria{}, fmt.Errorf("unknown category %q", category)
		}
		c.Category = category
	}
	return c, nil
}

// Match reports whether a single entry passes every active filter.
// Level, category and search are combined with AND; the search term
// matches the message OR the mission ID, case-insensitively.
func (c Criteria) Match(entry models.LogEntry) bool {
	return c.matcher().match(entry)
}

// Project returns the entries matching c, in their original order.
// The result is always a new slice and the input is never modified.
func Project(entries []models.LogEntry, c Criteria) []models.LogEntry {
	m := c.matcher()
	result := make([]models.LogEntry, 0, len(entries))
	for _, entry := range entries {
		if m.match(entry) {
			result = append(result, entry)
		}
	}
	return result
}

type matcher struct {
	level    string
	category string
	search   string
}

func (c Criteria) matcher() matcher {
	return matcher{
		level:    c.Level,
		category: c.Category,
		search:   strings.ToLower(c.Search),
	}
}

func (m matcher) match(entry models.LogEntry) bool {
	if m.level != "" && m.level != All && string(entry.Level) != m.level {
		return false
	}
	if m.category != "" && m.category != All && string(entry.Category) != m.category {
		return false
	}
	if m.search == "" {
		return true
	}
	if strings.Contains(strings.ToLower(entry.Message), m.search) {
		return true
	}
	return entry.MissionID != "" && strings.Contains(strings.ToLower(entry.MissionID), m.search)
}
