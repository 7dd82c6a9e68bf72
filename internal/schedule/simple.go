package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Frequency is how often a simple schedule fires.
type Frequency string

const (
	Hourly Frequency = "hourly"
	Daily  Frequency = "daily"
	Weekly Frequency = "weekly"
)

// ErrNotSimple is returned by Parse for valid expressions that have no
// simple form.
var ErrNotSimple = errors.New("schedule has no simple form")

// Spec is the simple form of a mission schedule. Hour is ignored for
// Hourly; Weekday is only used for Weekly.
type Spec struct {
	Frequency Frequency    `json:"frequency"`
	Hour      int          `json:"hour"`
	Minute    int          `json:"minute"`
	Weekday   time.Weekday `json:"weekday"`
}

// Validate checks the ranges of the fields relevant to Frequency.
func (s Spec) Validate() error {
	if s.Minute < 0 || s.Minute > 59 {
		return fmt.Errorf("minute %d out of range", s.Minute)
	}
	switch s.Frequency {
	case Hourly:
		return nil
	case Daily, Weekly:
		if s.Hour < 0 || s.Hour > 23 {
			return fmt.Errorf("hour %d out of range", s.Hour)
		}
		if s.Frequency == Weekly && (s.Weekday < time.Sunday || s.Weekday > time.Saturday) {
			return fmt.Errorf("weekday %d out of range", s.Weekday)
		}
		return nil
	default:
		return fmt.Errorf("unknown frequency %q", s.Frequency)
	}
}

// Build renders s as a 5-field cron expression.
func Build(s Spec) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	switch s.Frequency {
	case Hourly:
		return fmt.Sprintf("%d * * * *", s.Minute), nil
	case Daily:
		return fmt.Sprintf("%d %d * * *", s.Minute, s.Hour), nil
	default:
		return fmt.Sprintf("%d %d * * %d", s.Minute, s.Hour, int(s.Weekday)), nil
	}
}

// Parse maps a cron expression back to its simple form. Invalid
// expressions return a parse error; valid ones outside the simple shapes
// return ErrNotSimple.
func Parse(expression string) (Spec, error) {
	if _, err := ParseCron(expression); err != nil {
		return Spec{}, err
	}
	f := strings.Fields(expression)
	if f[2] != "*" || f[3] != "*" {
		return Spec{}, ErrNotSimple
	}

	minute, ok := plain(f[0])
	if !ok {
		return Spec{}, ErrNotSimple
	}
	if f[1] == "*" {
		if f[4] != "*" {
			return Spec{}, ErrNotSimple
		}
		return Spec{Frequency: Hourly, Minute: minute}, nil
	}

	hour, ok := plain(f[1])
	if !ok {
		return Spec{}, ErrNotSimple
	}
	if f[4] == "*" {
		return Spec{Frequency: Daily, Hour: hour, Minute: minute}, nil
	}
	day, ok := plain(f[4])
	if !ok {
		return Spec{}, ErrNotSimple
	}
	return Spec{Frequency: Weekly, Hour: hour, Minute: minute, Weekday: time.Weekday(day % 7)}, nil
}

// Describe renders expression for humans, e.g. "Every Monday at 09:30 UTC".
func Describe(expression string) string {
	s, err := Parse(expression)
	switch {
	case err == nil:
		return s.String()
	case errors.Is(err, ErrNotSimple):
		return "Custom schedule (" + strings.Join(strings.Fields(expression), " ") + ")"
	default:
		return "Invalid schedule"
	}
}

// String describes the spec in words.
func (s Spec) String() string {
	switch s.Frequency {
	case Hourly:
		return fmt.Sprintf("Every hour at minute %02d", s.Minute)
	case Daily:
		return fmt.Sprintf("Every day at %02d:%02d UTC", s.Hour, s.Minute)
	case Weekly:
		return fmt.Sprintf("Every %s at %02d:%02d UTC", s.Weekday, s.Hour, s.Minute)
	default:
		return "Unknown schedule"
	}
}

// plain parses a single non-negative number with no cron operators.
func plain(term string) (int, bool) {
	if strings.ContainsAny(term, "*,-/") {
		return 0, false
	}
	n, err := strconv.Atoi(term)
	return n, err == nil
}
