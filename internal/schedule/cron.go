// Package schedule translates between mission cron expressions and the
// simple hourly, daily and weekly form operators edit.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// parser accepts the five standard fields, month and weekday names
// included. Descriptors such as @daily are not mission schedules.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Cron is a validated 5-field cron expression evaluated in UTC. When both
// day-of-month and day-of-week are restricted a day matching either fires.
type Cron struct {
	expr     string
	schedule cron.Schedule
}

// ParseCron validates expression and prepares it for Next. Day-of-week 7
// is accepted as Sunday.
func ParseCron(expression string) (Cron, error) {
	parts := strings.Fields(expression)
	if len(parts) != 5 {
		return Cron{}, fmt.Errorf("cron: expected 5 fields, got %d", len(parts))
	}

	fields := append([]string(nil), parts...)
	fields[4] = sundayAsZero(fields[4])
	schedule, err := parser.Parse(strings.Join(fields, " "))
	if err != nil {
		return Cron{}, fmt.Errorf("cron: %w", err)
	}
	return Cron{expr: strings.Join(parts, " "), schedule: schedule}, nil
}

// String returns the normalized expression.
func (c Cron) String() string {
	return c.expr
}

// Next returns the first minute strictly after t that matches, in UTC.
// Impossible expressions such as "0 0 31 2 *" yield an error.
func (c Cron) Next(t time.Time) (time.Time, error) {
	next := c.schedule.Next(t.UTC())
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("cron: %q never fires", c.expr)
	}
	return next, nil
}

// sundayAsZero rewrites day-of-week 7 to 0 in every list term, including
// ranges and stepped ranges that end on 7.
func sundayAsZero(field string) string {
	terms := strings.Split(field, ",")
	for i, term := range terms {
		base, stepText, stepped := strings.Cut(term, "/")
		if base == "7" {
			terms[i] = "0"
			continue
		}
		startText, endText, ranged := strings.Cut(base, "-")
		if !ranged || endText != "7" {
			continue
		}
		start, err := strconv.Atoi(startText)
		if err != nil || start < 0 {
			continue
		}
		step := 1
		if stepped {
			if step, err = strconv.Atoi(stepText); err != nil || step <= 0 {
				continue
			}
		}

		if start == 7 {
			terms[i] = "0"
			continue
		}
		rewritten := fmt.Sprintf("%d-6", start)
		if stepped {
			rewritten += "/" + stepText
		}
		if (7-start)%step == 0 {
			rewritten += ",0"
		}
		terms[i] = rewritten
	}
	return strings.Join(terms, ",")
}
