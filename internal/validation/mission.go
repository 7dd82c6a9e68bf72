// Package validation checks mission requests before they are sent to the
// control plane.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/narvanalabs/mission-console/internal/models"
	"github.com/narvanalabs/mission-console/internal/schedule"
)

// MaxNameLength is the longest accepted mission name, in characters.
const MaxNameLength = 100

// ValidationError represents a validation error with field context.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidateMissionName requires a non-blank name of at most MaxNameLength
// characters.
func ValidateMissionName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{
			Field:   "name",
			Message: "mission name is required",
		}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return &ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("mission name must be %d characters or less", MaxNameLength),
		}
	}
	return nil
}

// ValidateSchedule requires a 5-field cron expression that fires at least
// once.
func ValidateSchedule(expression string) error {
	c, err := schedule.ParseCron(expression)
	if err != nil {
		return &ValidationError{Field: "schedule", Message: err.Error()}
	}
	if _, err := c.Next(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		return &ValidationError{Field: "schedule", Message: "schedule never fires"}
	}
	return nil
}

// ValidateTargeting checks score and per-run bounds.
func ValidateTargeting(t models.Targeting) error {
	if t.MinScore < 0 || t.MinScore > 1 {
		return &ValidationError{
			Field:   "targeting.minScore",
			Message: "minimum score must be between 0 and 1",
		}
	}
	if t.MaxPerRun < 0 {
		return &ValidationError{
			Field:   "targeting.maxPerRun",
			Message: "max per run cannot be negative",
		}
	}
	for _, keyword := range t.Keywords {
		if strings.TrimSpace(keyword) == "" {
			return &ValidationError{
				Field:   "targeting.keywords",
				Message: "keywords cannot be blank",
			}
		}
	}
	return nil
}

// ValidateMissionRequest runs every check and joins the failures.
func ValidateMissionRequest(req *models.MissionRequest) error {
	if req == nil {
		return &ValidationError{Field: "mission", Message: "request is required"}
	}

	errs := []error{
		ValidateMissionName(req.Name),
		ValidateSchedule(req.Schedule),
		ValidateTargeting(req.Targeting),
	}
	if req.DailyQuota < 0 {
		errs = append(errs, &ValidationError{
			Field:   "dailyQuota",
			Message: "daily quota cannot be negative",
		})
	}
	return errors.Join(errs...)
}
