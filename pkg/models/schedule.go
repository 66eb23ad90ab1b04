package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	// ErrInvalidSchedule is returned when a schedule expression or timezone cannot be parsed.
	ErrInvalidSchedule = errors.New("invalid schedule configuration")

	scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
)

// Schedule is a parsed TIME_BASED trigger: a 5-field cron expression evaluated in a timezone.
type Schedule struct {
	Expression string
	Location   *time.Location
	spec       cron.Schedule
}

// ParseSchedule parses a standard cron expression (minute hour day month weekday) and an IANA timezone.
func ParseSchedule(expression, timezone string) (*Schedule, error) {
	if expression == "" {
		return nil, fmt.Errorf("%w: schedule is required", ErrInvalidSchedule)
	}

	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %w", ErrInvalidSchedule, timezone, err)
	}

	spec, err := scheduleParser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
	}

	return &Schedule{
		Expression: expression,
		Location:   location,
		spec:       spec,
	}, nil
}

// IsFireTime reports whether the minute containing now is one the schedule fires on.
func (s *Schedule) IsFireTime(now time.Time) bool {
	minute := now.In(s.Location).Truncate(time.Minute)

	return s.spec.Next(minute.Add(-time.Second)).Equal(minute)
}

// Next returns the first fire time strictly after the given time.
func (s *Schedule) Next(after time.Time) time.Time {
	return s.spec.Next(after.In(s.Location))
}
