package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduleKind enumerates the supported schedule grammar forms.
type ScheduleKind int

const (
	ScheduleHourly ScheduleKind = iota
	ScheduleDailyAt
	ScheduleEveryMinutes
	ScheduleCron
)

var (
	dailyPattern = regexp.MustCompile(`^daily at (\d{2}):(\d{2})$`)
	everyPattern = regexp.MustCompile(`^every (\d+) minutes$`)
)

// Schedule is a parsed schedule expression. The grammar accepts "hourly",
// "daily at HH:MM", "every N minutes" and standard cron expressions
// (5-field or @-descriptor).
type Schedule struct {
	Kind    ScheduleKind
	Hour    int // ScheduleDailyAt
	Minute  int // ScheduleDailyAt
	Minutes int // ScheduleEveryMinutes
	cron    cron.Schedule
	raw     string
}

// ParseSchedule parses a schedule expression. Unparseable expressions
// are a hard error; they are rejected at task creation, never silently
// skipped at dispatch time.
func ParseSchedule(expr string) (*Schedule, error) {
	trimmed := strings.TrimSpace(expr)
	lower := strings.ToLower(trimmed)

	if lower == "hourly" {
		return &Schedule{Kind: ScheduleHourly, raw: trimmed}, nil
	}

	if m := dailyPattern.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return nil, fmt.Errorf("invalid schedule %q: time of day out of range", expr)
		}
		return &Schedule{Kind: ScheduleDailyAt, Hour: hour, Minute: minute, raw: trimmed}, nil
	}

	if m := everyPattern.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid schedule %q: interval must be at least 1 minute", expr)
		}
		return &Schedule{Kind: ScheduleEveryMinutes, Minutes: n, raw: trimmed}, nil
	}

	// Cron branch: @descriptors or 5-field expressions.
	if strings.HasPrefix(trimmed, "@") || len(strings.Fields(trimmed)) == 5 {
		parsed, err := cron.ParseStandard(trimmed)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
		}
		return &Schedule{Kind: ScheduleCron, cron: parsed, raw: trimmed}, nil
	}

	return nil, fmt.Errorf("invalid schedule %q: expected \"hourly\", \"daily at HH:MM\", \"every N minutes\" or a cron expression", expr)
}

// ValidateSchedule reports whether the expression parses.
func ValidateSchedule(expr string) error {
	_, err := ParseSchedule(expr)
	return err
}

// Next returns the next run time strictly after now.
func (s *Schedule) Next(now time.Time) time.Time {
	switch s.Kind {
	case ScheduleHourly:
		return now.Add(time.Hour)
	case ScheduleDailyAt:
		next := time.Date(now.Year(), now.Month(), now.Day(), s.Hour, s.Minute, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	case ScheduleEveryMinutes:
		return now.Add(time.Duration(s.Minutes) * time.Minute)
	case ScheduleCron:
		return s.cron.Next(now)
	}
	return now.Add(time.Hour)
}

// String returns the original expression.
func (s *Schedule) String() string {
	return s.raw
}
