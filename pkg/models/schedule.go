package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduleType discriminates the schedule variants.
type ScheduleType string

const (
	ScheduleTypeRecurring    ScheduleType = "recurring"
	ScheduleTypeSpecificDate ScheduleType = "specificDate"
	ScheduleTypeCron         ScheduleType = "cron"
)

// DefaultIntervalSpec is used for recurring schedules with an unknown interval.
const DefaultIntervalSpec = "*/5 * * * *"

var intervalSpecs = map[string]string{
	"1m":  "* * * * *",
	"5m":  "*/5 * * * *",
	"15m": "*/15 * * * *",
	"30m": "*/30 * * * *",
	"1h":  "0 * * * *",
	"6h":  "0 */6 * * *",
	"12h": "0 */12 * * *",
	"1d":  "0 0 * * *",
	"1w":  "0 0 * * 0",
}

// ErrInvalidScheduleDate is returned when specificDate/specificTime cannot be parsed.
var ErrInvalidScheduleDate = errors.New("invalid schedule date")

// cronParser accepts five-field expressions, an optional leading seconds field and @descriptors.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ScheduleConfig describes when a scheduled workflow fires.
type ScheduleConfig struct {
	ScheduleType   ScheduleType `json:"scheduleType"`
	Interval       string       `json:"interval,omitempty"`
	CronExpression string       `json:"cronExpression,omitempty"`
	SpecificDate   string       `json:"specificDate,omitempty"`
	SpecificTime   string       `json:"specificTime,omitempty"`
	Timezone       string       `json:"timezone,omitempty"`
}

// IntervalSpec maps the recurring interval to its cron expression.
func IntervalSpec(interval string) string {
	if spec, ok := intervalSpecs[interval]; ok {
		return spec
	}

	return DefaultIntervalSpec
}

// ParseCron validates and parses a cron expression.
func ParseCron(expr string) (cron.Schedule, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, errors.New("empty cron expression")
	}

	return cronParser.Parse(expr)
}

// CronSpec returns the cron expression driving a recurring or cron schedule.
func (s *ScheduleConfig) CronSpec() (string, error) {
	switch s.ScheduleType {
	case ScheduleTypeRecurring:
		return IntervalSpec(s.Interval), nil
	case ScheduleTypeCron:
		if _, err := ParseCron(s.CronExpression); err != nil {
			return "", fmt.Errorf("invalid cron expression %q: %w", s.CronExpression, err)
		}

		return s.CronExpression, nil
	default:
		return "", fmt.Errorf("schedule type %q has no cron expression", s.ScheduleType)
	}
}

// ParseTimezone understands "UTC" and fixed offsets such as "UTC+2" or "UTC-5:30".
// It returns false for anything else.
func ParseTimezone(tz string) (*time.Location, bool) {
	tz = strings.TrimSpace(tz)
	if tz == "UTC" || tz == "GMT" {
		return time.UTC, true
	}

	if !strings.HasPrefix(tz, "UTC") || len(tz) < 5 {
		return nil, false
	}

	sign := 1

	switch tz[3] {
	case '+':
	case '-':
		sign = -1
	default:
		return nil, false
	}

	hoursPart, minutesPart, hasMinutes := strings.Cut(tz[4:], ":")

	hours, err := strconv.Atoi(hoursPart)
	if err != nil || hours > 14 {
		return nil, false
	}

	minutes := 0
	if hasMinutes {
		minutes, err = strconv.Atoi(minutesPart)
		if err != nil || minutes >= 60 {
			return nil, false
		}
	}

	offset := sign * (hours*3600 + minutes*60)

	return time.FixedZone(tz, offset), true
}

// TargetTime is the instant a specificDate schedule fires at. The date and time are read in the
// configured fixed-offset zone. An empty timezone means UTC; fallback is used only when the
// timezone is set but not understood.
func (s *ScheduleConfig) TargetTime(fallback *time.Location) (time.Time, error) {
	date, clock := strings.TrimSpace(s.SpecificDate), strings.TrimSpace(s.SpecificTime)
	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("%w: missing date or time", ErrInvalidScheduleDate)
	}

	loc := time.UTC

	if tz := strings.TrimSpace(s.Timezone); tz != "" {
		parsed, ok := ParseTimezone(tz)

		switch {
		case ok:
			loc = parsed
		case fallback != nil:
			loc = fallback
		default:
			loc = time.Local
		}
	}

	layout := "2006-01-02 15:04"
	if strings.Count(clock, ":") == 2 {
		layout = "2006-01-02 15:04:05"
	}

	target, err := time.ParseInLocation(layout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %s", ErrInvalidScheduleDate, s.SpecificDate, s.SpecificTime)
	}

	return target, nil
}
