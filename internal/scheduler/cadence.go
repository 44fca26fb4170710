package scheduler

import (
	"fmt"
	"time"
)

// Cadence computes when a job runs next. Implementations must be safe to
// call from any goroutine and must always return a time strictly after
// the argument.
type Cadence interface {
	Next(after time.Time) time.Time
	String() string
}

type intervalCadence struct {
	every time.Duration
}

// Every runs a job at a fixed interval. Intervals below one second are
// clamped so a misconfigured job cannot spin.
func Every(interval time.Duration) Cadence {
	if interval < time.Second {
		interval = time.Second
	}
	return intervalCadence{every: interval}
}

func (c intervalCadence) Next(after time.Time) time.Time {
	return after.Add(c.every)
}

func (c intervalCadence) String() string {
	return fmt.Sprintf("every %s", c.every)
}

type dailyCadence struct {
	hour   int
	minute int
}

// DailyAt runs a job once a day at the given wall-clock time (UTC).
func DailyAt(hour, minute int) Cadence {
	if hour < 0 || hour > 23 {
		hour = 0
	}
	if minute < 0 || minute > 59 {
		minute = 0
	}
	return dailyCadence{hour: hour, minute: minute}
}

func (c dailyCadence) Next(after time.Time) time.Time {
	after = after.UTC()
	next := time.Date(after.Year(), after.Month(), after.Day(), c.hour, c.minute, 0, 0, time.UTC)
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (c dailyCadence) String() string {
	return fmt.Sprintf("daily at %02d:%02d UTC", c.hour, c.minute)
}

type weeklyCadence struct {
	weekday time.Weekday
	hour    int
	minute  int
}

// WeeklyAt runs a job once a week on the given weekday at the given
// wall-clock time (UTC).
func WeeklyAt(weekday time.Weekday, hour, minute int) Cadence {
	if hour < 0 || hour > 23 {
		hour = 0
	}
	if minute < 0 || minute > 59 {
		minute = 0
	}
	return weeklyCadence{weekday: weekday, hour: hour, minute: minute}
}

func (c weeklyCadence) Next(after time.Time) time.Time {
	after = after.UTC()
	next := time.Date(after.Year(), after.Month(), after.Day(), c.hour, c.minute, 0, 0, time.UTC)

	daysAhead := (int(c.weekday) - int(after.Weekday()) + 7) % 7
	next = next.AddDate(0, 0, daysAhead)
	if !next.After(after) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

func (c weeklyCadence) String() string {
	return fmt.Sprintf("weekly on %s at %02d:%02d UTC", c.weekday, c.hour, c.minute)
}
