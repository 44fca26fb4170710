package selector

import (
	"context"
	"fmt"
	"time"

	"github.com/Harvey-Wallace/BandSync-sub000/internal/domain"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/repository"
)

const (
	// defaultTolerance absorbs the scheduler's own tick granularity: a
	// window is open for 2ε around its target instant, wide enough for a
	// couple of transient-failure retries on later ticks.
	defaultTolerance = 5 * time.Minute
	// defaultDeadlineHorizon is how far ahead the deadline reminder looks.
	defaultDeadlineHorizon = 72 * time.Hour
	// listHorizon bounds the upcoming-events query. Lead times are
	// normalized to minutes and capped well below this in practice.
	listHorizon = 35 * 24 * time.Hour
)

// Selector decides which events are due for a scheduled notification kind
// at a given instant. All window math is pure; the repository only supplies
// flat upcoming rows.
type Selector struct {
	events          repository.EventRepository
	tolerance       time.Duration
	deadlineHorizon time.Duration
}

func New(events repository.EventRepository, tolerance, deadlineHorizon time.Duration) (*Selector, error) {
	if events == nil {
		return nil, fmt.Errorf("event repository is required")
	}
	if tolerance <= 0 {
		tolerance = defaultTolerance
	}
	if deadlineHorizon <= 0 {
		deadlineHorizon = defaultDeadlineHorizon
	}

	return &Selector{
		events:          events,
		tolerance:       tolerance,
		deadlineHorizon: deadlineHorizon,
	}, nil
}

// FindDue returns the events whose window for the given kind is open at
// now. A window the scheduler slept through is permanently missed; there
// is no backfill.
func (s *Selector) FindDue(ctx context.Context, kind domain.Kind, now time.Time) ([]domain.Event, error) {
	if !kind.IsScheduled() {
		return nil, fmt.Errorf("%w: kind %q is not scheduler-driven", domain.ErrValidation, kind)
	}

	upcoming, err := s.events.ListUpcoming(ctx, now, listHorizon)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming events: %w", err)
	}

	due := make([]domain.Event, 0, len(upcoming))
	for _, event := range upcoming {
		if s.isDue(kind, event, now) {
			due = append(due, event)
		}
	}

	return due, nil
}

func (s *Selector) isDue(kind domain.Kind, event domain.Event, now time.Time) bool {
	switch kind {
	case domain.KindEventReminder:
		return event.Reminder.Enabled &&
			withinWindow(now, event.ScheduledAt, event.Reminder.Lead(), s.tolerance)
	case domain.KindDeadlineReminder:
		return event.ScheduledAt.After(now) &&
			!event.ScheduledAt.After(now.Add(s.deadlineHorizon))
	case domain.KindAttendanceReport:
		return event.Report.Enabled &&
			withinWindow(now, event.ScheduledAt, event.Report.Lead(), s.tolerance)
	}
	return false
}

// withinWindow reports whether now falls inside
// [scheduledAt-lead-tol, scheduledAt-lead+tol].
func withinWindow(now, scheduledAt time.Time, lead, tol time.Duration) bool {
	target := scheduledAt.Add(-lead)
	diff := now.Sub(target)
	return diff >= -tol && diff <= tol
}
