package domain

import (
	"fmt"
	"time"
)

// AttendanceReport freezes an event's aggregate counts at the moment the
// pre-event report went out. Its existence is what puts the event in the
// watched state for RSVP-change follow-ups. One per event, never updated.
type AttendanceReport struct {
	ID        string
	EventID   string
	Attending int
	Declined  int
	Tentative int
	Pending   int
	CreatedAt time.Time
}

func (r *AttendanceReport) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: attendance report is nil", ErrValidation)
	}
	if r.EventID == "" {
		return fmt.Errorf("%w: event id is required", ErrValidation)
	}
	return nil
}

// ChangeNotification records one RSVP mutation observed after the
// attendance report was sent. Deduplicated per (event, member, change
// time): each distinct change is reported once.
type ChangeNotification struct {
	ID        string
	EventID   string
	MemberID  string
	OldStatus RSVPStatus
	NewStatus RSVPStatus
	ChangedAt time.Time
	// Notified flips once the follow-up actually went out.
	Notified  bool
	CreatedAt time.Time
}

func (c *ChangeNotification) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: change notification is nil", ErrValidation)
	}
	if c.EventID == "" {
		return fmt.Errorf("%w: event id is required", ErrValidation)
	}
	if c.MemberID == "" {
		return fmt.Errorf("%w: member id is required", ErrValidation)
	}
	if !c.NewStatus.IsValid() {
		return fmt.Errorf("%w: invalid new status %q", ErrValidation, c.NewStatus)
	}
	if c.ChangedAt.IsZero() {
		return fmt.Errorf("%w: change time is required", ErrValidation)
	}
	return nil
}
