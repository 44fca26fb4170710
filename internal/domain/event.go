package domain

import (
	"fmt"
	"time"
)

// ReminderConfig is a per-event lead-time setting for one notification kind.
type ReminderConfig struct {
	Enabled   bool
	LeadValue int
	LeadUnit  LeadUnit
}

// LeadMinutes returns the configured lead time normalized to minutes.
func (c ReminderConfig) LeadMinutes() int {
	if c.LeadValue < 0 {
		return 0
	}
	return c.LeadUnit.Minutes(c.LeadValue)
}

// Lead returns the configured lead time as a duration.
func (c ReminderConfig) Lead() time.Duration {
	return time.Duration(c.LeadMinutes()) * time.Minute
}

// ResponseSummary is the aggregate RSVP state of an event at read time.
type ResponseSummary struct {
	Attending int
	Declined  int
	Tentative int
	Pending   int
}

// Responded is the number of members who gave any answer.
func (s ResponseSummary) Responded() int {
	return s.Attending + s.Declined + s.Tentative
}

// Eligible is the number of members asked to respond.
func (s ResponseSummary) Eligible() int {
	return s.Responded() + s.Pending
}

// Rate is responded/eligible, 0 when nobody was asked.
func (s ResponseSummary) Rate() float64 {
	eligible := s.Eligible()
	if eligible == 0 {
		return 0
	}
	return float64(s.Responded()) / float64(eligible)
}

// Event is a schedulable subject. It is owned by the CRUD layer; the
// notifier only reads it.
type Event struct {
	ID          string
	OrgID       string
	Title       string
	Location    string
	ScheduledAt time.Time
	Reminder    ReminderConfig
	Report      ReminderConfig
	Responses   ResponseSummary
}

func (e *Event) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: event is nil", ErrValidation)
	}
	if e.ID == "" {
		return fmt.Errorf("%w: event id is required", ErrValidation)
	}
	if e.OrgID == "" {
		return fmt.Errorf("%w: org id is required", ErrValidation)
	}
	if e.ScheduledAt.IsZero() {
		return fmt.Errorf("%w: scheduled time is required", ErrValidation)
	}
	return nil
}
