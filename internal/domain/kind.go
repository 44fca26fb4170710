package domain

import (
	"fmt"
	"strings"
)

// Kind identifies a notification kind. Each kind has its own due window and
// its own ledger namespace.
type Kind string

const (
	KindEventReminder    Kind = "EVENT_REMINDER"
	KindDeadlineReminder Kind = "DEADLINE_REMINDER"
	KindAttendanceReport Kind = "ATTENDANCE_REPORT"
	KindRSVPChange       Kind = "RSVP_CHANGE"
)

func (k Kind) String() string { return string(k) }

func (k Kind) IsValid() bool {
	switch k {
	case KindEventReminder, KindDeadlineReminder, KindAttendanceReport, KindRSVPChange:
		return true
	}
	return false
}

// IsScheduled reports whether the kind is driven by the scheduler rather
// than by write-side change events.
func (k Kind) IsScheduled() bool {
	switch k {
	case KindEventReminder, KindDeadlineReminder, KindAttendanceReport:
		return true
	}
	return false
}

func ParseKindFromString(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: invalid kind %q", ErrValidation, s)
	}
	return k, nil
}

// LeadUnit is the unit a lead time was configured in. All comparisons
// normalize to minutes.
type LeadUnit string

const (
	UnitMinutes LeadUnit = "MINUTES"
	UnitHours   LeadUnit = "HOURS"
	UnitDays    LeadUnit = "DAYS"
)

func (u LeadUnit) String() string { return string(u) }

func (u LeadUnit) IsValid() bool {
	switch u {
	case UnitMinutes, UnitHours, UnitDays:
		return true
	}
	return false
}

// Minutes converts a lead value in this unit to minutes. Unknown units
// fall back to minutes so a bad row degrades to the tightest window
// instead of silently firing days early.
func (u LeadUnit) Minutes(value int) int {
	switch u {
	case UnitHours:
		return value * 60
	case UnitDays:
		return value * 24 * 60
	default:
		return value
	}
}

func ParseLeadUnitFromString(s string) (LeadUnit, error) {
	u := LeadUnit(strings.ToUpper(strings.TrimSpace(s)))
	if !u.IsValid() {
		return "", fmt.Errorf("%w: invalid lead unit %q", ErrValidation, s)
	}
	return u, nil
}

// RSVPStatus is a member's response state for an event.
type RSVPStatus string

const (
	RSVPAttending RSVPStatus = "ATTENDING"
	RSVPDeclined  RSVPStatus = "DECLINED"
	RSVPTentative RSVPStatus = "TENTATIVE"
	RSVPPending   RSVPStatus = "PENDING"
)

func (s RSVPStatus) String() string { return string(s) }

func (s RSVPStatus) IsValid() bool {
	switch s {
	case RSVPAttending, RSVPDeclined, RSVPTentative, RSVPPending:
		return true
	}
	return false
}

// IsResponse reports whether the status counts as an answer.
func (s RSVPStatus) IsResponse() bool {
	return s.IsValid() && s != RSVPPending
}

func ParseRSVPStatusFromString(s string) (RSVPStatus, error) {
	st := RSVPStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid rsvp status %q", ErrValidation, s)
	}
	return st, nil
}
