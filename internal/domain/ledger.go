package domain

import (
	"fmt"
	"strings"
	"time"
)

// Outcome is the terminal result recorded for one send.
type Outcome string

const (
	OutcomeSent   Outcome = "SENT"
	OutcomeFailed Outcome = "FAILED"
)

func (o Outcome) String() string { return string(o) }

func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeSent, OutcomeFailed:
		return true
	}
	return false
}

func ParseOutcomeFromString(s string) (Outcome, error) {
	o := Outcome(strings.ToUpper(strings.TrimSpace(s)))
	if !o.IsValid() {
		return "", fmt.Errorf("%w: invalid outcome %q", ErrValidation, s)
	}
	return o, nil
}

// LedgerEntry is one immutable row in the sent-notification ledger. Only
// terminal outcomes are written: a successful send or a permanent failure.
// Transient failures leave no row so the key stays retryable while its
// window is open. The (kind, event, recipient) key is unique at the
// storage layer, which is the idempotency guarantee.
type LedgerEntry struct {
	ID          string
	Kind        Kind
	EventID     string
	RecipientID string
	Outcome     Outcome
	Reason      string
	SentAt      time.Time
}

func (e *LedgerEntry) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: ledger entry is nil", ErrValidation)
	}
	if !e.Kind.IsValid() {
		return fmt.Errorf("%w: invalid kind %q", ErrValidation, e.Kind)
	}
	if e.EventID == "" {
		return fmt.Errorf("%w: event id is required", ErrValidation)
	}
	if e.RecipientID == "" {
		return fmt.Errorf("%w: recipient id is required", ErrValidation)
	}
	if !e.Outcome.IsValid() {
		return fmt.Errorf("%w: invalid outcome %q", ErrValidation, e.Outcome)
	}
	if e.Outcome == OutcomeFailed && e.Reason == "" {
		return fmt.Errorf("%w: failure reason is required", ErrValidation)
	}
	if e.SentAt.IsZero() {
		return fmt.Errorf("%w: sent time is required", ErrValidation)
	}
	return nil
}
