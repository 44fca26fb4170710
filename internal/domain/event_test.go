package domain

import (
	"testing"
	"time"
)

func TestReminderConfigLeadMinutes(t *testing.T) {
	t.Parallel()

	cfg := ReminderConfig{Enabled: true, LeadValue: 2, LeadUnit: UnitHours}
	if got := cfg.LeadMinutes(); got != 120 {
		t.Fatalf("LeadMinutes() = %d, want 120", got)
	}
	if got := cfg.Lead(); got != 2*time.Hour {
		t.Fatalf("Lead() = %s, want 2h", got)
	}

	negative := ReminderConfig{LeadValue: -10, LeadUnit: UnitMinutes}
	if got := negative.LeadMinutes(); got != 0 {
		t.Fatalf("LeadMinutes() with negative value = %d, want 0", got)
	}
}

func TestResponseSummaryRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		summary ResponseSummary
		want    float64
	}{
		{name: "seven of ten", summary: ResponseSummary{Attending: 5, Declined: 1, Tentative: 1, Pending: 3}, want: 0.7},
		{name: "six of ten", summary: ResponseSummary{Attending: 4, Declined: 2, Pending: 4}, want: 0.6},
		{name: "nobody asked", summary: ResponseSummary{}, want: 0},
		{name: "everyone answered", summary: ResponseSummary{Attending: 3}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.summary.Rate()
			if got != tt.want {
				t.Fatalf("Rate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	valid := &Event{
		ID:          "e1",
		OrgID:       "org1",
		Title:       "Spring Concert",
		ScheduledAt: time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	missingID := &Event{OrgID: "org1", ScheduledAt: valid.ScheduledAt}
	if err := missingID.Validate(); err == nil {
		t.Fatal("expected error for missing event id")
	}

	missingTime := &Event{ID: "e1", OrgID: "org1"}
	if err := missingTime.Validate(); err == nil {
		t.Fatal("expected error for missing scheduled time")
	}
}

func TestLedgerEntryValidate(t *testing.T) {
	t.Parallel()

	entry := &LedgerEntry{
		ID:          "l1",
		Kind:        KindEventReminder,
		EventID:     "e1",
		RecipientID: "m1",
		Outcome:     OutcomeSent,
		SentAt:      time.Now(),
	}
	if err := entry.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	failedNoReason := &LedgerEntry{
		ID:          "l2",
		Kind:        KindEventReminder,
		EventID:     "e1",
		RecipientID: "m1",
		Outcome:     OutcomeFailed,
		SentAt:      time.Now(),
	}
	if err := failedNoReason.Validate(); err == nil {
		t.Fatal("expected error for failed outcome without reason")
	}
}

func TestRecipientOptedIn(t *testing.T) {
	t.Parallel()

	r := Recipient{ID: "m1", Address: "m1@example.com", OptOuts: map[Kind]bool{KindDeadlineReminder: true}}
	if r.OptedIn(KindDeadlineReminder) {
		t.Fatal("recipient opted out of deadline reminders")
	}
	if !r.OptedIn(KindEventReminder) {
		t.Fatal("absent opt-out means opted in")
	}

	noMap := Recipient{ID: "m2", Address: "m2@example.com"}
	if !noMap.OptedIn(KindEventReminder) {
		t.Fatal("nil opt-out map means opted in")
	}
}
