package dispatcher

import (
	"strings"
	"testing"
	"time"

	"github.com/Harvey-Wallace/BandSync-sub000/internal/domain"
)

func TestRenderMessagePerKind(t *testing.T) {
	t.Parallel()

	event := domain.Event{
		ID:          "e1",
		OrgID:       "org1",
		Title:       "Spring Concert",
		Location:    "Town Hall",
		ScheduledAt: time.Date(2026, time.June, 12, 19, 30, 0, 0, time.UTC),
		Responses:   domain.ResponseSummary{Attending: 12, Declined: 3, Tentative: 1, Pending: 4},
	}
	recipient := domain.Recipient{ID: "m1", Name: "Pat", Address: "pat@example.com"}

	t.Run("event reminder", func(t *testing.T) {
		msg := renderMessage(domain.KindEventReminder, event, recipient)
		if !strings.Contains(msg.Subject, "Spring Concert") {
			t.Fatalf("subject = %q, want event title", msg.Subject)
		}
		if !strings.Contains(msg.Body, "Town Hall") {
			t.Fatalf("body missing location: %q", msg.Body)
		}
		if !strings.Contains(msg.Body, "Pat") {
			t.Fatalf("body missing recipient name: %q", msg.Body)
		}
	})

	t.Run("deadline reminder asks for response", func(t *testing.T) {
		msg := renderMessage(domain.KindDeadlineReminder, event, recipient)
		if !strings.Contains(msg.Subject, "RSVP") {
			t.Fatalf("subject = %q, want RSVP call to action", msg.Subject)
		}
		if !strings.Contains(msg.Body, "haven't responded") {
			t.Fatalf("body = %q, want non-responder wording", msg.Body)
		}
	})

	t.Run("attendance report carries counts", func(t *testing.T) {
		msg := renderMessage(domain.KindAttendanceReport, event, recipient)
		for _, want := range []string{"Attending: 12", "Declined:  3", "Tentative: 1", "Pending:   4"} {
			if !strings.Contains(msg.Body, want) {
				t.Fatalf("body missing %q: %q", want, msg.Body)
			}
		}
		if !strings.Contains(msg.Body, "80%") {
			t.Fatalf("body missing response rate: %q", msg.Body)
		}
	})

	t.Run("rsvp change references the report", func(t *testing.T) {
		msg := renderMessage(domain.KindRSVPChange, event, recipient)
		if !strings.Contains(msg.Body, "attendance report") {
			t.Fatalf("body = %q, want report reference", msg.Body)
		}
	})

	t.Run("missing name falls back", func(t *testing.T) {
		msg := renderMessage(domain.KindEventReminder, event, domain.Recipient{ID: "m2", Address: "x@example.com"})
		if !strings.Contains(msg.Body, "Hi there,") {
			t.Fatalf("body = %q, want generic greeting", msg.Body)
		}
	})
}
