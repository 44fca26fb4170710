package dispatcher

import (
	"fmt"
	"strings"

	"github.com/Harvey-Wallace/BandSync-sub000/internal/domain"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/transport"
)

const messageTimeLayout = "Monday, 02 Jan 2006 at 15:04 MST"

func renderMessage(kind domain.Kind, event domain.Event, recipient domain.Recipient) transport.Message {
	switch kind {
	case domain.KindEventReminder:
		return transport.Message{
			Subject: fmt.Sprintf("Reminder: %s", event.Title),
			Body:    eventReminderBody(event, recipient),
		}
	case domain.KindDeadlineReminder:
		return transport.Message{
			Subject: fmt.Sprintf("RSVP needed: %s", event.Title),
			Body:    deadlineReminderBody(event, recipient),
		}
	case domain.KindAttendanceReport:
		return transport.Message{
			Subject: fmt.Sprintf("Attendance report: %s", event.Title),
			Body:    attendanceReportBody(event, recipient),
		}
	case domain.KindRSVPChange:
		return transport.Message{
			Subject: fmt.Sprintf("RSVP update: %s", event.Title),
			Body:    rsvpChangeBody(event, recipient),
		}
	default:
		return transport.Message{
			Subject: event.Title,
			Body:    fmt.Sprintf("Update for %s on %s.", event.Title, event.ScheduledAt.Format(messageTimeLayout)),
		}
	}
}

func eventReminderBody(event domain.Event, recipient domain.Recipient) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", displayName(recipient))
	fmt.Fprintf(&b, "%s is coming up on %s.", event.Title, event.ScheduledAt.Format(messageTimeLayout))
	if event.Location != "" {
		fmt.Fprintf(&b, " Location: %s.", event.Location)
	}
	b.WriteString("\n\nSee you there!\n")
	return b.String()
}

func deadlineReminderBody(event domain.Event, recipient domain.Recipient) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", displayName(recipient))
	fmt.Fprintf(&b, "You haven't responded to %s on %s yet.", event.Title, event.ScheduledAt.Format(messageTimeLayout))
	b.WriteString(" Please let us know whether you can make it.\n")
	return b.String()
}

func attendanceReportBody(event domain.Event, recipient domain.Recipient) string {
	summary := event.Responses

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", displayName(recipient))
	fmt.Fprintf(&b, "Attendance for %s on %s:\n\n", event.Title, event.ScheduledAt.Format(messageTimeLayout))
	fmt.Fprintf(&b, "  Attending: %d\n", summary.Attending)
	fmt.Fprintf(&b, "  Declined:  %d\n", summary.Declined)
	fmt.Fprintf(&b, "  Tentative: %d\n", summary.Tentative)
	fmt.Fprintf(&b, "  Pending:   %d\n", summary.Pending)
	fmt.Fprintf(&b, "\nResponse rate: %.0f%% (%d of %d).\n", summary.Rate()*100, summary.Responded(), summary.Eligible())
	return b.String()
}

func rsvpChangeBody(event domain.Event, recipient domain.Recipient) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", displayName(recipient))
	fmt.Fprintf(&b, "An RSVP changed for %s on %s after the attendance report went out.", event.Title, event.ScheduledAt.Format(messageTimeLayout))
	b.WriteString(" Check the event page for the latest headcount.\n")
	return b.String()
}

func displayName(recipient domain.Recipient) string {
	if name := strings.TrimSpace(recipient.Name); name != "" {
		return name
	}
	return "there"
}
