package policy

import (
	"github.com/Harvey-Wallace/BandSync-sub000/internal/domain"
)

// ResponseRateThreshold suppresses the deadline reminder once this share
// of the audience has already answered.
const ResponseRateThreshold = 0.70

// Suppression reasons, also used as metric labels.
const (
	ReasonResponseRate        = "response_rate"
	ReasonNoEligibleRecipient = "no_eligible_recipients"
)

// Verdict is the policy decision for one due notification. When Send is
// false, Reason explains the suppression; when true, Recipients is the
// exact set the dispatcher should fan out to.
type Verdict struct {
	Send       bool
	Reason     string
	Recipients []domain.Recipient
}

// Decide is a pure function: it reads only its arguments and is evaluated
// after the window opens but before any send, so state changes between
// window-open and send time are respected.
func Decide(event domain.Event, kind domain.Kind, candidates []domain.Recipient) Verdict {
	if kind == domain.KindDeadlineReminder && event.Responses.Rate() >= ResponseRateThreshold {
		return Verdict{Reason: ReasonResponseRate}
	}

	recipients := make([]domain.Recipient, 0, len(candidates))
	for _, candidate := range candidates {
		if !candidate.OptedIn(kind) {
			continue
		}
		// Deadline reminders only nag members who have not answered.
		if kind == domain.KindDeadlineReminder && candidate.Responded {
			continue
		}
		recipients = append(recipients, candidate)
	}

	if len(recipients) == 0 {
		return Verdict{Reason: ReasonNoEligibleRecipient}
	}

	return Verdict{Send: true, Recipients: recipients}
}
