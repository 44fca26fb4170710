package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harvey-Wallace/BandSync-sub000/internal/domain"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/observability"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/queue"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/repository"
)

const (
	changeResultIgnored   = "ignored"
	changeResultDuplicate = "duplicate"
	changeResultNotified  = "notified"
	changeResultRecorded  = "recorded"
	changeResultError     = "error"
)

// Watcher handles RSVP changes from the write side. A change only
// matters for events already in the watched state, that is events whose
// attendance report went out.
type Watcher struct {
	events     repository.EventRepository
	recipients repository.RecipientRepository
	reports    repository.ReportRepository
	dispatcher Sender
	logger     *zap.Logger
	metrics    *observability.Metrics
}

func NewWatcher(
	events repository.EventRepository,
	recipients repository.RecipientRepository,
	reports repository.ReportRepository,
	sender Sender,
	logger *zap.Logger,
	metrics *observability.Metrics,
) (*Watcher, error) {
	if events == nil {
		return nil, fmt.Errorf("event repository is required")
	}
	if recipients == nil {
		return nil, fmt.Errorf("recipient repository is required")
	}
	if reports == nil {
		return nil, fmt.Errorf("report repository is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Watcher{
		events:     events,
		recipients: recipients,
		reports:    reports,
		dispatcher: sender,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// HandleChange is the queue consumer body. A returned error makes the
// consumer nack-requeue the delivery, so only infrastructure failures
// may produce one; everything decided is acked.
func (w *Watcher) HandleChange(ctx context.Context, msg queue.ChangeMessage) error {
	logger := w.logger.With(
		zap.String("event_id", msg.EventID),
		zap.String("member_id", msg.MemberID),
	)

	watched, err := w.reports.HasReport(ctx, msg.EventID)
	if err != nil {
		w.metrics.IncChangeEvent(changeResultError)
		return fmt.Errorf("failed to check watched state for event %s: %w", msg.EventID, err)
	}
	if !watched {
		// No report sent yet: the pre-event report will carry the
		// current counts, nothing to follow up on.
		w.metrics.IncChangeEvent(changeResultIgnored)
		logger.Debug("change ignored, event is not watched")
		return nil
	}

	change := &domain.ChangeNotification{
		ID:        uuid.NewString(),
		EventID:   msg.EventID,
		MemberID:  msg.MemberID,
		OldStatus: msg.OldStatus,
		NewStatus: msg.NewStatus,
		ChangedAt: msg.ChangedAt,
	}

	if err := w.reports.CreateChange(ctx, change); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Redelivery of a change we already handled.
			w.metrics.IncChangeEvent(changeResultDuplicate)
			logger.Debug("change already recorded")
			return nil
		}
		w.metrics.IncChangeEvent(changeResultError)
		return fmt.Errorf("failed to record change: %w", err)
	}

	notified, err := w.notifyAdmins(ctx, logger, change)
	if err != nil {
		w.metrics.IncChangeEvent(changeResultError)
		return err
	}

	if notified {
		w.metrics.IncChangeEvent(changeResultNotified)
	} else {
		// Recorded but nobody reachable; the record stays unnotified
		// and shows up in ListUnnotified for later inspection.
		w.metrics.IncChangeEvent(changeResultRecorded)
	}
	return nil
}

func (w *Watcher) notifyAdmins(ctx context.Context, logger *zap.Logger, change *domain.ChangeNotification) (bool, error) {
	event, err := w.events.GetByID(ctx, change.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Event deleted between the change and now; the record is
			// kept, the follow-up is moot.
			logger.Warn("event vanished after change was recorded")
			return false, nil
		}
		return false, fmt.Errorf("failed to load event %s: %w", change.EventID, err)
	}

	admins, err := w.recipients.EligibleFor(ctx, change.EventID, domain.KindRSVPChange)
	if err != nil {
		return false, fmt.Errorf("failed to resolve admins for event %s: %w", change.EventID, err)
	}

	verdict := policyFilter(admins)
	if len(verdict) == 0 {
		logger.Info("no opted-in admins for change follow-up")
		return false, nil
	}

	outcomes := w.dispatcher.Send(ctx, domain.KindRSVPChange, *event, verdict)

	anySuccess := false
	for _, outcome := range outcomes {
		if outcome.Success {
			anySuccess = true
			continue
		}
		logger.Warn("change follow-up send failed",
			zap.String("recipient_id", outcome.RecipientID),
			zap.String("reason", outcome.Reason),
		)
	}

	if !anySuccess {
		return false, nil
	}

	if err := w.reports.MarkChangeNotified(ctx, change.ID); err != nil {
		return true, fmt.Errorf("failed to mark change notified: %w", err)
	}
	return true, nil
}

// policyFilter applies the opt-out rule for change follow-ups. The
// admin-only scoping already happened in the recipient query.
func policyFilter(admins []domain.Recipient) []domain.Recipient {
	eligible := make([]domain.Recipient, 0, len(admins))
	for _, admin := range admins {
		if admin.OptedIn(domain.KindRSVPChange) {
			eligible = append(eligible, admin)
		}
	}
	return eligible
}
