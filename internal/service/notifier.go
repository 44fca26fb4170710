package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harvey-Wallace/BandSync-sub000/internal/dispatcher"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/domain"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/observability"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/policy"
	"github.com/Harvey-Wallace/BandSync-sub000/internal/repository"
)

// DueFinder yields the events whose window for a scheduled kind is open.
type DueFinder interface {
	FindDue(ctx context.Context, kind domain.Kind, now time.Time) ([]domain.Event, error)
}

// Sender fans one notification out to its recipients.
type Sender interface {
	Send(ctx context.Context, kind domain.Kind, event domain.Event, recipients []domain.Recipient) []dispatcher.Outcome
}

// Notifier runs one scheduled notification kind end to end: select due
// events, apply policy, drop already-handled recipients, dispatch, and
// record terminal outcomes in the ledger.
type Notifier struct {
	selector   DueFinder
	recipients repository.RecipientRepository
	ledger     repository.LedgerRepository
	dispatcher Sender
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

func NewNotifier(
	dueFinder DueFinder,
	recipients repository.RecipientRepository,
	ledger repository.LedgerRepository,
	sender Sender,
	logger *zap.Logger,
	metrics *observability.Metrics,
) (*Notifier, error) {
	if dueFinder == nil {
		return nil, fmt.Errorf("due finder is required")
	}
	if recipients == nil {
		return nil, fmt.Errorf("recipient repository is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger repository is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Notifier{
		selector:   dueFinder,
		recipients: recipients,
		ledger:     ledger,
		dispatcher: sender,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}, nil
}

// EventReminderJob is the scheduler body for pre-event reminders.
func (n *Notifier) EventReminderJob(ctx context.Context) error {
	return n.run(ctx, domain.KindEventReminder)
}

// DeadlineReminderJob is the scheduler body for RSVP-deadline nags.
func (n *Notifier) DeadlineReminderJob(ctx context.Context) error {
	return n.run(ctx, domain.KindDeadlineReminder)
}

// AttendanceReportJob is the scheduler body for pre-event attendance
// reports to admins.
func (n *Notifier) AttendanceReportJob(ctx context.Context) error {
	return n.run(ctx, domain.KindAttendanceReport)
}

func (n *Notifier) run(ctx context.Context, kind domain.Kind) error {
	logger := observability.WithContextLogger(n.logger, ctx).With(zap.String("kind", kind.String()))

	now := n.now()
	due, err := n.selector.FindDue(ctx, kind, now)
	if err != nil {
		return fmt.Errorf("failed to find due events: %w", err)
	}
	if len(due) == 0 {
		logger.Debug("no events due")
		return nil
	}

	var firstErr error
	for _, event := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := n.runEvent(ctx, logger, kind, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func (n *Notifier) runEvent(ctx context.Context, logger *zap.Logger, kind domain.Kind, event domain.Event) error {
	logger = logger.With(zap.String("event_id", event.ID))

	candidates, err := n.recipients.EligibleFor(ctx, event.ID, kind)
	if err != nil {
		return fmt.Errorf("failed to resolve recipients for event %s: %w", event.ID, err)
	}

	// Policy runs after the window opened, on current state: a response
	// that arrived minutes ago still counts.
	verdict := policy.Decide(event, kind, candidates)
	if !verdict.Send {
		n.metrics.IncNotificationSuppressed(kind.String(), verdict.Reason)
		logger.Info("notification suppressed", zap.String("reason", verdict.Reason))
		return nil
	}

	pending, err := n.ledger.FilterPending(ctx, kind, event.ID, verdict.Recipients)
	if err != nil {
		return fmt.Errorf("failed to filter pending recipients for event %s: %w", event.ID, err)
	}
	if len(pending) == 0 {
		logger.Debug("all recipients already handled")
		return nil
	}

	outcomes := n.dispatcher.Send(ctx, kind, event, pending)
	return n.recordOutcomes(ctx, logger, kind, event, outcomes)
}

func (n *Notifier) recordOutcomes(ctx context.Context, logger *zap.Logger, kind domain.Kind, event domain.Event, outcomes []dispatcher.Outcome) error {
	var firstErr error

	for _, outcome := range outcomes {
		var err error
		switch {
		case outcome.Success:
			err = n.recordSent(ctx, kind, event, outcome.RecipientID)
		case outcome.Transient:
			// No ledger row: the key stays eligible while its window is
			// open, so a later tick retries it.
			logger.Info("send failed transiently, will retry",
				zap.String("recipient_id", outcome.RecipientID),
				zap.String("reason", outcome.Reason),
			)
		default:
			err = n.ledger.RecordOutcome(ctx, &domain.LedgerEntry{
				ID:          uuid.NewString(),
				Kind:        kind,
				EventID:     event.ID,
				RecipientID: outcome.RecipientID,
				Outcome:     domain.OutcomeFailed,
				Reason:      outcome.Reason,
				SentAt:      n.now(),
			})
		}

		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				// Another worker recorded this key first; its send stands.
				n.metrics.IncLedgerConflict(kind.String())
				logger.Debug("ledger row already exists",
					zap.String("recipient_id", outcome.RecipientID),
				)
				continue
			}
			logger.Error("failed to record outcome",
				zap.String("recipient_id", outcome.RecipientID),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

func (n *Notifier) recordSent(ctx context.Context, kind domain.Kind, event domain.Event, recipientID string) error {
	entry := &domain.LedgerEntry{
		ID:          uuid.NewString(),
		Kind:        kind,
		EventID:     event.ID,
		RecipientID: recipientID,
		Outcome:     domain.OutcomeSent,
		SentAt:      n.now(),
	}

	if kind != domain.KindAttendanceReport {
		return n.ledger.RecordOutcome(ctx, entry)
	}

	// The report snapshot is written with the ledger row in one
	// transaction; its existence flips the event into the watched state.
	report := &domain.AttendanceReport{
		ID:        uuid.NewString(),
		EventID:   event.ID,
		Attending: event.Responses.Attending,
		Declined:  event.Responses.Declined,
		Tentative: event.Responses.Tentative,
		Pending:   event.Responses.Pending,
		CreatedAt: n.now(),
	}
	return n.ledger.RecordReportSent(ctx, entry, report)
}
