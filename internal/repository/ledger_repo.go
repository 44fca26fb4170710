package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Harvey-Wallace/BandSync-sub000/internal/domain"
)

// LedgerRepository is the idempotency source of truth. Entries are only
// written for terminal outcomes; a transient transport failure leaves no
// row, so the key stays eligible while its window is open.
type LedgerRepository interface {
	// HasSucceeded reports whether a SENT row exists for the key.
	HasSucceeded(ctx context.Context, kind domain.Kind, eventID, recipientID string) (bool, error)
	// FilterPending drops recipients that already have any terminal row
	// for (kind, event). What remains is safe to dispatch.
	FilterPending(ctx context.Context, kind domain.Kind, eventID string, recipients []domain.Recipient) ([]domain.Recipient, error)
	// RecordOutcome appends one terminal row. A concurrent duplicate
	// surfaces as domain.ErrConflict, which callers treat as "already
	// recorded", never as a failure.
	RecordOutcome(ctx context.Context, entry *domain.LedgerEntry) error
	// RecordReportSent appends the ledger row and the attendance report
	// snapshot in a single transaction, so the watched-state transition
	// cannot happen without the ledger write or vice versa.
	RecordReportSent(ctx context.Context, entry *domain.LedgerEntry, report *domain.AttendanceReport) error
}

type GormLedgerRepo struct {
	db *gorm.DB
}

var _ LedgerRepository = (*GormLedgerRepo)(nil)

func NewGormLedgerRepo(db *gorm.DB) *GormLedgerRepo {
	return &GormLedgerRepo{db: db}
}

func (r *GormLedgerRepo) HasSucceeded(ctx context.Context, kind domain.Kind, eventID, recipientID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&LedgerEntryModel{}).
		Where("kind = ? AND event_id = ? AND recipient_id = ? AND outcome = ?",
			kind, eventID, recipientID, domain.OutcomeSent).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormLedgerRepo) FilterPending(ctx context.Context, kind domain.Kind, eventID string, recipients []domain.Recipient) ([]domain.Recipient, error) {
	if len(recipients) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		ids = append(ids, recipient.ID)
	}

	var recorded []string
	err := r.db.WithContext(ctx).
		Model(&LedgerEntryModel{}).
		Where("kind = ? AND event_id = ? AND recipient_id IN ?", kind, eventID, ids).
		Pluck("recipient_id", &recorded).Error
	if err != nil {
		return nil, err
	}

	done := make(map[string]struct{}, len(recorded))
	for _, id := range recorded {
		done[id] = struct{}{}
	}

	pending := make([]domain.Recipient, 0, len(recipients))
	for _, recipient := range recipients {
		if _, ok := done[recipient.ID]; ok {
			continue
		}
		pending = append(pending, recipient)
	}

	return pending, nil
}

func (r *GormLedgerRepo) RecordOutcome(ctx context.Context, entry *domain.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	return insertLedgerEntry(r.db.WithContext(ctx), entry)
}

func (r *GormLedgerRepo) RecordReportSent(ctx context.Context, entry *domain.LedgerEntry, report *domain.AttendanceReport) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if err := report.Validate(); err != nil {
		return err
	}
	if entry.EventID != report.EventID {
		return fmt.Errorf("%w: ledger entry and report reference different events", domain.ErrValidation)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := insertLedgerEntry(tx, entry); err != nil {
			return err
		}

		// The report row may already exist when a second admin's send
		// succeeds later within the same window.
		model := reportModelFromDomain(report)
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).Create(model)
		return result.Error
	})
}

func insertLedgerEntry(db *gorm.DB, entry *domain.LedgerEntry) error {
	model := ledgerModelFromDomain(entry)
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "event_id"}, {Name: "recipient_id"}},
		DoNothing: true,
	}).Create(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Another writer got there first; first writer wins.
		return fmt.Errorf("%w: ledger entry exists for %s/%s/%s",
			domain.ErrConflict, entry.Kind, entry.EventID, entry.RecipientID)
	}
	return nil
}
