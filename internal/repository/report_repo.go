package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Harvey-Wallace/BandSync-sub000/internal/domain"
)

// ReportRepository stores the watched-state marker (attendance reports)
// and the per-change follow-up records.
type ReportRepository interface {
	// HasReport reports whether the event is in the watched state.
	HasReport(ctx context.Context, eventID string) (bool, error)
	// CreateChange appends one change record. A duplicate
	// (event, member, changed_at) key surfaces as domain.ErrConflict.
	CreateChange(ctx context.Context, change *domain.ChangeNotification) error
	MarkChangeNotified(ctx context.Context, id string) error
	// ListUnnotified returns change records whose follow-up has not
	// gone out yet, oldest first.
	ListUnnotified(ctx context.Context, limit int) ([]domain.ChangeNotification, error)
}

type GormReportRepo struct {
	db *gorm.DB
}

var _ ReportRepository = (*GormReportRepo)(nil)

func NewGormReportRepo(db *gorm.DB) *GormReportRepo {
	return &GormReportRepo{db: db}
}

func (r *GormReportRepo) HasReport(ctx context.Context, eventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&AttendanceReportModel{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormReportRepo) CreateChange(ctx context.Context, change *domain.ChangeNotification) error {
	if err := change.Validate(); err != nil {
		return err
	}

	model := changeModelFromDomain(change)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "member_id"}, {Name: "changed_at"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: change already recorded for %s/%s at %s",
			domain.ErrConflict, change.EventID, change.MemberID, change.ChangedAt)
	}
	return nil
}

func (r *GormReportRepo) MarkChangeNotified(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&ChangeNotificationModel{}).
		Where("id = ?", id).
		Update("notified", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormReportRepo) ListUnnotified(ctx context.Context, limit int) ([]domain.ChangeNotification, error) {
	var models []ChangeNotificationModel
	err := r.db.WithContext(ctx).
		Where("notified = ?", false).
		Order("changed_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	changes := make([]domain.ChangeNotification, 0, len(models))
	for i := range models {
		changes = append(changes, *changeModelToDomain(&models[i]))
	}

	return changes, nil
}
