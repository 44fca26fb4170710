package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Harvey-Wallace/BandSync-sub000/internal/domain"
)

// RecipientRepository resolves the recipient set for a notification. The
// returned slice is flat: membership, contact address, RSVP state, and
// opt-out flag are all resolved in the query.
type RecipientRepository interface {
	EligibleFor(ctx context.Context, eventID string, kind domain.Kind) ([]domain.Recipient, error)
}

type GormRecipientRepo struct {
	db *gorm.DB
}

var _ RecipientRepository = (*GormRecipientRepo)(nil)

func NewGormRecipientRepo(db *gorm.DB) *GormRecipientRepo {
	return &GormRecipientRepo{db: db}
}

func (r *GormRecipientRepo) EligibleFor(ctx context.Context, eventID string, kind domain.Kind) ([]domain.Recipient, error) {
	query := r.db.WithContext(ctx).
		Table("members").
		Select(`members.id, members.name, members.email, members.admin,
			(rsvps.status IS NOT NULL AND rsvps.status <> 'PENDING') AS responded,
			(opt.member_id IS NOT NULL) AS opted_out`).
		Joins("JOIN events ON events.org_id = members.org_id AND events.id = ?", eventID).
		Joins("LEFT JOIN rsvps ON rsvps.event_id = events.id AND rsvps.member_id = members.id").
		Joins("LEFT JOIN notification_optouts opt ON opt.member_id = members.id AND opt.kind = ?", kind.String()).
		Where("members.email <> ''")

	// Reports and change follow-ups go to org admins only.
	if kind == domain.KindAttendanceReport || kind == domain.KindRSVPChange {
		query = query.Where("members.admin = ?", true)
	}

	var rows []recipientRow
	if err := query.Order("members.id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}

	recipients := make([]domain.Recipient, 0, len(rows))
	for i := range rows {
		recipients = append(recipients, recipientRowToDomain(&rows[i], kind))
	}

	return recipients, nil
}
