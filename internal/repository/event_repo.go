package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Harvey-Wallace/BandSync-sub000/internal/domain"
)

// EventRepository reads events from the application's tables. It returns
// flat, already-aggregated slices so the selector and policy code never
// walk ORM relations.
type EventRepository interface {
	// ListUpcoming returns events scheduled within (now, now+horizon],
	// with reminder settings and response aggregates populated.
	ListUpcoming(ctx context.Context, now time.Time, horizon time.Duration) ([]domain.Event, error)
	GetByID(ctx context.Context, id string) (*domain.Event, error)
}

type GormEventRepo struct {
	db *gorm.DB
}

var _ EventRepository = (*GormEventRepo)(nil)

func NewGormEventRepo(db *gorm.DB) *GormEventRepo {
	return &GormEventRepo{db: db}
}

func (r *GormEventRepo) ListUpcoming(ctx context.Context, now time.Time, horizon time.Duration) ([]domain.Event, error) {
	var rows []eventRow
	err := r.db.WithContext(ctx).
		Table("events").
		Select(eventColumns).
		Where("scheduled_at > ? AND scheduled_at <= ?", now, now.Add(horizon)).
		Order("scheduled_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, nil
	}

	events := make([]domain.Event, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for i := range rows {
		events = append(events, eventRowToDomain(&rows[i]))
		ids = append(ids, rows[i].ID)
	}

	summaries, err := r.responseSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i := range events {
		if summary, ok := summaries[events[i].ID]; ok {
			events[i].Responses = summary
		}
	}

	return events, nil
}

func (r *GormEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	var row eventRow
	err := r.db.WithContext(ctx).
		Table("events").
		Select(eventColumns).
		Where("id = ?", id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	event := eventRowToDomain(&row)

	summaries, err := r.responseSummaries(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if summary, ok := summaries[id]; ok {
		event.Responses = summary
	}

	return &event, nil
}

// responseSummaries aggregates RSVP counts for the given events in one
// grouped query instead of a per-event lookup.
func (r *GormEventRepo) responseSummaries(ctx context.Context, eventIDs []string) (map[string]domain.ResponseSummary, error) {
	var counts []rsvpCountRow
	err := r.db.WithContext(ctx).
		Table("rsvps").
		Select("event_id, status, COUNT(*) as count").
		Where("event_id IN ?", eventIDs).
		Group("event_id, status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	summaries := make(map[string]domain.ResponseSummary, len(eventIDs))
	for _, row := range counts {
		summary := summaries[row.EventID]
		switch domain.RSVPStatus(row.Status) {
		case domain.RSVPAttending:
			summary.Attending += row.Count
		case domain.RSVPDeclined:
			summary.Declined += row.Count
		case domain.RSVPTentative:
			summary.Tentative += row.Count
		default:
			summary.Pending += row.Count
		}
		summaries[row.EventID] = summary
	}

	return summaries, nil
}

const eventColumns = `id, org_id, title, location, scheduled_at,
reminder_enabled, reminder_lead_value, reminder_lead_unit,
report_enabled, report_lead_value, report_lead_unit`
