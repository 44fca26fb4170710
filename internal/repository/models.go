package repository

import (
	"time"

	"github.com/Harvey-Wallace/BandSync-sub000/internal/domain"
)

// LedgerEntryModel is the persistence model for the notification_ledger
// table. Rows are append-only; the unique (kind, event_id, recipient_id)
// index enforced in migrations is the idempotency constraint.
type LedgerEntryModel struct {
	ID          string         `gorm:"type:uuid;primaryKey"`
	Kind        domain.Kind    `gorm:"type:varchar(32);not null"`
	EventID     string         `gorm:"type:uuid;not null"`
	RecipientID string         `gorm:"type:uuid;not null"`
	Outcome     domain.Outcome `gorm:"type:varchar(10);not null"`
	Reason      string         `gorm:"type:text"`
	SentAt      time.Time      `gorm:"type:timestamptz;not null"`
	CreatedAt   time.Time
}

func (LedgerEntryModel) TableName() string {
	return "notification_ledger"
}

// AttendanceReportModel is the persistence model for attendance_reports.
type AttendanceReportModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	EventID   string `gorm:"type:uuid;not null"`
	Attending int    `gorm:"not null;default:0"`
	Declined  int    `gorm:"not null;default:0"`
	Tentative int    `gorm:"not null;default:0"`
	Pending   int    `gorm:"not null;default:0"`
	CreatedAt time.Time
}

func (AttendanceReportModel) TableName() string {
	return "attendance_reports"
}

// ChangeNotificationModel is the persistence model for change_notifications.
type ChangeNotificationModel struct {
	ID        string            `gorm:"type:uuid;primaryKey"`
	EventID   string            `gorm:"type:uuid;not null"`
	MemberID  string            `gorm:"type:uuid;not null"`
	OldStatus domain.RSVPStatus `gorm:"type:varchar(12)"`
	NewStatus domain.RSVPStatus `gorm:"type:varchar(12);not null"`
	ChangedAt time.Time         `gorm:"type:timestamptz;not null"`
	Notified  bool              `gorm:"not null;default:false"`
	CreatedAt time.Time
}

func (ChangeNotificationModel) TableName() string {
	return "change_notifications"
}

func ledgerModelFromDomain(e *domain.LedgerEntry) *LedgerEntryModel {
	if e == nil {
		return nil
	}

	return &LedgerEntryModel{
		ID:          e.ID,
		Kind:        e.Kind,
		EventID:     e.EventID,
		RecipientID: e.RecipientID,
		Outcome:     e.Outcome,
		Reason:      e.Reason,
		SentAt:      e.SentAt,
	}
}

func reportModelFromDomain(r *domain.AttendanceReport) *AttendanceReportModel {
	if r == nil {
		return nil
	}

	return &AttendanceReportModel{
		ID:        r.ID,
		EventID:   r.EventID,
		Attending: r.Attending,
		Declined:  r.Declined,
		Tentative: r.Tentative,
		Pending:   r.Pending,
		CreatedAt: r.CreatedAt,
	}
}

func changeModelFromDomain(c *domain.ChangeNotification) *ChangeNotificationModel {
	if c == nil {
		return nil
	}

	return &ChangeNotificationModel{
		ID:        c.ID,
		EventID:   c.EventID,
		MemberID:  c.MemberID,
		OldStatus: c.OldStatus,
		NewStatus: c.NewStatus,
		ChangedAt: c.ChangedAt,
		Notified:  c.Notified,
		CreatedAt: c.CreatedAt,
	}
}

func changeModelToDomain(m *ChangeNotificationModel) *domain.ChangeNotification {
	if m == nil {
		return nil
	}

	return &domain.ChangeNotification{
		ID:        m.ID,
		EventID:   m.EventID,
		MemberID:  m.MemberID,
		OldStatus: m.OldStatus,
		NewStatus: m.NewStatus,
		ChangedAt: m.ChangedAt,
		Notified:  m.Notified,
		CreatedAt: m.CreatedAt,
	}
}

// eventRow is the flat projection read from the application's events table.
type eventRow struct {
	ID                string    `gorm:"column:id"`
	OrgID             string    `gorm:"column:org_id"`
	Title             string    `gorm:"column:title"`
	Location          string    `gorm:"column:location"`
	ScheduledAt       time.Time `gorm:"column:scheduled_at"`
	ReminderEnabled   bool      `gorm:"column:reminder_enabled"`
	ReminderLeadValue int       `gorm:"column:reminder_lead_value"`
	ReminderLeadUnit  string    `gorm:"column:reminder_lead_unit"`
	ReportEnabled     bool      `gorm:"column:report_enabled"`
	ReportLeadValue   int       `gorm:"column:report_lead_value"`
	ReportLeadUnit    string    `gorm:"column:report_lead_unit"`
}

// rsvpCountRow is one grouped aggregate row from the rsvps table.
type rsvpCountRow struct {
	EventID string `gorm:"column:event_id"`
	Status  string `gorm:"column:status"`
	Count   int    `gorm:"column:count"`
}

// recipientRow is the flat projection read for recipient resolution.
type recipientRow struct {
	ID        string `gorm:"column:id"`
	Name      string `gorm:"column:name"`
	Email     string `gorm:"column:email"`
	Admin     bool   `gorm:"column:admin"`
	Responded bool   `gorm:"column:responded"`
	OptedOut  bool   `gorm:"column:opted_out"`
}

func eventRowToDomain(row *eventRow) domain.Event {
	reminderUnit := domain.LeadUnit(row.ReminderLeadUnit)
	if !reminderUnit.IsValid() {
		reminderUnit = domain.UnitMinutes
	}
	reportUnit := domain.LeadUnit(row.ReportLeadUnit)
	if !reportUnit.IsValid() {
		reportUnit = domain.UnitMinutes
	}

	return domain.Event{
		ID:          row.ID,
		OrgID:       row.OrgID,
		Title:       row.Title,
		Location:    row.Location,
		ScheduledAt: row.ScheduledAt,
		Reminder: domain.ReminderConfig{
			Enabled:   row.ReminderEnabled,
			LeadValue: row.ReminderLeadValue,
			LeadUnit:  reminderUnit,
		},
		Report: domain.ReminderConfig{
			Enabled:   row.ReportEnabled,
			LeadValue: row.ReportLeadValue,
			LeadUnit:  reportUnit,
		},
	}
}

func recipientRowToDomain(row *recipientRow, kind domain.Kind) domain.Recipient {
	recipient := domain.Recipient{
		ID:        row.ID,
		Name:      row.Name,
		Address:   row.Email,
		Admin:     row.Admin,
		Responded: row.Responded,
	}
	if row.OptedOut {
		recipient.OptOuts = map[domain.Kind]bool{kind: true}
	}
	return recipient
}
