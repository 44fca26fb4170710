package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/Harvey-Wallace/BandSync-sub000/internal/repository"
)

// Migrate creates the tables owned by the notifier. Event, member, and
// RSVP tables belong to the main application and are only read here.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_notification_ledger",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.LedgerEntryModel{}); err != nil {
					return err
				}
				// The unique index is the idempotency guarantee: two
				// overlapping runs cannot both record an outcome for
				// the same key.
				indexes := []string{
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_kind_event_recipient ON notification_ledger (kind, event_id, recipient_id)`,
					`CREATE INDEX IF NOT EXISTS idx_ledger_event_id ON notification_ledger (event_id)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.LedgerEntryModel{})
			},
		},
		{
			ID: "000002_create_attendance_reports",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.AttendanceReportModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_reports_event_id ON attendance_reports (event_id)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.AttendanceReportModel{})
			},
		},
		{
			ID: "000003_create_change_notifications",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.ChangeNotificationModel{}); err != nil {
					return err
				}
				// One follow-up per distinct change, keyed by member and
				// change time rather than by kind+event.
				indexes := []string{
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_changes_event_member_changed ON change_notifications (event_id, member_id, changed_at)`,
					`CREATE INDEX IF NOT EXISTS idx_changes_event_id ON change_notifications (event_id)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ChangeNotificationModel{})
			},
		},
	})

	return m.Migrate()
}
