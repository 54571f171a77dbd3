package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/mkarpenko/hookrelay/internal/domain"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_notifications",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&domain.Notification{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_notifications_service ON notifications (service)`,
					`CREATE INDEX IF NOT EXISTS idx_notifications_created_at ON notifications (created_at)`,
					`CREATE INDEX IF NOT EXISTS idx_notifications_error ON notifications (error)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&domain.Notification{})
			},
		},
	})

	return m.Migrate()
}
