package migrations

import (
	"github.com/Luffyt01/HemoLink/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_blood_requests",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.BloodRequestModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_blood_requests_hospital_id ON blood_requests (hospital_id)`,
					`CREATE INDEX IF NOT EXISTS idx_blood_requests_status_blood_type ON blood_requests (status, blood_type)`,
					`CREATE INDEX IF NOT EXISTS idx_blood_requests_expiry ON blood_requests (expiry_time) WHERE status = 'PENDING'`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.BloodRequestModel{})
			},
		},
		{
			ID: "000002_create_donations",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.DonationModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_donations_donor_request ON donations (donor_id, request_id)`,
					`CREATE INDEX IF NOT EXISTS idx_donations_request_status ON donations (request_id, status)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.DonationModel{})
			},
		},
		{
			ID: "000003_create_match_log",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.MatchLogModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_match_log_request_id ON match_log (request_id)`,
					`CREATE INDEX IF NOT EXISTS idx_match_log_donor_id ON match_log (donor_id)`,
					`CREATE INDEX IF NOT EXISTS idx_match_log_pending ON match_log (status) WHERE status = 'PENDING'`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.MatchLogModel{})
			},
		},
	})

	return m.Migrate()
}
