package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// createLocalProviderEvents creates the synchronization log table.
func createLocalProviderEvents() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "003_create_local_provider_events",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS local_provider_events (
					id BIGSERIAL PRIMARY KEY,
					date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					type VARCHAR(20) NOT NULL,
					provider VARCHAR(60) NOT NULL,
					scope VARCHAR(60),
					payload TEXT
				);
			`).Error; err != nil {
				return err
			}

			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_local_provider_events_provider ON local_provider_events(provider, id DESC);`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP TABLE IF EXISTS local_provider_events;").Error
		},
	}
}
