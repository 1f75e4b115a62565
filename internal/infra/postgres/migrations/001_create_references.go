package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// createReferenceTables creates the tables providers attach data to.
func createReferenceTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "001_create_references",
		Migrate: func(tx *gorm.DB) error {
			statements := []string{
				`CREATE TABLE IF NOT EXISTS providers (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(90) NOT NULL,
					local_class VARCHAR(60) UNIQUE,
					is_active BOOLEAN NOT NULL DEFAULT TRUE
				);`,
				`CREATE TABLE IF NOT EXISTS offerers (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(140) NOT NULL,
					siren VARCHAR(9) UNIQUE
				);`,
				`CREATE TABLE IF NOT EXISTS venues (
					id BIGSERIAL PRIMARY KEY,
					managing_offerer_id BIGINT NOT NULL REFERENCES offerers(id),
					name VARCHAR(140) NOT NULL,
					siret VARCHAR(14) UNIQUE,
					departement_code VARCHAR(3),
					booking_email VARCHAR(120),
					withdrawal_details TEXT
				);`,
				`CREATE TABLE IF NOT EXISTS venue_providers (
					id BIGSERIAL PRIMARY KEY,
					venue_id BIGINT NOT NULL REFERENCES venues(id),
					provider_id BIGINT NOT NULL REFERENCES providers(id),
					venue_id_at_offer_provider VARCHAR(70),
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					last_sync_date TIMESTAMP,

					-- Allociné options
					is_duo BOOLEAN NOT NULL DEFAULT TRUE,
					quantity INTEGER,

					CONSTRAINT uq_venue_provider UNIQUE (venue_id, provider_id, venue_id_at_offer_provider)
				);`,
				`CREATE TABLE IF NOT EXISTS venue_provider_price_rules (
					id BIGSERIAL PRIMARY KEY,
					venue_provider_id BIGINT NOT NULL REFERENCES venue_providers(id) ON DELETE CASCADE,
					position INTEGER NOT NULL,
					kind VARCHAR(20) NOT NULL,
					price DECIMAL(10,2) NOT NULL CHECK (price >= 0),

					CONSTRAINT uq_price_rule_position UNIQUE (venue_provider_id, position)
				);`,
			}
			for _, stmt := range statements {
				if err := tx.Exec(stmt).Error; err != nil {
					return err
				}
			}

			indexes := []string{
				"CREATE INDEX IF NOT EXISTS idx_venues_managing_offerer_id ON venues(managing_offerer_id);",
				"CREATE INDEX IF NOT EXISTS idx_venue_providers_venue_id ON venue_providers(venue_id);",
				"CREATE INDEX IF NOT EXISTS idx_venue_providers_provider_id ON venue_providers(provider_id);",
			}
			for _, idx := range indexes {
				if err := tx.Exec(idx).Error; err != nil {
					return err
				}
			}

			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`DROP TABLE IF EXISTS venue_provider_price_rules, venue_providers, venues, offerers, providers;`).Error
		},
	}
}
