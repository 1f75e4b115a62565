package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// syncColumns are the provenance columns of every synchronizable table.
// id_at_providers is the addressing key of the synchronization engine.
const syncColumns = `
	id_at_providers VARCHAR(100) NOT NULL UNIQUE,
	last_provider_id BIGINT REFERENCES providers(id),
	date_modified_at_last_provider TIMESTAMP,
	fields_updated TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
`

// createCatalogTables creates the tables written by the providers.
func createCatalogTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "002_create_catalog",
		Migrate: func(tx *gorm.DB) error {
			statements := []string{
				`CREATE TABLE IF NOT EXISTS products (
					id BIGSERIAL PRIMARY KEY,` + syncColumns + `
					name VARCHAR(140) NOT NULL,
					type VARCHAR(50) NOT NULL,
					description TEXT,
					duration_minutes INTEGER,
					extra_data JSONB,
					thumb_count INTEGER NOT NULL DEFAULT 0
				);`,
				`CREATE TABLE IF NOT EXISTS offers (
					id BIGSERIAL PRIMARY KEY,` + syncColumns + `
					venue_id BIGINT NOT NULL REFERENCES venues(id),
					product_id BIGINT NOT NULL REFERENCES products(id),
					name VARCHAR(140) NOT NULL,
					type VARCHAR(50) NOT NULL,
					description TEXT,
					duration_minutes INTEGER,
					extra_data JSONB,
					booking_email VARCHAR(120),
					withdrawal_details TEXT,
					is_duo BOOLEAN NOT NULL DEFAULT FALSE,
					is_active BOOLEAN NOT NULL DEFAULT TRUE
				);`,
				`CREATE TABLE IF NOT EXISTS stocks (
					id BIGSERIAL PRIMARY KEY,` + syncColumns + `
					offer_id BIGINT NOT NULL REFERENCES offers(id),
					price DECIMAL(10,2) NOT NULL CHECK (price >= 0),
					quantity INTEGER CHECK (quantity IS NULL OR quantity >= 0),
					beginning_datetime TIMESTAMP,
					end_datetime TIMESTAMP,
					booking_limit_datetime TIMESTAMP
				);`,
				`CREATE TABLE IF NOT EXISTS bank_information (
					id BIGSERIAL PRIMARY KEY,` + syncColumns + `
					offerer_id BIGINT REFERENCES offerers(id),
					venue_id BIGINT REFERENCES venues(id),
					application_id BIGINT NOT NULL UNIQUE,
					iban VARCHAR(27),
					bic VARCHAR(11),
					status VARCHAR(20) NOT NULL,

					CONSTRAINT ck_bank_information_target CHECK (offerer_id IS NOT NULL OR venue_id IS NOT NULL)
				);`,
			}
			for _, stmt := range statements {
				if err := tx.Exec(stmt).Error; err != nil {
					return err
				}
			}

			indexes := []string{
				"CREATE INDEX IF NOT EXISTS idx_products_type ON products(type);",
				"CREATE INDEX IF NOT EXISTS idx_offers_venue_id ON offers(venue_id);",
				"CREATE INDEX IF NOT EXISTS idx_offers_product_id ON offers(product_id);",
				"CREATE INDEX IF NOT EXISTS idx_stocks_offer_id ON stocks(offer_id);",
				"CREATE INDEX IF NOT EXISTS idx_stocks_beginning_datetime ON stocks(beginning_datetime);",
				"CREATE INDEX IF NOT EXISTS idx_bank_information_last_provider ON bank_information(last_provider_id, date_modified_at_last_provider DESC);",
			}
			for _, idx := range indexes {
				if err := tx.Exec(idx).Error; err != nil {
					return err
				}
			}

			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`DROP TABLE IF EXISTS bank_information, stocks, offers, products;`).Error
		},
	}
}
