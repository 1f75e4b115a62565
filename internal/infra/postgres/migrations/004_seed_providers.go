package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// seedProviders registers one provider row per local provider implementation.
func seedProviders() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "004_seed_providers",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				INSERT INTO providers (name, local_class, is_active) VALUES
					('Allociné', 'AllocineStocks', TRUE),
					('TiteLive Stocks (Epagine / Place des libraires.com)', 'TiteLiveStocks', TRUE),
					('Praxiel/Inférence', 'PraxielStocks', TRUE),
					('Démarches Simplifiées / IBAN Structure', 'BankInformationProvider', TRUE),
					('Démarches Simplifiées / IBAN Lieu avec SIRET', 'VenueWithSIRETBankInformationProvider', TRUE),
					('Démarches Simplifiées / IBAN Lieu sans SIRET', 'VenueWithoutSIRETBankInformationProvider', TRUE)
				ON CONFLICT (local_class) DO NOTHING;
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`
				DELETE FROM providers WHERE local_class IN (
					'AllocineStocks', 'TiteLiveStocks', 'PraxielStocks', 'BankInformationProvider',
					'VenueWithSIRETBankInformationProvider', 'VenueWithoutSIRETBankInformationProvider'
				);
			`).Error
		},
	}
}
