// Package migrations versions the provider sync schema with gormigrate.
package migrations

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// options keeps the applied ids in a table of this service and applies each
// migration in its own transaction, so a failed step leaves no partial table.
var options = &gormigrate.Options{
	TableName:                 "provider_sync_migrations",
	IDColumnName:              "id",
	IDColumnSize:              255,
	UseTransaction:            true,
	ValidateUnknownMigrations: true,
}

// Migrations returns the schema history in apply order.
func Migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		createReferenceTables(),
		createCatalogTables(),
		createLocalProviderEvents(),
		seedProviders(),
	}
}

// Run applies the pending migrations.
func Run(db *gorm.DB) error {
	if err := gormigrate.New(db, options, Migrations()).Migrate(); err != nil {
		return fmt.Errorf("migrating provider sync schema: %w", err)
	}

	return nil
}

// Rollback reverts the last applied migration.
func Rollback(db *gorm.DB) error {
	if err := gormigrate.New(db, options, Migrations()).RollbackLast(); err != nil {
		return fmt.Errorf("rolling back provider sync schema: %w", err)
	}

	return nil
}
