package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"provider-sync-service/internal/domain"
)

// CatalogRepository implements domain.CatalogRepository using PostgreSQL.
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new PostgreSQL catalog repository.
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FindByExternalID retrieves an entity by kind and provider id. Returns nil when absent.
func (r *CatalogRepository) FindByExternalID(ctx context.Context, kind domain.EntityKind, externalID string) (domain.Entity, error) {
	switch kind {
	case domain.KindProduct:
		var m ProductModel
		if found, err := r.first(ctx, &m, externalID); err != nil || !found {
			return nil, err
		}
		return m.ToDomain(), nil
	case domain.KindOffer:
		var m OfferModel
		if found, err := r.first(ctx, &m, externalID); err != nil || !found {
			return nil, err
		}
		return m.ToDomain(), nil
	case domain.KindStock:
		var m StockModel
		if found, err := r.first(ctx, &m, externalID); err != nil || !found {
			return nil, err
		}
		return m.ToDomain(), nil
	case domain.KindBankInformation:
		var m BankInformationModel
		if found, err := r.first(ctx, &m, externalID); err != nil || !found {
			return nil, err
		}
		return m.ToDomain(), nil
	default:
		return nil, fmt.Errorf("unsupported entity kind %q", kind)
	}
}

func (r *CatalogRepository) first(ctx context.Context, model any, externalID string) (bool, error) {
	err := r.db.WithContext(ctx).Where("id_at_providers = ?", externalID).First(model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil // Not found
		}

		return false, fmt.Errorf("getting entity by external id: %w", err)
	}

	return true, nil
}

// FindProductByExternalID retrieves a product by its provider id (e.g. ISBN).
func (r *CatalogRepository) FindProductByExternalID(ctx context.Context, externalID string) (*domain.Product, error) {
	var m ProductModel
	found, err := r.first(ctx, &m, externalID)
	if err != nil || !found {
		return nil, err
	}

	return m.ToDomain(), nil
}

// Persist creates or updates an entity. New rows are upserted on id_at_providers.
func (r *CatalogRepository) Persist(ctx context.Context, entity domain.Entity) error {
	switch e := entity.(type) {
	case *domain.Product:
		m := productFromDomain(e)
		if err := r.save(ctx, m, m.ID == 0); err != nil {
			return fmt.Errorf("persisting product %s: %w", e.IDAtProviders, err)
		}
		e.ID = m.ID
	case *domain.Offer:
		m := offerFromDomain(e)
		if err := r.save(ctx, m, m.ID == 0); err != nil {
			return fmt.Errorf("persisting offer %s: %w", e.IDAtProviders, err)
		}
		e.ID = m.ID
	case *domain.Stock:
		m := stockFromDomain(e)
		if err := r.save(ctx, m, m.ID == 0); err != nil {
			return fmt.Errorf("persisting stock %s: %w", e.IDAtProviders, err)
		}
		e.ID = m.ID
	case *domain.BankInformation:
		m := bankInformationFromDomain(e)
		if err := r.save(ctx, m, m.ID == 0); err != nil {
			return fmt.Errorf("persisting bank information %s: %w", e.IDAtProviders, err)
		}
		e.ID = m.ID
	default:
		return fmt.Errorf("unsupported entity %T", entity)
	}

	return nil
}

func (r *CatalogRepository) save(ctx context.Context, model any, create bool) error {
	db := r.db.WithContext(ctx)
	if !create {
		return db.Omit("created_at").Save(model).Error
	}

	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id_at_providers"}},
		UpdateAll: true,
	}).Create(model).Error
}

// LastBankInformationUpdate returns the latest provider modification date of the
// bank information written by providerID.
func (r *CatalogRepository) LastBankInformationUpdate(ctx context.Context, providerID int64) (*time.Time, error) {
	var last sql.NullTime
	err := r.db.WithContext(ctx).
		Model(&BankInformationModel{}).
		Where("last_provider_id = ?", providerID).
		Select("MAX(date_modified_at_last_provider)").
		Row().
		Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("reading last bank information update: %w", err)
	}
	if !last.Valid {
		return nil, nil
	}

	t := last.Time.UTC()
	return &t, nil
}
