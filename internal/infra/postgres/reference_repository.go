package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"provider-sync-service/internal/domain"
)

// ReferenceRepository implements domain.ReferenceRepository using PostgreSQL.
type ReferenceRepository struct {
	db *gorm.DB
}

// NewReferenceRepository creates a new PostgreSQL reference repository.
func NewReferenceRepository(db *gorm.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// find runs query into model and reports whether a row was found.
func find(query *gorm.DB, model any, what string) (bool, error) {
	if err := query.First(model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil // Not found
		}

		return false, fmt.Errorf("getting %s: %w", what, err)
	}

	return true, nil
}

// get is find for lookups by id, where a missing row is a NotFoundError.
func get(query *gorm.DB, model any, what string, id int64) error {
	found, err := find(query, model, what)
	if err != nil {
		return err
	}
	if !found {
		return &domain.NotFoundError{Entity: what, Key: fmt.Sprintf("id %d", id)}
	}

	return nil
}

// GetProvider retrieves a provider by id.
func (r *ReferenceRepository) GetProvider(ctx context.Context, id int64) (*domain.Provider, error) {
	var m ProviderModel
	if err := get(r.db.WithContext(ctx).Where("id = ?", id), &m, "provider", id); err != nil {
		return nil, err
	}

	return m.ToDomain(), nil
}

// GetProviderByLocalClass retrieves the provider record of a local provider implementation.
func (r *ReferenceRepository) GetProviderByLocalClass(ctx context.Context, name domain.ProviderName) (*domain.Provider, error) {
	var m ProviderModel
	found, err := find(r.db.WithContext(ctx).Where("local_class = ?", string(name)), &m, "provider")
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &domain.NotFoundError{Entity: "provider", Key: string(name)}
	}

	return m.ToDomain(), nil
}

// ListProviders returns every provider ordered by id.
func (r *ReferenceRepository) ListProviders(ctx context.Context) ([]*domain.Provider, error) {
	var models []ProviderModel
	if err := r.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("listing providers: %w", err)
	}

	providers := make([]*domain.Provider, len(models))
	for i := range models {
		providers[i] = models[i].ToDomain()
	}

	return providers, nil
}

func (r *ReferenceRepository) venueProviders(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("PriceRules", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	})
}

// GetVenueProvider retrieves a venue provider with its ordered price rules.
func (r *ReferenceRepository) GetVenueProvider(ctx context.Context, id int64) (*domain.VenueProvider, error) {
	var m VenueProviderModel
	if err := get(r.venueProviders(ctx).Where("venue_providers.id = ?", id), &m, "venue provider", id); err != nil {
		return nil, err
	}

	return m.ToDomain(), nil
}

// ListActiveVenueProviders returns the active venue providers whose provider is active too.
func (r *ReferenceRepository) ListActiveVenueProviders(ctx context.Context) ([]*domain.VenueProvider, error) {
	var models []VenueProviderModel
	err := r.venueProviders(ctx).
		Joins("JOIN providers ON providers.id = venue_providers.provider_id").
		Where("venue_providers.is_active AND providers.is_active").
		Order("venue_providers.id").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("listing active venue providers: %w", err)
	}

	vps := make([]*domain.VenueProvider, len(models))
	for i := range models {
		vps[i] = models[i].ToDomain()
	}

	return vps, nil
}

// MarkVenueProviderSynced stamps the last sync date of a venue provider.
func (r *ReferenceRepository) MarkVenueProviderSynced(ctx context.Context, id int64, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&VenueProviderModel{}).
		Where("id = ?", id).
		Update("last_sync_date", at.UTC())
	if result.Error != nil {
		return fmt.Errorf("marking venue provider %d synced: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return &domain.NotFoundError{Entity: "venue provider", Key: fmt.Sprintf("id %d", id)}
	}

	return nil
}

// GetVenue retrieves a venue by id.
func (r *ReferenceRepository) GetVenue(ctx context.Context, id int64) (*domain.Venue, error) {
	var m VenueModel
	if err := get(r.db.WithContext(ctx).Where("id = ?", id), &m, "venue", id); err != nil {
		return nil, err
	}

	return m.ToDomain(), nil
}

// FindVenueBySiret retrieves a venue by SIRET.
func (r *ReferenceRepository) FindVenueBySiret(ctx context.Context, siret string) (*domain.Venue, error) {
	if siret == "" {
		return nil, nil
	}
	var m VenueModel
	found, err := find(r.db.WithContext(ctx).Where("siret = ?", siret), &m, "venue by siret")
	if err != nil || !found {
		return nil, err
	}

	return m.ToDomain(), nil
}

// GetOfferer retrieves an offerer by id.
func (r *ReferenceRepository) GetOfferer(ctx context.Context, id int64) (*domain.Offerer, error) {
	var m OffererModel
	if err := get(r.db.WithContext(ctx).Where("id = ?", id), &m, "offerer", id); err != nil {
		return nil, err
	}

	return m.ToDomain(), nil
}

// FindOffererBySiren retrieves an offerer by SIREN.
func (r *ReferenceRepository) FindOffererBySiren(ctx context.Context, siren string) (*domain.Offerer, error) {
	if siren == "" {
		return nil, nil
	}
	var m OffererModel
	found, err := find(r.db.WithContext(ctx).Where("siren = ?", siren), &m, "offerer by siren")
	if err != nil || !found {
		return nil, err
	}

	return m.ToDomain(), nil
}
