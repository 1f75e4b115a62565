package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"provider-sync-service/internal/domain"
)

// DefaultEventListLimit bounds List when no limit is given.
const DefaultEventListLimit = 100

// EventStore implements domain.EventStore on the local_provider_events table.
type EventStore struct {
	db *gorm.DB
}

// NewEventStore creates a new PostgreSQL event store.
func NewEventStore(db *gorm.DB) *EventStore {
	return &EventStore{db: db}
}

// Log appends a sync event.
func (s *EventStore) Log(ctx context.Context, event domain.SyncEvent) error {
	m := LocalProviderEventModel{
		Date:     event.Date.UTC(),
		Type:     string(event.Type),
		Provider: string(event.Provider),
		Scope:    event.Scope,
		Payload:  event.Payload,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("logging sync event: %w", err)
	}

	return nil
}

// List returns the latest events, newest first. An empty provider lists all providers.
func (s *EventStore) List(ctx context.Context, provider domain.ProviderName, limit int) ([]domain.SyncEvent, error) {
	if limit <= 0 {
		limit = DefaultEventListLimit
	}

	query := s.db.WithContext(ctx).Order("id DESC").Limit(limit)
	if provider != "" {
		query = query.Where("provider = ?", string(provider))
	}

	var models []LocalProviderEventModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("listing sync events: %w", err)
	}

	events := make([]domain.SyncEvent, len(models))
	for i := range models {
		events[i] = models[i].ToDomain()
	}

	return events, nil
}
