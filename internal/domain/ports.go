package domain

import (
	"context"
	"time"
)

// CatalogRepository persists synchronizable entities.
// Implementations: internal/infra/postgres/catalog_repository.go
type CatalogRepository interface {
	// FindByExternalID returns the entity addressed by (kind, externalID), or nil if absent.
	FindByExternalID(ctx context.Context, kind EntityKind, externalID string) (Entity, error)

	// Persist creates or updates the entity in its own unit of work.
	// A local ID is assigned on first insert.
	Persist(ctx context.Context, entity Entity) error

	// FindProductByExternalID returns a product by its provider id (e.g. ISBN), or nil.
	FindProductByExternalID(ctx context.Context, externalID string) (*Product, error)

	// LastBankInformationUpdate returns the most recent provider modification date
	// written by providerID, or nil when it never wrote any bank information.
	LastBankInformationUpdate(ctx context.Context, providerID int64) (*time.Time, error)
}

// ReferenceRepository reads the entities providers attach data to.
// Get* methods return a NotFoundError for a missing id; Find* methods return nil.
// Implementations: internal/infra/postgres/reference_repository.go
type ReferenceRepository interface {
	GetProvider(ctx context.Context, id int64) (*Provider, error)
	GetProviderByLocalClass(ctx context.Context, name ProviderName) (*Provider, error)
	ListProviders(ctx context.Context) ([]*Provider, error)

	GetVenueProvider(ctx context.Context, id int64) (*VenueProvider, error)
	ListActiveVenueProviders(ctx context.Context) ([]*VenueProvider, error)
	// MarkVenueProviderSynced stamps the last sync date after a run.
	MarkVenueProviderSynced(ctx context.Context, id int64, at time.Time) error

	GetVenue(ctx context.Context, id int64) (*Venue, error)
	FindVenueBySiret(ctx context.Context, siret string) (*Venue, error)
	GetOfferer(ctx context.Context, id int64) (*Offerer, error)
	FindOffererBySiren(ctx context.Context, siren string) (*Offerer, error)
}

// EventLogger consumes sync lifecycle events.
// Implementations: internal/infra/eventlog, internal/infra/postgres, internal/infra/rabbitmq
type EventLogger interface {
	Log(ctx context.Context, event SyncEvent) error
}

// EventStore is an EventLogger that can be read back.
type EventStore interface {
	EventLogger
	List(ctx context.Context, provider ProviderName, limit int) ([]SyncEvent, error)
}

// ScopeLock is the cooperative "currently syncing" marker of a scope.
// Implementations: internal/infra/redis/scope_lock.go
type ScopeLock interface {
	// MarkSyncing returns a *ScopeSyncingError, which wraps
	// ErrScopeAlreadySyncing, when the scope is held.
	MarkSyncing(ctx context.Context, scopeKey, workerID string) error
	ClearSyncing(ctx context.Context, scopeKey string) error
}

// ThumbnailFetcher downloads thumbnail binaries.
// Implementations: internal/infra/provider/thumb
type ThumbnailFetcher interface {
	FetchBinary(ctx context.Context, url string) ([]byte, error)
}

// ThumbnailStorage keeps thumbnails attached to an entity.
// Implementations: internal/infra/redis/thumbnail_store.go
type ThumbnailStorage interface {
	Save(ctx context.Context, kind EntityKind, id int64, index int, data []byte) error
}

// LocalProvider is a concrete provider driven by the synchronization engine.
// Implementations: internal/infra/provider/{allocine,stockapi,demarches}
type LocalProvider interface {
	Name() ProviderName

	// Next pulls the next batch for the run. A returned error is a run-level
	// failure (e.g. ErrProviderUnavailable); per-record problems are BatchFailed.
	Next(ctx context.Context, state *SyncState) (Batch, error)

	// Fill sets provider attributes on entity from state.Record.
	Fill(ctx context.Context, state *SyncState, entity Entity) error
}

// ThumbProvider is implemented by providers that attach a thumbnail to some entities.
type ThumbProvider interface {
	// ThumbURL returns the thumbnail URL of a freshly written entity, if any.
	ThumbURL(state *SyncState, entity Entity) (string, bool)
}

// RunContext is what a provider constructor is bound to.
type RunContext struct {
	Provider      *Provider
	Scope         Scope
	VenueProvider *VenueProvider
	Venue         *Venue
}

// ProviderFactory builds concrete providers from their name.
// Implementations: internal/infra/provider/registry
type ProviderFactory interface {
	Build(ctx context.Context, name ProviderName, rc RunContext) (LocalProvider, error)
	Names() []ProviderName
}
