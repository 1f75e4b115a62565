// Package dto provides Data Transfer Objects for HTTP requests and responses.
package dto

import (
	"fmt"

	"provider-sync-service/internal/domain"
)

// SyncRequest represents the request body for a manual sync.
//
// An empty provider runs every scheduled run. Otherwise the scope is the
// venue provider, the application, or the whole procedure when neither is set.
type SyncRequest struct {
	Provider        string `json:"provider" validate:"omitempty,max=64"`
	VenueProviderID *int64 `json:"venue_provider_id" validate:"omitempty,min=1,excluded_with=ApplicationID"`
	ApplicationID   *int64 `json:"application_id" validate:"omitempty,min=1"`
	Limit           int    `json:"limit" validate:"min=0,max=100000"`
}

// IsSyncAll reports whether the request asks for every scheduled run.
func (r *SyncRequest) IsSyncAll() bool {
	return r.Provider == "" && r.VenueProviderID == nil && r.ApplicationID == nil
}

// Scope returns the run scope the request targets.
func (r *SyncRequest) Scope() domain.Scope {
	switch {
	case r.VenueProviderID != nil:
		return domain.VenueProviderScope(*r.VenueProviderID)
	case r.ApplicationID != nil:
		return domain.ApplicationScope(*r.ApplicationID)
	default:
		return domain.ProcedureScope()
	}
}

// VenueProviderSyncRequest represents the query of a venue provider sync.
type VenueProviderSyncRequest struct {
	Limit int `query:"limit" validate:"min=0,max=100000"`
}

// SyncEventsRequest represents the query parameters for listing sync events.
type SyncEventsRequest struct {
	Provider string `query:"provider" validate:"omitempty,provider_name"`
	Limit    int    `query:"limit" validate:"omitempty,min=1,max=1000"`
}

// ThumbnailRequest addresses one stored thumbnail of a synced entity.
type ThumbnailRequest struct {
	Kind  string `params:"kind" validate:"required,oneof=product offer"`
	ID    int64  `params:"id" validate:"min=1"`
	Index int    `params:"index" validate:"min=0,max=99"`
}

func (r *ThumbnailRequest) String() string {
	return fmt.Sprintf("%s %d #%d", r.Kind, r.ID, r.Index)
}
