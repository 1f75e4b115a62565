package domain

import (
	"fmt"
	"strconv"
	"time"
)

// SyncEventType is the lifecycle event recorded for a provider run.
type SyncEventType string

const (
	SyncStart     SyncEventType = "SyncStart"
	SyncPartStart SyncEventType = "SyncPartStart"
	SyncPartEnd   SyncEventType = "SyncPartEnd"
	SyncError     SyncEventType = "SyncError"
	SyncEnd       SyncEventType = "SyncEnd"
)

// SyncEvent is one entry of the synchronization log.
type SyncEvent struct {
	ID       int64         `json:"id,omitempty"`
	Provider ProviderName  `json:"provider"`
	Scope    string        `json:"scope"`
	Type     SyncEventType `json:"type"`
	Payload  string        `json:"payload,omitempty"`
	Date     time.Time     `json:"date"`
}

// ScopeKind tells what a run is bound to.
type ScopeKind string

const (
	ScopeVenueProvider ScopeKind = "venue_provider"
	ScopeApplication   ScopeKind = "application"
	ScopeProcedure     ScopeKind = "procedure"
)

// Scope identifies the (provider, scope) pair a run is bound to.
type Scope struct {
	Kind            ScopeKind
	VenueProviderID int64
	ApplicationID   int64
}

// VenueProviderScope binds a run to a venue provider link.
func VenueProviderScope(id int64) Scope {
	return Scope{Kind: ScopeVenueProvider, VenueProviderID: id}
}

// ApplicationScope binds a banking run to a single application.
func ApplicationScope(id int64) Scope {
	return Scope{Kind: ScopeApplication, ApplicationID: id}
}

// ProcedureScope binds a banking run to its whole procedure.
func ProcedureScope() Scope {
	return Scope{Kind: ScopeProcedure}
}

// Key returns a stable identifier used for locks and event logs.
func (s Scope) Key() string {
	switch s.Kind {
	case ScopeVenueProvider:
		return string(s.Kind) + ":" + strconv.FormatInt(s.VenueProviderID, 10)
	case ScopeApplication:
		return string(s.Kind) + ":" + strconv.FormatInt(s.ApplicationID, 10)
	default:
		return string(ScopeProcedure)
	}
}

// Outcome is the result of reconciling one ProvidableInfo.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeNoop    Outcome = "noop"
	OutcomeErrored Outcome = "errored"
)

// Counters accumulates per-run statistics.
type Counters struct {
	Checked int `json:"checked"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Errored int `json:"errored"`

	CheckedThumbs int `json:"checked_thumbs"`
	CreatedThumbs int `json:"created_thumbs"`
	UpdatedThumbs int `json:"updated_thumbs"`
	ErroredThumbs int `json:"errored_thumbs"`
}

// Record increments the counter matching an item outcome.
// Every reconciled item counts as checked.
func (c *Counters) Record(o Outcome) {
	c.Checked++
	switch o {
	case OutcomeCreated:
		c.Created++
	case OutcomeUpdated:
		c.Updated++
	case OutcomeErrored:
		c.Errored++
	}
}

func (c Counters) String() string {
	return fmt.Sprintf(
		"checked=%d created=%d updated=%d errored=%d thumbs(checked=%d created=%d updated=%d errored=%d)",
		c.Checked, c.Created, c.Updated, c.Errored,
		c.CheckedThumbs, c.CreatedThumbs, c.UpdatedThumbs, c.ErroredThumbs,
	)
}

// RunReport summarizes one provider run.
type RunReport struct {
	Provider ProviderName
	Scope    Scope
	WorkerID string
	Counters Counters
	Started  time.Time
	Duration time.Duration

	// Err is the contained run-level failure, if any.
	Err error
}

// Succeeded reports whether the run finished without a run-level failure.
func (r *RunReport) Succeeded() bool {
	return r.Err == nil
}
