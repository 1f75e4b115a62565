package domain

import (
	"fmt"
	"time"
)

// ProvidableInfo identifies one synchronizable entity occurrence at a provider.
type ProvidableInfo struct {
	Kind                   EntityKind
	ExternalID             string
	DateModifiedAtProvider time.Time
}

// NewProvidableInfo builds a ProvidableInfo with a UTC timestamp.
func NewProvidableInfo(kind EntityKind, externalID string, modifiedAt time.Time) ProvidableInfo {
	return ProvidableInfo{
		Kind:                   kind,
		ExternalID:             externalID,
		DateModifiedAtProvider: modifiedAt.UTC(),
	}
}

func (p ProvidableInfo) String() string {
	return fmt.Sprintf("%s:%s", p.Kind, p.ExternalID)
}

// BatchKind tells the engine how to treat a provider step.
type BatchKind int

const (
	// BatchItems carries zero or more ProvidableInfo to reconcile.
	BatchItems BatchKind = iota
	// BatchSkip means the source record maps to nothing (e.g. unknown product).
	BatchSkip
	// BatchFailed means the source record could not be turned into items.
	BatchFailed
	// BatchDone signals exhaustion.
	BatchDone
)

func (k BatchKind) String() string {
	switch k {
	case BatchItems:
		return "items"
	case BatchSkip:
		return "skip"
	case BatchFailed:
		return "failed"
	case BatchDone:
		return "done"
	default:
		return "unknown"
	}
}

// Batch is the result of one provider step.
type Batch struct {
	Kind  BatchKind
	Infos []ProvidableInfo

	// Record is the provider-native record the fill callback reads from.
	Record any

	// Part labels an optional sub-phase (page, cursor); a change emits part events.
	Part string

	// Diagnostic and Err describe a BatchFailed or BatchSkip result.
	Diagnostic string
	Err        error

	// Fatal aborts the run after the SyncError event is logged.
	Fatal bool
}

// Items builds a batch of providable infos sharing the same source record.
func Items(record any, infos ...ProvidableInfo) Batch {
	return Batch{Kind: BatchItems, Record: record, Infos: infos}
}

// Skip builds a batch that maps to nothing.
func Skip(reason string) Batch {
	return Batch{Kind: BatchSkip, Diagnostic: reason}
}

// Failed builds a batch for a record that could not be processed.
func Failed(diagnostic string, err error, fatal bool) Batch {
	return Batch{Kind: BatchFailed, Diagnostic: diagnostic, Err: err, Fatal: fatal}
}

// Done builds the exhaustion batch.
func Done() Batch {
	return Batch{Kind: BatchDone}
}

// WithPart labels the batch with a sub-phase name.
func (b Batch) WithPart(part string) Batch {
	b.Part = part
	return b
}

type resolvedKey struct {
	kind       EntityKind
	externalID string
}

// SyncState is the explicit scratch state threaded through a provider run.
// It carries the current source record and the local IDs resolved so far,
// which is how dependent entities (Offer → Product, Stock → Offer) find each other.
type SyncState struct {
	Part   string
	Record any

	resolved map[resolvedKey]int64
	last     map[EntityKind]int64
}

// NewSyncState returns an empty state for a new run.
func NewSyncState() *SyncState {
	return &SyncState{
		resolved: make(map[resolvedKey]int64),
		last:     make(map[EntityKind]int64),
	}
}

// Resolve records the local ID of an entity seen during the run.
func (s *SyncState) Resolve(kind EntityKind, externalID string, id int64) {
	if id == 0 {
		return
	}
	s.resolved[resolvedKey{kind: kind, externalID: externalID}] = id
	s.last[kind] = id
}

// ResolvedID returns the local ID recorded for (kind, externalID).
func (s *SyncState) ResolvedID(kind EntityKind, externalID string) (int64, bool) {
	id, ok := s.resolved[resolvedKey{kind: kind, externalID: externalID}]
	return id, ok
}

// LastResolved returns the most recent local ID recorded for kind.
func (s *SyncState) LastResolved(kind EntityKind) (int64, bool) {
	id, ok := s.last[kind]
	return id, ok
}
