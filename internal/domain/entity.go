// Package domain contains the core business logic and entities.
// This package has no external dependencies (only stdlib).
package domain

import (
	"sort"
	"time"
)

// EntityKind identifies which target entity a ProvidableInfo describes.
type EntityKind string

const (
	KindProduct         EntityKind = "product"
	KindOffer           EntityKind = "offer"
	KindStock           EntityKind = "stock"
	KindBankInformation EntityKind = "bank_information"
)

// Field names an attribute that a human can pin against provider writes.
type Field string

const (
	FieldName                 Field = "name"
	FieldDescription          Field = "description"
	FieldDurationMinutes      Field = "durationMinutes"
	FieldExtraData            Field = "extraData"
	FieldBookingEmail         Field = "bookingEmail"
	FieldWithdrawalDetails    Field = "withdrawalDetails"
	FieldIsDuo                Field = "isDuo"
	FieldIsActive             Field = "isActive"
	FieldPrice                Field = "price"
	FieldQuantity             Field = "quantity"
	FieldBeginningDatetime    Field = "beginningDatetime"
	FieldEndDatetime          Field = "endDatetime"
	FieldBookingLimitDatetime Field = "bookingLimitDatetime"
	FieldIBAN                 Field = "iban"
	FieldBIC                  Field = "bic"
	FieldStatus               Field = "status"
)

// FieldSet is the set of attributes manually overridden on an entity.
type FieldSet map[Field]struct{}

// NewFieldSet builds a FieldSet from the given fields.
func NewFieldSet(fields ...Field) FieldSet {
	s := make(FieldSet, len(fields))
	for _, f := range fields {
		s[f] = struct{}{}
	}

	return s
}

// FieldSetFromStrings builds a FieldSet from stored field names.
func FieldSetFromStrings(names []string) FieldSet {
	s := make(FieldSet, len(names))
	for _, n := range names {
		s[Field(n)] = struct{}{}
	}

	return s
}

// Has reports whether f is pinned.
func (s FieldSet) Has(f Field) bool {
	_, ok := s[f]
	return ok
}

// Strings returns the field names sorted, for storage.
func (s FieldSet) Strings() []string {
	out := make([]string, 0, len(s))
	for f := range s {
		out = append(out, string(f))
	}
	sort.Strings(out)

	return out
}

// SyncMeta holds the provenance columns shared by every synchronizable entity.
type SyncMeta struct {
	IDAtProviders              string
	LastProviderID             int64
	DateModifiedAtLastProvider time.Time
	FieldsUpdated              FieldSet
}

// IsStale reports whether an incoming modification date must be ignored.
// A zero stored date never makes the incoming record stale.
func (m *SyncMeta) IsStale(incoming time.Time) bool {
	if m.DateModifiedAtLastProvider.IsZero() {
		return false
	}

	return !incoming.After(m.DateModifiedAtLastProvider)
}

// Pinned reports whether f was manually overridden.
func (m *SyncMeta) Pinned(f Field) bool {
	return m.FieldsUpdated.Has(f)
}

// Entity is the capability set every synchronizable target exposes.
type Entity interface {
	Kind() EntityKind
	// LocalID is zero until the entity has been persisted.
	LocalID() int64
	Meta() *SyncMeta
	// Clone returns a deep enough copy to restore pinned attributes from.
	Clone() Entity
	// RestorePinned copies back from previous every attribute pinned in
	// previous.Meta().FieldsUpdated, and the pin set itself.
	RestorePinned(previous Entity)
}

// NewEntity builds an empty shell for kind, addressed by externalID.
func NewEntity(kind EntityKind, externalID string) Entity {
	meta := SyncMeta{IDAtProviders: externalID, FieldsUpdated: FieldSet{}}

	switch kind {
	case KindProduct:
		return &Product{SyncMeta: meta, ExtraData: map[string]any{}}
	case KindOffer:
		return &Offer{SyncMeta: meta, ExtraData: map[string]any{}, IsActive: true}
	case KindStock:
		return &Stock{SyncMeta: meta}
	case KindBankInformation:
		return &BankInformation{SyncMeta: meta}
	default:
		return nil
	}
}

func cloneFieldSet(s FieldSet) FieldSet {
	out := make(FieldSet, len(s))
	for f := range s {
		out[f] = struct{}{}
	}

	return out
}

func cloneExtraData(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}
