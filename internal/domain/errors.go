package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderUnavailable is wrapped by data sources when the upstream call fails.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrScopeAlreadySyncing is returned when another run holds the scope marker.
	ErrScopeAlreadySyncing = errors.New("scope is already syncing")

	// ErrUnknownProvider is returned when no constructor is registered for a name.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrProviderInactive is returned when the provider or venue provider is disabled.
	ErrProviderInactive = errors.New("provider is inactive")
)

// BusinessRuleError aborts the processing of a single item.
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s: %s", e.Rule, e.Message)
}

// ScopeSyncingError is ErrScopeAlreadySyncing with the worker holding the scope.
// Holder is empty when it could not be read.
type ScopeSyncingError struct {
	Scope  string
	Holder string
}

func (e *ScopeSyncingError) Error() string {
	if e.Holder == "" {
		return fmt.Sprintf("scope %s: %s", e.Scope, ErrScopeAlreadySyncing)
	}
	return fmt.Sprintf("scope %s: %s (held by worker %s)", e.Scope, ErrScopeAlreadySyncing, e.Holder)
}

func (e *ScopeSyncingError) Unwrap() error {
	return ErrScopeAlreadySyncing
}

// NotFoundError reports a missing local entity referenced by a provider record.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found for %s", e.Entity, e.Key)
}

// IsBusinessRule reports whether err is an item-level business error.
func IsBusinessRule(err error) bool {
	var b *BusinessRuleError
	return errors.As(err, &b)
}

// IsNotFound reports whether err is a referential error.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
