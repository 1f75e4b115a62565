// Package service provides application use cases.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"provider-sync-service/internal/domain"
)

// RunObserver records finished runs (metrics).
type RunObserver interface {
	ObserveRun(report *domain.RunReport)
}

// Request asks for one provider run.
type Request struct {
	Provider domain.ProviderName
	Scope    domain.Scope
	Limit    int
}

// ProviderManager runs one concrete provider to completion for one scope,
// containing every run-level failure at its boundary.
type ProviderManager struct {
	factory  domain.ProviderFactory
	refs     domain.ReferenceRepository
	lock     domain.ScopeLock
	events   domain.EventLogger
	engine   *Engine
	observer RunObserver
	banking  []domain.ProviderName
	logger   *zap.Logger
}

// ManagerConfig holds ProviderManager settings.
type ManagerConfig struct {
	// BankingProviders are run on their whole procedure by SynchronizeAll.
	BankingProviders []domain.ProviderName
}

// NewProviderManager creates a new ProviderManager.
func NewProviderManager(
	factory domain.ProviderFactory,
	refs domain.ReferenceRepository,
	lock domain.ScopeLock,
	events domain.EventLogger,
	engine *Engine,
	observer RunObserver,
	cfg ManagerConfig,
	logger *zap.Logger,
) *ProviderManager {
	return &ProviderManager{
		factory:  factory,
		refs:     refs,
		lock:     lock,
		events:   events,
		engine:   engine,
		observer: observer,
		banking:  cfg.BankingProviders,
		logger:   logger,
	}
}

// Providers returns the names the factory can build.
func (m *ProviderManager) Providers() []domain.ProviderName {
	return m.factory.Names()
}

// Synchronize runs req.Provider on req.Scope.
//
// The returned error only reports a rejected request (unknown or inactive provider,
// invalid scope, scope already syncing). Once the run has started, failures are
// contained in RunReport.Err, SyncEnd is always emitted and the scope marker cleared.
func (m *ProviderManager) Synchronize(ctx context.Context, req Request) (*domain.RunReport, error) {
	rc, err := m.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	report := &domain.RunReport{
		Provider: req.Provider,
		Scope:    req.Scope,
		WorkerID: uuid.NewString(),
		Started:  time.Now().UTC(),
	}
	scopeKey := req.Scope.Key()
	log := m.logger.With(
		zap.String("provider", string(req.Provider)),
		zap.String("scope", scopeKey),
		zap.String("worker_id", report.WorkerID),
	)

	if err := m.lock.MarkSyncing(ctx, scopeKey, report.WorkerID); err != nil {
		return nil, fmt.Errorf("marking scope %s: %w", scopeKey, err)
	}
	defer func() {
		// The marker must be cleared even when ctx was cancelled mid-run.
		if err := m.lock.ClearSyncing(context.WithoutCancel(ctx), scopeKey); err != nil {
			log.Error("failed to clear syncing marker", zap.Error(err))
		}
	}()

	m.emit(ctx, req, domain.SyncStart, "worker_id="+report.WorkerID)
	log.Info("provider run started", zap.Int("limit", req.Limit))

	report.Err = m.run(ctx, rc, req, &report.Counters)
	report.Duration = time.Since(report.Started)

	// Closing events are logged even when ctx ended the run.
	closeCtx := context.WithoutCancel(ctx)
	endPayload := report.Counters.String()
	if report.Err != nil {
		m.emit(closeCtx, req, domain.SyncError, errorPayload(report.Err))
		endPayload += " error=" + report.Err.Error()
		log.Error("provider run failed", zap.Error(report.Err), zap.Stringer("counters", report.Counters))
	} else {
		log.Info("provider run completed",
			zap.Stringer("counters", report.Counters),
			zap.Duration("duration", report.Duration),
		)
	}
	m.emit(closeCtx, req, domain.SyncEnd, endPayload)

	if m.observer != nil {
		m.observer.ObserveRun(report)
	}

	return report, nil
}

// SynchronizeVenueProvider runs the provider linked to a venue provider and stamps
// its last sync date when the run succeeded.
func (m *ProviderManager) SynchronizeVenueProvider(ctx context.Context, venueProviderID int64, limit int) (*domain.RunReport, error) {
	vp, err := m.refs.GetVenueProvider(ctx, venueProviderID)
	if err != nil {
		return nil, fmt.Errorf("loading venue provider %d: %w", venueProviderID, err)
	}
	if !vp.IsActive {
		return nil, fmt.Errorf("venue provider %d: %w", venueProviderID, domain.ErrProviderInactive)
	}

	provider, err := m.refs.GetProvider(ctx, vp.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("loading provider %d: %w", vp.ProviderID, err)
	}

	report, err := m.Synchronize(ctx, Request{
		Provider: provider.LocalClass,
		Scope:    domain.VenueProviderScope(vp.ID),
		Limit:    limit,
	})
	if err != nil {
		return nil, err
	}

	if report.Succeeded() {
		if err := m.refs.MarkVenueProviderSynced(context.WithoutCancel(ctx), vp.ID, report.Started); err != nil {
			m.logger.Error("failed to stamp last sync date",
				zap.Int64("venue_provider_id", vp.ID),
				zap.Error(err),
			)
		}
	}

	return report, nil
}

// SynchronizeAll runs every active venue provider, then every configured banking
// provider on its whole procedure. Runs are sequential; a rejected or failed run
// does not stop the others.
func (m *ProviderManager) SynchronizeAll(ctx context.Context) []*domain.RunReport {
	var reports []*domain.RunReport

	venueProviders, err := m.refs.ListActiveVenueProviders(ctx)
	if err != nil {
		m.logger.Error("failed to list venue providers", zap.Error(err))
	}

	for _, vp := range venueProviders {
		if ctx.Err() != nil {
			return reports
		}
		report, err := m.SynchronizeVenueProvider(ctx, vp.ID, 0)
		if err != nil {
			m.logger.Warn("venue provider run rejected",
				zap.Int64("venue_provider_id", vp.ID),
				zap.Error(err),
			)
			continue
		}
		reports = append(reports, report)
	}

	for _, name := range m.banking {
		if ctx.Err() != nil {
			return reports
		}
		report, err := m.Synchronize(ctx, Request{Provider: name, Scope: domain.ProcedureScope()})
		if err != nil {
			m.logger.Warn("banking run rejected",
				zap.String("provider", string(name)),
				zap.Error(err),
			)
			continue
		}
		reports = append(reports, report)
	}

	return reports
}

// prepare resolves the provider record and the entities the scope points at.
func (m *ProviderManager) prepare(ctx context.Context, req Request) (domain.RunContext, error) {
	var rc domain.RunContext

	if !req.Provider.IsValid() {
		return rc, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, req.Provider)
	}

	provider, err := m.refs.GetProviderByLocalClass(ctx, req.Provider)
	if err != nil {
		return rc, fmt.Errorf("loading provider %s: %w", req.Provider, err)
	}
	if !provider.IsActive {
		return rc, fmt.Errorf("%s: %w", req.Provider, domain.ErrProviderInactive)
	}
	rc.Provider = provider
	rc.Scope = req.Scope

	switch req.Scope.Kind {
	case domain.ScopeVenueProvider:
		if req.Provider.IsBanking() {
			return rc, &domain.BusinessRuleError{Rule: "scope", Message: "banking providers run on applications or procedures"}
		}
		vp, err := m.refs.GetVenueProvider(ctx, req.Scope.VenueProviderID)
		if err != nil {
			return rc, fmt.Errorf("loading venue provider %d: %w", req.Scope.VenueProviderID, err)
		}
		if vp.ProviderID != provider.ID {
			return rc, &domain.BusinessRuleError{
				Rule:    "scope",
				Message: fmt.Sprintf("venue provider %d is not linked to %s", vp.ID, req.Provider),
			}
		}
		venue, err := m.refs.GetVenue(ctx, vp.VenueID)
		if err != nil {
			return rc, fmt.Errorf("loading venue %d: %w", vp.VenueID, err)
		}
		rc.VenueProvider = vp
		rc.Venue = venue

	case domain.ScopeApplication, domain.ScopeProcedure:
		if !req.Provider.IsBanking() {
			return rc, &domain.BusinessRuleError{Rule: "scope", Message: "catalog providers run on venue providers"}
		}

	default:
		return rc, &domain.BusinessRuleError{Rule: "scope", Message: fmt.Sprintf("unknown scope kind %q", req.Scope.Kind)}
	}

	return rc, nil
}

// run builds the provider and drives it, turning panics into errors.
func (m *ProviderManager) run(ctx context.Context, rc domain.RunContext, req Request, counters *domain.Counters) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	lp, err := m.factory.Build(ctx, req.Provider, rc)
	if err != nil {
		return fmt.Errorf("building provider: %w", err)
	}

	return m.engine.Run(ctx, lp, Run{Provider: rc.Provider, Scope: req.Scope, Limit: req.Limit}, counters)
}

func (m *ProviderManager) emit(ctx context.Context, req Request, typ domain.SyncEventType, payload string) {
	if m.events == nil {
		return
	}

	err := m.events.Log(ctx, domain.SyncEvent{
		Provider: req.Provider,
		Scope:    req.Scope.Key(),
		Type:     typ,
		Payload:  payload,
		Date:     time.Now().UTC(),
	})
	if err != nil {
		m.logger.Warn("failed to log sync event",
			zap.String("type", string(typ)),
			zap.Error(err),
		)
	}
}

// PanicError is a provider panic recovered at the run boundary.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("provider panicked: %v", e.Value)
}

func errorPayload(err error) string {
	var p *PanicError
	if errors.As(err, &p) {
		return p.Error() + "\n" + string(p.Stack)
	}

	return err.Error()
}
