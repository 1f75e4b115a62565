package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"provider-sync-service/internal/domain"
)

// ErrRunAborted wraps the error of a fatal batch returned by a provider.
var ErrRunAborted = errors.New("run aborted by provider")

// Engine drives one LocalProvider and reconciles what it yields against the catalog.
type Engine struct {
	catalog domain.CatalogRepository
	events  domain.EventLogger
	fetcher domain.ThumbnailFetcher
	thumbs  domain.ThumbnailStorage
	logger  *zap.Logger
	now     func() time.Time
}

// EngineOption configures optional Engine collaborators.
type EngineOption func(*Engine)

// WithThumbnails enables thumbnail fetching for providers implementing domain.ThumbProvider.
func WithThumbnails(fetcher domain.ThumbnailFetcher, storage domain.ThumbnailStorage) EngineOption {
	return func(e *Engine) {
		e.fetcher = fetcher
		e.thumbs = storage
	}
}

// WithClock overrides the clock used to date sync events.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a new Engine.
func NewEngine(catalog domain.CatalogRepository, events domain.EventLogger, logger *zap.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		catalog: catalog,
		events:  events,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run describes one engine pass.
type Run struct {
	Provider *domain.Provider
	Scope    domain.Scope
	// Limit stops the run once that many items were checked. Zero means no limit.
	Limit int
}

// Run pulls batches from lp until exhaustion, the limit, or a run-level failure.
// Counters are updated in place so the caller keeps partial progress on failure.
func (e *Engine) Run(ctx context.Context, lp domain.LocalProvider, run Run, counters *domain.Counters) error {
	state := domain.NewSyncState()
	log := e.logger.With(
		zap.String("provider", string(lp.Name())),
		zap.String("scope", run.Scope.Key()),
	)

	defer func() {
		if state.Part != "" {
			e.emit(context.WithoutCancel(ctx), run, domain.SyncPartEnd, state.Part)
		}
	}()

	for {
		if run.Limit > 0 && counters.Checked >= run.Limit {
			log.Info("limit reached, stopping run", zap.Int("limit", run.Limit))
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := lp.Next(ctx, state)
		if err != nil {
			return fmt.Errorf("pulling next batch: %w", err)
		}

		if batch.Part != "" && batch.Part != state.Part {
			if state.Part != "" {
				e.emit(ctx, run, domain.SyncPartEnd, state.Part)
			}
			state.Part = batch.Part
			e.emit(ctx, run, domain.SyncPartStart, state.Part)
		}

		switch batch.Kind {
		case domain.BatchDone:
			return nil

		case domain.BatchSkip:
			counters.Checked++
			log.Debug("record skipped", zap.String("reason", batch.Diagnostic))

		case domain.BatchFailed:
			counters.Record(domain.OutcomeErrored)
			if batch.Fatal {
				if batch.Err == nil {
					return fmt.Errorf("%w: %s", ErrRunAborted, batch.Diagnostic)
				}
				return fmt.Errorf("%w: %s: %w", ErrRunAborted, batch.Diagnostic, batch.Err)
			}
			e.emit(ctx, run, domain.SyncError, failurePayload(batch.Diagnostic, batch.Err))
			log.Warn("record failed", zap.String("diagnostic", batch.Diagnostic), zap.Error(batch.Err))

		case domain.BatchItems:
			state.Record = batch.Record
			for _, info := range batch.Infos {
				outcome, err := e.reconcile(ctx, lp, state, run, info, counters)
				if err != nil {
					if isRunLevel(err) {
						counters.Record(domain.OutcomeErrored)
						return fmt.Errorf("reconciling %s: %w", info, err)
					}
					e.emit(ctx, run, domain.SyncError, failurePayload(info.String(), err))
					log.Warn("item failed", zap.Stringer("item", info), zap.Error(err))
				}
				counters.Record(outcome)
			}
		}
	}
}

// reconcile applies one ProvidableInfo and reports exactly one outcome.
func (e *Engine) reconcile(
	ctx context.Context,
	lp domain.LocalProvider,
	state *domain.SyncState,
	run Run,
	info domain.ProvidableInfo,
	counters *domain.Counters,
) (domain.Outcome, error) {
	existing, err := e.catalog.FindByExternalID(ctx, info.Kind, info.ExternalID)
	if err != nil {
		return domain.OutcomeErrored, fmt.Errorf("looking up entity: %w", err)
	}

	entity := existing
	outcome := domain.OutcomeUpdated
	if entity == nil {
		entity = domain.NewEntity(info.Kind, info.ExternalID)
		if entity == nil {
			return domain.OutcomeErrored, fmt.Errorf("unsupported entity kind %q", info.Kind)
		}
		outcome = domain.OutcomeCreated
	} else {
		state.Resolve(info.Kind, info.ExternalID, entity.LocalID())
		if entity.Meta().IsStale(info.DateModifiedAtProvider) {
			return domain.OutcomeNoop, nil
		}
	}

	snapshot := entity.Clone()
	if err := lp.Fill(ctx, state, entity); err != nil {
		return domain.OutcomeErrored, err
	}
	entity.RestorePinned(snapshot)

	meta := entity.Meta()
	meta.IDAtProviders = info.ExternalID
	meta.DateModifiedAtLastProvider = info.DateModifiedAtProvider
	if run.Provider != nil {
		meta.LastProviderID = run.Provider.ID
	}

	if err := e.catalog.Persist(ctx, entity); err != nil {
		return domain.OutcomeErrored, fmt.Errorf("persisting entity: %w", err)
	}
	state.Resolve(info.Kind, info.ExternalID, entity.LocalID())

	e.handleThumb(ctx, lp, state, entity, counters)

	return outcome, nil
}

// handleThumb fetches and stores the thumbnail of a written product, if the provider has one.
// Failures only count as errored thumbs.
func (e *Engine) handleThumb(
	ctx context.Context,
	lp domain.LocalProvider,
	state *domain.SyncState,
	entity domain.Entity,
	counters *domain.Counters,
) {
	tp, ok := lp.(domain.ThumbProvider)
	if !ok || e.fetcher == nil || e.thumbs == nil {
		return
	}
	product, ok := entity.(*domain.Product)
	if !ok {
		return
	}
	url, ok := tp.ThumbURL(state, entity)
	if !ok {
		return
	}

	counters.CheckedThumbs++

	data, err := e.fetcher.FetchBinary(ctx, url)
	if err == nil {
		err = e.thumbs.Save(ctx, domain.KindProduct, product.ID, 0, data)
	}
	if err != nil {
		counters.ErroredThumbs++
		e.logger.Warn("thumbnail failed",
			zap.String("url", url),
			zap.Int64("product_id", product.ID),
			zap.Error(err),
		)
		return
	}

	if product.ThumbCount == 0 {
		counters.CreatedThumbs++
		product.ThumbCount = 1
		if err := e.catalog.Persist(ctx, product); err != nil {
			e.logger.Warn("saving thumb count failed", zap.Int64("product_id", product.ID), zap.Error(err))
		}
		return
	}
	counters.UpdatedThumbs++
}

// emit logs a sync event; a failing event sink never fails the run.
func (e *Engine) emit(ctx context.Context, run Run, typ domain.SyncEventType, payload string) {
	if e.events == nil {
		return
	}

	event := domain.SyncEvent{
		Scope:   run.Scope.Key(),
		Type:    typ,
		Payload: payload,
		Date:    e.now().UTC(),
	}
	if run.Provider != nil {
		event.Provider = run.Provider.LocalClass
	}

	if err := e.events.Log(ctx, event); err != nil {
		e.logger.Warn("failed to log sync event",
			zap.String("type", string(typ)),
			zap.Error(err),
		)
	}
}

// isRunLevel reports whether an item error must stop the whole run.
func isRunLevel(err error) bool {
	return errors.Is(err, domain.ErrProviderUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func failurePayload(diagnostic string, err error) string {
	if err == nil {
		return diagnostic
	}
	if diagnostic == "" {
		return err.Error()
	}

	return diagnostic + ": " + err.Error()
}
