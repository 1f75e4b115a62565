package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"provider-sync-service/internal/domain"
)

// memCatalog is an in-memory CatalogRepository storing copies of entities.
type memCatalog struct {
	mu       sync.Mutex
	entities map[domain.EntityKind]map[string]domain.Entity
	nextID   int64
	persists int
	failOn   string
}

func newMemCatalog() *memCatalog {
	return &memCatalog{entities: make(map[domain.EntityKind]map[string]domain.Entity)}
}

func (c *memCatalog) FindByExternalID(_ context.Context, kind domain.EntityKind, externalID string) (domain.Entity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entities[kind][externalID]
	if !ok {
		return nil, nil
	}
	return e.Clone(), nil
}

func (c *memCatalog) Persist(_ context.Context, entity domain.Entity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	extID := entity.Meta().IDAtProviders
	if extID == c.failOn {
		return errors.New("database is read-only")
	}

	if entity.LocalID() == 0 {
		c.nextID++
		switch e := entity.(type) {
		case *domain.Product:
			e.ID = c.nextID
		case *domain.Offer:
			e.ID = c.nextID
		case *domain.Stock:
			e.ID = c.nextID
		case *domain.BankInformation:
			e.ID = c.nextID
		}
	}

	if c.entities[entity.Kind()] == nil {
		c.entities[entity.Kind()] = make(map[string]domain.Entity)
	}
	c.entities[entity.Kind()][extID] = entity.Clone()
	c.persists++

	return nil
}

func (c *memCatalog) FindProductByExternalID(ctx context.Context, externalID string) (*domain.Product, error) {
	e, err := c.FindByExternalID(ctx, domain.KindProduct, externalID)
	if err != nil || e == nil {
		return nil, err
	}
	return e.(*domain.Product), nil
}

func (c *memCatalog) LastBankInformationUpdate(_ context.Context, providerID int64) (*time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var last *time.Time
	for _, e := range c.entities[domain.KindBankInformation] {
		meta := e.Meta()
		if meta.LastProviderID != providerID {
			continue
		}
		if last == nil || meta.DateModifiedAtLastProvider.After(*last) {
			d := meta.DateModifiedAtLastProvider
			last = &d
		}
	}
	return last, nil
}

func (c *memCatalog) get(kind domain.EntityKind, externalID string) domain.Entity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entities[kind][externalID]
}

// recordingEvents keeps every logged event. With refuseDone set it rejects
// events logged on a done context, as the database and broker sinks do.
type recordingEvents struct {
	mu         sync.Mutex
	events     []domain.SyncEvent
	refuseDone bool
}

func (r *recordingEvents) Log(ctx context.Context, event domain.SyncEvent) error {
	if r.refuseDone && ctx.Err() != nil {
		return ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEvents) types() []domain.SyncEventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.SyncEventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recordingEvents) count(typ domain.SyncEventType) int {
	n := 0
	for _, t := range r.types() {
		if t == typ {
			n++
		}
	}
	return n
}

// step is one scripted answer of scriptedProvider.Next.
type step struct {
	batch domain.Batch
	err   error
	panic any
}

// scriptedProvider replays steps, then reports Done.
type scriptedProvider struct {
	name  domain.ProviderName
	steps []step
	pos   int
	fill  func(state *domain.SyncState, entity domain.Entity) error
	thumb func(entity domain.Entity) (string, bool)
}

func (p *scriptedProvider) Name() domain.ProviderName { return p.name }

func (p *scriptedProvider) Next(_ context.Context, _ *domain.SyncState) (domain.Batch, error) {
	if p.pos >= len(p.steps) {
		return domain.Done(), nil
	}
	s := p.steps[p.pos]
	p.pos++
	if s.panic != nil {
		panic(s.panic)
	}
	return s.batch, s.err
}

func (p *scriptedProvider) Fill(_ context.Context, state *domain.SyncState, entity domain.Entity) error {
	if p.fill == nil {
		return nil
	}
	return p.fill(state, entity)
}

// thumbProvider adds ThumbURL to scriptedProvider.
type thumbProvider struct {
	*scriptedProvider
}

func (p thumbProvider) ThumbURL(_ *domain.SyncState, entity domain.Entity) (string, bool) {
	return p.thumb(entity)
}

type fakeFetcher struct {
	fail map[string]bool
}

func (f fakeFetcher) FetchBinary(_ context.Context, url string) ([]byte, error) {
	if f.fail[url] {
		return nil, errors.New("404 not found")
	}
	return []byte("img:" + url), nil
}

type memThumbs struct {
	saved map[int64][]byte
}

func (m *memThumbs) Save(_ context.Context, _ domain.EntityKind, id int64, _ int, data []byte) error {
	if m.saved == nil {
		m.saved = make(map[int64][]byte)
	}
	m.saved[id] = data
	return nil
}

// memLock is an in-memory ScopeLock.
type memLock struct {
	mu      sync.Mutex
	holders map[string]string
	cleared []string
}

func newMemLock() *memLock {
	return &memLock{holders: make(map[string]string)}
}

func (l *memLock) MarkSyncing(_ context.Context, scopeKey, workerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.holders[scopeKey]; held {
		return domain.ErrScopeAlreadySyncing
	}
	l.holders[scopeKey] = workerID
	return nil
}

func (l *memLock) ClearSyncing(_ context.Context, scopeKey string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.holders, scopeKey)
	l.cleared = append(l.cleared, scopeKey)
	return nil
}

func (l *memLock) held(scopeKey string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.holders[scopeKey]
	return ok
}

// memRefs is an in-memory ReferenceRepository.
type memRefs struct {
	providers      map[int64]*domain.Provider
	venueProviders map[int64]*domain.VenueProvider
	venues         map[int64]*domain.Venue
	offerers       map[int64]*domain.Offerer
	synced         map[int64]time.Time
}

func newMemRefs() *memRefs {
	return &memRefs{
		providers:      make(map[int64]*domain.Provider),
		venueProviders: make(map[int64]*domain.VenueProvider),
		venues:         make(map[int64]*domain.Venue),
		offerers:       make(map[int64]*domain.Offerer),
		synced:         make(map[int64]time.Time),
	}
}

func (r *memRefs) GetProvider(_ context.Context, id int64) (*domain.Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "provider", Key: "id"}
	}
	return p, nil
}

func (r *memRefs) GetProviderByLocalClass(_ context.Context, name domain.ProviderName) (*domain.Provider, error) {
	for _, p := range r.providers {
		if p.LocalClass == name {
			return p, nil
		}
	}
	return nil, &domain.NotFoundError{Entity: "provider", Key: string(name)}
}

func (r *memRefs) ListProviders(_ context.Context) ([]*domain.Provider, error) {
	out := make([]*domain.Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	return out, nil
}

func (r *memRefs) GetVenueProvider(_ context.Context, id int64) (*domain.VenueProvider, error) {
	vp, ok := r.venueProviders[id]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "venue provider", Key: "id"}
	}
	return vp, nil
}

func (r *memRefs) ListActiveVenueProviders(_ context.Context) ([]*domain.VenueProvider, error) {
	var out []*domain.VenueProvider
	for _, vp := range r.venueProviders {
		if vp.IsActive {
			out = append(out, vp)
		}
	}
	return out, nil
}

func (r *memRefs) MarkVenueProviderSynced(_ context.Context, id int64, at time.Time) error {
	r.synced[id] = at
	return nil
}

func (r *memRefs) GetVenue(_ context.Context, id int64) (*domain.Venue, error) {
	v, ok := r.venues[id]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "venue", Key: "id"}
	}
	return v, nil
}

func (r *memRefs) FindVenueBySiret(_ context.Context, siret string) (*domain.Venue, error) {
	for _, v := range r.venues {
		if v.Siret == siret {
			return v, nil
		}
	}
	return nil, nil
}

func (r *memRefs) GetOfferer(_ context.Context, id int64) (*domain.Offerer, error) {
	o, ok := r.offerers[id]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "offerer", Key: "id"}
	}
	return o, nil
}

func (r *memRefs) FindOffererBySiren(_ context.Context, siren string) (*domain.Offerer, error) {
	for _, o := range r.offerers {
		if o.Siren == siren {
			return o, nil
		}
	}
	return nil, nil
}

// staticFactory builds providers from a fixed map.
type staticFactory map[domain.ProviderName]func(rc domain.RunContext) (domain.LocalProvider, error)

func (f staticFactory) Build(_ context.Context, name domain.ProviderName, rc domain.RunContext) (domain.LocalProvider, error) {
	build, ok := f[name]
	if !ok {
		return nil, domain.ErrUnknownProvider
	}
	return build(rc)
}

func (f staticFactory) Names() []domain.ProviderName {
	out := make([]domain.ProviderName, 0, len(f))
	for _, name := range domain.ProviderNames {
		if _, ok := f[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

type countingObserver struct {
	reports []*domain.RunReport
}

func (o *countingObserver) ObserveRun(report *domain.RunReport) {
	o.reports = append(o.reports, report)
}
