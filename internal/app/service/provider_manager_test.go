package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"provider-sync-service/internal/domain"
)

type managerFixture struct {
	catalog  *memCatalog
	refs     *memRefs
	lock     *memLock
	events   *recordingEvents
	observer *countingObserver
	factory  staticFactory
	manager  *ProviderManager
}

func newManagerFixture(t *testing.T, banking ...domain.ProviderName) *managerFixture {
	t.Helper()

	f := &managerFixture{
		catalog:  newMemCatalog(),
		refs:     newMemRefs(),
		lock:     newMemLock(),
		events:   &recordingEvents{},
		observer: &countingObserver{},
		factory:  staticFactory{},
	}

	f.refs.providers[1] = &domain.Provider{ID: 1, Name: "TiteLive Stocks", LocalClass: domain.ProviderTiteLiveStocks, IsActive: true}
	f.refs.providers[2] = &domain.Provider{ID: 2, Name: "Démarches Simplifiées", LocalClass: domain.ProviderBankInformation, IsActive: true}
	f.refs.providers[3] = &domain.Provider{ID: 3, Name: "Praxiel", LocalClass: domain.ProviderPraxielStocks, IsActive: false}
	f.refs.venues[10] = &domain.Venue{ID: 10, Siret: "12345678900012", DepartementCode: "75"}
	f.refs.venueProviders[100] = &domain.VenueProvider{ID: 100, VenueID: 10, ProviderID: 1, IsActive: true}

	engine := NewEngine(f.catalog, f.events, zap.NewNop())
	f.manager = NewProviderManager(
		f.factory, f.refs, f.lock, f.events, engine, f.observer,
		ManagerConfig{BankingProviders: banking},
		zap.NewNop(),
	)

	return f
}

func (f *managerFixture) register(name domain.ProviderName, lp domain.LocalProvider) {
	f.factory[name] = func(domain.RunContext) (domain.LocalProvider, error) { return lp, nil }
}

// TestProviderManager_UpstreamFailureOnSecondPage tests a provider failing on page 2 of 3.
func TestProviderManager_UpstreamFailureOnSecondPage(t *testing.T) {
	f := newManagerFixture(t)
	f.register(domain.ProviderTiteLiveStocks, &scriptedProvider{
		name: domain.ProviderTiteLiveStocks,
		steps: []step{
			{batch: domain.Items(nil, stockInfo("a", date(2020, 1, 1)), stockInfo("b", date(2020, 1, 1))).WithPart("page 1")},
			{err: fmt.Errorf("fetching page 2: %w", domain.ErrProviderUnavailable)},
			{batch: domain.Items(nil, stockInfo("c", date(2020, 1, 1))).WithPart("page 3")},
		},
	})

	report, err := f.manager.Synchronize(context.Background(), Request{
		Provider: domain.ProviderTiteLiveStocks,
		Scope:    domain.VenueProviderScope(100),
	})
	require.NoError(t, err, "run failures are contained in the report")
	require.NotNil(t, report)

	assert.False(t, report.Succeeded())
	assert.ErrorIs(t, report.Err, domain.ErrProviderUnavailable)
	assert.Equal(t, 2, report.Counters.Created)
	assert.NotNil(t, f.catalog.get(domain.KindStock, "a"))
	assert.Nil(t, f.catalog.get(domain.KindStock, "c"))

	assert.Equal(t, []domain.SyncEventType{
		domain.SyncStart,
		domain.SyncPartStart,
		domain.SyncPartEnd,
		domain.SyncError,
		domain.SyncEnd,
	}, f.events.types())
	assert.Contains(t, f.events.events[3].Payload, "provider unavailable")
	assert.Contains(t, f.events.events[4].Payload, "created=2")

	assert.False(t, f.lock.held("venue_provider:100"))
	assert.Equal(t, []string{"venue_provider:100"}, f.lock.cleared)
	assert.Len(t, f.observer.reports, 1)
}

// cancellingProvider serves one page, then cancels the run context while
// fetching the next one, as a scheduler timeout would.
type cancellingProvider struct {
	cancel context.CancelFunc
	served bool
}

func (p *cancellingProvider) Name() domain.ProviderName { return domain.ProviderTiteLiveStocks }

func (p *cancellingProvider) Next(ctx context.Context, _ *domain.SyncState) (domain.Batch, error) {
	if !p.served {
		p.served = true
		return domain.Items(nil, stockInfo("a", date(2020, 1, 1))).WithPart("page 1"), nil
	}
	p.cancel()
	return domain.Batch{}, ctx.Err()
}

func (p *cancellingProvider) Fill(context.Context, *domain.SyncState, domain.Entity) error {
	return nil
}

// TestProviderManager_CancelledRunStillLogsError tests that a run ended by its
// context still records the part end, the error and the end events.
func TestProviderManager_CancelledRunStillLogsError(t *testing.T) {
	f := newManagerFixture(t)
	f.events.refuseDone = true
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.register(domain.ProviderTiteLiveStocks, &cancellingProvider{cancel: cancel})

	report, err := f.manager.Synchronize(ctx, Request{
		Provider: domain.ProviderTiteLiveStocks,
		Scope:    domain.VenueProviderScope(100),
	})
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.ErrorIs(t, report.Err, context.Canceled)
	assert.Equal(t, 1, report.Counters.Created)
	assert.Equal(t, []domain.SyncEventType{
		domain.SyncStart,
		domain.SyncPartStart,
		domain.SyncPartEnd,
		domain.SyncError,
		domain.SyncEnd,
	}, f.events.types())
	assert.Contains(t, f.events.events[3].Payload, "context canceled")
	assert.False(t, f.lock.held("venue_provider:100"))
}

// TestProviderManager_PanicIsContained tests that a provider panic still ends the run cleanly.
func TestProviderManager_PanicIsContained(t *testing.T) {
	f := newManagerFixture(t)
	f.register(domain.ProviderTiteLiveStocks, &scriptedProvider{
		steps: []step{{panic: "index out of range"}},
	})

	report, err := f.manager.Synchronize(context.Background(), Request{
		Provider: domain.ProviderTiteLiveStocks,
		Scope:    domain.VenueProviderScope(100),
	})
	require.NoError(t, err)

	var panicErr *PanicError
	require.ErrorAs(t, report.Err, &panicErr)
	assert.Equal(t, "index out of range", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)

	types := f.events.types()
	assert.Equal(t, domain.SyncEnd, types[len(types)-1])
	assert.Contains(t, f.events.events[len(types)-2].Payload, "goroutine", "traceback is attached")
	assert.False(t, f.lock.held("venue_provider:100"))
}

// TestProviderManager_BuildFailureIsContained tests constructor errors inside a started run.
func TestProviderManager_BuildFailureIsContained(t *testing.T) {
	f := newManagerFixture(t)
	f.factory[domain.ProviderTiteLiveStocks] = func(domain.RunContext) (domain.LocalProvider, error) {
		return nil, errors.New("missing api key")
	}

	report, err := f.manager.Synchronize(context.Background(), Request{
		Provider: domain.ProviderTiteLiveStocks,
		Scope:    domain.VenueProviderScope(100),
	})
	require.NoError(t, err)
	assert.ErrorContains(t, report.Err, "missing api key")
	assert.Equal(t, []domain.SyncEventType{domain.SyncStart, domain.SyncError, domain.SyncEnd}, f.events.types())
}

// TestProviderManager_RejectsConcurrentRun tests that a held scope rejects a new run before it starts.
func TestProviderManager_RejectsConcurrentRun(t *testing.T) {
	f := newManagerFixture(t)
	f.register(domain.ProviderTiteLiveStocks, &scriptedProvider{})
	require.NoError(t, f.lock.MarkSyncing(context.Background(), "venue_provider:100", "other-worker"))

	report, err := f.manager.Synchronize(context.Background(), Request{
		Provider: domain.ProviderTiteLiveStocks,
		Scope:    domain.VenueProviderScope(100),
	})
	assert.Nil(t, report)
	assert.ErrorIs(t, err, domain.ErrScopeAlreadySyncing)
	assert.Empty(t, f.events.types())
	assert.True(t, f.lock.held("venue_provider:100"), "another worker's marker must be kept")
}

// TestProviderManager_RejectsInvalidRequests tests the checks done before marking the scope.
func TestProviderManager_RejectsInvalidRequests(t *testing.T) {
	f := newManagerFixture(t)

	tests := []struct {
		name  string
		req   Request
		check func(t *testing.T, err error)
	}{
		{
			name: "unknown provider",
			req:  Request{Provider: "FnacStocks", Scope: domain.VenueProviderScope(100)},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrUnknownProvider)
			},
		},
		{
			name: "inactive provider",
			req:  Request{Provider: domain.ProviderPraxielStocks, Scope: domain.VenueProviderScope(100)},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrProviderInactive)
			},
		},
		{
			name: "banking provider on venue scope",
			req:  Request{Provider: domain.ProviderBankInformation, Scope: domain.VenueProviderScope(100)},
			check: func(t *testing.T, err error) {
				assert.True(t, domain.IsBusinessRule(err))
			},
		},
		{
			name: "catalog provider on procedure",
			req:  Request{Provider: domain.ProviderTiteLiveStocks, Scope: domain.ProcedureScope()},
			check: func(t *testing.T, err error) {
				assert.True(t, domain.IsBusinessRule(err))
			},
		},
		{
			name: "missing venue provider",
			req:  Request{Provider: domain.ProviderTiteLiveStocks, Scope: domain.VenueProviderScope(999)},
			check: func(t *testing.T, err error) {
				assert.True(t, domain.IsNotFound(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := f.manager.Synchronize(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, report)
			tt.check(t, err)
		})
	}

	assert.Empty(t, f.lock.cleared)
}

// TestProviderManager_RunContext tests what the provider constructor receives.
func TestProviderManager_RunContext(t *testing.T) {
	f := newManagerFixture(t)

	var got domain.RunContext
	f.factory[domain.ProviderTiteLiveStocks] = func(rc domain.RunContext) (domain.LocalProvider, error) {
		got = rc
		return &scriptedProvider{}, nil
	}

	_, err := f.manager.Synchronize(context.Background(), Request{
		Provider: domain.ProviderTiteLiveStocks,
		Scope:    domain.VenueProviderScope(100),
	})
	require.NoError(t, err)

	require.NotNil(t, got.Provider)
	assert.Equal(t, int64(1), got.Provider.ID)
	require.NotNil(t, got.Venue)
	assert.Equal(t, "12345678900012", got.Venue.Siret)
	assert.Equal(t, int64(100), got.VenueProvider.ID)
}

// TestProviderManager_SynchronizeVenueProvider tests the last sync date stamping.
func TestProviderManager_SynchronizeVenueProvider(t *testing.T) {
	t.Run("stamped on success", func(t *testing.T) {
		f := newManagerFixture(t)
		f.register(domain.ProviderTiteLiveStocks, &scriptedProvider{
			steps: []step{{batch: domain.Items(nil, stockInfo("a", date(2020, 1, 1)))}},
		})

		report, err := f.manager.SynchronizeVenueProvider(context.Background(), 100, 0)
		require.NoError(t, err)
		assert.True(t, report.Succeeded())
		assert.Equal(t, report.Started, f.refs.synced[100])
	})

	t.Run("not stamped on failure", func(t *testing.T) {
		f := newManagerFixture(t)
		f.register(domain.ProviderTiteLiveStocks, &scriptedProvider{
			steps: []step{{err: domain.ErrProviderUnavailable}},
		})

		report, err := f.manager.SynchronizeVenueProvider(context.Background(), 100, 0)
		require.NoError(t, err)
		assert.False(t, report.Succeeded())
		assert.NotContains(t, f.refs.synced, int64(100))
	})

	t.Run("inactive venue provider", func(t *testing.T) {
		f := newManagerFixture(t)
		f.refs.venueProviders[100].IsActive = false

		_, err := f.manager.SynchronizeVenueProvider(context.Background(), 100, 0)
		assert.ErrorIs(t, err, domain.ErrProviderInactive)
	})
}

// TestProviderManager_SynchronizeAll tests that one failing run does not stop the others.
func TestProviderManager_SynchronizeAll(t *testing.T) {
	f := newManagerFixture(t, domain.ProviderBankInformation)
	f.refs.venues[11] = &domain.Venue{ID: 11, Siret: "98765432100019"}
	f.refs.venueProviders[101] = &domain.VenueProvider{ID: 101, VenueID: 11, ProviderID: 3, IsActive: true}

	f.register(domain.ProviderTiteLiveStocks, &scriptedProvider{
		steps: []step{{err: domain.ErrProviderUnavailable}},
	})
	f.register(domain.ProviderBankInformation, &scriptedProvider{
		steps: []step{{batch: domain.Items(nil, domain.NewProvidableInfo(domain.KindBankInformation, "42", date(2020, 1, 1)))}},
	})

	reports := f.manager.SynchronizeAll(context.Background())

	// venue provider 101 uses the inactive Praxiel provider and is rejected.
	require.Len(t, reports, 2)

	byProvider := map[domain.ProviderName]*domain.RunReport{}
	for _, r := range reports {
		byProvider[r.Provider] = r
	}
	assert.False(t, byProvider[domain.ProviderTiteLiveStocks].Succeeded())
	assert.True(t, byProvider[domain.ProviderBankInformation].Succeeded())
	assert.Equal(t, 1, byProvider[domain.ProviderBankInformation].Counters.Created)
	assert.Equal(t, domain.ScopeProcedure, byProvider[domain.ProviderBankInformation].Scope.Kind)
}

// TestProviderManager_Providers tests the exposed provider names.
func TestProviderManager_Providers(t *testing.T) {
	f := newManagerFixture(t)
	f.register(domain.ProviderAllocineStocks, &scriptedProvider{})
	f.register(domain.ProviderBankInformation, &scriptedProvider{})

	assert.Equal(t, []domain.ProviderName{domain.ProviderAllocineStocks, domain.ProviderBankInformation}, f.manager.Providers())
}
