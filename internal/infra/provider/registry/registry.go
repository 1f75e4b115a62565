// Package registry maps provider names to their constructors.
package registry

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"provider-sync-service/internal/config"
	"provider-sync-service/internal/domain"
	"provider-sync-service/internal/infra/provider"
	"provider-sync-service/internal/infra/provider/allocine"
	"provider-sync-service/internal/infra/provider/demarches"
	"provider-sync-service/internal/infra/provider/stockapi"
)

// Constructor builds a provider bound to a run context.
type Constructor func(ctx context.Context, rc domain.RunContext) (domain.LocalProvider, error)

// Registry is an immutable name to constructor map.
type Registry struct {
	constructors map[domain.ProviderName]Constructor
}

// New copies constructors into a registry.
func New(constructors map[domain.ProviderName]Constructor) *Registry {
	m := make(map[domain.ProviderName]Constructor, len(constructors))
	for name, c := range constructors {
		m[name] = c
	}
	return &Registry{constructors: m}
}

// Build implements domain.ProviderFactory.
func (r *Registry) Build(ctx context.Context, name domain.ProviderName, rc domain.RunContext) (domain.LocalProvider, error) {
	c, ok := r.constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, name)
	}
	return c(ctx, rc)
}

// Names returns the registered names in declaration order.
func (r *Registry) Names() []domain.ProviderName {
	names := make([]domain.ProviderName, 0, len(r.constructors))
	for _, name := range domain.ProviderNames {
		if _, ok := r.constructors[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Stores is what constructors read from the local database.
type Stores struct {
	Catalog    domain.CatalogRepository
	References domain.ReferenceRepository
}

// NewProviders creates all provider clients from configuration and registers
// the six provider constructors.
func NewProviders(cfg config.ProviderConfig, stores Stores, logger *zap.Logger) *Registry {
	allocineClient := allocine.NewClient(ClientConfig(cfg.Allocine), logger)
	dsClient := demarches.NewClient(ClientConfig(cfg.Demarches.ProviderEndpoint), logger)
	titeLiveClient := stockapi.NewClient("titelive", ClientConfig(cfg.TiteLive.ProviderEndpoint), logger)
	praxielClient := stockapi.NewClient("praxiel", ClientConfig(cfg.Praxiel.ProviderEndpoint), logger)

	accepted := acceptedStates(cfg.Demarches.AcceptedStates, logger)
	banking := func(variant bankingVariant, procedureID string) Constructor {
		return bankingConstructor(variant, dsClient, stores, procedureID, accepted)
	}

	return New(map[domain.ProviderName]Constructor{
		domain.ProviderAllocineStocks:                   allocineConstructor(allocineClient),
		domain.ProviderTiteLiveStocks:                   stockConstructor(domain.ProviderTiteLiveStocks, titeLiveClient, stores.Catalog, cfg.TiteLive.PageSize),
		domain.ProviderPraxielStocks:                    stockConstructor(domain.ProviderPraxielStocks, praxielClient, stores.Catalog, cfg.Praxiel.PageSize),
		domain.ProviderBankInformation:                  banking(demarches.NewOffererProvider, cfg.Demarches.OffererProcedureID),
		domain.ProviderVenueWithSIRETBankInformation:    banking(demarches.NewVenueWithSIRETProvider, cfg.Demarches.VenueWithSiretProcedureID),
		domain.ProviderVenueWithoutSIRETBankInformation: banking(demarches.NewVenueWithoutSIRETProvider, cfg.Demarches.VenueWithoutSiretProcedureID),
	})
}

func allocineConstructor(client *allocine.Client) Constructor {
	return func(_ context.Context, rc domain.RunContext) (domain.LocalProvider, error) {
		p, err := allocine.New(client, rc, time.Now)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

func stockConstructor(name domain.ProviderName, client *stockapi.Client, products stockapi.ProductFinder, pageSize int) Constructor {
	return func(_ context.Context, rc domain.RunContext) (domain.LocalProvider, error) {
		p, err := stockapi.New(name, client, products, rc, stockapi.Options{PageSize: pageSize})
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

type bankingVariant func(source demarches.ApplicationSource, dir demarches.Directory, rc domain.RunContext, opts demarches.Options) (*demarches.Provider, error)

func bankingConstructor(variant bankingVariant, source demarches.ApplicationSource, stores Stores, procedureID string, accepted []domain.ApplicationState) Constructor {
	return func(ctx context.Context, rc domain.RunContext) (domain.LocalProvider, error) {
		opts, err := bankingOptions(ctx, stores.Catalog, rc, procedureID, accepted)
		if err != nil {
			return nil, err
		}
		p, err := variant(source, stores.References, rc, opts)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// bankingOptions derives the incremental watermark of a procedure run from the
// bank information the provider already wrote. Application runs skip it.
func bankingOptions(ctx context.Context, catalog domain.CatalogRepository, rc domain.RunContext, procedureID string, accepted []domain.ApplicationState) (demarches.Options, error) {
	opts := demarches.Options{ProcedureID: procedureID, AcceptedStates: accepted}
	if rc.Scope.Kind != domain.ScopeProcedure || rc.Provider == nil {
		return opts, nil
	}

	last, err := catalog.LastBankInformationUpdate(ctx, rc.Provider.ID)
	if err != nil {
		return opts, fmt.Errorf("reading last bank information update: %w", err)
	}
	opts.LastUpdate = last

	return opts, nil
}

func acceptedStates(raw []string, logger *zap.Logger) []domain.ApplicationState {
	states := make([]domain.ApplicationState, 0, len(raw))
	for _, s := range raw {
		state := domain.ApplicationState(strings.ToLower(strings.TrimSpace(s)))
		if !slices.Contains(domain.AllApplicationStates, state) {
			logger.Warn("ignoring unknown accepted application state", zap.String("state", s))
			continue
		}
		states = append(states, state)
	}
	return states
}

// ClientConfig converts an endpoint section into an HTTP client configuration.
func ClientConfig(e config.ProviderEndpoint) provider.ClientConfig {
	return provider.ClientConfig{
		BaseURL: e.BaseURL,
		Token:   e.Token,
		Timeout: e.Timeout,
		Retry: provider.RetryConfig{
			MaxAttempts: e.Retry.MaxAttempts,
			WaitTime:    e.Retry.WaitTime,
			MaxWaitTime: e.Retry.MaxWaitTime,
		},
		CB: provider.CBConfig{
			MaxRequests:  e.CB.MaxRequests,
			Interval:     e.CB.Interval,
			Timeout:      e.CB.Timeout,
			FailureRatio: e.CB.FailureRatio,
		},
		Rate: provider.RateConfig{
			RequestsPerSecond: e.Rate.RequestsPerSecond,
			Burst:             e.Rate.Burst,
		},
	}
}

