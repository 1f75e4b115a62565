package demarches

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"provider-sync-service/internal/domain"
)

// ApplicationSource is the part of Client the providers depend on.
type ApplicationSource interface {
	ApplicationsPage(ctx context.Context, procedureID string, page int) (*ListResponse, error)
	Application(ctx context.Context, procedureID string, id int64) (*Application, error)
}

// Directory finds the offerers and venues banking details attach to.
type Directory interface {
	GetVenue(ctx context.Context, id int64) (*domain.Venue, error)
	FindVenueBySiret(ctx context.Context, siret string) (*domain.Venue, error)
	FindOffererBySiren(ctx context.Context, siren string) (*domain.Offerer, error)
}

// Target is the offerer or venue an application resolves to.
type Target struct {
	OffererID *int64
	VenueID   *int64
}

// resolver maps an application to its target; it is what distinguishes the variants.
type resolver func(ctx context.Context, dir Directory, app *Application) (Target, error)

// Options configures a bank information provider run.
type Options struct {
	ProcedureID    string
	AcceptedStates []domain.ApplicationState
	// LastUpdate skips applications updated before it. Nil keeps everything.
	LastUpdate *time.Time
}

// applicationRecord is the state record of one application.
type applicationRecord struct {
	app    *Application
	target Target
}

// Provider yields one BankInformation per application of a procedure.
type Provider struct {
	name    domain.ProviderName
	source  ApplicationSource
	dir     Directory
	resolve resolver
	opts    Options
	scope   domain.Scope

	ids    []int64
	listed bool
}

func newProvider(name domain.ProviderName, resolve resolver, source ApplicationSource, dir Directory, rc domain.RunContext, opts Options) (*Provider, error) {
	if opts.ProcedureID == "" {
		return nil, errors.New(string(name) + " requires a procedure id")
	}
	if len(opts.AcceptedStates) == 0 {
		opts.AcceptedStates = domain.AllApplicationStates
	}

	return &Provider{
		name:    name,
		source:  source,
		dir:     dir,
		resolve: resolve,
		opts:    opts,
		scope:   rc.Scope,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() domain.ProviderName {
	return p.name
}

// Next yields the applications one by one, in ascending update order.
func (p *Provider) Next(ctx context.Context, _ *domain.SyncState) (domain.Batch, error) {
	if !p.listed {
		ids, err := p.applicationIDs(ctx)
		if err != nil {
			return domain.Batch{}, err
		}
		p.ids = ids
		p.listed = true
	}

	if len(p.ids) == 0 {
		return domain.Done(), nil
	}
	id := p.ids[0]
	p.ids = p.ids[1:]

	app, err := p.source.Application(ctx, p.opts.ProcedureID, id)
	if err != nil {
		return domain.Batch{}, err
	}

	diagnostic := "application " + strconv.FormatInt(id, 10)
	if _, err := domain.StatusFromApplicationState(app.State); err != nil {
		return domain.Failed(diagnostic, err, false), nil
	}

	target, err := p.resolve(ctx, p.dir, app)
	if err != nil {
		// An orphan bank information is meaningless: referential errors stop the run.
		return domain.Failed(diagnostic, err, true), nil
	}

	info := domain.NewProvidableInfo(domain.KindBankInformation, strconv.FormatInt(app.ID, 10), app.UpdatedAt)

	return domain.Items(&applicationRecord{app: app, target: target}, info), nil
}

// applicationIDs lists the ids to process, sorted by ascending update date.
// The whole surviving set is sorted before emission so that the watermark
// recorded after an interrupted run never skips an older application.
func (p *Provider) applicationIDs(ctx context.Context) ([]int64, error) {
	if p.scope.Kind == domain.ScopeApplication {
		return []int64{p.scope.ApplicationID}, nil
	}

	accepted := make(map[domain.ApplicationState]bool, len(p.opts.AcceptedStates))
	for _, s := range p.opts.AcceptedStates {
		accepted[s] = true
	}

	var kept []ApplicationSummary
	for page := 1; ; page++ {
		resp, err := p.source.ApplicationsPage(ctx, p.opts.ProcedureID, page)
		if err != nil {
			return nil, err
		}
		for _, app := range resp.Dossiers {
			if !accepted[app.State] {
				continue
			}
			if p.opts.LastUpdate != nil && app.UpdatedAt.Before(*p.opts.LastUpdate) {
				continue
			}
			kept = append(kept, app)
		}
		if page >= resp.Pagination.NumberOfPages {
			break
		}
	}

	return sortByUpdate(kept), nil
}

func sortByUpdate(apps []ApplicationSummary) []int64 {
	sort.SliceStable(apps, func(i, j int) bool {
		return apps[i].UpdatedAt.Before(apps[j].UpdatedAt)
	})

	ids := make([]int64, len(apps))
	for i, app := range apps {
		ids[i] = app.ID
	}
	return ids
}

// Fill maps the current application onto a bank information.
func (p *Provider) Fill(_ context.Context, state *domain.SyncState, entity domain.Entity) error {
	record, ok := state.Record.(*applicationRecord)
	if !ok {
		return fmt.Errorf("unexpected demarches record %T", state.Record)
	}
	info, ok := entity.(*domain.BankInformation)
	if !ok {
		return fmt.Errorf("%s cannot fill %s", p.name, entity.Kind())
	}

	status, err := domain.StatusFromApplicationState(record.app.State)
	if err != nil {
		return err
	}

	info.ApplicationID = record.app.ID
	info.OffererID = record.target.OffererID
	info.VenueID = record.target.VenueID
	info.Status = status
	if status == domain.BankInformationAccepted {
		info.IBAN = domain.FormatIBANOrBIC(record.app.Field(LabelIBAN))
		info.BIC = domain.FormatIBANOrBIC(record.app.Field(LabelBIC))
	} else {
		info.IBAN = nil
		info.BIC = nil
	}

	return nil
}

// NewOffererProvider builds the offerer-level provider: the applicant picks whether
// the details cover the whole SIREN or one SIRET.
func NewOffererProvider(source ApplicationSource, dir Directory, rc domain.RunContext, opts Options) (*Provider, error) {
	return newProvider(domain.ProviderBankInformation, resolveByAffiliation, source, dir, rc, opts)
}

// NewVenueWithSIRETProvider builds the provider of venues identified by their SIRET.
func NewVenueWithSIRETProvider(source ApplicationSource, dir Directory, rc domain.RunContext, opts Options) (*Provider, error) {
	return newProvider(domain.ProviderVenueWithSIRETBankInformation, resolveBySiret, source, dir, rc, opts)
}

// NewVenueWithoutSIRETProvider builds the provider of venues identified by their id.
func NewVenueWithoutSIRETProvider(source ApplicationSource, dir Directory, rc domain.RunContext, opts Options) (*Provider, error) {
	return newProvider(domain.ProviderVenueWithoutSIRETBankInformation, resolveByVenueID, source, dir, rc, opts)
}

func resolveByAffiliation(ctx context.Context, dir Directory, app *Application) (Target, error) {
	switch ParseAffiliation(app.Field(LabelAffiliation)) {
	case AffiliationOfferer:
		siren := strings.TrimSpace(app.Entreprise.Siren)
		offerer, err := dir.FindOffererBySiren(ctx, siren)
		if err != nil {
			return Target{}, err
		}
		if offerer == nil {
			return Target{}, &domain.NotFoundError{Entity: "offerer", Key: "siren " + siren}
		}
		return Target{OffererID: &offerer.ID}, nil

	case AffiliationVenue:
		return resolveBySiret(ctx, dir, app)

	default:
		return Target{}, &domain.BusinessRuleError{
			Rule:    "affiliation",
			Message: fmt.Sprintf("unknown affiliation choice %q", app.Field(LabelAffiliation)),
		}
	}
}

func resolveBySiret(ctx context.Context, dir Directory, app *Application) (Target, error) {
	siret := strings.TrimSpace(app.Etablissement.Siret)
	if siret == "" {
		siret = strings.Join(strings.Fields(app.Field(LabelSiret)), "")
	}
	venue, err := dir.FindVenueBySiret(ctx, siret)
	if err != nil {
		return Target{}, err
	}
	if venue == nil {
		return Target{}, &domain.NotFoundError{Entity: "venue", Key: "siret " + siret}
	}
	return Target{VenueID: &venue.ID}, nil
}

func resolveByVenueID(ctx context.Context, dir Directory, app *Application) (Target, error) {
	raw := strings.TrimSpace(app.Field(LabelVenueID))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Target{}, &domain.NotFoundError{Entity: "venue", Key: "id " + raw}
	}
	venue, err := dir.GetVenue(ctx, id)
	if err != nil {
		return Target{}, err
	}
	if venue == nil {
		return Target{}, &domain.NotFoundError{Entity: "venue", Key: "id " + raw}
	}
	return Target{VenueID: &venue.ID}, nil
}
