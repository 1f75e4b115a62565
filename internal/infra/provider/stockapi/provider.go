package stockapi

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"time"

	"provider-sync-service/internal/domain"
)

// DefaultPageSize is the number of stock lines requested per page.
const DefaultPageSize = 1000

// stockSource is the part of Client the provider depends on.
type stockSource interface {
	Stocks(ctx context.Context, req PageRequest) (*Response, error)
}

// ProductFinder looks up catalog products by ISBN.
type ProductFinder interface {
	FindProductByExternalID(ctx context.Context, externalID string) (*domain.Product, error)
}

// Options configures a stock provider run.
type Options struct {
	PageSize int
	Now      func() time.Time
}

// stockRecord is the state record of one stock line.
type stockRecord struct {
	line    StockLine
	product *domain.Product
}

// Provider yields one offer and one stock per known ISBN of a venue.
type Provider struct {
	name          domain.ProviderName
	source        stockSource
	products      ProductFinder
	venue         *domain.Venue
	modifiedSince *time.Time
	pageSize      int
	now           func() time.Time

	buffer  []StockLine
	after   string
	hasNext bool
	page    int
}

// New binds a stock provider to the venue provider of rc.
func New(name domain.ProviderName, source stockSource, products ProductFinder, rc domain.RunContext, opts Options) (*Provider, error) {
	if rc.Venue == nil || rc.VenueProvider == nil {
		return nil, errors.New(string(name) + " requires a venue provider scope")
	}
	if rc.Venue.Siret == "" {
		return nil, &domain.BusinessRuleError{Rule: "siret", Message: "stock providers need a venue with a SIRET"}
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Provider{
		name:          name,
		source:        source,
		products:      products,
		venue:         rc.Venue,
		modifiedSince: rc.VenueProvider.LastSyncDate,
		pageSize:      opts.PageSize,
		now:           opts.Now,
		hasNext:       true,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() domain.ProviderName {
	return p.name
}

// Next yields the offer and stock of the next stock line.
func (p *Provider) Next(ctx context.Context, _ *domain.SyncState) (domain.Batch, error) {
	if len(p.buffer) == 0 {
		if !p.hasNext {
			return domain.Done(), nil
		}
		resp, err := p.source.Stocks(ctx, PageRequest{
			Siret:         p.venue.Siret,
			After:         p.after,
			ModifiedSince: p.modifiedSince,
			Limit:         p.pageSize,
		})
		if err != nil {
			return domain.Batch{}, err
		}
		p.page++
		p.buffer = resp.Stocks
		p.hasNext = len(resp.Stocks) >= p.pageSize
		if len(p.buffer) == 0 {
			return domain.Done(), nil
		}
		p.after = p.buffer[len(p.buffer)-1].Ref
	}

	line := p.buffer[0]
	p.buffer = p.buffer[1:]
	part := "page " + strconv.Itoa(p.page)

	if line.Ref == "" {
		return domain.Failed("stock line without reference", nil, false).WithPart(part), nil
	}

	product, err := p.products.FindProductByExternalID(ctx, line.Ref)
	if err != nil {
		return domain.Failed("looking up product "+line.Ref, err, false).WithPart(part), nil
	}
	if product == nil {
		return domain.Skip("unknown product " + line.Ref).WithPart(part), nil
	}

	extID := p.externalID(line.Ref)
	modified := p.now()

	return domain.Items(&stockRecord{line: line, product: product},
		domain.NewProvidableInfo(domain.KindOffer, extID, modified),
		domain.NewProvidableInfo(domain.KindStock, extID, modified),
	).WithPart(part), nil
}

func (p *Provider) externalID(ref string) string {
	return ref + "@" + p.venue.Siret
}

// Fill maps the current stock line onto its offer or stock.
func (p *Provider) Fill(_ context.Context, state *domain.SyncState, entity domain.Entity) error {
	record, ok := state.Record.(*stockRecord)
	if !ok {
		return fmt.Errorf("unexpected stock record %T", state.Record)
	}

	switch e := entity.(type) {
	case *domain.Offer:
		product := record.product
		e.ProductID = product.ID
		e.VenueID = p.venue.ID
		e.Name = product.Name
		e.Type = product.Type
		e.Description = product.Description
		e.DurationMinutes = product.DurationMinutes
		e.ExtraData = maps.Clone(product.ExtraData)
		e.BookingEmail = p.venue.BookingEmail
		e.WithdrawalDetails = p.venue.WithdrawalDetails
		e.IsActive = record.line.Available > 0
		return nil

	case *domain.Stock:
		extID := p.externalID(record.line.Ref)
		offerID, ok := state.ResolvedID(domain.KindOffer, extID)
		if !ok {
			return &domain.NotFoundError{Entity: "offer", Key: extID}
		}
		if record.line.Price < 0 {
			return &domain.BusinessRuleError{Rule: "price", Message: "negative price for " + record.line.Ref}
		}
		quantity := record.line.Available
		if quantity < 0 {
			quantity = 0
		}
		e.OfferID = offerID
		e.Price = record.line.Price
		e.Quantity = &quantity
		return nil

	default:
		return fmt.Errorf("%s cannot fill %s", p.name, entity.Kind())
	}
}
