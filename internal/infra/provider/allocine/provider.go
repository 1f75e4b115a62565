package allocine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"provider-sync-service/internal/domain"
)

// showtimeSource is the part of Client the provider depends on.
type showtimeSource interface {
	MovieShowtimes(ctx context.Context, theaterID, after string) (*MovieShowtimeList, error)
}

// movieRecord is the state record of one movie: the movie and its bookable
// showtimes keyed by stock external id.
type movieRecord struct {
	movie     Movie
	movieUUID string
	showtimes map[string]Showtime
}

// Provider yields products, offers and stocks from a theater's showtimes.
type Provider struct {
	source        showtimeSource
	venue         *domain.Venue
	venueProvider *domain.VenueProvider
	loc           *time.Location
	now           func() time.Time

	buffer  []MovieShowtime
	cursor  string
	hasNext bool
	page    int
}

// New binds a provider to the venue provider of rc.
func New(source showtimeSource, rc domain.RunContext, now func() time.Time) (*Provider, error) {
	if rc.VenueProvider == nil || rc.Venue == nil {
		return nil, errors.New("allocine provider requires a venue provider scope")
	}
	if rc.VenueProvider.VenueIDAtOfferProvider == "" {
		return nil, &domain.BusinessRuleError{Rule: "theater_id", Message: "venue provider has no allocine theater id"}
	}
	if now == nil {
		now = time.Now
	}

	return &Provider{
		source:        source,
		venue:         rc.Venue,
		venueProvider: rc.VenueProvider,
		loc:           domain.DepartmentLocation(rc.Venue.DepartementCode),
		now:           now,
		hasNext:       true,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() domain.ProviderName {
	return domain.ProviderAllocineStocks
}

// Next yields one movie per call: its product, the VO/VF offers it needs and one stock per showtime.
func (p *Provider) Next(ctx context.Context, _ *domain.SyncState) (domain.Batch, error) {
	// Empty pages with a next cursor are skipped, not taken as the end of the feed.
	for len(p.buffer) == 0 {
		if !p.hasNext {
			return domain.Done(), nil
		}
		if err := ctx.Err(); err != nil {
			return domain.Batch{}, err
		}
		page, err := p.source.MovieShowtimes(ctx, p.venueProvider.VenueIDAtOfferProvider, p.cursor)
		if err != nil {
			return domain.Batch{}, err
		}
		p.page++
		p.buffer = page.Edges
		// A cursor that does not advance would request the same page forever.
		p.hasNext = page.PageInfo.HasNextPage && page.PageInfo.EndCursor != "" && page.PageInfo.EndCursor != p.cursor
		p.cursor = page.PageInfo.EndCursor
	}

	item := p.buffer[0]
	p.buffer = p.buffer[1:]
	part := "page " + strconv.Itoa(p.page)

	return p.batchFor(item).WithPart(part), nil
}

func (p *Provider) batchFor(item MovieShowtime) domain.Batch {
	movie := item.Node.Movie
	if movie.ID == "" {
		return domain.Failed("allocine movie without id", nil, false)
	}

	record := &movieRecord{
		movie:     movie,
		movieUUID: p.movieUUID(movie),
		showtimes: make(map[string]Showtime),
	}
	modified := p.now()
	versions := make(map[string]bool)
	var stocks []domain.ProvidableInfo

	for _, showtime := range item.Node.Showtimes {
		if !showtime.IsBookable() {
			continue
		}
		version, err := showtime.Version()
		if err != nil {
			return domain.Failed("allocine movie "+movie.ID, err, false)
		}
		if _, err := showtime.StartsAtLocal(); err != nil {
			return domain.Failed("allocine movie "+movie.ID, fmt.Errorf("parsing showtime: %w", err), false)
		}

		stockID := record.movieUUID + "#" + showtime.DiffusionVersion + "/" + showtime.StartsAt
		if _, seen := record.showtimes[stockID]; seen {
			continue
		}
		record.showtimes[stockID] = showtime
		versions[version] = true
		stocks = append(stocks, domain.NewProvidableInfo(domain.KindStock, stockID, modified))
	}

	if len(stocks) == 0 {
		return domain.Skip("no bookable showtime for allocine movie " + movie.ID)
	}

	infos := []domain.ProvidableInfo{domain.NewProvidableInfo(domain.KindProduct, movie.ID, modified)}
	for _, version := range []string{"VO", "VF"} {
		if versions[version] {
			infos = append(infos, domain.NewProvidableInfo(domain.KindOffer, record.movieUUID+"-"+version, modified))
		}
	}
	infos = append(infos, stocks...)

	return domain.Items(record, infos...)
}

// movieUUID identifies a movie in one venue.
func (p *Provider) movieUUID(movie Movie) string {
	key := p.venue.Siret
	if key == "" {
		key = strconv.FormatInt(p.venue.ID, 10)
	}
	return movie.ID + "%" + key
}

// Fill maps the current movie onto a product, offer or stock.
func (p *Provider) Fill(_ context.Context, state *domain.SyncState, entity domain.Entity) error {
	record, ok := state.Record.(*movieRecord)
	if !ok {
		return fmt.Errorf("unexpected allocine record %T", state.Record)
	}

	switch e := entity.(type) {
	case *domain.Product:
		p.fillProduct(record, e)
		return nil
	case *domain.Offer:
		return p.fillOffer(state, record, e)
	case *domain.Stock:
		return p.fillStock(state, record, e)
	default:
		return fmt.Errorf("allocine cannot fill %s", entity.Kind())
	}
}

func (p *Provider) fillProduct(record *movieRecord, product *domain.Product) {
	movie := record.movie
	product.Name = movie.Title
	product.Type = domain.EventTypeCinema
	product.Description = movie.Synopsis
	product.DurationMinutes = movie.RuntimeMinutes()
	product.ExtraData = movieExtraData(movie)
}

func (p *Provider) fillOffer(state *domain.SyncState, record *movieRecord, offer *domain.Offer) error {
	productID, ok := state.ResolvedID(domain.KindProduct, record.movie.ID)
	if !ok {
		return &domain.NotFoundError{Entity: "product", Key: "allocine movie " + record.movie.ID}
	}

	movie := record.movie
	offer.ProductID = productID
	offer.VenueID = p.venue.ID
	offer.Type = domain.EventTypeCinema
	offer.Name = movie.Title
	if strings.HasSuffix(offer.IDAtProviders, "-VF") {
		offer.Name = movie.Title + " - VF"
	}
	offer.Description = movie.Synopsis
	offer.DurationMinutes = movie.RuntimeMinutes()
	offer.ExtraData = movieExtraData(movie)
	offer.BookingEmail = p.venue.BookingEmail
	offer.WithdrawalDetails = p.venue.WithdrawalDetails
	offer.IsDuo = p.venueProvider.IsDuo

	return nil
}

func (p *Provider) fillStock(state *domain.SyncState, record *movieRecord, stock *domain.Stock) error {
	showtime, ok := record.showtimes[stock.IDAtProviders]
	if !ok {
		return fmt.Errorf("no showtime for stock %s", stock.IDAtProviders)
	}
	version, err := showtime.Version()
	if err != nil {
		return err
	}

	offerExtID := record.movieUUID + "-" + version
	offerID, ok := state.ResolvedID(domain.KindOffer, offerExtID)
	if !ok {
		return &domain.NotFoundError{Entity: "offer", Key: offerExtID}
	}

	local, err := showtime.StartsAtLocal()
	if err != nil {
		return fmt.Errorf("parsing showtime: %w", err)
	}
	begin := domain.LocalToUTC(local, p.loc)

	duration := time.Second
	if minutes := record.movie.RuntimeMinutes(); minutes != nil && *minutes > 0 {
		duration = time.Duration(*minutes) * time.Minute
	}
	end := begin.Add(duration)
	bookingLimit := begin

	stock.OfferID = offerID
	stock.BeginningDatetime = &begin
	stock.EndDatetime = &end
	stock.BookingLimitDatetime = &bookingLimit
	stock.Quantity = copyInt(p.venueProvider.Quantity)

	price, err := domain.ResolvePrice(p.venueProvider.PriceRules, stock, p.loc)
	if err != nil {
		return err
	}
	stock.Price = price

	return nil
}

// ThumbURL returns the poster of a movie product.
func (p *Provider) ThumbURL(state *domain.SyncState, entity domain.Entity) (string, bool) {
	record, ok := state.Record.(*movieRecord)
	if !ok || entity.Kind() != domain.KindProduct {
		return "", false
	}
	url := record.movie.PosterURL()

	return url, url != ""
}

func movieExtraData(movie Movie) map[string]any {
	extra := make(map[string]any)
	if visa := movie.Visa(); visa != "" {
		extra["visa"] = visa
	}
	if director := movie.StageDirector(); director != "" {
		extra["stageDirector"] = director
	}
	if movie.InternalID != 0 {
		extra["allocineId"] = movie.InternalID
	}
	return extra
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
