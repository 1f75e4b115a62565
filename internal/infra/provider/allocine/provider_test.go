package allocine

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"provider-sync-service/internal/domain"
	"provider-sync-service/internal/infra/provider"
)

const testEndpoint = "https://graph-api-proxy.allocine.fr/api/query/movieShowtimeList"

var fixedNow = time.Date(2019, 12, 1, 9, 0, 0, 0, time.UTC)

func newTestClient() *Client {
	cfg := provider.ClientConfig{
		BaseURL: "https://graph-api-proxy.allocine.fr/api/query",
		Token:   "token",
		Timeout: 5 * time.Second,
		CB: provider.CBConfig{
			MaxRequests:  5,
			Interval:     60 * time.Second,
			Timeout:      15 * time.Second,
			FailureRatio: 0.6,
		},
	}
	client := NewClient(cfg, zap.NewNop())

	// Activate httpmock for this client's HTTP transport
	httpmock.ActivateNonDefault(client.caller.Resty().GetClient())

	return client
}

func testRunContext() domain.RunContext {
	qty := 50
	return domain.RunContext{
		Provider: &domain.Provider{ID: 3, LocalClass: domain.ProviderAllocineStocks, IsActive: true},
		Scope:    domain.VenueProviderScope(12),
		Venue: &domain.Venue{
			ID:                41,
			Siret:             "77567146400110",
			DepartementCode:   "93",
			BookingEmail:      "toto@example.com",
			WithdrawalDetails: "Retrait au guichet",
		},
		VenueProvider: &domain.VenueProvider{
			ID:                     12,
			VenueID:                41,
			VenueIDAtOfferProvider: "P12345",
			IsActive:               true,
			IsDuo:                  true,
			Quantity:               &qty,
			PriceRules: []domain.PriceRule{
				{Kind: domain.PriceRuleWeekend, Price: 9.5},
				{Kind: domain.PriceRuleDefault, Price: 7},
			},
		},
	}
}

func movieEdge(id string, showtimes ...Showtime) MovieShowtime {
	var edge MovieShowtime
	edge.Node.Movie = Movie{
		ID:         id,
		InternalID: 37832,
		Title:      "Les Contes de la lune vague après la pluie",
		Runtime:    "PT1H50M0S",
		Synopsis:   "Kenji Mizoguchi",
		Poster:     &Poster{URL: "https://fr.web.img6.acsta.net/poster.jpg"},
	}
	edge.Node.Movie.Releases = []Release{{Name: "Released"}}
	edge.Node.Movie.Releases[0].Data.VisaNumber = "2009993528"
	edge.Node.Showtimes = showtimes
	return edge
}

func digital(version, startsAt string) Showtime {
	return Showtime{StartsAt: startsAt, DiffusionVersion: version, Projection: []string{"DIGITAL"}}
}

func page(hasNext bool, cursor string, edges ...MovieShowtime) Response {
	return Response{MovieShowtimeList: MovieShowtimeList{
		TotalCount: len(edges),
		PageInfo:   PageInfo{HasNextPage: hasNext, EndCursor: cursor},
		Edges:      edges,
	}}
}

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New(newTestClient(), testRunContext(), func() time.Time { return fixedNow })
	require.NoError(t, err)
	return p
}

func kindsAndIDs(infos []domain.ProvidableInfo) []string {
	out := make([]string, len(infos))
	for i, info := range infos {
		out[i] = info.String()
	}
	return out
}

// TestAllocine_Next_OriginalAndDubbed tests that VO and VF showtimes yield one product and two offers.
func TestAllocine_Next_OriginalAndDubbed(t *testing.T) {
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", testEndpoint,
		httpmock.NewJsonResponderOrPanic(200, page(false, "",
			movieEdge("TW92aWU6Mzc4MzI=",
				digital(VersionOriginal, "2019-12-03T10:00:00"),
				digital(VersionDubbed, "2019-12-03T18:00:00"),
			),
		)))

	p := newTestProvider(t)
	batch, err := p.Next(context.Background(), domain.NewSyncState())
	require.NoError(t, err)
	require.Equal(t, domain.BatchItems, batch.Kind)

	assert.Equal(t, []string{
		"product:TW92aWU6Mzc4MzI=",
		"offer:TW92aWU6Mzc4MzI=%77567146400110-VO",
		"offer:TW92aWU6Mzc4MzI=%77567146400110-VF",
		"stock:TW92aWU6Mzc4MzI=%77567146400110#ORIGINAL/2019-12-03T10:00:00",
		"stock:TW92aWU6Mzc4MzI=%77567146400110#DUBBED/2019-12-03T18:00:00",
	}, kindsAndIDs(batch.Infos))
	assert.Equal(t, "page 1", batch.Part)
	for _, info := range batch.Infos {
		assert.True(t, info.DateModifiedAtProvider.Equal(fixedNow))
	}

	done, err := p.Next(context.Background(), domain.NewSyncState())
	require.NoError(t, err)
	assert.Equal(t, domain.BatchDone, done.Kind)
}

// TestAllocine_Next_FiltersShowtimes tests that non digital or special experience showtimes are dropped.
func TestAllocine_Next_FiltersShowtimes(t *testing.T) {
	defer httpmock.DeactivateAndReset()

	imax := "IMAX"
	film := Showtime{StartsAt: "2019-12-03T10:00:00", DiffusionVersion: VersionLocal, Projection: []string{"NON DIGITAL"}}
	special := digital(VersionOriginal, "2019-12-03T12:00:00")
	special.Experience = &imax

	httpmock.RegisterResponder("GET", testEndpoint,
		httpmock.NewJsonResponderOrPanic(200, page(false, "",
			movieEdge("M1", film, special),
			movieEdge("M2", film, digital(VersionLocal, "2019-12-04T20:00:00")),
		)))

	p := newTestProvider(t)
	state := domain.NewSyncState()

	first, err := p.Next(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchSkip, first.Kind)

	second, err := p.Next(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"product:M2",
		"offer:M2%77567146400110-VF",
		"stock:M2%77567146400110#LOCAL/2019-12-04T20:00:00",
	}, kindsAndIDs(second.Infos))
}

// TestAllocine_Next_Pagination tests that the cursor of a page is sent for the next one.
func TestAllocine_Next_Pagination(t *testing.T) {
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", testEndpoint,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "P12345", req.URL.Query().Get("theater"))
			if req.URL.Query().Get("after") == "cursor-1" {
				return httpmock.NewJsonResponse(200, page(false, "", movieEdge("M2", digital(VersionLocal, "2019-12-04T20:00:00"))))
			}
			return httpmock.NewJsonResponse(200, page(true, "cursor-1", movieEdge("M1", digital(VersionLocal, "2019-12-04T20:00:00"))))
		})

	p := newTestProvider(t)
	state := domain.NewSyncState()

	var parts []string
	for {
		batch, err := p.Next(context.Background(), state)
		require.NoError(t, err)
		if batch.Kind == domain.BatchDone {
			break
		}
		parts = append(parts, batch.Part+" "+batch.Infos[0].ExternalID)
	}

	assert.Equal(t, []string{"page 1 M1", "page 2 M2"}, parts)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

// TestAllocine_Next_EmptyPageWithNext tests that an empty page does not end the feed.
func TestAllocine_Next_EmptyPageWithNext(t *testing.T) {
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", testEndpoint,
		func(req *http.Request) (*http.Response, error) {
			switch req.URL.Query().Get("after") {
			case "":
				return httpmock.NewJsonResponse(200, page(true, "cursor-1"))
			case "cursor-1":
				return httpmock.NewJsonResponse(200, page(true, "cursor-2", movieEdge("M2", digital(VersionLocal, "2019-12-04T20:00:00"))))
			default:
				return httpmock.NewJsonResponse(200, page(true, "cursor-2"))
			}
		})

	p := newTestProvider(t)
	state := domain.NewSyncState()

	var parts []string
	for {
		batch, err := p.Next(context.Background(), state)
		require.NoError(t, err)
		if batch.Kind == domain.BatchDone {
			break
		}
		parts = append(parts, batch.Part+" "+batch.Infos[0].ExternalID)
	}

	assert.Equal(t, []string{"page 2 M2"}, parts)
	assert.Equal(t, 3, httpmock.GetTotalCallCount(), "the repeated cursor-2 page ends the feed")
}

// TestAllocine_Next_UpstreamError tests that HTTP failures surface as ErrProviderUnavailable.
func TestAllocine_Next_UpstreamError(t *testing.T) {
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", testEndpoint, httpmock.NewStringResponder(401, "Unauthorized"))

	p := newTestProvider(t)
	_, err := p.Next(context.Background(), domain.NewSyncState())
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

// fillAll fills every info of a batch in order, resolving fake ids like the engine does.
func fillAll(t *testing.T, p *Provider, state *domain.SyncState, batch domain.Batch) map[string]domain.Entity {
	t.Helper()
	state.Record = batch.Record
	out := make(map[string]domain.Entity)
	for i, info := range batch.Infos {
		e := domain.NewEntity(info.Kind, info.ExternalID)
		require.NoError(t, p.Fill(context.Background(), state, e), info.String())
		state.Resolve(info.Kind, info.ExternalID, int64(100+i))
		out[info.ExternalID] = e
	}
	return out
}

// TestAllocine_Fill tests the mapping of products, offers and stocks.
func TestAllocine_Fill(t *testing.T) {
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", testEndpoint,
		httpmock.NewJsonResponderOrPanic(200, page(false, "",
			movieEdge("M1",
				// Tuesday 20:00 in Paris
				digital(VersionOriginal, "2019-12-03T20:00:00"),
				// Saturday 14:00 in Paris
				digital(VersionLocal, "2019-12-07T14:00:00"),
			),
		)))

	p := newTestProvider(t)
	state := domain.NewSyncState()
	batch, err := p.Next(context.Background(), state)
	require.NoError(t, err)

	entities := fillAll(t, p, state, batch)

	product := entities["M1"].(*domain.Product)
	assert.Equal(t, "Les Contes de la lune vague après la pluie", product.Name)
	assert.Equal(t, domain.EventTypeCinema, product.Type)
	require.NotNil(t, product.DurationMinutes)
	assert.Equal(t, 110, *product.DurationMinutes)
	assert.Equal(t, "2009993528", product.ExtraData["visa"])

	vo := entities["M1%77567146400110-VO"].(*domain.Offer)
	vf := entities["M1%77567146400110-VF"].(*domain.Offer)
	assert.Equal(t, int64(100), vo.ProductID)
	assert.Equal(t, "Les Contes de la lune vague après la pluie", vo.Name)
	assert.Equal(t, "Les Contes de la lune vague après la pluie - VF", vf.Name)
	assert.True(t, vo.IsDuo)
	assert.Equal(t, int64(41), vo.VenueID)
	assert.Equal(t, "toto@example.com", vo.BookingEmail)

	weekday := entities["M1%77567146400110#ORIGINAL/2019-12-03T20:00:00"].(*domain.Stock)
	assert.Equal(t, int64(101), weekday.OfferID, "VO stock belongs to the VO offer")
	assert.Equal(t, 7.0, weekday.Price)
	assert.Equal(t, time.Date(2019, 12, 3, 19, 0, 0, 0, time.UTC), *weekday.BeginningDatetime)
	assert.Equal(t, time.Date(2019, 12, 3, 20, 50, 0, 0, time.UTC), *weekday.EndDatetime)
	assert.Equal(t, *weekday.BeginningDatetime, *weekday.BookingLimitDatetime)
	require.NotNil(t, weekday.Quantity)
	assert.Equal(t, 50, *weekday.Quantity)

	weekend := entities["M1%77567146400110#LOCAL/2019-12-07T14:00:00"].(*domain.Stock)
	assert.Equal(t, int64(102), weekend.OfferID)
	assert.Equal(t, 9.5, weekend.Price)

	url, ok := p.ThumbURL(state, product)
	assert.True(t, ok)
	assert.Equal(t, "https://fr.web.img6.acsta.net/poster.jpg", url)
	_, ok = p.ThumbURL(state, vo)
	assert.False(t, ok)
}

// TestAllocine_Fill_NoPriceRule tests that a stock without matching price rule is a business error.
func TestAllocine_Fill_NoPriceRule(t *testing.T) {
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", testEndpoint,
		httpmock.NewJsonResponderOrPanic(200, page(false, "",
			movieEdge("M1", digital(VersionLocal, "2019-12-03T20:00:00")),
		)))

	rc := testRunContext()
	rc.VenueProvider.PriceRules = []domain.PriceRule{{Kind: domain.PriceRuleWeekend, Price: 9.5}}
	p, err := New(newTestClient(), rc, func() time.Time { return fixedNow })
	require.NoError(t, err)

	state := domain.NewSyncState()
	batch, err := p.Next(context.Background(), state)
	require.NoError(t, err)
	state.Record = batch.Record
	state.Resolve(domain.KindOffer, "M1%77567146400110-VF", 5)

	stock := domain.NewEntity(domain.KindStock, "M1%77567146400110#LOCAL/2019-12-03T20:00:00")
	err = p.Fill(context.Background(), state, stock)
	assert.True(t, domain.IsBusinessRule(err))
}

// TestAllocine_Fill_UnknownRuntime tests the one second default duration.
func TestAllocine_Fill_UnknownRuntime(t *testing.T) {
	defer httpmock.DeactivateAndReset()

	edge := movieEdge("M1", digital(VersionLocal, "2019-12-03T20:00:00"))
	edge.Node.Movie.Runtime = ""
	httpmock.RegisterResponder("GET", testEndpoint, httpmock.NewJsonResponderOrPanic(200, page(false, "", edge)))

	p := newTestProvider(t)
	state := domain.NewSyncState()
	batch, err := p.Next(context.Background(), state)
	require.NoError(t, err)

	entities := fillAll(t, p, state, batch)
	stock := entities["M1%77567146400110#LOCAL/2019-12-03T20:00:00"].(*domain.Stock)
	assert.Equal(t, time.Second, stock.EndDatetime.Sub(*stock.BeginningDatetime))
	assert.Nil(t, entities["M1"].(*domain.Product).DurationMinutes)
}

// TestAllocine_MovieUUIDWithoutSiret tests the venue id fallback.
func TestAllocine_MovieUUIDWithoutSiret(t *testing.T) {
	rc := testRunContext()
	rc.Venue.Siret = ""
	p, err := New(nil, rc, nil)
	require.NoError(t, err)

	assert.Equal(t, "M1%41", p.movieUUID(Movie{ID: "M1"}))
}

// TestNew_RequiresTheaterID tests constructor validation.
func TestNew_RequiresTheaterID(t *testing.T) {
	rc := testRunContext()
	rc.VenueProvider.VenueIDAtOfferProvider = ""

	_, err := New(nil, rc, nil)
	assert.True(t, domain.IsBusinessRule(err))

	_, err = New(nil, domain.RunContext{}, nil)
	assert.Error(t, err)
}

// TestMovie_RuntimeMinutes tests ISO-8601 runtime parsing.
func TestMovie_RuntimeMinutes(t *testing.T) {
	tests := map[string]*int{
		"PT1H50M0S": intPtr(110),
		"PT2H0M0S":  intPtr(120),
		"PT45M":     intPtr(45),
		"":          nil,
		"1h50":      nil,
	}
	for runtime, expected := range tests {
		got := Movie{Runtime: runtime}.RuntimeMinutes()
		if expected == nil {
			assert.Nil(t, got, runtime)
			continue
		}
		require.NotNil(t, got, runtime)
		assert.Equal(t, *expected, *got, runtime)
	}
}

func intPtr(v int) *int { return &v }
