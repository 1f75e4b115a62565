// Package stockapi implements the book stock providers (TiteLive, Praxiel) that
// expose per-venue stock pages keyed by ISBN.
package stockapi

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"provider-sync-service/internal/infra/provider"
)

// Response represents one page of a venue's stocks.
type Response struct {
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Stocks []StockLine `json:"stocks"`
}

// StockLine is the stock of one reference (ISBN) in a venue.
type StockLine struct {
	Ref       string  `json:"ref"`
	Available int     `json:"available"`
	Price     float64 `json:"price"`
}

// PageRequest selects a page of stocks.
type PageRequest struct {
	Siret string
	// After is the last reference of the previous page.
	After string
	// ModifiedSince restricts to stocks changed after it when set.
	ModifiedSince *time.Time
	Limit         int
}

// Client fetches venue stocks from a stock API.
type Client struct {
	name   string
	caller *provider.Caller
	logger *zap.Logger
}

// NewClient creates a new stock API client.
func NewClient(name string, cfg provider.ClientConfig, logger *zap.Logger) *Client {
	return &Client{
		name:   name,
		caller: provider.NewCaller(name, cfg, logger),
		logger: logger,
	}
}

// Stocks fetches one page of stocks of a venue.
func (c *Client) Stocks(ctx context.Context, req PageRequest) (*Response, error) {
	query := map[string]string{"limit": strconv.Itoa(req.Limit)}
	if req.After != "" {
		query["after"] = req.After
	}
	if req.ModifiedSince != nil {
		query["modifiedSince"] = req.ModifiedSince.UTC().Format(time.RFC3339)
	}

	var result Response
	if err := c.caller.Get(ctx, "/stocks/"+req.Siret, query, &result); err != nil {
		return nil, fmt.Errorf("fetching %s stocks for siret %s: %w", c.name, req.Siret, err)
	}

	c.logger.Debug("stock page fetched",
		zap.String("provider", c.name),
		zap.String("siret", req.Siret),
		zap.String("after", req.After),
		zap.Int("count", len(result.Stocks)),
	)

	return &result, nil
}
