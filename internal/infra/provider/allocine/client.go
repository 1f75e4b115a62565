// Package allocine implements the Allociné cinema showtimes provider.
package allocine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"provider-sync-service/internal/infra/provider"
)

// Endpoint is the API path of the theater showtimes feed.
const Endpoint = "/movieShowtimeList"

// Client fetches the Allociné showtimes feed.
type Client struct {
	caller *provider.Caller
	logger *zap.Logger
}

// NewClient creates a new Allociné client.
func NewClient(cfg provider.ClientConfig, logger *zap.Logger) *Client {
	return &Client{
		caller: provider.NewCaller("allocine", cfg, logger),
		logger: logger,
	}
}

// MovieShowtimes fetches one page of the theater feed. An empty cursor fetches the first page.
func (c *Client) MovieShowtimes(ctx context.Context, theaterID, after string) (*MovieShowtimeList, error) {
	query := map[string]string{"theater": theaterID}
	if after != "" {
		query["after"] = after
	}

	var result Response
	if err := c.caller.Get(ctx, Endpoint, query, &result); err != nil {
		return nil, fmt.Errorf("fetching allocine showtimes for theater %s: %w", theaterID, err)
	}

	c.logger.Debug("allocine page fetched",
		zap.String("theater", theaterID),
		zap.Int("count", len(result.MovieShowtimeList.Edges)),
		zap.Bool("has_next_page", result.MovieShowtimeList.PageInfo.HasNextPage),
	)

	return &result.MovieShowtimeList, nil
}
