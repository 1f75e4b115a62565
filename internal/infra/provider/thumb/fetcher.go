// Package thumb downloads thumbnail binaries referenced by providers.
package thumb

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"provider-sync-service/internal/infra/provider"
)

// ErrEmptyThumbnail is returned when the remote image has no content.
var ErrEmptyThumbnail = errors.New("empty thumbnail")

// Fetcher downloads images through a rate-limited, circuit-broken client.
type Fetcher struct {
	caller  *provider.Caller
	maxSize int
	logger  *zap.Logger
}

// NewFetcher creates a thumbnail fetcher. A maxSize of zero accepts any size.
func NewFetcher(cfg provider.ClientConfig, maxSize int, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		caller:  provider.NewCaller("thumbnails", cfg, logger),
		maxSize: maxSize,
		logger:  logger,
	}
}

// FetchBinary downloads the image at url.
func (f *Fetcher) FetchBinary(ctx context.Context, url string) ([]byte, error) {
	data, err := f.caller.GetBytes(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetching thumbnail: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyThumbnail, url)
	}
	if f.maxSize > 0 && len(data) > f.maxSize {
		return nil, fmt.Errorf("thumbnail %s is %d bytes, limit is %d", url, len(data), f.maxSize)
	}

	f.logger.Debug("thumbnail fetched", zap.String("url", url), zap.Int("bytes", len(data)))

	return data, nil
}
