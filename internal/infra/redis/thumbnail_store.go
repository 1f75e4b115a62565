// Package redis provides Redis-backed storage used by the synchronization engine.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"provider-sync-service/internal/domain"
)

// ThumbnailStore implements domain.ThumbnailStorage using Redis.
// Keys are namespaced as prefix:kind:id:index.
type ThumbnailStore struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	ttl       time.Duration
}

// NewThumbnailStore creates a new Redis thumbnail store.
// A zero ttl keeps thumbnails until they are overwritten.
func NewThumbnailStore(client *redis.Client, logger *zap.Logger, keyPrefix string, ttl time.Duration) *ThumbnailStore {
	return &ThumbnailStore{
		client:    client,
		logger:    logger,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// Save stores the thumbnail at index for the entity, replacing any previous one.
func (s *ThumbnailStore) Save(ctx context.Context, kind domain.EntityKind, id int64, index int, data []byte) error {
	if id == 0 {
		return fmt.Errorf("saving %s thumbnail: entity has no local id", kind)
	}
	key := s.buildKey(kind, id, index)

	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.Error("thumbnail save failed",
			zap.String("key", key),
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)

		return fmt.Errorf("saving thumbnail %s: %w", key, err)
	}

	s.logger.Debug("thumbnail saved",
		zap.String("key", key),
		zap.Int("bytes", len(data)),
		zap.Duration("ttl", s.ttl),
	)

	return nil
}

// Get returns a stored thumbnail, or nil if there is none or it expired.
func (s *ThumbnailStore) Get(ctx context.Context, kind domain.EntityKind, id int64, index int) ([]byte, error) {
	key := s.buildKey(kind, id, index)

	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting thumbnail %s: %w", key, err)
	}

	return data, nil
}

func (s *ThumbnailStore) buildKey(kind domain.EntityKind, id int64, index int) string {
	return s.keyPrefix + ":" + string(kind) + ":" + strconv.FormatInt(id, 10) + ":" + strconv.Itoa(index)
}
