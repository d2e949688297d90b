package repository

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/domains/cart/model"
	"storefront/pkg/cache"
)

// KeyFunc resolves the storage key for the current shopper's cart
type KeyFunc func(ctx context.Context) (string, error)

type cacheSnapshotStore struct {
	cache cache.Cache
	key   KeyFunc
	ttl   time.Duration
}

// NewSnapshotStore keeps cart snapshots in client storage under the key
// returned by key, so user and guest carts never overwrite each other.
func NewSnapshotStore(c cache.Cache, key KeyFunc, ttl time.Duration) SnapshotStore {
	return &cacheSnapshotStore{cache: c, key: key, ttl: ttl}
}

func (s *cacheSnapshotStore) Save(ctx context.Context, snap model.Snapshot) error {
	key, err := s.key(ctx)
	if err != nil {
		return fmt.Errorf("resolve cart key: %w", err)
	}
	return s.cache.Set(ctx, key, snap, s.ttl)
}

func (s *cacheSnapshotStore) Load(ctx context.Context) (*model.Snapshot, error) {
	key, err := s.key(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve cart key: %w", err)
	}

	var snap model.Snapshot
	found, err := s.cache.Get(ctx, key, &snap)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &snap, nil
}
