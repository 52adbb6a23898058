package cache

import (
	"context"
	"time"
)

// Revocations records logged-out session token ids until they expire.
type Revocations struct {
	store *Store
}

func NewRevocations(store *Store) *Revocations {
	return &Revocations{store: store}
}

// Revoke blacklists jti for ttl. Without Redis this is a no-op.
func (r *Revocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	rdb := r.store.Client()
	if rdb == nil || jti == "" || ttl <= 0 {
		return nil
	}
	return rdb.Set(ctx, revokedKey(jti), "1", ttl).Err()
}

// IsRevoked reports whether jti was logged out.
func (r *Revocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	rdb := r.store.Client()
	if rdb == nil || jti == "" {
		return false, nil
	}
	n, err := rdb.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
