package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "blacklist:token:"

// BlacklistStore records revoked session tokens until they expire on their
// own. Logout writes an entry with TTL equal to the token's remaining
// lifetime; auth checks membership on every request.
type BlacklistStore struct {
	client *redis.Client
}

// NewBlacklistStore creates a new BlacklistStore.
func NewBlacklistStore(client *redis.Client) *BlacklistStore {
	return &BlacklistStore{client: client}
}

// Add blacklists a token for ttl.
func (s *BlacklistStore) Add(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		// Token already expired, nothing to record.
		return nil
	}
	return s.client.Set(ctx, blacklistPrefix+token, "1", ttl).Err()
}

// Contains reports whether a token has been blacklisted.
func (s *BlacklistStore) Contains(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, blacklistPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
