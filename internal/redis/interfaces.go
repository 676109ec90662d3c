package redis

import (
	"context"
	"time"
)

// LocationStoreInterface defines the interface for captain location operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, captainID string, lat, lng float64) error
	CaptainsInRadius(ctx context.Context, lat, lng, radiusKm float64) ([]CaptainLocation, error)
	RemoveLocation(ctx context.Context, captainID string) error
}

// BlacklistStoreInterface defines the interface for token revocation checks.
type BlacklistStoreInterface interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
	Contains(ctx context.Context, token string) (bool, error)
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface  = (*LocationStore)(nil)
	_ BlacklistStoreInterface = (*BlacklistStore)(nil)
)
