package repository

import (
	"context"
	"time"

	"rideshare/internal/domain"
)

// RidePatch is the set of fields a lifecycle transition may write. Nil
// fields are left untouched, so an ETA update cannot clobber a status
// change that raced past it.
type RidePatch struct {
	Status             *domain.RideStatus
	CaptainID          *string
	StartTime          *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason *string
	ArrivalTime        *domain.ArrivalTime
	Earnings           *domain.Earnings
	CaptainRating      *domain.PartyRating
}

// RideFilter selects rides for list queries. Zero values mean "no
// constraint" except Unassigned, which explicitly requires captain IS NULL.
type RideFilter struct {
	Statuses    []domain.RideStatus
	UserID      string
	CaptainID   string
	Unassigned  bool
	RatedOnly   bool // only rides with a recorded captain rating
	NewestFirst bool
}

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// List retrieves rides matching the filter.
	List(ctx context.Context, filter RideFilter) ([]*domain.Ride, error)

	// ConditionalUpdate atomically applies patch to the ride iff its
	// current status is one of expected; every lifecycle transition goes
	// through this compare-and-swap. Returns ErrNotFound if the
	// ride does not exist and ErrStaleStatus if it exists but its status
	// changed under the caller.
	ConditionalUpdate(ctx context.Context, id string, expected []domain.RideStatus, patch RidePatch) (*domain.Ride, error)
}
