package repository

import (
	"context"

	"rideshare/internal/domain"
)

// CaptainRepository defines the persistence operations for captains.
type CaptainRepository interface {
	// Create adds a new captain.
	Create(ctx context.Context, captain *domain.Captain) error

	// GetByID retrieves a captain by ID.
	GetByID(ctx context.Context, id string) (*domain.Captain, error)

	// GetByEmail retrieves a captain by email.
	GetByEmail(ctx context.Context, email string) (*domain.Captain, error)

	// UpdateStatus updates a captain's availability status.
	UpdateStatus(ctx context.Context, id string, status domain.CaptainStatus) error

	// UpdateRating overwrites a captain's running average rating.
	UpdateRating(ctx context.Context, id string, rating float64) error

	// AddEarnings accrues amount onto a captain's total earnings.
	AddEarnings(ctx context.Context, id string, amount float64) error
}
