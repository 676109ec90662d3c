package postgres

import (
	"context"
	"database/sql"
	"errors"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
)

// CaptainRepository is a PostgreSQL implementation of repository.CaptainRepository.
type CaptainRepository struct {
	q Querier
}

// NewCaptainRepository creates a new PostgreSQL captain repository.
func NewCaptainRepository(db *sql.DB) *CaptainRepository {
	return &CaptainRepository{q: db}
}

// NewCaptainRepositoryWithTx creates a captain repository using a transaction.
func NewCaptainRepositoryWithTx(tx *sql.Tx) *CaptainRepository {
	return &CaptainRepository{q: tx}
}

const captainColumns = `
	id, fullname, email, password_hash,
	vehicle_color, vehicle_plate, vehicle_capacity, vehicle_type,
	status, rating, total_earnings, created_at`

// Create adds a new captain.
func (r *CaptainRepository) Create(ctx context.Context, captain *domain.Captain) error {
	query := `
		INSERT INTO captains (
			id, fullname, email, password_hash,
			vehicle_color, vehicle_plate, vehicle_capacity, vehicle_type,
			status, rating, total_earnings, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	status := captain.Status
	if status == "" {
		status = domain.CaptainStatusInactive
	}
	rating := captain.Rating
	if rating == 0 {
		rating = 5
	}

	_, err := r.q.ExecContext(ctx, query,
		captain.ID,
		captain.Fullname,
		captain.Email,
		captain.PasswordHash,
		captain.Vehicle.Color,
		captain.Vehicle.Plate,
		captain.Vehicle.Capacity,
		captain.Vehicle.VehicleType,
		status,
		rating,
		captain.TotalEarnings,
		captain.CreatedAt,
	)

	return err
}

// GetByID retrieves a captain by ID.
func (r *CaptainRepository) GetByID(ctx context.Context, id string) (*domain.Captain, error) {
	query := `SELECT ` + captainColumns + ` FROM captains WHERE id = $1`
	return r.scanOne(r.q.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a captain by email.
func (r *CaptainRepository) GetByEmail(ctx context.Context, email string) (*domain.Captain, error) {
	query := `SELECT ` + captainColumns + ` FROM captains WHERE email = $1`
	return r.scanOne(r.q.QueryRowContext(ctx, query, email))
}

// UpdateStatus updates a captain's availability status.
func (r *CaptainRepository) UpdateStatus(ctx context.Context, id string, status domain.CaptainStatus) error {
	result, err := r.q.ExecContext(ctx, `UPDATE captains SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// UpdateRating overwrites a captain's running average rating.
func (r *CaptainRepository) UpdateRating(ctx context.Context, id string, rating float64) error {
	result, err := r.q.ExecContext(ctx, `UPDATE captains SET rating = $1 WHERE id = $2`, rating, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// AddEarnings accrues amount onto a captain's total earnings.
func (r *CaptainRepository) AddEarnings(ctx context.Context, id string, amount float64) error {
	result, err := r.q.ExecContext(ctx, `UPDATE captains SET total_earnings = total_earnings + $1 WHERE id = $2`, amount, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *CaptainRepository) scanOne(row *sql.Row) (*domain.Captain, error) {
	var captain domain.Captain
	err := row.Scan(
		&captain.ID,
		&captain.Fullname,
		&captain.Email,
		&captain.PasswordHash,
		&captain.Vehicle.Color,
		&captain.Vehicle.Plate,
		&captain.Vehicle.Capacity,
		&captain.Vehicle.VehicleType,
		&captain.Status,
		&captain.Rating,
		&captain.TotalEarnings,
		&captain.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &captain, nil
}
