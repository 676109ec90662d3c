package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
)

const rideColumns = `
	id, user_id, captain_id,
	pickup_title, pickup_address, pickup_lat, pickup_lng,
	destination_title, destination_address, destination_lat, destination_lng,
	vehicle_type, fare, distance_value, distance_text, duration_value, duration_text,
	otp, status, arrival_minutes, arrival_updated_at,
	start_time, completed_at, cancelled_at, cancellation_reason,
	rating_user, rating_user_comment, rating_user_at,
	rating_captain, rating_captain_comment, rating_captain_at,
	earnings_amount, earnings_platform_fee, earnings_captain_earning,
	payment_status, created_at`

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (
			id, user_id, captain_id,
			pickup_title, pickup_address, pickup_lat, pickup_lng,
			destination_title, destination_address, destination_lat, destination_lng,
			vehicle_type, fare, distance_value, distance_text, duration_value, duration_text,
			otp, status, payment_status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	captainID := nullString(ride.CaptainID)

	// Rides are born pending with payment pending unless told otherwise.
	status := ride.Status
	if status == "" {
		status = domain.RideStatusPending
	}
	paymentStatus := ride.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = domain.PaymentStatusPending
	}

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.UserID,
		captainID,
		ride.Pickup.Title,
		ride.Pickup.Address,
		ride.Pickup.Latitude,
		ride.Pickup.Longitude,
		ride.Destination.Title,
		ride.Destination.Address,
		ride.Destination.Latitude,
		ride.Destination.Longitude,
		ride.VehicleType,
		ride.Fare,
		ride.Distance.Value,
		ride.Distance.Text,
		ride.Duration.Value,
		ride.Duration.Text,
		ride.OTP,
		status,
		paymentStatus,
		ride.CreatedAt,
	)

	return err
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return ride, nil
}

// List retrieves rides matching the filter.
func (r *RideRepository) List(ctx context.Context, filter repository.RideFilter) ([]*domain.Ride, error) {
	var (
		where []string
		args  []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.Statuses) > 0 {
		where = append(where, "status = ANY("+arg(pq.Array(statusStrings(filter.Statuses)))+")")
	}
	if filter.UserID != "" {
		where = append(where, "user_id = "+arg(filter.UserID))
	}
	if filter.CaptainID != "" {
		where = append(where, "captain_id = "+arg(filter.CaptainID))
	}
	if filter.Unassigned {
		where = append(where, "captain_id IS NULL")
	}
	if filter.RatedOnly {
		where = append(where, "rating_captain IS NOT NULL")
	}

	query := `SELECT ` + rideColumns + ` FROM rides`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if filter.NewestFirst {
		query += " ORDER BY created_at DESC"
	} else {
		query += " ORDER BY created_at ASC"
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// ConditionalUpdate atomically applies patch iff the ride's current status
// is one of expected. The status check happens inside the UPDATE itself, so
// two racing transitions on the same ride cannot both win.
func (r *RideRepository) ConditionalUpdate(ctx context.Context, id string, expected []domain.RideStatus, patch repository.RidePatch) (*domain.Ride, error) {
	var (
		sets []string
		args []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if patch.Status != nil {
		sets = append(sets, "status = "+arg(string(*patch.Status)))
	}
	if patch.CaptainID != nil {
		sets = append(sets, "captain_id = "+arg(*patch.CaptainID))
	}
	if patch.StartTime != nil {
		sets = append(sets, "start_time = "+arg(*patch.StartTime))
	}
	if patch.CompletedAt != nil {
		sets = append(sets, "completed_at = "+arg(*patch.CompletedAt))
	}
	if patch.CancelledAt != nil {
		sets = append(sets, "cancelled_at = "+arg(*patch.CancelledAt))
	}
	if patch.CancellationReason != nil {
		sets = append(sets, "cancellation_reason = "+arg(*patch.CancellationReason))
	}
	if patch.ArrivalTime != nil {
		sets = append(sets, "arrival_minutes = "+arg(patch.ArrivalTime.Minutes))
		sets = append(sets, "arrival_updated_at = "+arg(patch.ArrivalTime.UpdatedAt))
	}
	if patch.Earnings != nil {
		sets = append(sets, "earnings_amount = "+arg(patch.Earnings.Amount))
		sets = append(sets, "earnings_platform_fee = "+arg(patch.Earnings.PlatformFee))
		sets = append(sets, "earnings_captain_earning = "+arg(patch.Earnings.CaptainEarning))
	}
	if patch.CaptainRating != nil {
		sets = append(sets, "rating_captain = "+arg(patch.CaptainRating.Rating))
		sets = append(sets, "rating_captain_comment = "+arg(patch.CaptainRating.Comment))
		sets = append(sets, "rating_captain_at = "+arg(patch.CaptainRating.RatedAt))
	}

	if len(sets) == 0 {
		return nil, errors.New("postgres: empty ride patch")
	}

	idArg := arg(id)
	expArg := arg(pq.Array(statusStrings(expected)))

	query := `UPDATE rides SET ` + strings.Join(sets, ", ") +
		` WHERE id = ` + idArg + ` AND status = ANY(` + expArg + `)
		RETURNING ` + rideColumns

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, args...))
	if err == nil {
		return ride, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// No row updated: distinguish a missing ride from a status race.
	var exists bool
	if err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM rides WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, repository.ErrNotFound
	}
	return nil, repository.ErrStaleStatus
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRide(s scanner) (*domain.Ride, error) {
	var (
		ride               domain.Ride
		captainID          sql.NullString
		arrivalMinutes     sql.NullInt64
		arrivalUpdatedAt   sql.NullTime
		startTime          sql.NullTime
		completedAt        sql.NullTime
		cancelledAt        sql.NullTime
		cancellationReason sql.NullString
		ratingUser         sql.NullInt64
		ratingUserComment  sql.NullString
		ratingUserAt       sql.NullTime
		ratingCaptain      sql.NullInt64
		ratingCaptCom      sql.NullString
		ratingCaptainAt    sql.NullTime
		earningsAmount     sql.NullFloat64
		platformFee        sql.NullFloat64
		captainEarning     sql.NullFloat64
	)

	err := s.Scan(
		&ride.ID,
		&ride.UserID,
		&captainID,
		&ride.Pickup.Title,
		&ride.Pickup.Address,
		&ride.Pickup.Latitude,
		&ride.Pickup.Longitude,
		&ride.Destination.Title,
		&ride.Destination.Address,
		&ride.Destination.Latitude,
		&ride.Destination.Longitude,
		&ride.VehicleType,
		&ride.Fare,
		&ride.Distance.Value,
		&ride.Distance.Text,
		&ride.Duration.Value,
		&ride.Duration.Text,
		&ride.OTP,
		&ride.Status,
		&arrivalMinutes,
		&arrivalUpdatedAt,
		&startTime,
		&completedAt,
		&cancelledAt,
		&cancellationReason,
		&ratingUser,
		&ratingUserComment,
		&ratingUserAt,
		&ratingCaptain,
		&ratingCaptCom,
		&ratingCaptainAt,
		&earningsAmount,
		&platformFee,
		&captainEarning,
		&ride.PaymentStatus,
		&ride.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if captainID.Valid {
		ride.CaptainID = captainID.String
	}
	if arrivalMinutes.Valid {
		at := domain.ArrivalTime{Minutes: int(arrivalMinutes.Int64)}
		if arrivalUpdatedAt.Valid {
			at.UpdatedAt = arrivalUpdatedAt.Time
		}
		ride.ArrivalTime = &at
	}
	if startTime.Valid {
		ride.StartTime = startTime.Time
	}
	if completedAt.Valid {
		ride.CompletedAt = completedAt.Time
	}
	if cancelledAt.Valid {
		ride.CancelledAt = cancelledAt.Time
	}
	if cancellationReason.Valid {
		ride.CancellationReason = cancellationReason.String
	}
	if ratingUser.Valid {
		ride.Rating.User = &domain.PartyRating{
			Rating:  int(ratingUser.Int64),
			Comment: ratingUserComment.String,
			RatedAt: ratingUserAt.Time,
		}
	}
	if ratingCaptain.Valid {
		ride.Rating.Captain = &domain.PartyRating{
			Rating:  int(ratingCaptain.Int64),
			Comment: ratingCaptCom.String,
			RatedAt: ratingCaptainAt.Time,
		}
	}
	if earningsAmount.Valid {
		ride.Earnings = &domain.Earnings{
			Amount:         earningsAmount.Float64,
			PlatformFee:    platformFee.Float64,
			CaptainEarning: captainEarning.Float64,
		}
	}

	return &ride, nil
}

func statusStrings(statuses []domain.RideStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
