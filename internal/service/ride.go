package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math"
	"math/big"
	"time"

	"github.com/google/uuid"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
)

// RouteProvider resolves driving distance and duration between two points.
// Implementations never fail the caller: on upstream trouble they return
// conservative defaults so ride creation keeps working.
type RouteProvider interface {
	DistanceTime(ctx context.Context, origin, destination domain.GeoPoint) (distance, duration domain.ValueText)
}

// RideService owns the ride lifecycle. Every state transition is funneled
// through the repository's conditional update, so concurrent actors racing
// on the same ride resolve to exactly one winner.
type RideService struct {
	rideRepo      repository.RideRepository
	userRepo      repository.UserRepository
	captainRepo   repository.CaptainRepository
	routes        RouteProvider
	notifications *NotificationService
}

// NewRideService creates a new RideService.
func NewRideService(
	rideRepo repository.RideRepository,
	userRepo repository.UserRepository,
	captainRepo repository.CaptainRepository,
	routes RouteProvider,
	notifications *NotificationService,
) *RideService {
	return &RideService{
		rideRepo:      rideRepo,
		userRepo:      userRepo,
		captainRepo:   captainRepo,
		routes:        routes,
		notifications: notifications,
	}
}

// CreateRideRequest carries the parameters for requesting a ride.
type CreateRideRequest struct {
	UserID      string
	Pickup      domain.GeoPoint
	Destination domain.GeoPoint
	VehicleType domain.VehicleType
	// Fare, Distance and Duration are optional client-side estimates. When
	// Fare is zero the service prices the ride itself.
	Fare     float64
	Distance *domain.ValueText
	Duration *domain.ValueText
}

// CreateRide validates the request, prices it if the client did not, and
// persists a new pending ride.
func (s *RideService) CreateRide(ctx context.Context, req CreateRideRequest) (*domain.Ride, error) {
	if req.UserID == "" {
		return nil, ErrInvalidUserID
	}
	if !isValidPoint(req.Pickup) {
		return nil, ErrInvalidPickupLocation
	}
	if !isValidPoint(req.Destination) {
		return nil, ErrInvalidDestinationLocation
	}
	if !domain.ValidVehicleType(req.VehicleType) {
		return nil, ErrInvalidVehicleType
	}

	fare := req.Fare
	distance := domain.ValueText{Value: defaultDistanceMeters, Text: defaultDistanceText}
	duration := domain.ValueText{Value: defaultDurationSeconds, Text: defaultDurationText}

	if fare > 0 {
		if req.Distance != nil {
			distance = *req.Distance
		}
		if req.Duration != nil {
			duration = *req.Duration
		}
	} else {
		distance, duration = s.routes.DistanceTime(ctx, req.Pickup, req.Destination)
		table := CalculateFares(distance.Value)
		priced, ok := FareForVehicleType(table, req.VehicleType)
		if !ok {
			// No pricing entry for this class; the client must quote.
			return nil, ErrFareRequired
		}
		fare = priced
	}

	otp, err := generateOTP()
	if err != nil {
		return nil, fmt.Errorf("generating ride OTP: %w", err)
	}

	ride := &domain.Ride{
		ID:            uuid.New().String(),
		UserID:        req.UserID,
		Pickup:        req.Pickup,
		Destination:   req.Destination,
		VehicleType:   req.VehicleType,
		Fare:          fare,
		Distance:      distance,
		Duration:      duration,
		OTP:           otp,
		Status:        domain.RideStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, fmt.Errorf("creating ride: %w", err)
	}

	s.populate(ctx, ride)
	return ride, nil
}

// GetFare prices a prospective trip for every vehicle class.
func (s *RideService) GetFare(ctx context.Context, pickup, destination domain.GeoPoint) (*FareEstimate, error) {
	if !isValidPoint(pickup) {
		return nil, ErrInvalidPickupLocation
	}
	if !isValidPoint(destination) {
		return nil, ErrInvalidDestinationLocation
	}

	distance, duration := s.routes.DistanceTime(ctx, pickup, destination)
	return &FareEstimate{
		Fare:     CalculateFares(distance.Value),
		Distance: distance,
		Duration: duration,
	}, nil
}

// GetRide retrieves a single ride with its parties populated. Clients use
// this to resync after a dropped connection.
func (s *RideService) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	s.populate(ctx, ride)
	return ride, nil
}

// ConfirmRide assigns a captain to a pending ride. When several captains
// accept at once, the conditional update guarantees a single winner; the
// rest get a conflict naming the ride's current status.
func (s *RideService) ConfirmRide(ctx context.Context, rideID, captainID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if captainID == "" {
		return nil, ErrInvalidCaptainID
	}

	if _, err := s.captainRepo.GetByID(ctx, captainID); err != nil {
		return nil, err
	}

	ride, err := s.rideRepo.ConditionalUpdate(ctx, rideID,
		[]domain.RideStatus{domain.RideStatusPending},
		repository.RidePatch{
			Status:    statusPtr(domain.RideStatusConfirmed),
			CaptainID: &captainID,
		})
	if err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, s.conflict(ctx, rideID, "Ride is no longer available. Current status: %s")
		}
		return nil, err
	}

	s.populate(ctx, ride)
	s.notifyRide(ctx, ride, s.notifications.NotifyRideConfirmed)
	return ride, nil
}

// StartRide moves a confirmed ride into progress. Only the assigned
// captain may start it.
func (s *RideService) StartRide(ctx context.Context, rideID, captainID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if captainID == "" {
		return nil, ErrInvalidCaptainID
	}

	current, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.RideStatusConfirmed {
		return nil, &ConflictError{Message: fmt.Sprintf("Ride must be confirmed to start. Current status: %s", current.Status)}
	}
	if current.CaptainID != captainID {
		return nil, &ForbiddenError{Message: "You are not the captain assigned to this ride"}
	}

	now := time.Now().UTC()
	ride, err := s.rideRepo.ConditionalUpdate(ctx, rideID,
		[]domain.RideStatus{domain.RideStatusConfirmed},
		repository.RidePatch{
			Status:    statusPtr(domain.RideStatusStarted),
			StartTime: &now,
		})
	if err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, s.conflict(ctx, rideID, "Ride must be confirmed to start. Current status: %s")
		}
		return nil, err
	}

	s.populate(ctx, ride)
	s.notifyRide(ctx, ride, s.notifications.NotifyRideStarted)
	return ride, nil
}

// CompleteRide settles a ride: computes the earnings split, accrues the
// captain's share and parks the ride awaiting the rider's rating.
func (s *RideService) CompleteRide(ctx context.Context, rideID, captainID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if captainID == "" {
		return nil, ErrInvalidCaptainID
	}

	current, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !statusIn(current.Status, domain.CompletableStatuses) {
		return nil, &ConflictError{Message: fmt.Sprintf("This ride cannot be completed because it is in %s state", current.Status)}
	}
	if current.CaptainID == "" {
		return nil, &ConflictError{Message: "This ride has no assigned captain"}
	}
	if current.CaptainID != captainID {
		return nil, &ForbiddenError{Message: "You are not the captain assigned to this ride"}
	}

	now := time.Now().UTC()
	earnings := SplitEarnings(current.Fare)

	ride, err := s.rideRepo.ConditionalUpdate(ctx, rideID,
		domain.CompletableStatuses,
		repository.RidePatch{
			Status:      statusPtr(domain.RideStatusWaitingForRating),
			CompletedAt: &now,
			Earnings:    &earnings,
		})
	if err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, s.conflict(ctx, rideID, "This ride cannot be completed because it is in %s state")
		}
		return nil, err
	}

	// Earnings accrual is best effort once the transition is durable; a
	// failed accrual is reconciled from the ride ledger, not retried here.
	if err := s.captainRepo.AddEarnings(ctx, captainID, earnings.CaptainEarning); err != nil {
		log.Printf("[RIDE] accruing earnings for captain %s on ride %s: %v", captainID, rideID, err)
	}

	s.populate(ctx, ride)
	s.notifyRide(ctx, ride, s.notifications.NotifyRideCompleted)
	return ride, nil
}

// RateRide records the rider's rating for the captain, closes the ride and
// refreshes the captain's average rating.
func (s *RideService) RateRide(ctx context.Context, rideID, userID string, rating int, comment string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	current, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.RideStatusWaitingForRating {
		return nil, &ConflictError{Message: fmt.Sprintf("Cannot rate a ride that is not waiting for rating. Current status: %s", current.Status)}
	}
	if current.UserID != userID {
		return nil, &ForbiddenError{Message: "You are not the rider on this ride"}
	}

	ride, err := s.rideRepo.ConditionalUpdate(ctx, rideID,
		[]domain.RideStatus{domain.RideStatusWaitingForRating},
		repository.RidePatch{
			Status: statusPtr(domain.RideStatusCompleted),
			CaptainRating: &domain.PartyRating{
				Rating:  rating,
				Comment: comment,
				RatedAt: time.Now().UTC(),
			},
		})
	if err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, s.conflict(ctx, rideID, "Cannot rate a ride that is not waiting for rating. Current status: %s")
		}
		return nil, err
	}

	if ride.CaptainID != "" {
		if err := s.refreshCaptainRating(ctx, ride.CaptainID); err != nil {
			log.Printf("[RIDE] refreshing rating for captain %s: %v", ride.CaptainID, err)
		}
	}

	s.populate(ctx, ride)
	return ride, nil
}

// CancelRide cancels a ride on behalf of either party and notifies the
// other one.
func (s *RideService) CancelRide(ctx context.Context, rideID, actorID string, role domain.ActorRole) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	current, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !statusIn(current.Status, domain.CancellableStatuses) {
		return nil, &ConflictError{Message: fmt.Sprintf("This ride cannot be cancelled because it is in %s state", current.Status)}
	}

	var reason string
	switch role {
	case domain.RoleUser:
		if current.UserID != actorID {
			return nil, &ForbiddenError{Message: "You are not authorized to cancel this ride"}
		}
		reason = "Cancelled by user"
	case domain.RoleCaptain:
		if current.CaptainID == "" || current.CaptainID != actorID {
			return nil, &ForbiddenError{Message: "You are not authorized to cancel this ride"}
		}
		reason = "Cancelled by captain"
	default:
		return nil, &ForbiddenError{Message: "You are not authorized to cancel this ride"}
	}

	now := time.Now().UTC()
	ride, err := s.rideRepo.ConditionalUpdate(ctx, rideID,
		domain.CancellableStatuses,
		repository.RidePatch{
			Status:             statusPtr(domain.RideStatusCancelled),
			CancelledAt:        &now,
			CancellationReason: &reason,
		})
	if err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, s.conflict(ctx, rideID, "This ride cannot be cancelled because it is in %s state")
		}
		return nil, err
	}

	s.populate(ctx, ride)
	if s.notifications != nil {
		_ = s.notifications.NotifyRideCancelled(ctx, ride, role)
	}
	return ride, nil
}

// UpdateArrivalTime records the captain's ETA in minutes and pushes it to
// the rider. Only meaningful before the trip begins.
func (s *RideService) UpdateArrivalTime(ctx context.Context, rideID, captainID string, minutes int) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if captainID == "" {
		return nil, ErrInvalidCaptainID
	}
	if minutes < 1 || minutes > 60 {
		return nil, ErrInvalidArrivalTime
	}

	current, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	preTrip := []domain.RideStatus{domain.RideStatusPending, domain.RideStatusConfirmed}
	if !statusIn(current.Status, preTrip) {
		return nil, &ConflictError{Message: fmt.Sprintf("Arrival time can only be updated before the ride starts. Current status: %s", current.Status)}
	}
	if current.CaptainID != "" && current.CaptainID != captainID {
		return nil, &ForbiddenError{Message: "You are not the captain assigned to this ride"}
	}

	ride, err := s.rideRepo.ConditionalUpdate(ctx, rideID, preTrip,
		repository.RidePatch{
			ArrivalTime: &domain.ArrivalTime{
				Minutes:   minutes,
				UpdatedAt: time.Now().UTC(),
			},
		})
	if err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, s.conflict(ctx, rideID, "Arrival time can only be updated before the ride starts. Current status: %s")
		}
		return nil, err
	}

	s.populate(ctx, ride)
	s.notifyRide(ctx, ride, s.notifications.NotifyArrivalUpdate)
	return ride, nil
}

// GetPendingRides lists unassigned pending rides for captains to pick up.
func (s *RideService) GetPendingRides(ctx context.Context) ([]*domain.Ride, error) {
	rides, err := s.rideRepo.List(ctx, repository.RideFilter{
		Statuses:    []domain.RideStatus{domain.RideStatusPending},
		Unassigned:  true,
		NewestFirst: true,
	})
	if err != nil {
		return nil, err
	}
	for _, ride := range rides {
		s.populate(ctx, ride)
	}
	return rides, nil
}

// GetCaptainHistory lists a captain's finished rides, newest first.
func (s *RideService) GetCaptainHistory(ctx context.Context, captainID string) ([]*domain.Ride, error) {
	if captainID == "" {
		return nil, ErrInvalidCaptainID
	}

	rides, err := s.rideRepo.List(ctx, repository.RideFilter{
		CaptainID:   captainID,
		Statuses:    []domain.RideStatus{domain.RideStatusCompleted, domain.RideStatusCancelled},
		NewestFirst: true,
	})
	if err != nil {
		return nil, err
	}
	for _, ride := range rides {
		s.populate(ctx, ride)
	}
	return rides, nil
}

// SplitEarnings breaks a fare into the platform fee and the captain's
// share. Both legs are rounded to whole units.
func SplitEarnings(fare float64) domain.Earnings {
	return domain.Earnings{
		Amount:         fare,
		PlatformFee:    math.Round(fare * 0.2),
		CaptainEarning: math.Round(fare * 0.8),
	}
}

// refreshCaptainRating recomputes the captain's average over every rated
// completed ride, rounded to one decimal. A captain with no ratings holds
// the default of 5.
func (s *RideService) refreshCaptainRating(ctx context.Context, captainID string) error {
	rides, err := s.rideRepo.List(ctx, repository.RideFilter{
		CaptainID: captainID,
		Statuses:  []domain.RideStatus{domain.RideStatusCompleted},
		RatedOnly: true,
	})
	if err != nil {
		return err
	}

	rating := 5.0
	if len(rides) > 0 {
		var sum float64
		for _, ride := range rides {
			sum += float64(ride.Rating.Captain.Rating)
		}
		rating = math.Round(sum/float64(len(rides))*10) / 10
	}

	return s.captainRepo.UpdateRating(ctx, captainID, rating)
}

// conflict builds a ConflictError carrying the ride's current status so a
// losing racer learns what actually happened.
func (s *RideService) conflict(ctx context.Context, rideID, format string) error {
	status := domain.RideStatus("unknown")
	if ride, err := s.rideRepo.GetByID(ctx, rideID); err == nil {
		status = ride.Status
	}
	return &ConflictError{Message: fmt.Sprintf(format, status)}
}

// populate attaches the user and captain records to a ride. Best effort:
// a missing party leaves the pointer nil.
func (s *RideService) populate(ctx context.Context, ride *domain.Ride) {
	if ride.UserID != "" {
		if user, err := s.userRepo.GetByID(ctx, ride.UserID); err == nil {
			ride.User = user
		}
	}
	if ride.CaptainID != "" {
		if captain, err := s.captainRepo.GetByID(ctx, ride.CaptainID); err == nil {
			ride.Captain = captain
		}
	}
}

func (s *RideService) notifyRide(ctx context.Context, ride *domain.Ride, notify func(context.Context, *domain.Ride) error) {
	if s.notifications == nil {
		return
	}
	_ = notify(ctx, ride)
}

// generateOTP returns a random six digit code the rider reads out to the
// captain at pickup.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func statusPtr(s domain.RideStatus) *domain.RideStatus {
	return &s
}

func statusIn(status domain.RideStatus, set []domain.RideStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

func isValidPoint(p domain.GeoPoint) bool {
	return isValidLatitude(p.Latitude) && isValidLongitude(p.Longitude)
}

func isValidLatitude(lat float64) bool {
	return !math.IsNaN(lat) && lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return !math.IsNaN(lng) && lng >= -180 && lng <= 180
}
