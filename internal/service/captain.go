package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"rideshare/internal/auth"
	"rideshare/internal/domain"
	"rideshare/internal/redis"
	"rideshare/internal/repository"
)

// CaptainService handles captain accounts, availability, live location
// and stats.
type CaptainService struct {
	captainRepo repository.CaptainRepository
	rideRepo    repository.RideRepository
	locations   redis.LocationStoreInterface
	tokens      TokenIssuer
	blacklist   redis.BlacklistStoreInterface
	presence    PresenceInvalidator
}

// NewCaptainService creates a new CaptainService. presence may be nil.
func NewCaptainService(
	captainRepo repository.CaptainRepository,
	rideRepo repository.RideRepository,
	locations redis.LocationStoreInterface,
	tokens TokenIssuer,
	blacklist redis.BlacklistStoreInterface,
	presence PresenceInvalidator,
) *CaptainService {
	return &CaptainService{
		captainRepo: captainRepo,
		rideRepo:    rideRepo,
		locations:   locations,
		tokens:      tokens,
		blacklist:   blacklist,
		presence:    presence,
	}
}

// RegisterCaptainRequest carries the fields for a new captain account.
type RegisterCaptainRequest struct {
	Fullname string
	Email    string
	Password string
	Vehicle  domain.Vehicle
}

// Register creates a captain account and returns it with a session token.
// New captains start inactive with the default rating.
func (s *CaptainService) Register(ctx context.Context, req RegisterCaptainRequest) (*domain.Captain, string, error) {
	req.Fullname = strings.TrimSpace(req.Fullname)
	req.Email = normalizeEmail(req.Email)
	if err := validateCredentials(req.Fullname, req.Email, req.Password); err != nil {
		return nil, "", err
	}
	if err := validateVehicle(req.Vehicle); err != nil {
		return nil, "", err
	}

	if _, err := s.captainRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, "", ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hashing password: %w", err)
	}

	captain := &domain.Captain{
		ID:           uuid.New().String(),
		Fullname:     req.Fullname,
		Email:        req.Email,
		PasswordHash: hash,
		Vehicle:      req.Vehicle,
		Status:       domain.CaptainStatusInactive,
		Rating:       5,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.captainRepo.Create(ctx, captain); err != nil {
		return nil, "", fmt.Errorf("creating captain: %w", err)
	}

	token, err := s.tokens.Generate(captain.ID, domain.RoleCaptain)
	if err != nil {
		return nil, "", err
	}
	return captain, token, nil
}

// Login authenticates a captain and returns a session token.
func (s *CaptainService) Login(ctx context.Context, email, password string) (*domain.Captain, string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	captain, err := s.captainRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !auth.CheckPassword(captain.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(captain.ID, domain.RoleCaptain)
	if err != nil {
		return nil, "", err
	}
	return captain, token, nil
}

// Logout blacklists the session token for the remainder of its lifetime
// and clears the captain's realtime channel binding.
func (s *CaptainService) Logout(ctx context.Context, captainID, token string) error {
	if s.presence != nil && captainID != "" {
		s.presence.UnbindActor(captainID)
	}
	if token == "" {
		return nil
	}
	return s.blacklist.Add(ctx, token, s.tokens.TTL())
}

func validateVehicle(v domain.Vehicle) error {
	if len(v.Color) < 3 {
		return fmt.Errorf("%w: vehicle color must be at least 3 characters", ErrMissingFields)
	}
	if len(v.Plate) < 3 {
		return fmt.Errorf("%w: vehicle plate must be at least 3 characters", ErrMissingFields)
	}
	if v.Capacity < 1 {
		return fmt.Errorf("%w: vehicle capacity must be at least 1", ErrMissingFields)
	}
	if !domain.ValidVehicleType(v.VehicleType) {
		return ErrInvalidVehicleType
	}
	return nil
}

// GetCaptain retrieves a captain by ID.
func (s *CaptainService) GetCaptain(ctx context.Context, captainID string) (*domain.Captain, error) {
	if captainID == "" {
		return nil, ErrInvalidCaptainID
	}
	return s.captainRepo.GetByID(ctx, captainID)
}

// SetStatus flips a captain between active and inactive. Going inactive
// drops their live location so riders stop seeing a stale marker.
func (s *CaptainService) SetStatus(ctx context.Context, captainID string, status domain.CaptainStatus) error {
	if captainID == "" {
		return ErrInvalidCaptainID
	}
	if status != domain.CaptainStatusActive && status != domain.CaptainStatusInactive {
		return fmt.Errorf("%w: status must be active or inactive", ErrMissingFields)
	}

	if err := s.captainRepo.UpdateStatus(ctx, captainID, status); err != nil {
		return err
	}

	if status == domain.CaptainStatusInactive && s.locations != nil {
		if err := s.locations.RemoveLocation(ctx, captainID); err != nil {
			return fmt.Errorf("removing captain location: %w", err)
		}
	}
	return nil
}

// UpdateLocation records the captain's current coordinates in the geo index.
func (s *CaptainService) UpdateLocation(ctx context.Context, captainID string, lat, lng float64) error {
	if captainID == "" {
		return ErrInvalidCaptainID
	}
	if !isValidLatitude(lat) || !isValidLongitude(lng) {
		return ErrInvalidLocation
	}
	return s.locations.UpdateLocation(ctx, captainID, lat, lng)
}

// CaptainsNearby returns captains within radiusKm of a point, nearest first.
func (s *CaptainService) CaptainsNearby(ctx context.Context, lat, lng, radiusKm float64) ([]redis.CaptainLocation, error) {
	if !isValidLatitude(lat) || !isValidLongitude(lng) {
		return nil, ErrInvalidLocation
	}
	if radiusKm <= 0 {
		radiusKm = 5
	}
	return s.locations.CaptainsInRadius(ctx, lat, lng, radiusKm)
}

// CaptainStats is the dashboard summary for one captain.
type CaptainStats struct {
	TotalRides    int     `json:"totalRides"`
	TotalEarnings float64 `json:"totalEarnings"`
	Rating        float64 `json:"rating"`
	TodayRides    int     `json:"todayRides"`
	TodayEarnings float64 `json:"todayEarnings"`
}

// GetStats aggregates a captain's completed rides into totals, plus a
// same-day slice. Earnings here are gross fares; the captain's net share
// lives on the captain record.
func (s *CaptainService) GetStats(ctx context.Context, captainID string) (*CaptainStats, error) {
	if captainID == "" {
		return nil, ErrInvalidCaptainID
	}

	captain, err := s.captainRepo.GetByID(ctx, captainID)
	if err != nil {
		return nil, err
	}

	rides, err := s.rideRepo.List(ctx, repository.RideFilter{
		CaptainID: captainID,
		Statuses:  []domain.RideStatus{domain.RideStatusCompleted, domain.RideStatusWaitingForRating},
	})
	if err != nil {
		return nil, err
	}

	stats := &CaptainStats{Rating: captain.Rating}
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	for _, ride := range rides {
		stats.TotalRides++
		stats.TotalEarnings += ride.Fare
		if !ride.CompletedAt.IsZero() && !ride.CompletedAt.Before(today) {
			stats.TodayRides++
			stats.TodayEarnings += ride.Fare
		}
	}
	return stats, nil
}
