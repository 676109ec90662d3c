package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"rideshare/internal/auth"
	"rideshare/internal/domain"
	"rideshare/internal/service"
)

func newUserService(userRepo *MockUserRepository, blacklist *MockBlacklist) *service.UserService {
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return service.NewUserService(userRepo, tokens, blacklist, nil)
}

func newCaptainService(captainRepo *MockCaptainRepository, rideRepo *MockRideRepository, locations *MockLocationStore, blacklist *MockBlacklist) *service.CaptainService {
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return service.NewCaptainService(captainRepo, rideRepo, locations, tokens, blacklist, nil)
}

func TestUserRegister_IssuesUsableToken(t *testing.T) {
	userRepo := NewMockUserRepository()
	svc := newUserService(userRepo, NewMockBlacklist())

	user, token, err := svc.Register(context.Background(), "Ada Rider", "Ada@Example.com", "hunter22")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("expected normalized email, got %q", user.Email)
	}
	if user.PasswordHash == "hunter22" {
		t.Error("expected password to be hashed")
	}
	if token == "" {
		t.Error("expected a session token")
	}

	verifier := auth.NewTokenManager("test-secret", time.Hour)
	claims, err := verifier.Parse(token)
	if err != nil {
		t.Fatalf("expected a parseable token: %v", err)
	}
	if claims.Subject != user.ID || claims.Role != domain.RoleUser {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestUserRegister_Validation(t *testing.T) {
	svc := newUserService(NewMockUserRepository(), NewMockBlacklist())

	testCases := []struct {
		name     string
		fullname string
		email    string
		password string
	}{
		{"short fullname", "Al", "al@example.com", "hunter22"},
		{"bad email", "Ada Rider", "nope", "hunter22"},
		{"short password", "Ada Rider", "ada@example.com", "12345"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Register(context.Background(), tc.fullname, tc.email, tc.password)
			if !errors.Is(err, service.ErrMissingFields) {
				t.Errorf("expected ErrMissingFields, got %v", err)
			}
		})
	}
}

func TestUserRegister_DuplicateEmail(t *testing.T) {
	userRepo := NewMockUserRepository()
	svc := newUserService(userRepo, NewMockBlacklist())

	if _, _, err := svc.Register(context.Background(), "Ada Rider", "ada@example.com", "hunter22"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := svc.Register(context.Background(), "Ada Clone", "ADA@example.com", "hunter23"); !errors.Is(err, service.ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUserLogin_WrongPassword(t *testing.T) {
	userRepo := NewMockUserRepository()
	svc := newUserService(userRepo, NewMockBlacklist())

	if _, _, err := svc.Register(context.Background(), "Ada Rider", "ada@example.com", "hunter22"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, _, err := svc.Login(context.Background(), "ada@example.com", "wrong-pass"); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "ghost@example.com", "hunter22"); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown account, got %v", err)
	}
}

func TestUserLogout_BlacklistsToken(t *testing.T) {
	userRepo := NewMockUserRepository()
	blacklist := NewMockBlacklist()
	svc := newUserService(userRepo, blacklist)

	user, token, err := svc.Register(context.Background(), "Ada Rider", "ada@example.com", "hunter22")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Logout(context.Background(), user.ID, token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	revoked, _ := blacklist.Contains(context.Background(), token)
	if !revoked {
		t.Error("expected token to be blacklisted after logout")
	}
}

func TestUserLogout_UnbindsPresence(t *testing.T) {
	userRepo := NewMockUserRepository()
	presence := NewMockPresence()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	svc := service.NewUserService(userRepo, tokens, NewMockBlacklist(), presence)

	user, token, err := svc.Register(context.Background(), "Ada Rider", "ada@example.com", "hunter22")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Logout(context.Background(), user.ID, token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !presence.WasUnbound(user.ID) {
		t.Error("expected logout to clear the rider's channel binding")
	}
}

func TestCaptainLogout_UnbindsPresence(t *testing.T) {
	captainRepo := NewMockCaptainRepository()
	presence := NewMockPresence()
	seedCaptain(captainRepo, "captain-1")
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	blacklist := NewMockBlacklist()
	svc := service.NewCaptainService(captainRepo, NewMockRideRepository(), NewMockLocationStore(), tokens, blacklist, presence)

	if err := svc.Logout(context.Background(), "captain-1", "some-token"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !presence.WasUnbound("captain-1") {
		t.Error("expected logout to clear the captain's channel binding")
	}
	revoked, _ := blacklist.Contains(context.Background(), "some-token")
	if !revoked {
		t.Error("expected token to be blacklisted after logout")
	}
}

func TestCaptainRegister_ValidatesVehicle(t *testing.T) {
	svc := newCaptainService(NewMockCaptainRepository(), NewMockRideRepository(), NewMockLocationStore(), NewMockBlacklist())

	req := service.RegisterCaptainRequest{
		Fullname: "Grace Captain",
		Email:    "grace@example.com",
		Password: "hunter22",
		Vehicle: domain.Vehicle{
			Color:       "bk", // too short
			Plate:       "KA-01-1234",
			Capacity:    4,
			VehicleType: domain.VehicleTypeCar,
		},
	}

	if _, _, err := svc.Register(context.Background(), req); !errors.Is(err, service.ErrMissingFields) {
		t.Errorf("expected ErrMissingFields, got %v", err)
	}

	req.Vehicle.Color = "black"
	req.Vehicle.VehicleType = "boat"
	if _, _, err := svc.Register(context.Background(), req); !errors.Is(err, service.ErrInvalidVehicleType) {
		t.Errorf("expected ErrInvalidVehicleType, got %v", err)
	}
}

func TestCaptainRegister_StartsInactiveWithDefaultRating(t *testing.T) {
	captainRepo := NewMockCaptainRepository()
	svc := newCaptainService(captainRepo, NewMockRideRepository(), NewMockLocationStore(), NewMockBlacklist())

	captain, _, err := svc.Register(context.Background(), service.RegisterCaptainRequest{
		Fullname: "Grace Captain",
		Email:    "grace@example.com",
		Password: "hunter22",
		Vehicle: domain.Vehicle{
			Color:       "black",
			Plate:       "KA-01-1234",
			Capacity:    4,
			VehicleType: domain.VehicleTypeCar,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captain.Status != domain.CaptainStatusInactive {
		t.Errorf("expected inactive status, got %s", captain.Status)
	}
	if captain.Rating != 5 {
		t.Errorf("expected default rating 5, got %v", captain.Rating)
	}
}

func TestCaptainSetStatus_InactiveDropsLocation(t *testing.T) {
	captainRepo := NewMockCaptainRepository()
	locations := NewMockLocationStore()
	seedCaptain(captainRepo, "captain-1")
	svc := newCaptainService(captainRepo, NewMockRideRepository(), locations, NewMockBlacklist())

	if err := svc.UpdateLocation(context.Background(), "captain-1", 12.97, 77.59); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !locations.HasLocation("captain-1") {
		t.Fatal("expected location stored")
	}

	if err := svc.SetStatus(context.Background(), "captain-1", domain.CaptainStatusInactive); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if locations.HasLocation("captain-1") {
		t.Error("expected location removed when going inactive")
	}
	if captainRepo.GetCaptain("captain-1").Status != domain.CaptainStatusInactive {
		t.Error("expected status persisted")
	}
}

func TestCaptainUpdateLocation_RejectsBadCoordinates(t *testing.T) {
	svc := newCaptainService(NewMockCaptainRepository(), NewMockRideRepository(), NewMockLocationStore(), NewMockBlacklist())

	if err := svc.UpdateLocation(context.Background(), "captain-1", 91.0, 77.0); !errors.Is(err, service.ErrInvalidLocation) {
		t.Errorf("expected ErrInvalidLocation, got %v", err)
	}
}

func TestCaptainStats_AggregatesCompletedRides(t *testing.T) {
	captainRepo := NewMockCaptainRepository()
	rideRepo := NewMockRideRepository()
	captain := seedCaptain(captainRepo, "captain-1")
	captain.Rating = 4.7

	now := time.Now().UTC()
	rideRepo.AddRide(&domain.Ride{
		ID: "r1", UserID: "u1", CaptainID: "captain-1",
		Status: domain.RideStatusCompleted, Fare: 300,
		CompletedAt: now, CreatedAt: now,
	})
	rideRepo.AddRide(&domain.Ride{
		ID: "r2", UserID: "u2", CaptainID: "captain-1",
		Status: domain.RideStatusCompleted, Fare: 150,
		CompletedAt: now.Add(-48 * time.Hour), CreatedAt: now.Add(-48 * time.Hour),
	})
	rideRepo.AddRide(&domain.Ride{
		ID: "r3", UserID: "u3", CaptainID: "captain-1",
		Status: domain.RideStatusCancelled, Fare: 500,
		CreatedAt: now,
	})

	svc := newCaptainService(captainRepo, rideRepo, NewMockLocationStore(), NewMockBlacklist())

	stats, err := svc.GetStats(context.Background(), "captain-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalRides != 2 {
		t.Errorf("expected 2 completed rides, got %d", stats.TotalRides)
	}
	if stats.TotalEarnings != 450 {
		t.Errorf("expected total earnings 450, got %v", stats.TotalEarnings)
	}
	if stats.TodayRides != 1 || stats.TodayEarnings != 300 {
		t.Errorf("expected today 1 ride / 300, got %d / %v", stats.TodayRides, stats.TodayEarnings)
	}
	if stats.Rating != 4.7 {
		t.Errorf("expected rating 4.7, got %v", stats.Rating)
	}
}
