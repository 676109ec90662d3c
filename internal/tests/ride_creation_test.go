package tests

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"rideshare/internal/domain"
	"rideshare/internal/service"
)

func newRideService(rideRepo *MockRideRepository, userRepo *MockUserRepository, captainRepo *MockCaptainRepository, pusher *MockPusher) *service.RideService {
	var notifications *service.NotificationService
	if pusher != nil {
		notifications = service.NewNotificationService(pusher)
	}
	return service.NewRideService(rideRepo, userRepo, captainRepo, NewStubRouteProvider(), notifications)
}

func validCreateRequest() service.CreateRideRequest {
	return service.CreateRideRequest{
		UserID: "user-1",
		Pickup: domain.GeoPoint{
			Title:     "Home",
			Address:   "12 Main St",
			Latitude:  12.9716,
			Longitude: 77.5946,
		},
		Destination: domain.GeoPoint{
			Title:     "Office",
			Address:   "99 Work Ave",
			Latitude:  12.9352,
			Longitude: 77.6245,
		},
		VehicleType: domain.VehicleTypeCar,
	}
}

func TestCreateRide_ValidatesUserID(t *testing.T) {
	svc := newRideService(NewMockRideRepository(), NewMockUserRepository(), NewMockCaptainRepository(), nil)

	req := validCreateRequest()
	req.UserID = ""

	_, err := svc.CreateRide(context.Background(), req)
	if !errors.Is(err, service.ErrInvalidUserID) {
		t.Errorf("expected ErrInvalidUserID, got %v", err)
	}
}

func TestCreateRide_ValidatesPickupCoordinates(t *testing.T) {
	svc := newRideService(NewMockRideRepository(), NewMockUserRepository(), NewMockCaptainRepository(), nil)

	testCases := []struct {
		name string
		lat  float64
		lng  float64
	}{
		{"latitude too low", -91.0, 77.0},
		{"latitude too high", 91.0, 77.0},
		{"longitude too low", 12.0, -181.0},
		{"longitude too high", 12.0, 181.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreateRequest()
			req.Pickup.Latitude = tc.lat
			req.Pickup.Longitude = tc.lng

			_, err := svc.CreateRide(context.Background(), req)
			if !errors.Is(err, service.ErrInvalidPickupLocation) {
				t.Errorf("expected ErrInvalidPickupLocation, got %v", err)
			}
		})
	}
}

func TestCreateRide_ValidatesDestinationCoordinates(t *testing.T) {
	svc := newRideService(NewMockRideRepository(), NewMockUserRepository(), NewMockCaptainRepository(), nil)

	req := validCreateRequest()
	req.Destination.Latitude = -100.0

	_, err := svc.CreateRide(context.Background(), req)
	if !errors.Is(err, service.ErrInvalidDestinationLocation) {
		t.Errorf("expected ErrInvalidDestinationLocation, got %v", err)
	}
}

func TestCreateRide_ValidatesVehicleType(t *testing.T) {
	svc := newRideService(NewMockRideRepository(), NewMockUserRepository(), NewMockCaptainRepository(), nil)

	req := validCreateRequest()
	req.VehicleType = "helicopter"

	_, err := svc.CreateRide(context.Background(), req)
	if !errors.Is(err, service.ErrInvalidVehicleType) {
		t.Errorf("expected ErrInvalidVehicleType, got %v", err)
	}
}

func TestCreateRide_PricesFromRouteProvider(t *testing.T) {
	rideRepo := NewMockRideRepository()
	svc := newRideService(rideRepo, NewMockUserRepository(), NewMockCaptainRepository(), nil)

	ride, err := svc.CreateRide(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 5 km at the car rate: 100 + 5*40 = 300.
	if ride.Fare != 300 {
		t.Errorf("expected fare 300, got %v", ride.Fare)
	}
	if ride.Distance.Value != 5000 {
		t.Errorf("expected distance 5000, got %v", ride.Distance.Value)
	}
	if ride.Status != domain.RideStatusPending {
		t.Errorf("expected status pending, got %s", ride.Status)
	}
	if ride.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("expected payment status pending, got %s", ride.PaymentStatus)
	}
}

func TestCreateRide_GeneratesSixDigitOTP(t *testing.T) {
	svc := newRideService(NewMockRideRepository(), NewMockUserRepository(), NewMockCaptainRepository(), nil)

	otpPattern := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 10; i++ {
		ride, err := svc.CreateRide(context.Background(), validCreateRequest())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !otpPattern.MatchString(ride.OTP) {
			t.Fatalf("expected six digit OTP, got %q", ride.OTP)
		}
	}
}

func TestCreateRide_AutoRequiresClientFare(t *testing.T) {
	svc := newRideService(NewMockRideRepository(), NewMockUserRepository(), NewMockCaptainRepository(), nil)

	req := validCreateRequest()
	req.VehicleType = domain.VehicleTypeAuto

	_, err := svc.CreateRide(context.Background(), req)
	if !errors.Is(err, service.ErrFareRequired) {
		t.Errorf("expected ErrFareRequired, got %v", err)
	}
}

func TestCreateRide_AcceptsClientFare(t *testing.T) {
	rideRepo := NewMockRideRepository()
	svc := newRideService(rideRepo, NewMockUserRepository(), NewMockCaptainRepository(), nil)

	req := validCreateRequest()
	req.VehicleType = domain.VehicleTypeAuto
	req.Fare = 180
	req.Distance = &domain.ValueText{Value: 4200, Text: "4.2 km"}
	req.Duration = &domain.ValueText{Value: 780, Text: "13 mins"}

	ride, err := svc.CreateRide(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.Fare != 180 {
		t.Errorf("expected fare 180, got %v", ride.Fare)
	}
	if ride.Distance.Value != 4200 {
		t.Errorf("expected client distance kept, got %v", ride.Distance.Value)
	}
}

func TestCreateRide_PopulatesUser(t *testing.T) {
	rideRepo := NewMockRideRepository()
	userRepo := NewMockUserRepository()
	userRepo.AddUser(&domain.User{ID: "user-1", Fullname: "Ada Rider"})
	svc := newRideService(rideRepo, userRepo, NewMockCaptainRepository(), nil)

	ride, err := svc.CreateRide(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.User == nil || ride.User.Fullname != "Ada Rider" {
		t.Errorf("expected populated user, got %+v", ride.User)
	}
}

func TestGetFare_ReturnsAllVehicleClasses(t *testing.T) {
	svc := newRideService(NewMockRideRepository(), NewMockUserRepository(), NewMockCaptainRepository(), nil)

	req := validCreateRequest()
	estimate, err := svc.GetFare(context.Background(), req.Pickup, req.Destination)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 5 km itinerary from the stub provider.
	expected := map[string]float64{"bike": 150, "car": 300, "premium": 550}
	for class, fare := range expected {
		if estimate.Fare[class] != fare {
			t.Errorf("expected %s fare %v, got %v", class, fare, estimate.Fare[class])
		}
	}
}
