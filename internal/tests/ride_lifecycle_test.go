package tests

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
	"rideshare/internal/service"
)

func seedRide(rideRepo *MockRideRepository, status domain.RideStatus, captainID string) *domain.Ride {
	ride := &domain.Ride{
		ID:        "ride-1",
		UserID:    "user-1",
		CaptainID: captainID,
		Pickup: domain.GeoPoint{
			Latitude:  12.9716,
			Longitude: 77.5946,
		},
		Destination: domain.GeoPoint{
			Latitude:  12.9352,
			Longitude: 77.6245,
		},
		VehicleType:   domain.VehicleTypeCar,
		Fare:          300,
		OTP:           "123456",
		Status:        status,
		PaymentStatus: domain.PaymentStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	rideRepo.AddRide(ride)
	return ride
}

func seedCaptain(captainRepo *MockCaptainRepository, id string) *domain.Captain {
	captain := &domain.Captain{
		ID:       id,
		Fullname: "Grace Captain",
		Email:    id + "@example.com",
		Vehicle: domain.Vehicle{
			Color:       "black",
			Plate:       "KA-01-1234",
			Capacity:    4,
			VehicleType: domain.VehicleTypeCar,
		},
		Status: domain.CaptainStatusActive,
		Rating: 5,
	}
	captainRepo.AddCaptain(captain)
	return captain
}

func TestConfirmRide_AssignsCaptain(t *testing.T) {
	rideRepo := NewMockRideRepository()
	captainRepo := NewMockCaptainRepository()
	pusher := NewMockPusher()
	seedRide(rideRepo, domain.RideStatusPending, "")
	seedCaptain(captainRepo, "captain-1")
	svc := newRideService(rideRepo, NewMockUserRepository(), captainRepo, pusher)

	ride, err := svc.ConfirmRide(context.Background(), "ride-1", "captain-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.Status != domain.RideStatusConfirmed {
		t.Errorf("expected status confirmed, got %s", ride.Status)
	}
	if ride.CaptainID != "captain-1" {
		t.Errorf("expected captain assigned, got %q", ride.CaptainID)
	}

	events := pusher.EventsNamed(service.EventRideConfirmed)
	if len(events) != 1 || events[0].ActorID != "user-1" {
		t.Errorf("expected one ride-confirmed event to user-1, got %+v", events)
	}
}

func TestConfirmRide_ConflictNamesCurrentStatus(t *testing.T) {
	rideRepo := NewMockRideRepository()
	captainRepo := NewMockCaptainRepository()
	seedRide(rideRepo, domain.RideStatusConfirmed, "captain-1")
	seedCaptain(captainRepo, "captain-2")
	svc := newRideService(rideRepo, NewMockUserRepository(), captainRepo, nil)

	_, err := svc.ConfirmRide(context.Background(), "ride-1", "captain-2")

	var conflict *service.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if !strings.Contains(conflict.Message, "confirmed") {
		t.Errorf("expected conflict message to name current status, got %q", conflict.Message)
	}
}

func TestConfirmRide_UnknownRide(t *testing.T) {
	rideRepo := NewMockRideRepository()
	captainRepo := NewMockCaptainRepository()
	seedCaptain(captainRepo, "captain-1")
	svc := newRideService(rideRepo, NewMockUserRepository(), captainRepo, nil)

	_, err := svc.ConfirmRide(context.Background(), "ride-404", "captain-1")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestConfirmRide_ConcurrentCaptainsExactlyOneWinner(t *testing.T) {
	rideRepo := NewMockRideRepository()
	captainRepo := NewMockCaptainRepository()
	seedRide(rideRepo, domain.RideStatusPending, "")
	svc := newRideService(rideRepo, NewMockUserRepository(), captainRepo, nil)

	const captains = 20
	for i := 0; i < captains; i++ {
		seedCaptain(captainRepo, captainID(i))
	}

	var wins, conflicts int32
	var wg sync.WaitGroup
	for i := 0; i < captains; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.ConfirmRide(context.Background(), "ride-1", captainID(i))
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			default:
				var conflict *service.ConflictError
				if errors.As(err, &conflict) {
					atomic.AddInt32(&conflicts, 1)
				} else {
					t.Errorf("unexpected error: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one winner, got %d", wins)
	}
	if conflicts != captains-1 {
		t.Errorf("expected %d conflicts, got %d", captains-1, conflicts)
	}
}

func captainID(i int) string {
	return "captain-" + string(rune('a'+i))
}

func TestStartRide_RequiresConfirmedStatus(t *testing.T) {
	rideRepo := NewMockRideRepository()
	captainRepo := NewMockCaptainRepository()
	seedRide(rideRepo, domain.RideStatusPending, "")
	seedCaptain(captainRepo, "captain-1")
	svc := newRideService(rideRepo, NewMockUserRepository(), captainRepo, nil)

	_, err := svc.StartRide(context.Background(), "ride-1", "captain-1")

	var conflict *service.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if !strings.Contains(conflict.Message, "pending") {
		t.Errorf("expected message to name current status, got %q", conflict.Message)
	}
}

func TestStartRide_OnlyAssignedCaptain(t *testing.T) {
	rideRepo := NewMockRideRepository()
	captainRepo := NewMockCaptainRepository()
	seedRide(rideRepo, domain.RideStatusConfirmed, "captain-1")
	seedCaptain(captainRepo, "captain-2")
	svc := newRideService(rideRepo, NewMockUserRepository(), captainRepo, nil)

	_, err := svc.StartRide(context.Background(), "ride-1", "captain-2")

	var forbidden *service.ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Errorf("expected ForbiddenError, got %v", err)
	}
}

func TestStartRide_StampsStartTime(t *testing.T) {
	rideRepo := NewMockRideRepository()
	captainRepo := NewMockCaptainRepository()
	seedRide(rideRepo, domain.RideStatusConfirmed, "captain-1")
	seedCaptain(captainRepo, "captain-1")
	pusher := NewMockPusher()
	svc := newRideService(rideRepo, NewMockUserRepository(), captainRepo, pusher)

	ride, err := svc.StartRide(context.Background(), "ride-1", "captain-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.Status != domain.RideStatusStarted {
		t.Errorf("expected status started, got %s", ride.Status)
	}
	if ride.StartTime.IsZero() {
		t.Error("expected start time to be stamped")
	}
	if len(pusher.EventsNamed(service.EventRideStarted)) != 1 {
		t.Error("expected ride-started event")
	}
}

func TestCompleteRide_SettlesEarnings(t *testing.T) {
	rideRepo := NewMockRideRepository()
	captainRepo := NewMockCaptainRepository()
	seedRide(rideRepo, domain.RideStatusStarted, "captain-1")
	seedCaptain(captainRepo, "captain-1")
	pusher := NewMockPusher()
	svc := newRideService(rideRepo, NewMockUserRepository(), captainRepo, pusher)

	ride, err := svc.CompleteRide(context.Background(), "ride-1", "captain-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.Status != domain.RideStatusWaitingForRating {
		t.Errorf("expected status waiting_for_rating, got %s", ride.Status)
	}
	if ride.Earnings == nil {
		t.Fatal("expected earnings to be recorded")
	}
	if ride.Earnings.PlatformFee != 60 || ride.Earnings.CaptainEarning != 240 {
		t.Errorf("expected 60/240 split of 300, got %v/%v", ride.Earnings.PlatformFee, ride.Earnings.CaptainEarning)
	}

	captain := captainRepo.GetCaptain("captain-1")
	if captain.TotalEarnings != 240 {
		t.Errorf("expected captain total earnings 240, got %v", captain.TotalEarnings)
	}

	// Completion fans out on every delivery path.
	if len(pusher.EventsNamed(service.EventRideCompleted)) != 3 {
		t.Errorf("expected completion on direct, room and broadcast paths, got %d events",
			len(pusher.EventsNamed(service.EventRideCompleted)))
	}
}

func TestCompleteRide_AllowedFromConfirmed(t *testing.T) {
	rideRepo := NewMockRideRepository()
	captainRepo := NewMockCaptainRepository()
	seedRide(rideRepo, domain.RideStatusConfirmed, "captain-1")
	seedCaptain(captainRepo, "captain-1")
	svc := newRideService(rideRepo, NewMockUserRepository(), captainRepo, nil)

	ride, err := svc.CompleteRide(context.Background(), "ride-1", "captain-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.Status != domain.RideStatusWaitingForRating {
		t.Errorf("expected status waiting_for_rating, got %s", ride.Status)
	}
}

func TestCompleteRide_RejectedFromTerminalStates(t *testing.T) {
	for _, status := range []domain.RideStatus{domain.RideStatusCompleted, domain.RideStatusCancelled, domain.RideStatusPending} {
		t.Run(string(status), func(t *testing.T) {
			rideRepo := NewMockRideRepository()
			captainRepo := NewMockCaptainRepository()
			seedRide(rideRepo, status, "captain-1")
			seedCaptain(captainRepo, "captain-1")
			svc := newRideService(rideRepo, NewMockUserRepository(), captainRepo, nil)

			_, err := svc.CompleteRide(context.Background(), "ride-1", "captain-1")

			var conflict *service.ConflictError
			if !errors.As(err, &conflict) {
				t.Fatalf("expected ConflictError, got %v", err)
			}
			if !strings.Contains(conflict.Message, string(status)) {
				t.Errorf("expected message to name %s, got %q", status, conflict.Message)
			}
		})
	}
}

// The status gate runs before the captain gate: a non-completable ride is
// reported as a conflict naming its state even when the caller is not the
// assigned captain. Only completable rides check who is asking.
func TestCompleteRide_ChecksStatusBeforeCaptain(t *testing.T) {
	rideRepo := NewMockRideRepository()
	captainRepo := NewMockCaptainRepository()
	seedRide(rideRepo, domain.RideStatusWaitingForRating, "captain-1")
	seedCaptain(captainRepo, "captain-1")
	seedCaptain(captainRepo, "captain-2")
	svc := newRideService(rideRepo, NewMockUserRepository(), captainRepo, nil)

	_, err := svc.CompleteRide(context.Background(), "ride-1", "captain-2")

	var conflict *service.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if !strings.Contains(conflict.Message, string(domain.RideStatusWaitingForRating)) {
		t.Errorf("expected message to name the current state, got %q", conflict.Message)
	}
}

func TestCompleteRide_ForbiddenForWrongCaptain(t *testing.T) {
	rideRepo := NewMockRideRepository()
	captainRepo := NewMockCaptainRepository()
	seedRide(rideRepo, domain.RideStatusStarted, "captain-1")
	seedCaptain(captainRepo, "captain-1")
	seedCaptain(captainRepo, "captain-2")
	svc := newRideService(rideRepo, NewMockUserRepository(), captainRepo, nil)

	_, err := svc.CompleteRide(context.Background(), "ride-1", "captain-2")

	var forbidden *service.ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}
}

func TestRateRide_ClosesRideAndRefreshesRating(t *testing.T) {
	rideRepo := NewMockRideRepository()
	captainRepo := NewMockCaptainRepository()
	ride := seedRide(rideRepo, domain.RideStatusWaitingForRating, "captain-1")
	ride.CompletedAt = time.Now().UTC()
	seedCaptain(captainRepo, "captain-1")
	svc := newRideService(rideRepo, NewMockUserRepository(), captainRepo, nil)

	rated, err := svc.RateRide(context.Background(), "ride-1", "user-1", 4, "smooth trip")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rated.Status != domain.RideStatusCompleted {
		t.Errorf("expected status completed, got %s", rated.Status)
	}
	if rated.Rating.Captain == nil || rated.Rating.Captain.Rating != 4 {
		t.Errorf("expected captain rating 4, got %+v", rated.Rating.Captain)
	}

	captain := captainRepo.GetCaptain("captain-1")
	if captain.Rating != 4 {
		t.Errorf("expected captain rating refreshed to 4, got %v", captain.Rating)
	}
}

func TestRateRide_AverageRoundedToOneDecimal(t *testing.T) {
	rideRepo := NewMockRideRepository()
	captainRepo := NewMockCaptainRepository()
	seedCaptain(captainRepo, "captain-1")

	// Two already-rated completed rides: 5 and 4.
	now := time.Now().UTC()
	for i, r := range []int{5, 4} {
		rideRepo.AddRide(&domain.Ride{
			ID:        "past-" + string(rune('a'+i)),
			UserID:    "user-1",
			CaptainID: "captain-1",
			Status:    domain.RideStatusCompleted,
			Rating:    domain.RideRating{Captain: &domain.PartyRating{Rating: r}},
			CreatedAt: now,
		})
	}
	seedRide(rideRepo, domain.RideStatusWaitingForRating, "captain-1")
	svc := newRideService(rideRepo, NewMockUserRepository(), captainRepo, nil)

	if _, err := svc.RateRide(context.Background(), "ride-1", "user-1", 4, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// (5 + 4 + 4) / 3 = 4.333..., rounded to 4.3.
	captain := captainRepo.GetCaptain("captain-1")
	if captain.Rating != 4.3 {
		t.Errorf("expected rating 4.3, got %v", captain.Rating)
	}
}

func TestRateRide_ValidatesRatingRange(t *testing.T) {
	rideRepo := NewMockRideRepository()
	seedRide(rideRepo, domain.RideStatusWaitingForRating, "captain-1")
	svc := newRideService(rideRepo, NewMockUserRepository(), NewMockCaptainRepository(), nil)

	for _, rating := range []int{0, 6, -1} {
		if _, err := svc.RateRide(context.Background(), "ride-1", "user-1", rating, ""); !errors.Is(err, service.ErrInvalidRating) {
			t.Errorf("expected ErrInvalidRating for %d, got %v", rating, err)
		}
	}
}

func TestRateRide_OnlyWhileWaitingForRating(t *testing.T) {
	rideRepo := NewMockRideRepository()
	seedRide(rideRepo, domain.RideStatusStarted, "captain-1")
	svc := newRideService(rideRepo, NewMockUserRepository(), NewMockCaptainRepository(), nil)

	_, err := svc.RateRide(context.Background(), "ride-1", "user-1", 5, "")

	var conflict *service.ConflictError
	if !errors.As(err, &conflict) {
		t.Errorf("expected ConflictError, got %v", err)
	}
}

func TestRateRide_OnlyRiderMayRate(t *testing.T) {
	rideRepo := NewMockRideRepository()
	seedRide(rideRepo, domain.RideStatusWaitingForRating, "captain-1")
	svc := newRideService(rideRepo, NewMockUserRepository(), NewMockCaptainRepository(), nil)

	_, err := svc.RateRide(context.Background(), "ride-1", "user-2", 5, "")

	var forbidden *service.ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Errorf("expected ForbiddenError, got %v", err)
	}
}

func TestCancelRide_ByUserNotifiesCaptain(t *testing.T) {
	rideRepo := NewMockRideRepository()
	captainRepo := NewMockCaptainRepository()
	seedRide(rideRepo, domain.RideStatusConfirmed, "captain-1")
	seedCaptain(captainRepo, "captain-1")
	pusher := NewMockPusher()
	svc := newRideService(rideRepo, NewMockUserRepository(), captainRepo, pusher)

	ride, err := svc.CancelRide(context.Background(), "ride-1", "user-1", domain.RoleUser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.Status != domain.RideStatusCancelled {
		t.Errorf("expected status cancelled, got %s", ride.Status)
	}
	if ride.CancellationReason != "Cancelled by user" {
		t.Errorf("unexpected cancellation reason %q", ride.CancellationReason)
	}
	if ride.CancelledAt.IsZero() {
		t.Error("expected cancelled timestamp")
	}

	events := pusher.EventsNamed(service.EventRideCancelled)
	if len(events) != 1 || events[0].ActorID != "captain-1" {
		t.Errorf("expected cancellation event to captain-1, got %+v", events)
	}
}

func TestCancelRide_ByCaptainNotifiesUser(t *testing.T) {
	rideRepo := NewMockRideRepository()
	captainRepo := NewMockCaptainRepository()
	seedRide(rideRepo, domain.RideStatusStarted, "captain-1")
	seedCaptain(captainRepo, "captain-1")
	pusher := NewMockPusher()
	svc := newRideService(rideRepo, NewMockUserRepository(), captainRepo, pusher)

	ride, err := svc.CancelRide(context.Background(), "ride-1", "captain-1", domain.RoleCaptain)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.CancellationReason != "Cancelled by captain" {
		t.Errorf("unexpected cancellation reason %q", ride.CancellationReason)
	}

	events := pusher.EventsNamed(service.EventRideCancelled)
	if len(events) != 1 || events[0].ActorID != "user-1" {
		t.Errorf("expected cancellation event to user-1, got %+v", events)
	}
}

func TestCancelRide_RejectedAfterCompletion(t *testing.T) {
	for _, status := range []domain.RideStatus{domain.RideStatusWaitingForRating, domain.RideStatusCompleted, domain.RideStatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			rideRepo := NewMockRideRepository()
			seedRide(rideRepo, status, "captain-1")
			svc := newRideService(rideRepo, NewMockUserRepository(), NewMockCaptainRepository(), nil)

			_, err := svc.CancelRide(context.Background(), "ride-1", "user-1", domain.RoleUser)

			var conflict *service.ConflictError
			if !errors.As(err, &conflict) {
				t.Errorf("expected ConflictError, got %v", err)
			}
		})
	}
}

func TestCancelRide_StrangerForbidden(t *testing.T) {
	rideRepo := NewMockRideRepository()
	seedRide(rideRepo, domain.RideStatusPending, "")
	svc := newRideService(rideRepo, NewMockUserRepository(), NewMockCaptainRepository(), nil)

	_, err := svc.CancelRide(context.Background(), "ride-1", "user-9", domain.RoleUser)

	var forbidden *service.ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Errorf("expected ForbiddenError, got %v", err)
	}
}

func TestUpdateArrivalTime_ValidatesRange(t *testing.T) {
	rideRepo := NewMockRideRepository()
	seedRide(rideRepo, domain.RideStatusConfirmed, "captain-1")
	svc := newRideService(rideRepo, NewMockUserRepository(), NewMockCaptainRepository(), nil)

	for _, minutes := range []int{0, -5, 61} {
		if _, err := svc.UpdateArrivalTime(context.Background(), "ride-1", "captain-1", minutes); !errors.Is(err, service.ErrInvalidArrivalTime) {
			t.Errorf("expected ErrInvalidArrivalTime for %d, got %v", minutes, err)
		}
	}
}

func TestUpdateArrivalTime_NotifiesRider(t *testing.T) {
	rideRepo := NewMockRideRepository()
	seedRide(rideRepo, domain.RideStatusConfirmed, "captain-1")
	pusher := NewMockPusher()
	svc := newRideService(rideRepo, NewMockUserRepository(), NewMockCaptainRepository(), pusher)

	ride, err := svc.UpdateArrivalTime(context.Background(), "ride-1", "captain-1", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.ArrivalTime == nil || ride.ArrivalTime.Minutes != 7 {
		t.Errorf("expected arrival time 7 minutes, got %+v", ride.ArrivalTime)
	}
	// Status is untouched by an ETA update.
	if ride.Status != domain.RideStatusConfirmed {
		t.Errorf("expected status unchanged, got %s", ride.Status)
	}

	events := pusher.EventsNamed(service.EventArrivalUpdate)
	if len(events) != 1 || events[0].ActorID != "user-1" {
		t.Errorf("expected arrival event to user-1, got %+v", events)
	}
}

func TestUpdateArrivalTime_RejectedAfterStart(t *testing.T) {
	rideRepo := NewMockRideRepository()
	seedRide(rideRepo, domain.RideStatusStarted, "captain-1")
	svc := newRideService(rideRepo, NewMockUserRepository(), NewMockCaptainRepository(), nil)

	_, err := svc.UpdateArrivalTime(context.Background(), "ride-1", "captain-1", 5)

	var conflict *service.ConflictError
	if !errors.As(err, &conflict) {
		t.Errorf("expected ConflictError, got %v", err)
	}
}

func TestGetPendingRides_OnlyUnassignedPending(t *testing.T) {
	rideRepo := NewMockRideRepository()
	now := time.Now().UTC()
	rideRepo.AddRide(&domain.Ride{ID: "r1", UserID: "user-1", Status: domain.RideStatusPending, CreatedAt: now})
	rideRepo.AddRide(&domain.Ride{ID: "r2", UserID: "user-2", Status: domain.RideStatusPending, CaptainID: "captain-1", CreatedAt: now})
	rideRepo.AddRide(&domain.Ride{ID: "r3", UserID: "user-3", Status: domain.RideStatusConfirmed, CaptainID: "captain-1", CreatedAt: now})
	svc := newRideService(rideRepo, NewMockUserRepository(), NewMockCaptainRepository(), nil)

	rides, err := svc.GetPendingRides(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rides) != 1 || rides[0].ID != "r1" {
		t.Errorf("expected only the unassigned pending ride, got %+v", rides)
	}
}

func TestGetCaptainHistory_NewestFirst(t *testing.T) {
	rideRepo := NewMockRideRepository()
	now := time.Now().UTC()
	rideRepo.AddRide(&domain.Ride{ID: "old", UserID: "user-1", CaptainID: "captain-1", Status: domain.RideStatusCompleted, CreatedAt: now.Add(-time.Hour)})
	rideRepo.AddRide(&domain.Ride{ID: "new", UserID: "user-1", CaptainID: "captain-1", Status: domain.RideStatusCancelled, CreatedAt: now})
	rideRepo.AddRide(&domain.Ride{ID: "active", UserID: "user-1", CaptainID: "captain-1", Status: domain.RideStatusStarted, CreatedAt: now})
	svc := newRideService(rideRepo, NewMockUserRepository(), NewMockCaptainRepository(), nil)

	rides, err := svc.GetCaptainHistory(context.Background(), "captain-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rides) != 2 {
		t.Fatalf("expected 2 finished rides, got %d", len(rides))
	}
	if rides[0].ID != "new" || rides[1].ID != "old" {
		t.Errorf("expected newest first ordering, got %s then %s", rides[0].ID, rides[1].ID)
	}
}
