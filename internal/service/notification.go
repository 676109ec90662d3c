package service

import (
	"context"
	"log"

	"rideshare/internal/domain"
)

// Event names pushed to connected clients.
const (
	EventRideConfirmed    = "ride-confirmed"
	EventRideStarted      = "ride-started"
	EventRideCompleted    = "ride-completed"
	EventRideCancelled    = "ride-cancelled"
	EventArrivalUpdate    = "captain-arrival-update"
	EventCaptainLocation  = "captain-location-changed"
	EventLocationBadInput = "location-update-error"
)

// Pusher delivers one-shot events to connected clients. Implemented by the
// websocket hub. Delivery is at-most-once-attempted: an unbound actor means
// the event is dropped, never queued.
type Pusher interface {
	// Push delivers an event to a single actor's bound channel, if any.
	Push(actorID, event string, payload any) error
	// PushRide delivers an event to every client subscribed to a ride topic.
	PushRide(rideID, event string, payload any)
	// PushAll broadcasts an event to every connected client.
	PushAll(event string, payload any)
}

// NotificationService routes lifecycle events to the correct party over the
// presence hub. Failures are logged and swallowed: the persisted transition
// is the source of truth and clients reconcile on reconnect.
type NotificationService struct {
	pusher Pusher
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(pusher Pusher) *NotificationService {
	return &NotificationService{pusher: pusher}
}

// NotifyRideConfirmed tells the rider a captain accepted their ride.
func (s *NotificationService) NotifyRideConfirmed(ctx context.Context, ride *domain.Ride) error {
	return s.push(ride.UserID, EventRideConfirmed, map[string]any{"ride": ridePayload(ride)})
}

// NotifyRideStarted tells the rider the trip has begun.
func (s *NotificationService) NotifyRideStarted(ctx context.Context, ride *domain.Ride) error {
	return s.push(ride.UserID, EventRideStarted, map[string]any{"ride": ridePayload(ride)})
}

// NotifyRideCompleted tells the rider the trip is over. Delivered over the
// direct channel, the ride topic and the global broadcast, so a rider whose
// direct binding was lost still hears about it.
func (s *NotificationService) NotifyRideCompleted(ctx context.Context, ride *domain.Ride) error {
	payload := map[string]any{"ride": ridePayload(ride)}
	err := s.push(ride.UserID, EventRideCompleted, payload)
	if s.pusher != nil {
		s.pusher.PushRide(ride.ID, EventRideCompleted, payload)
		s.pusher.PushAll(EventRideCompleted, payload)
	}
	return err
}

// NotifyRideCancelled tells the party that did not cancel. cancelledBy is
// the role of the actor who cancelled.
func (s *NotificationService) NotifyRideCancelled(ctx context.Context, ride *domain.Ride, cancelledBy domain.ActorRole) error {
	var recipientID, message string
	if cancelledBy == domain.RoleUser {
		recipientID = ride.CaptainID
		message = "Ride was cancelled by the user"
	} else {
		recipientID = ride.UserID
		message = "Ride was cancelled by the captain"
	}

	if recipientID == "" {
		return nil // no other party to notify
	}

	return s.push(recipientID, EventRideCancelled, map[string]any{
		"rideId":  ride.ID,
		"message": message,
	})
}

// NotifyArrivalUpdate tells the rider the captain's new ETA.
func (s *NotificationService) NotifyArrivalUpdate(ctx context.Context, ride *domain.Ride) error {
	return s.push(ride.UserID, EventArrivalUpdate, map[string]any{
		"rideId":      ride.ID,
		"arrivalTime": arrivalPayload(ride.ArrivalTime),
	})
}

func (s *NotificationService) push(actorID, event string, payload any) error {
	if s.pusher == nil {
		return nil
	}
	if err := s.pusher.Push(actorID, event, payload); err != nil {
		log.Printf("[NOTIFICATION] dropped event=%s recipient=%s: %v", event, actorID, err)
	}
	return nil
}

// ridePayload is the wire shape of a ride pushed to clients. Kept in sync
// with the HTTP ride response.
func ridePayload(ride *domain.Ride) map[string]any {
	p := map[string]any{
		"id":          ride.ID,
		"userId":      ride.UserID,
		"pickup":      pointPayload(ride.Pickup),
		"destination": pointPayload(ride.Destination),
		"vehicleType": string(ride.VehicleType),
		"fare":        ride.Fare,
		"distance":    map[string]any{"value": ride.Distance.Value, "text": ride.Distance.Text},
		"duration":    map[string]any{"value": ride.Duration.Value, "text": ride.Duration.Text},
		"status":      string(ride.Status),
	}
	if ride.CaptainID != "" {
		p["captainId"] = ride.CaptainID
	}
	if ride.Captain != nil {
		p["captain"] = map[string]any{
			"id":       ride.Captain.ID,
			"fullname": ride.Captain.Fullname,
			"vehicle": map[string]any{
				"color":       ride.Captain.Vehicle.Color,
				"plate":       ride.Captain.Vehicle.Plate,
				"capacity":    ride.Captain.Vehicle.Capacity,
				"vehicleType": string(ride.Captain.Vehicle.VehicleType),
			},
			"rating": ride.Captain.Rating,
		}
	}
	if ride.User != nil {
		p["user"] = map[string]any{
			"id":       ride.User.ID,
			"fullname": ride.User.Fullname,
		}
	}
	if ride.ArrivalTime != nil {
		p["arrivalTime"] = arrivalPayload(ride.ArrivalTime)
	}
	if ride.Earnings != nil {
		p["earnings"] = map[string]any{
			"amount":          ride.Earnings.Amount,
			"platform_fee":    ride.Earnings.PlatformFee,
			"captain_earning": ride.Earnings.CaptainEarning,
		}
	}
	return p
}

func pointPayload(p domain.GeoPoint) map[string]any {
	return map[string]any{
		"title":     p.Title,
		"address":   p.Address,
		"latitude":  p.Latitude,
		"longitude": p.Longitude,
	}
}

func arrivalPayload(at *domain.ArrivalTime) map[string]any {
	if at == nil {
		return nil
	}
	return map[string]any{
		"minutes":   at.Minutes,
		"updatedAt": at.UpdatedAt,
	}
}
