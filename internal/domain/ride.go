package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusPending          RideStatus = "pending"
	RideStatusConfirmed        RideStatus = "confirmed"
	RideStatusStarted          RideStatus = "started"
	RideStatusInProgress       RideStatus = "in-progress"
	RideStatusWaitingForRating RideStatus = "waiting_for_rating"
	RideStatusCompleted        RideStatus = "completed"
	RideStatusCancelled        RideStatus = "cancelled"
)

// VehicleType represents the class of vehicle requested for a ride.
type VehicleType string

const (
	VehicleTypeCar  VehicleType = "car"
	VehicleTypeBike VehicleType = "bike"
	VehicleTypeAuto VehicleType = "auto"
)

// PaymentStatus represents whether the ride's fare has been settled.
// Settlement itself is out of scope; the field is carried for clients.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

// GeoPoint is a labeled geocoded location.
type GeoPoint struct {
	Title     string
	Address   string
	Latitude  float64
	Longitude float64
}

// ValueText carries a provider measurement plus its human-readable form,
// e.g. {5000, "5.0 km"} or {900, "15 mins"}.
type ValueText struct {
	Value float64
	Text  string
}

// ArrivalTime is the captain's estimated time to pickup, canonicalized to
// whole minutes at the API boundary.
type ArrivalTime struct {
	Minutes   int
	UpdatedAt time.Time
}

// PartyRating is one party's rating of the other for a single ride.
type PartyRating struct {
	Rating  int
	Comment string
	RatedAt time.Time
}

// RideRating holds both sides' ratings. Each side is written at most once.
type RideRating struct {
	User    *PartyRating
	Captain *PartyRating
}

// Earnings is the fare split computed when a ride completes.
type Earnings struct {
	Amount         float64
	PlatformFee    float64
	CaptainEarning float64
}

// Ride is the central aggregate tracking one trip from request to
// completion or cancellation. Status only moves along the lifecycle edges
// enforced by the ride service; CaptainID is empty exactly while pending.
type Ride struct {
	ID          string
	UserID      string
	CaptainID   string // empty until confirmed, set exactly once
	Pickup      GeoPoint
	Destination GeoPoint
	VehicleType VehicleType
	Fare        float64 // finalized at creation, immutable afterwards
	Distance    ValueText
	Duration    ValueText
	OTP         string // 6 digits, generated at creation; not checked on start
	Status      RideStatus

	ArrivalTime        *ArrivalTime
	StartTime          time.Time
	CompletedAt        time.Time
	CancelledAt        time.Time
	CancellationReason string

	Rating        RideRating
	Earnings      *Earnings
	PaymentStatus PaymentStatus
	CreatedAt     time.Time

	// Populated references, filled on demand from the user/captain
	// repositories. Nil unless explicitly populated.
	User    *User
	Captain *Captain
}

// ValidVehicleType reports whether v is a known vehicle class.
func ValidVehicleType(v VehicleType) bool {
	switch v {
	case VehicleTypeCar, VehicleTypeBike, VehicleTypeAuto:
		return true
	}
	return false
}

// CancellableStatuses are the states a ride may be cancelled from.
var CancellableStatuses = []RideStatus{RideStatusPending, RideStatusConfirmed, RideStatusStarted}

// CompletableStatuses are the states complete-ride accepts. "in-progress"
// is a legacy alias of "started" kept for rides written by older clients.
var CompletableStatuses = []RideStatus{RideStatusStarted, RideStatusInProgress, RideStatusConfirmed}
