package service

import "errors"

var (
	// ErrInvalidRideID is returned when ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidUserID is returned when user ID is empty.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidCaptainID is returned when captain ID is empty.
	ErrInvalidCaptainID = errors.New("invalid captain id")

	// ErrInvalidPickupLocation is returned when pickup coordinates are missing or invalid.
	ErrInvalidPickupLocation = errors.New("invalid pickup location: latitude and longitude are required")

	// ErrInvalidDestinationLocation is returned when destination coordinates are missing or invalid.
	ErrInvalidDestinationLocation = errors.New("invalid destination location: latitude and longitude are required")

	// ErrInvalidVehicleType is returned when the vehicle type is not car, bike or auto.
	ErrInvalidVehicleType = errors.New("invalid vehicle type")

	// ErrFareRequired is returned when a ride for a class outside the fare
	// table is created without a precomputed fare.
	ErrFareRequired = errors.New("fare is required for this vehicle type")

	// ErrInvalidArrivalTime is returned when arrival time is outside [1,60] minutes.
	ErrInvalidArrivalTime = errors.New("arrival time must be between 1 and 60 minutes")

	// ErrInvalidRating is returned when a rating is outside [1,5].
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrInvalidLocation is returned when location coordinates are not finite numbers.
	ErrInvalidLocation = errors.New("invalid location: latitude and longitude must be numbers")

	// ErrMissingFields is returned when required fields are absent or malformed.
	ErrMissingFields = errors.New("missing or invalid field")

	// ErrEmailTaken is returned when registering with an already used email.
	ErrEmailTaken = errors.New("account with this email already exists")

	// ErrInvalidCredentials is returned on failed login.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ConflictError means a lifecycle precondition did not hold: the ride's
// current status has no edge for the requested transition. The message
// always names the current status so clients can reconcile.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// ForbiddenError means the caller is authenticated but not a party
// authorized for this ride or role.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

// UpstreamError wraps a provider failure that has no safe local default.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string { return "upstream provider error: " + e.Err.Error() }
func (e *UpstreamError) Unwrap() error { return e.Err }
