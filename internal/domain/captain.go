package domain

import "time"

// CaptainStatus represents a captain's availability, independent of any
// specific ride. Toggled explicitly when the captain goes online/offline.
type CaptainStatus string

const (
	CaptainStatusActive   CaptainStatus = "active"
	CaptainStatusInactive CaptainStatus = "inactive"
)

// Vehicle holds a captain's registered vehicle attributes.
type Vehicle struct {
	Color       string
	Plate       string
	Capacity    int
	VehicleType VehicleType
}

// Captain represents a driver in the system.
type Captain struct {
	ID            string
	Fullname      string
	Email         string
	PasswordHash  string // never serialized to clients
	Vehicle       Vehicle
	Status        CaptainStatus
	Rating        float64 // running average, default 5
	TotalEarnings float64 // monotonically increasing
	CreatedAt     time.Time
}
