package domain

import "time"

// User represents a rider in the system.
type User struct {
	ID           string
	Fullname     string
	Email        string
	PasswordHash string // never serialized to clients
	CreatedAt    time.Time
}
