package domain

// ActorRole identifies which side of a ride an authenticated party is on.
type ActorRole string

const (
	RoleUser    ActorRole = "user"
	RoleCaptain ActorRole = "captain"
)
