package domain

import "time"

// Role names assigned at registration and checked by route guards.
const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

type Role struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
