package domain

import "time"

type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string // argon2 encoded
	Active       bool   // inactive accounts cannot log in or refresh
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
