package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/gatekeeper/internal/gate/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface for the user directory.
// Concrete drivers (sqlite today) implement this. It exposes
// sub-repositories to keep concerns tidy and testable.
type Store interface {
	Users() Users
	Roles() Roles

	ApplyMigrations() error

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// Use it for multi-step operations that must be atomic
	// (e.g. create user + assign default role).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped view of the store.
type Tx interface {
	Users() Users
	Roles() Roles
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks a user up by email, case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUserByUsername looks a user up by username, case-insensitively.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the email or username is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// ListUsers returns all users ordered by creation date (newest first).
	ListUsers(ctx context.Context) ([]domain.User, error)

	// DeleteUser cascades to user_roles (per schema).
	DeleteUser(ctx context.Context, userID string) error
}

type Roles interface {
	// GetRoleByName returns a role by its unique name.
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)

	// AssignRole links a user to a role. Idempotent.
	AssignRole(ctx context.Context, userID, roleID string) error

	// ListRoleNamesForUser returns the role names assigned to a user.
	ListRoleNamesForUser(ctx context.Context, userID string) ([]string, error)
}
