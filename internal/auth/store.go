package auth

import "context"

// UserStore describes persistence operations required by the auth subsystem.
// Implementations return ErrNotFound for missing users and ErrConflict when a
// unique index (email, username) rejects a write.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	FindUserByID(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByEmailOrUsername(ctx context.Context, email, username string) (*User, error)
	// SetRole replaces the user's role and tenant. Tokens already issued keep the
	// old claims until they expire.
	SetRole(ctx context.Context, userID string, role Role, mosqueID string) error
}
