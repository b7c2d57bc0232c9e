package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered user account.
// User.ID is the member identifier that appears in group rosters and expenses.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's email address (unique). Used for login.
	Email string

	// DisplayName is the name shown to other group members.
	DisplayName string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// CreatedAt is the Unix timestamp when the user account was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last profile change.
	UpdatedAt int64
}

// NewUser creates a user with a fresh ID and timestamps.
func NewUser(email, displayName, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// DeviceToken is a push-notification delivery token registered by one of a user's devices.
// A user may have zero or more tokens; a token belongs to exactly one user.
type DeviceToken struct {
	Token     string
	UserID    string
	CreatedAt int64
}
