// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/settleup/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// GroupStore gives read access to groups and their ledgers.
type GroupStore interface {
	// ListGroups returns every group.
	ListGroups(ctx context.Context) ([]*models.Group, error)

	// GetGroup retrieves a group by its ID.
	// Returns an error wrapping ErrNotFound if the group does not exist.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListExpensesByGroup returns a group's expenses in the order they were recorded.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)

	// ListSettlementsByGroup returns a group's settlements in the order they were recorded.
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error)
}

// UserDirectory resolves members to their push delivery tokens.
type UserDirectory interface {
	// DeviceTokensByUser returns the tokens registered by each of userIDs.
	// Users without tokens (or unknown users) are omitted from the result.
	DeviceTokensByUser(ctx context.Context, userIDs []string) (map[string][]string, error)
}

// Store defines the full set of storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	GroupStore
	UserDirectory

	// CreateGroup persists a new group. ID and CreatedAt are populated if empty.
	CreateGroup(ctx context.Context, group *models.Group) error

	// AddGroupMembers appends users to a group roster, skipping existing members.
	AddGroupMembers(ctx context.Context, groupID string, userIDs []string) error

	// CreateExpense persists a new expense. ID and CreatedAt are populated if empty.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// CreateSettlement persists a new settlement. ID and CreatedAt are populated if empty.
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error

	// CreateUser persists a new user account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns nil, nil if no user has that email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns nil, nil if the user does not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// AddDeviceToken registers a delivery token for a user.
	// Re-registering a token moves it to the new user.
	AddDeviceToken(ctx context.Context, token *models.DeviceToken) error

	// RemoveDeviceToken unregisters a user's token. Removing an unknown token is not an error.
	RemoveDeviceToken(ctx context.Context, userID, token string) error

	// Close releases any resources held by the store.
	Close() error
}
