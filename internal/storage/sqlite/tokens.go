package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/mmynk/settleup/internal/models"
)

// AddDeviceToken registers a push token for a user. A token already registered
// to another user is reassigned, since a device has one signed-in user at a time.
func (s *SQLiteStore) AddDeviceToken(ctx context.Context, token *models.DeviceToken) error {
	if token.CreatedAt == 0 {
		token.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO device_tokens (token, user_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(token) DO UPDATE SET user_id = excluded.user_id, created_at = excluded.created_at`,
		token.Token, token.UserID, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add device token: %w", err)
	}
	return nil
}

// RemoveDeviceToken deletes a user's token.
func (s *SQLiteStore) RemoveDeviceToken(ctx context.Context, userID, token string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM device_tokens WHERE user_id = ? AND token = ?",
		userID, token,
	)
	if err != nil {
		return fmt.Errorf("failed to remove device token: %w", err)
	}
	return nil
}

// DeviceTokensByUser returns each user's tokens, oldest registration first.
func (s *SQLiteStore) DeviceTokensByUser(ctx context.Context, userIDs []string) (map[string][]string, error) {
	tokens := make(map[string][]string)
	if len(userIDs) == 0 {
		return tokens, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, token FROM device_tokens
		 WHERE user_id IN (`+placeholders(len(userIDs))+`)
		 ORDER BY created_at, rowid`,
		stringArgs(userIDs)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get device tokens: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID, token string
		if err := rows.Scan(&userID, &token); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens[userID] = append(tokens[userID], token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate device tokens: %w", err)
	}

	return tokens, nil
}
