package reminder

import (
	"context"
	"fmt"

	"github.com/mmynk/settleup/internal/storage"
)

// TokenResolver maps group members to the delivery tokens of their devices.
type TokenResolver interface {
	ResolveTokens(ctx context.Context, memberIDs []string) ([]string, error)
}

// DirectoryResolver resolves tokens through a storage.UserDirectory.
type DirectoryResolver struct {
	Directory storage.UserDirectory
}

// ResolveTokens returns every member's tokens, in roster order.
func (r DirectoryResolver) ResolveTokens(ctx context.Context, memberIDs []string) ([]string, error) {
	byUser, err := r.Directory.DeviceTokensByUser(ctx, memberIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve tokens: %w", err)
	}

	var tokens []string
	for _, id := range memberIDs {
		tokens = append(tokens, byUser[id]...)
	}
	return tokens, nil
}
