package presence

import (
	"context"
	"fmt"

	"github.com/vovakirdan/gamebridge-server/internal/store"
)

// StoreTracker keeps users.is_online and users.last_seen current.
type StoreTracker struct {
	users store.UserStore
}

// NewStoreTracker creates a tracker over the user table.
func NewStoreTracker(users store.UserStore) *StoreTracker {
	return &StoreTracker{users: users}
}

// SetOnline implements Tracker.
func (t *StoreTracker) SetOnline(ctx context.Context, userID, _ string) error {
	if err := t.users.SetUserOnline(ctx, userID, true); err != nil {
		return fmt.Errorf("mark %s online: %w", userID, err)
	}
	return nil
}

// SetOffline implements Tracker.
func (t *StoreTracker) SetOffline(ctx context.Context, userID string) error {
	if err := t.users.SetUserOnline(ctx, userID, false); err != nil {
		return fmt.Errorf("mark %s offline: %w", userID, err)
	}
	return nil
}
