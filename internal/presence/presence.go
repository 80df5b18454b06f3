// Package presence records which users are online in external systems.
package presence

import (
	"context"
	"errors"
)

// Tracker marks users online and offline.
type Tracker interface {
	SetOnline(ctx context.Context, userID, username string) error
	SetOffline(ctx context.Context, userID string) error
}

// Multi fans presence updates out to several trackers. Every tracker is
// called even if an earlier one fails.
type Multi []Tracker

// SetOnline implements Tracker.
func (m Multi) SetOnline(ctx context.Context, userID, username string) error {
	var errs []error
	for _, t := range m {
		if err := t.SetOnline(ctx, userID, username); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetOffline implements Tracker.
func (m Multi) SetOffline(ctx context.Context, userID string) error {
	var errs []error
	for _, t := range m {
		if err := t.SetOffline(ctx, userID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
