// Package media issues credentials for an optional SFU that lobbies can
// fall back to when peer-to-peer voice fails.
package media

import (
	"context"

	"github.com/vovakirdan/gamebridge-server/internal/domain"
)

// Issuer creates join credentials for a lobby's media room.
type Issuer interface {
	// GrantLobby returns credentials letting userID join lobbyID's room.
	GrantLobby(ctx context.Context, lobbyID, userID, username string) (*domain.MediaGrant, error)
}
