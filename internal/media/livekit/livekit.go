// Package livekit implements media.Issuer with LiveKit access tokens.
package livekit

import (
	"context"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"

	"github.com/vovakirdan/gamebridge-server/internal/domain"
	"github.com/vovakirdan/gamebridge-server/internal/media"
)

const defaultTokenTTL = time.Hour

// Issuer signs LiveKit room grants. LiveKit creates rooms on demand when
// the first participant joins, so no room management is needed here.
type Issuer struct {
	apiKey    string
	apiSecret string
	wsURL     string
	ttl       time.Duration
}

// New creates a new Issuer.
func New(apiKey, apiSecret, wsURL string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Issuer{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		wsURL:     wsURL,
		ttl:       ttl,
	}
}

// RoomName returns the LiveKit room backing a lobby.
func RoomName(lobbyID string) string {
	return "gamebridge-lobby-" + lobbyID
}

// GrantLobby implements media.Issuer.
func (e *Issuer) GrantLobby(_ context.Context, lobbyID, userID, username string) (*domain.MediaGrant, error) {
	if lobbyID == "" || userID == "" {
		return nil, fmt.Errorf("lobby and user are required")
	}

	room := RoomName(lobbyID)
	identity := "user-" + userID

	at := auth.NewAccessToken(e.apiKey, e.apiSecret)
	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     room,
	}
	at.SetVideoGrant(grant).
		SetIdentity(identity).
		SetName(username).
		SetValidFor(e.ttl)

	token, err := at.ToJWT()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &domain.MediaGrant{
		URL:      e.wsURL,
		Token:    token,
		RoomName: room,
		Identity: identity,
	}, nil
}

var _ media.Issuer = (*Issuer)(nil)
