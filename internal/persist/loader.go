package persist

import (
	"context"
	"fmt"

	"github.com/vovakirdan/gamebridge-server/internal/domain"
	"github.com/vovakirdan/gamebridge-server/internal/lobby"
	"github.com/vovakirdan/gamebridge-server/internal/store"
)

// SystemAuthor is the username stored for messages without an author.
const SystemAuthor = "System"

// Load reads persisted lobbies into lobbies and returns the ids of the
// users placed back into a lobby.
func Load(ctx context.Context, st store.LobbyStore, lobbies *lobby.Store) ([]string, error) {
	states, err := st.LoadLobbies(ctx)
	if err != nil {
		return nil, fmt.Errorf("load lobbies: %w", err)
	}

	snaps := make([]lobby.Snapshot, 0, len(states))
	for _, s := range states {
		snaps = append(snaps, snapshotFromStore(s))
	}

	var users []string
	for _, id := range lobbies.Restore(snaps) {
		roster, err := lobbies.Roster(id)
		if err != nil {
			continue
		}
		users = append(users, roster...)
	}
	return users, nil
}

func snapshotFromStore(s *store.LobbyState) lobby.Snapshot {
	l := domain.Lobby{
		ID:              s.Lobby.ID,
		Name:            s.Lobby.Name,
		HostID:          s.Lobby.HostID,
		MaxParticipants: s.Lobby.MaxParticipants,
		IsPrivate:       s.Lobby.IsPrivate,
		Code:            s.Lobby.Code,
		CreatedAt:       s.Lobby.CreatedAt,
	}
	for _, p := range s.Participants {
		l.Participants = append(l.Participants, domain.Participant{
			UserID:     p.UserID,
			Username:   p.Username,
			Platform:   domain.Platform(p.Platform),
			IsMuted:    p.IsMuted,
			IsDeafened: p.IsDeafened,
			JoinedAt:   p.JoinedAt,
		})
	}

	msgs := make([]domain.ChatMessage, 0, len(s.Messages))
	for _, m := range s.Messages {
		msg := domain.ChatMessage{
			ID:         m.ID,
			LobbyID:    m.LobbyID,
			AuthorName: m.Username,
			Content:    m.Body,
			Kind:       domain.MessageKind(m.Type),
			CreatedAt:  m.CreatedAt,
		}
		if m.UserID != nil {
			msg.AuthorID = *m.UserID
		} else {
			msg.AuthorName = ""
		}
		msgs = append(msgs, msg)
	}
	return lobby.Snapshot{Lobby: l, Messages: msgs}
}
