package lobby

import (
	"sort"

	"github.com/vovakirdan/gamebridge-server/internal/domain"
)

// Snapshot is a persisted lobby together with its messages.
type Snapshot struct {
	Lobby    domain.Lobby
	Messages []domain.ChatMessage
}

// Restore loads persisted lobbies into an empty store. Lobbies without
// participants are skipped, as are lobbies whose code or participants clash
// with something already loaded. Observers are not notified. It returns the
// ids of the lobbies that were loaded.
func (s *Store) Restore(snaps []Snapshot) []string {
	loaded := make([]string, 0, len(snaps))

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snaps {
		l := snap.Lobby
		log := s.log.With().Str("lobby_id", l.ID).Logger()

		if l.ID == "" || len(l.Participants) == 0 {
			log.Warn().Msg("skipping empty lobby on restore")
			continue
		}
		if _, dup := s.lobbies[l.ID]; dup {
			log.Warn().Msg("skipping duplicate lobby on restore")
			continue
		}
		code := NormalizeCode(l.Code)
		if _, taken := s.codes[code]; taken || !ValidCode(code) {
			log.Warn().Str("code", l.Code).Msg("skipping lobby with unusable join code")
			continue
		}
		clash := false
		for _, p := range l.Participants {
			if _, busy := s.members[p.UserID]; busy {
				clash = true
				break
			}
		}
		if clash {
			log.Warn().Msg("skipping lobby with participants already placed elsewhere")
			continue
		}

		participants := make([]domain.Participant, len(l.Participants))
		copy(participants, l.Participants)
		sort.SliceStable(participants, func(i, j int) bool {
			return participants[i].JoinedAt.Before(participants[j].JoinedAt)
		})
		l.Participants = participants
		l.Code = code
		if _, ok := l.Participant(l.HostID); !ok {
			l.HostID = participants[0].UserID
			log.Warn().Str("host_id", l.HostID).Msg("restored lobby had no host, promoted earliest participant")
		}

		msgs := make([]domain.ChatMessage, len(snap.Messages))
		copy(msgs, snap.Messages)
		sort.SliceStable(msgs, func(i, j int) bool {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		})

		s.lobbies[l.ID] = &lobbyState{lobby: l, messages: msgs}
		s.codes[code] = l.ID
		for _, p := range participants {
			s.members[p.UserID] = l.ID
		}
		for _, m := range msgs {
			s.messages[m.ID] = l.ID
		}
		loaded = append(loaded, l.ID)
	}

	s.log.Info().Int("lobbies", len(loaded)).Msg("lobbies restored")
	return loaded
}
