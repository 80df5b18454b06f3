package broadcast

import (
	"github.com/vovakirdan/gamebridge-server/internal/domain"
	"github.com/vovakirdan/gamebridge-server/internal/lobby"
)

// Observe turns committed lobby changes into client events. It runs under
// the lobby lock and only enqueues, so events for one lobby leave in commit
// order and carry the roster as it was at that instant.
func (b *Broadcaster) Observe(ch lobby.Change) {
	l := ch.Lobby
	roster := l.UserIDs()

	switch ch.Kind {
	case lobby.ChangeCreated:
		if ch.ActorConnID != "" {
			snap := l
			b.enqueue(l.ID, delivery{
				recipients: []string{ch.ActorID},
				connID:     ch.ActorConnID,
				grant:      true,
				event:      &domain.Event{Kind: domain.EventLobbyCreated, LobbyID: l.ID, Lobby: &snap},
			})
		}

	case lobby.ChangeJoined:
		p := *ch.Participant
		p.IsHost = p.UserID == l.HostID
		if ch.ActorConnID != "" {
			// The joiner's own state rides the lane so nothing broadcast
			// after the join can overtake it.
			snap := l
			b.enqueue(l.ID, delivery{
				recipients: []string{p.UserID},
				connID:     ch.ActorConnID,
				grant:      true,
				event:      &domain.Event{Kind: domain.EventLobbyJoined, LobbyID: l.ID, Lobby: &snap},
			})
			if ch.History != nil {
				b.enqueue(l.ID, delivery{
					recipients: []string{p.UserID},
					connID:     ch.ActorConnID,
					event:      &domain.Event{Kind: domain.EventChatHistory, LobbyID: l.ID, Messages: ch.History},
				})
			}
		}
		b.enqueue(l.ID, delivery{
			recipients:    roster,
			excludeUserID: p.UserID,
			event:         &domain.Event{Kind: domain.EventParticipantJoined, LobbyID: l.ID, UserID: p.UserID, Participant: &p},
		})

	case lobby.ChangeLeft, lobby.ChangeKicked:
		dep := ch.Departure
		if dep.Disbanded {
			// Nobody is left to tell; the leaver is answered directly.
			return
		}
		b.enqueue(l.ID, delivery{
			recipients: roster,
			event:      &domain.Event{Kind: domain.EventParticipantLeft, LobbyID: l.ID, UserID: dep.UserID},
		})
		if dep.NewHostID != "" {
			b.enqueue(l.ID, delivery{
				recipients: roster,
				event:      &domain.Event{Kind: domain.EventHostChanged, LobbyID: l.ID, UserID: dep.NewHostID},
			})
		}
		if ch.Kind == lobby.ChangeKicked {
			b.enqueue(l.ID, delivery{
				recipients: []string{dep.UserID},
				event:      &domain.Event{Kind: domain.EventLobbyKicked, LobbyID: l.ID, UserID: ch.ActorID},
			})
		}

	case lobby.ChangeSettings:
		snap := l
		b.enqueue(l.ID, delivery{
			recipients: roster,
			event:      &domain.Event{Kind: domain.EventLobbyUpdated, LobbyID: l.ID, Lobby: &snap},
		})

	case lobby.ChangeMute, lobby.ChangeDeafen:
		kind, flag := domain.EventMuteToggled, ch.Participant.IsMuted
		if ch.Kind == lobby.ChangeDeafen {
			kind, flag = domain.EventDeafenToggled, ch.Participant.IsDeafened
		}
		b.enqueue(l.ID, delivery{
			recipients: roster,
			event:      &domain.Event{Kind: kind, LobbyID: l.ID, UserID: ch.Participant.UserID, Flag: flag},
		})

	case lobby.ChangeMessage:
		b.enqueue(l.ID, delivery{
			recipients: roster,
			event:      &domain.Event{Kind: domain.EventChatMessage, LobbyID: l.ID, Message: ch.Message},
		})

	case lobby.ChangeMessageDeleted:
		b.enqueue(l.ID, delivery{
			recipients: roster,
			event:      &domain.Event{Kind: domain.EventChatMessageDeleted, LobbyID: l.ID, MessageID: ch.MessageID},
		})
	}
}
