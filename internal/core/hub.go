// Package core drives each connection through its lifecycle and turns client
// commands into lobby, chat and signaling operations.
package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamebridge-server/internal/domain"
	"github.com/vovakirdan/gamebridge-server/internal/lobby"
	"github.com/vovakirdan/gamebridge-server/internal/media"
	"github.com/vovakirdan/gamebridge-server/internal/session"
	"github.com/vovakirdan/gamebridge-server/internal/signaling"
)

const sideEffectTimeout = 3 * time.Second

// Presence is told when a user's first connection opens and last one closes.
type Presence interface {
	SetOnline(ctx context.Context, userID, username string) error
	SetOffline(ctx context.Context, userID string) error
}

// ProfileSource looks up presentation fields for a user.
type ProfileSource interface {
	UserProfile(ctx context.Context, userID string) (domain.Profile, error)
}

// Options holds the optional collaborators of a Hub.
type Options struct {
	Presence               Presence
	Profiles               ProfileSource
	Media                  media.Issuer
	ICEServers             []domain.ICEServer
	HistoryOnJoin          int
	DefaultMaxParticipants int
}

// Hub coordinates connections, lobbies and signaling. Commands from one
// client are handled on that client's goroutine; the lobby store serializes
// work per lobby, and its observers fan out the resulting events.
type Hub struct {
	sessions *session.Registry
	lobbies  *lobby.Store
	relay    *signaling.Relay
	users    *userLocks
	opts     Options
	log      zerolog.Logger
}

// NewHub creates a new hub instance.
func NewHub(sessions *session.Registry, lobbies *lobby.Store, relay *signaling.Relay, opts Options, logger *zerolog.Logger) *Hub {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "hub").Logger()
	}
	return &Hub{
		sessions: sessions,
		lobbies:  lobbies,
		relay:    relay,
		users:    newUserLocks(),
		opts:     opts,
		log:      l,
	}
}

// Connect moves c from Connecting to Authenticated under an identity the
// auth service already verified, registers it and greets it with
// session.ready. A user who is still in a lobby (for example after a
// restart) also receives that lobby's state.
func (h *Hub) Connect(ctx context.Context, c *Client, id domain.Identity) error {
	if !c.authenticate(id) {
		return domain.Errorf(domain.CodeConflict, "connection already authenticated")
	}
	unlock := h.users.lock(id.UserID)
	defer unlock()

	first, err := h.sessions.Register(c.ID, id, c)
	if err != nil {
		c.close()
		return err
	}
	if first && h.opts.Presence != nil {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
		if err := h.opts.Presence.SetOnline(pctx, id.UserID, id.Username); err != nil {
			h.log.Warn().Err(err).Str("user_id", id.UserID).Msg("mark online failed")
		}
		cancel()
	}

	h.log.Info().
		Str("conn_id", c.ID).
		Str("user_id", id.UserID).
		Str("username", id.Username).
		Msg("client connected")

	c.Deliver(&domain.Event{
		Kind: domain.EventSessionReady,
		Session: &domain.Session{
			ConnID:     c.ID,
			UserID:     id.UserID,
			Username:   id.Username,
			ICEServers: h.opts.ICEServers,
		},
	})

	if lobbyID, ok := h.lobbies.LobbyOf(id.UserID); ok {
		if l, err := h.lobbies.Get(lobbyID); err == nil {
			c.setLobby(l.ID)
			h.replyLobby(ctx, c, l)
		}
	}
	return nil
}

// Disconnect closes c. When it was the user's last connection the user is
// marked offline and removed from their lobby exactly as an explicit leave
// would. A connect for the same user waits until this has finished.
func (h *Hub) Disconnect(ctx context.Context, c *Client) {
	prev := c.close()
	if prev == StateConnecting || prev == StateClosed {
		return
	}
	unlock := h.users.lock(c.Identity().UserID)
	defer unlock()

	entry, last, ok := h.sessions.Unregister(c.ID)
	if !ok {
		return
	}
	id := entry.Identity

	h.log.Info().
		Str("conn_id", c.ID).
		Str("user_id", id.UserID).
		Str("state", prev.String()).
		Bool("last", last).
		Uint64("dropped", c.Dropped()).
		Msg("client disconnected")

	if !last {
		return
	}
	if _, inLobby := h.lobbies.LobbyOf(id.UserID); inLobby {
		if _, err := h.leave(id.UserID); err != nil {
			h.log.Debug().Err(err).Str("user_id", id.UserID).Msg("leave on disconnect")
		}
	}
	if h.opts.Presence != nil {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
		if err := h.opts.Presence.SetOffline(pctx, id.UserID); err != nil {
			h.log.Warn().Err(err).Str("user_id", id.UserID).Msg("mark offline failed")
		}
		cancel()
	}
}

// ReapDetached removes users that are still seated in a lobby but have no
// live connection, typically participants restored at startup who never
// came back. It returns how many were removed.
func (h *Hub) ReapDetached(_ context.Context, userIDs []string) int {
	removed := 0
	for _, uid := range userIDs {
		if h.reapOne(uid) {
			removed++
		}
	}
	if removed > 0 {
		h.log.Info().Int("removed", removed).Msg("reaped detached participants")
	}
	return removed
}

func (h *Hub) reapOne(userID string) bool {
	unlock := h.users.lock(userID)
	defer unlock()

	if h.sessions.IsOnline(userID) {
		return false
	}
	if _, ok := h.lobbies.LobbyOf(userID); !ok {
		return false
	}
	if _, err := h.leave(userID); err != nil {
		h.log.Debug().Err(err).Str("user_id", userID).Msg("reap detached")
		return false
	}
	return true
}

// Kick removes targetID from lobbyID on behalf of the host and posts the
// removal notice. Connected participants learn about it from the lobby's
// broadcasts, whichever surface asked for it.
func (h *Hub) Kick(hostID, lobbyID, targetID string) (lobby.Departure, error) {
	dep, err := h.lobbies.KickParticipant(hostID, lobbyID, targetID)
	if err != nil {
		return dep, err
	}
	if !dep.Disbanded {
		h.systemMessage(dep.LobbyID, dep.Username+" was removed from the lobby", domain.MessageUserLeft)
	}
	return dep, nil
}

// UpdateSettings applies patch to lobbyID on behalf of the host.
func (h *Hub) UpdateSettings(hostID, lobbyID string, patch domain.SettingsPatch) (domain.Lobby, error) {
	return h.lobbies.UpdateLobbySettings(hostID, lobbyID, patch)
}

// ICEServers returns the STUN/TURN servers advertised to clients.
func (h *Hub) ICEServers() []domain.ICEServer {
	return h.opts.ICEServers
}

// Handle executes cmd on behalf of c. Failures are reported to c as a
// <namespace>.error event and never close the connection.
func (h *Hub) Handle(ctx context.Context, c *Client, cmd *Command) {
	if cmd == nil {
		return
	}
	if err := h.dispatch(ctx, c, cmd); err != nil {
		h.log.Debug().
			Err(err).
			Str("conn_id", c.ID).
			Str("namespace", cmd.Kind.Namespace()).
			Str("code", string(domain.CodeOf(err))).
			Msg("command rejected")
		c.Deliver(domain.ErrorEvent(cmd.Kind.Namespace(), err))
	}
}

func (h *Hub) dispatch(ctx context.Context, c *Client, cmd *Command) error {
	switch c.State() {
	case StateAuthenticated, StateInLobby:
	default:
		return domain.Errorf(domain.CodeUnauthorized, "not authenticated")
	}

	switch cmd.Kind {
	case CommandCreateLobby:
		return h.handleCreate(ctx, c, cmd)
	case CommandJoinLobby:
		return h.handleJoin(ctx, c, cmd)
	case CommandLeaveLobby:
		return h.handleLeave(c)
	case CommandKick:
		return h.handleKick(c, cmd)
	case CommandUpdateLobby:
		return h.handleUpdate(c, cmd)
	case CommandSignal:
		return h.handleSignal(c, cmd)
	case CommandSetMute:
		return h.handleFlag(c, cmd.Flag, h.lobbies.SetMute)
	case CommandSetDeafen:
		return h.handleFlag(c, cmd.Flag, h.lobbies.SetDeafen)
	case CommandSendChat:
		return h.handleChat(c, cmd)
	case CommandDeleteChat:
		return h.handleDeleteChat(c, cmd)
	case CommandPing:
		c.Deliver(&domain.Event{Kind: domain.EventPong})
		return nil
	}
	return domain.Errorf(domain.CodeInvalidArgument, "unknown command")
}
