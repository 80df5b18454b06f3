package core

import (
	"context"

	"github.com/vovakirdan/gamebridge-server/internal/domain"
	"github.com/vovakirdan/gamebridge-server/internal/lobby"
)

func (h *Hub) handleCreate(ctx context.Context, c *Client, cmd *Command) error {
	capacity := cmd.MaxParticipants
	if capacity == 0 {
		capacity = h.opts.DefaultMaxParticipants
	}
	m := h.member(ctx, c.Identity())
	m.ConnID = c.ID
	l, err := h.lobbies.CreateLobby(m, lobby.CreateParams{
		Name:            cmd.Name,
		MaxParticipants: capacity,
		IsPrivate:       cmd.IsPrivate,
	})
	if err != nil {
		return err
	}
	c.setLobby(l.ID)
	return nil
}

// handleJoin seats the user. The joiner's lobby.joined and chat.history go
// out on the lobby's broadcast lane, ahead of anything that follows the join.
func (h *Hub) handleJoin(ctx context.Context, c *Client, cmd *Command) error {
	id := c.Identity()
	m := h.member(ctx, id)
	m.ConnID = c.ID
	l, err := h.lobbies.JoinLobby(m, lobby.JoinTarget{LobbyID: cmd.LobbyID, Code: cmd.Code})
	if err != nil {
		return err
	}
	c.setLobby(l.ID)
	h.systemMessage(l.ID, id.Username+" joined the lobby", domain.MessageUserJoined)
	return nil
}

func (h *Hub) handleLeave(c *Client) error {
	dep, err := h.leave(c.Identity().UserID)
	if err != nil {
		if domain.IsCode(err, domain.CodeNotFound) {
			c.setLobby("")
			return domain.Errorf(domain.CodeInvalidArgument, "not in a lobby")
		}
		return err
	}
	c.setLobby("")
	c.Deliver(&domain.Event{Kind: domain.EventLobbyLeft, LobbyID: dep.LobbyID})
	if dep.Disbanded {
		c.Deliver(&domain.Event{Kind: domain.EventLobbyDisbanded, LobbyID: dep.LobbyID})
	}
	return nil
}

func (h *Hub) handleKick(c *Client, cmd *Command) error {
	if cmd.TargetUserID == "" {
		return domain.Errorf(domain.CodeInvalidArgument, "target user is required")
	}
	lobbyID, err := h.currentLobby(c, cmd.LobbyID)
	if err != nil {
		return err
	}
	_, err = h.Kick(c.Identity().UserID, lobbyID, cmd.TargetUserID)
	return err
}

func (h *Hub) handleUpdate(c *Client, cmd *Command) error {
	lobbyID, err := h.currentLobby(c, cmd.LobbyID)
	if err != nil {
		return err
	}
	_, err = h.UpdateSettings(c.Identity().UserID, lobbyID, cmd.Patch)
	return err
}

func (h *Hub) handleFlag(c *Client, value bool, set func(string, bool) (lobby.FlagResult, error)) error {
	res, err := set(c.Identity().UserID, value)
	if err != nil {
		if domain.IsCode(err, domain.CodeNotFound) {
			c.setLobby("")
			return domain.Errorf(domain.CodeInvalidArgument, "not in a lobby")
		}
		return err
	}
	c.setLobby(res.LobbyID)
	return nil
}

func (h *Hub) handleChat(c *Client, cmd *Command) error {
	lobbyID, err := h.currentLobby(c, cmd.LobbyID)
	if err != nil {
		return err
	}
	_, err = h.lobbies.AppendMessage(lobbyID, c.Identity().UserID, cmd.Content, domain.MessageText)
	return err
}

func (h *Hub) handleDeleteChat(c *Client, cmd *Command) error {
	if cmd.MessageID == "" {
		return domain.Errorf(domain.CodeInvalidArgument, "message id is required")
	}
	_, err := h.lobbies.DeleteMessage(c.Identity().UserID, cmd.MessageID)
	return err
}

// handleSignal forwards a negotiation message to the target's connection.
// A target that is offline is dropped without telling the sender.
func (h *Hub) handleSignal(c *Client, cmd *Command) error {
	from := c.Identity().UserID
	if cmd.TargetUserID == "" {
		return domain.Errorf(domain.CodeInvalidArgument, "target user is required")
	}
	if cmd.TargetUserID == from {
		return nil
	}
	h.relay.Relay(from, cmd.TargetUserID, cmd.Signal, cmd.Payload)
	return nil
}

// leave is the single exit path shared by lobby.leave, disconnect and the
// detached-participant sweep.
func (h *Hub) leave(userID string) (lobby.Departure, error) {
	dep, err := h.lobbies.LeaveLobby(userID)
	if err != nil {
		return dep, err
	}
	if !dep.Disbanded {
		h.systemMessage(dep.LobbyID, dep.Username+" left the lobby", domain.MessageUserLeft)
	}
	return dep, nil
}

func (h *Hub) systemMessage(lobbyID, content string, kind domain.MessageKind) {
	if _, err := h.lobbies.AppendMessage(lobbyID, "", content, kind); err != nil {
		h.log.Debug().Err(err).Str("lobby_id", lobbyID).Msg("system message skipped")
	}
}

// currentLobby resolves the lobby a command targets: the explicit id if
// given, otherwise the lobby the store has the user in.
func (h *Hub) currentLobby(c *Client, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	lobbyID, ok := h.lobbies.LobbyOf(c.Identity().UserID)
	if !ok {
		c.setLobby("")
		return "", domain.Errorf(domain.CodeInvalidArgument, "not in a lobby")
	}
	c.setLobby(lobbyID)
	return lobbyID, nil
}

func (h *Hub) member(ctx context.Context, id domain.Identity) lobby.Member {
	m := lobby.Member{UserID: id.UserID, Username: id.Username, Platform: domain.DefaultPlatform}
	if h.opts.Profiles == nil {
		return m
	}
	pctx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()
	profile, err := h.opts.Profiles.UserProfile(pctx, id.UserID)
	if err != nil {
		h.log.Debug().Err(err).Str("user_id", id.UserID).Msg("profile lookup failed, using default platform")
		return m
	}
	if profile.Platform.Valid() {
		m.Platform = profile.Platform
	}
	return m
}

// replyLobby sends the full lobby state to c directly, plus chat history.
// Used when a user who is still seated reconnects.
func (h *Hub) replyLobby(ctx context.Context, c *Client, l domain.Lobby) {
	id := c.Identity()
	ev := &domain.Event{Kind: domain.EventLobbyJoined, LobbyID: l.ID, Lobby: &l}
	if h.opts.Media != nil {
		grant, err := h.opts.Media.GrantLobby(ctx, l.ID, id.UserID, id.Username)
		if err != nil {
			h.log.Warn().Err(err).Str("lobby_id", l.ID).Msg("media grant failed")
		} else {
			ev.Media = grant
		}
	}
	c.Deliver(ev)

	if h.opts.HistoryOnJoin <= 0 {
		return
	}
	history, err := h.lobbies.History(id.UserID, l.ID, h.opts.HistoryOnJoin, "")
	if err != nil {
		h.log.Debug().Err(err).Str("lobby_id", l.ID).Msg("history on reconnect")
		return
	}
	c.Deliver(&domain.Event{Kind: domain.EventChatHistory, LobbyID: l.ID, Messages: history})
}
