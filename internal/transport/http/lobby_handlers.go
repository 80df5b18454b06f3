package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamebridge-server/internal/core"
	"github.com/vovakirdan/gamebridge-server/internal/domain"
	"github.com/vovakirdan/gamebridge-server/internal/lobby"
	"github.com/vovakirdan/gamebridge-server/internal/proto"
)

// LobbyHandlers serves lobby queries, host moderation and chat history.
// Changes made here reach connected participants through the same lobby
// broadcasts as their WebSocket counterparts.
type LobbyHandlers struct {
	hub     *core.Hub
	lobbies *lobby.Store
	log     *zerolog.Logger
}

// NewLobbyHandlers creates lobby handlers over the live store.
func NewLobbyHandlers(hub *core.Hub, lobbies *lobby.Store, logger *zerolog.Logger) *LobbyHandlers {
	return &LobbyHandlers{hub: hub, lobbies: lobbies, log: logger}
}

// WebRTCConfigResponse lists the ICE servers clients should use.
type WebRTCConfigResponse struct {
	ICEServers []proto.ICEServer `json:"iceServers"`
}

// LobbyListResponse wraps the public lobby list.
type LobbyListResponse struct {
	Lobbies []proto.Lobby `json:"lobbies"`
}

// MessagesResponse wraps a page of chat history.
type MessagesResponse struct {
	LobbyID  string              `json:"lobbyId"`
	Messages []proto.ChatMessage `json:"messages"`
}

func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ListLobbies returns public lobbies, newest first.
// GET /api/lobbies?limit=N
func (h *LobbyHandlers) ListLobbies(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit", Code: string(domain.CodeInvalidArgument)})
		return
	}
	lobbies := h.lobbies.ListPublic(limit)
	out := make([]proto.Lobby, 0, len(lobbies))
	for i := range lobbies {
		out = append(out, proto.LobbyFromDomain(&lobbies[i]))
	}
	c.JSON(http.StatusOK, LobbyListResponse{Lobbies: out})
}

// GetLobby returns one lobby by id.
// GET /api/lobbies/:id
func (h *LobbyHandlers) GetLobby(c *gin.Context) {
	l, err := h.lobbies.Get(c.Param("id"))
	if err != nil {
		writeError(c, h.log, err, "failed to get lobby")
		return
	}
	c.JSON(http.StatusOK, proto.LobbyFromDomain(&l))
}

// GetLobbyByCode resolves a join code.
// GET /api/lobbies/code/:code
func (h *LobbyHandlers) GetLobbyByCode(c *gin.Context) {
	l, err := h.lobbies.GetByCode(c.Param("code"))
	if err != nil {
		writeError(c, h.log, err, "failed to resolve lobby code")
		return
	}
	c.JSON(http.StatusOK, proto.LobbyFromDomain(&l))
}

// CurrentLobby returns the lobby the caller is seated in.
// GET /api/me/lobby
func (h *LobbyHandlers) CurrentLobby(c *gin.Context) {
	lobbyID, ok := h.lobbies.LobbyOf(currentUserID(c))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not in a lobby", Code: string(domain.CodeNotFound)})
		return
	}
	l, err := h.lobbies.Get(lobbyID)
	if err != nil {
		writeError(c, h.log, err, "failed to get current lobby")
		return
	}
	c.JSON(http.StatusOK, proto.LobbyFromDomain(&l))
}

// Kick removes a participant. Only the host may call it.
// POST /api/lobbies/:id/kick {"targetUserId": "..."}
func (h *LobbyHandlers) Kick(c *gin.Context) {
	var req proto.KickData
	if !bindProto(c, &req) {
		return
	}
	if _, err := h.hub.Kick(currentUserID(c), c.Param("id"), req.TargetUserID); err != nil {
		writeError(c, h.log, err, "failed to kick participant")
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateSettings changes name, capacity or visibility. Only the host may
// call it.
// PUT /api/lobbies/:id/settings
func (h *LobbyHandlers) UpdateSettings(c *gin.Context) {
	var req proto.UpdateLobbyData
	if !bindProto(c, &req) {
		return
	}
	patch := domain.SettingsPatch{Name: req.Name, MaxParticipants: req.MaxParticipants, IsPrivate: req.IsPrivate}
	if patch.Empty() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no settings to update", Code: string(domain.CodeInvalidArgument)})
		return
	}
	l, err := h.hub.UpdateSettings(currentUserID(c), c.Param("id"), patch)
	if err != nil {
		writeError(c, h.log, err, "failed to update lobby")
		return
	}
	c.JSON(http.StatusOK, proto.LobbyFromDomain(&l))
}

// WebRTCConfig returns the STUN/TURN servers also sent in session.ready.
// GET /api/webrtc-config
func (h *LobbyHandlers) WebRTCConfig(c *gin.Context) {
	c.JSON(http.StatusOK, WebRTCConfigResponse{ICEServers: iceServers(h.hub.ICEServers())})
}

// bindProto decodes the body with the same rules as WebSocket payloads.
func bindProto(c *gin.Context, dst any) bool {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unreadable body", Code: string(domain.CodeInvalidArgument)})
		return false
	}
	if err := proto.Decode(body, dst); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: string(domain.CodeOf(err))})
		return false
	}
	return true
}

// ListMessages pages backwards through a lobby's chat. Only participants
// may read it.
// GET /api/lobbies/:id/messages?limit=N&before=<messageId>
func (h *LobbyHandlers) ListMessages(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit", Code: string(domain.CodeInvalidArgument)})
		return
	}
	lobbyID := c.Param("id")
	msgs, err := h.lobbies.History(currentUserID(c), lobbyID, limit, c.Query("before"))
	if err != nil {
		writeError(c, h.log, err, "failed to list messages")
		return
	}
	c.JSON(http.StatusOK, MessagesResponse{LobbyID: lobbyID, Messages: proto.ChatMessagesFromDomain(msgs)})
}

// DeleteMessage removes a message on behalf of its author or the host.
// Connected participants are told through chat.message_deleted.
// DELETE /api/messages/:id
func (h *LobbyHandlers) DeleteMessage(c *gin.Context) {
	if _, err := h.lobbies.DeleteMessage(currentUserID(c), c.Param("id")); err != nil {
		writeError(c, h.log, err, "failed to delete message")
		return
	}
	c.Status(http.StatusNoContent)
}
