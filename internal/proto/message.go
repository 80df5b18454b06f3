// Package proto defines the JSON frames exchanged over the WebSocket.
package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello       = "hello"
	InboundTypeLobbyCreate = "lobby.create"
	InboundTypeLobbyJoin   = "lobby.join"
	InboundTypeLobbyLeave  = "lobby.leave"
	InboundTypeLobbyKick   = "lobby.kick"
	InboundTypeLobbyUpdate = "lobby.update"
	InboundTypeVoiceOffer  = "voice.offer"
	InboundTypeVoiceAnswer = "voice.answer"
	InboundTypeVoiceICE    = "voice.ice_candidate"
	InboundTypeVoiceMute   = "voice.mute_toggle"
	InboundTypeVoiceDeafen = "voice.deafen_toggle"
	InboundTypeChatMessage = "chat.message"
	InboundTypeChatDelete  = "chat.delete"
	InboundTypePing        = "ping"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// Error codes that exist only at the protocol layer.
const (
	CodeUnsupportedVersion = "unsupported_version"
	CodeInvalidMessage     = "invalid_message"
)

// HelloData authenticates a connection that did not send a bearer token
// with the upgrade request.
type HelloData struct {
	Token    string `json:"token" validate:"required"`
	Protocol int    `json:"protocol,omitempty"`
}

// CreateLobbyData requests a new lobby. Zero MaxParticipants means the
// server default.
type CreateLobbyData struct {
	Name            string `json:"name" validate:"required,max=64"`
	MaxParticipants int    `json:"maxParticipants,omitempty" validate:"omitempty,min=2,max=16"`
	IsPrivate       bool   `json:"isPrivate,omitempty"`
}

// JoinLobbyData selects a lobby by id or join code.
type JoinLobbyData struct {
	LobbyID   string `json:"lobbyId,omitempty" validate:"required_without=LobbyCode"`
	LobbyCode string `json:"lobbyCode,omitempty" validate:"omitempty,len=6,alphanum"`
}

// KickData names the participant to remove.
type KickData struct {
	LobbyID      string `json:"lobbyId,omitempty"`
	TargetUserID string `json:"targetUserId" validate:"required"`
}

// UpdateLobbyData is a partial settings change.
type UpdateLobbyData struct {
	LobbyID         string  `json:"lobbyId,omitempty"`
	Name            *string `json:"name,omitempty" validate:"omitempty,min=1,max=64"`
	MaxParticipants *int    `json:"maxParticipants,omitempty" validate:"omitempty,min=2,max=16"`
	IsPrivate       *bool   `json:"isPrivate,omitempty"`
}

// SignalData carries an opaque negotiation payload for one peer.
type SignalData struct {
	To      string          `json:"to" validate:"required"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// MuteData sets the sender's mute flag.
type MuteData struct {
	IsMuted *bool `json:"isMuted" validate:"required"`
}

// DeafenData sets the sender's deafen flag.
type DeafenData struct {
	IsDeafened *bool `json:"isDeafened" validate:"required"`
}

// ChatMessageData posts a message. An empty LobbyID means the sender's lobby.
type ChatMessageData struct {
	LobbyID string `json:"lobbyId,omitempty"`
	Content string `json:"content" validate:"required,max=1000"`
}

// ChatDeleteData removes a message.
type ChatDeleteData struct {
	MessageID string `json:"messageId" validate:"required"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Error describes a rejected command or protocol-level failure.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
