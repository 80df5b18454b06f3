package core

import (
	"encoding/json"

	"github.com/vovakirdan/gamebridge-server/internal/domain"
)

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	CommandCreateLobby CommandKind = iota
	CommandJoinLobby
	CommandLeaveLobby
	CommandKick
	CommandUpdateLobby
	CommandSignal
	CommandSetMute
	CommandSetDeafen
	CommandSendChat
	CommandDeleteChat
	CommandPing
)

// Namespace is the prefix of the error event sent when the command fails.
func (k CommandKind) Namespace() string {
	switch k {
	case CommandSignal, CommandSetMute, CommandSetDeafen:
		return "voice"
	case CommandSendChat, CommandDeleteChat:
		return "chat"
	case CommandPing:
		return "session"
	default:
		return "lobby"
	}
}

// Command represents an action requested by a client. Only the fields
// relevant to Kind are set.
type Command struct {
	Kind CommandKind

	LobbyID         string
	Code            string
	Name            string
	MaxParticipants int
	IsPrivate       bool
	Patch           domain.SettingsPatch

	TargetUserID string
	Flag         bool

	Content   string
	MessageID string

	Signal  domain.SignalKind
	Payload json.RawMessage
}
