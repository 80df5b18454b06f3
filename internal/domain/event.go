package domain

import (
	"encoding/json"
	"errors"
)

// EventKind is a notification the server emits to clients.
type EventKind int

const (
	EventSessionReady EventKind = iota
	EventLobbyCreated
	EventLobbyJoined
	EventParticipantJoined
	EventParticipantLeft
	EventHostChanged
	EventLobbyDisbanded
	EventLobbyUpdated
	EventLobbyLeft
	EventLobbyKicked
	EventVoiceOffer
	EventVoiceAnswer
	EventVoiceICECandidate
	EventMuteToggled
	EventDeafenToggled
	EventChatMessage
	EventChatMessageDeleted
	EventChatHistory
	EventPong
	EventError
)

var eventNames = map[EventKind]string{
	EventSessionReady:       "session.ready",
	EventLobbyCreated:       "lobby.created",
	EventLobbyJoined:        "lobby.joined",
	EventParticipantJoined:  "lobby.participant_joined",
	EventParticipantLeft:    "lobby.participant_left",
	EventHostChanged:        "lobby.host_changed",
	EventLobbyDisbanded:     "lobby.disbanded",
	EventLobbyUpdated:       "lobby.updated",
	EventLobbyLeft:          "lobby.left",
	EventLobbyKicked:        "lobby.kicked",
	EventVoiceOffer:         "voice.offer",
	EventVoiceAnswer:        "voice.answer",
	EventVoiceICECandidate:  "voice.ice_candidate",
	EventMuteToggled:        "voice.mute_toggle",
	EventDeafenToggled:      "voice.deafen_toggle",
	EventChatMessage:        "chat.message_received",
	EventChatMessageDeleted: "chat.message_deleted",
	EventChatHistory:        "chat.history",
	EventPong:               "pong",
	EventError:              "error",
}

// String returns the contract name of the event.
func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "unknown"
}

// SignalKind identifies a relayed voice negotiation message.
type SignalKind int

const (
	SignalOffer SignalKind = iota
	SignalAnswer
	SignalICECandidate
)

// EventKind maps a signal kind to the event delivered to the target.
func (k SignalKind) EventKind() EventKind {
	switch k {
	case SignalAnswer:
		return EventVoiceAnswer
	case SignalICECandidate:
		return EventVoiceICECandidate
	default:
		return EventVoiceOffer
	}
}

// Signal is an opaque negotiation payload forwarded between two users.
type Signal struct {
	From    string
	Kind    SignalKind
	Payload json.RawMessage
}

// MediaGrant carries optional SFU credentials for a lobby.
type MediaGrant struct {
	URL      string
	Token    string
	RoomName string
	Identity string
}

// ICEServer is a STUN/TURN server advertised to clients.
type ICEServer struct {
	URLs       []string
	Username   string
	Credential string
}

// Session describes an authenticated connection.
type Session struct {
	ConnID     string
	UserID     string
	Username   string
	ICEServers []ICEServer
}

// Event is sent to clients to describe what happened in the system.
// Only the fields relevant to Kind are set.
type Event struct {
	Kind        EventKind
	Namespace   string // for EventError: "lobby", "chat", "voice", "auth"
	LobbyID     string
	UserID      string
	Flag        bool // muted/deafened for toggle events
	Lobby       *Lobby
	Participant *Participant
	Message     *ChatMessage
	Messages    []ChatMessage
	MessageID   string
	Signal      *Signal
	Media       *MediaGrant
	Session     *Session
	Error       *Error
}

// ErrorEvent builds an error event for the given command namespace.
func ErrorEvent(namespace string, err error) *Event {
	var de *Error
	if !errors.As(err, &de) {
		de = &Error{Code: CodeInternal, Message: "internal error"}
	}
	return &Event{Kind: EventError, Namespace: namespace, Error: de}
}
