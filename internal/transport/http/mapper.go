package http

import (
	"strings"
	"time"

	"github.com/vovakirdan/gamebridge-server/internal/core"
	"github.com/vovakirdan/gamebridge-server/internal/domain"
	"github.com/vovakirdan/gamebridge-server/internal/proto"
)

// namespaceOf returns the error namespace for an inbound frame type.
func namespaceOf(msgType string) string {
	switch {
	case msgType == proto.InboundTypeHello:
		return "auth"
	case msgType == proto.InboundTypePing:
		return "session"
	}
	if i := strings.IndexByte(msgType, '.'); i > 0 {
		switch ns := msgType[:i]; ns {
		case "lobby", "voice", "chat":
			return ns
		}
	}
	return "session"
}

// inboundToCommand decodes and validates an authenticated client frame.
// Errors are domain errors and should be reported in the frame's namespace.
func inboundToCommand(inbound proto.Inbound) (*core.Command, error) {
	switch inbound.Type {
	case proto.InboundTypeLobbyCreate:
		var d proto.CreateLobbyData
		if err := proto.Decode(inbound.Data, &d); err != nil {
			return nil, err
		}
		return &core.Command{
			Kind:            core.CommandCreateLobby,
			Name:            d.Name,
			MaxParticipants: d.MaxParticipants,
			IsPrivate:       d.IsPrivate,
		}, nil

	case proto.InboundTypeLobbyJoin:
		var d proto.JoinLobbyData
		if err := proto.Decode(inbound.Data, &d); err != nil {
			return nil, err
		}
		return &core.Command{Kind: core.CommandJoinLobby, LobbyID: d.LobbyID, Code: d.LobbyCode}, nil

	case proto.InboundTypeLobbyLeave:
		return &core.Command{Kind: core.CommandLeaveLobby}, nil

	case proto.InboundTypeLobbyKick:
		var d proto.KickData
		if err := proto.Decode(inbound.Data, &d); err != nil {
			return nil, err
		}
		return &core.Command{Kind: core.CommandKick, LobbyID: d.LobbyID, TargetUserID: d.TargetUserID}, nil

	case proto.InboundTypeLobbyUpdate:
		var d proto.UpdateLobbyData
		if err := proto.Decode(inbound.Data, &d); err != nil {
			return nil, err
		}
		patch := domain.SettingsPatch{Name: d.Name, MaxParticipants: d.MaxParticipants, IsPrivate: d.IsPrivate}
		if patch.Empty() {
			return nil, domain.Errorf(domain.CodeInvalidArgument, "no settings to update")
		}
		return &core.Command{Kind: core.CommandUpdateLobby, LobbyID: d.LobbyID, Patch: patch}, nil

	case proto.InboundTypeVoiceOffer, proto.InboundTypeVoiceAnswer, proto.InboundTypeVoiceICE:
		var d proto.SignalData
		if err := proto.Decode(inbound.Data, &d); err != nil {
			return nil, err
		}
		kind := domain.SignalOffer
		switch inbound.Type {
		case proto.InboundTypeVoiceAnswer:
			kind = domain.SignalAnswer
		case proto.InboundTypeVoiceICE:
			kind = domain.SignalICECandidate
		}
		return &core.Command{Kind: core.CommandSignal, Signal: kind, TargetUserID: d.To, Payload: d.Payload}, nil

	case proto.InboundTypeVoiceMute:
		var d proto.MuteData
		if err := proto.Decode(inbound.Data, &d); err != nil {
			return nil, err
		}
		return &core.Command{Kind: core.CommandSetMute, Flag: *d.IsMuted}, nil

	case proto.InboundTypeVoiceDeafen:
		var d proto.DeafenData
		if err := proto.Decode(inbound.Data, &d); err != nil {
			return nil, err
		}
		return &core.Command{Kind: core.CommandSetDeafen, Flag: *d.IsDeafened}, nil

	case proto.InboundTypeChatMessage:
		var d proto.ChatMessageData
		if err := proto.Decode(inbound.Data, &d); err != nil {
			return nil, err
		}
		return &core.Command{Kind: core.CommandSendChat, LobbyID: d.LobbyID, Content: d.Content}, nil

	case proto.InboundTypeChatDelete:
		var d proto.ChatDeleteData
		if err := proto.Decode(inbound.Data, &d); err != nil {
			return nil, err
		}
		return &core.Command{Kind: core.CommandDeleteChat, MessageID: d.MessageID}, nil

	case proto.InboundTypePing:
		return &core.Command{Kind: core.CommandPing}, nil

	default:
		return nil, domain.Errorf(domain.CodeInvalidArgument, "unknown message type %q", inbound.Type)
	}
}

func eventFrame(ev *domain.Event, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: ev.Kind.String(), Data: data}
}

func errorFrame(namespace, code, message string) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeError,
		Event: namespace + ".error",
		Error: &proto.Error{Code: code, Message: message},
	}
}

func outboundFromEvent(ev *domain.Event) proto.Outbound {
	switch ev.Kind {
	case domain.EventError:
		if ev.Error == nil {
			return errorFrame(ev.Namespace, string(domain.CodeInternal), "internal error")
		}
		return errorFrame(ev.Namespace, string(ev.Error.Code), ev.Error.Message)

	case domain.EventSessionReady:
		s := ev.Session
		return eventFrame(ev, proto.SessionReadyData{
			ConnectionID: s.ConnID,
			UserID:       s.UserID,
			Username:     s.Username,
			Protocol:     proto.ProtocolVersion,
			ICEServers:   iceServers(s.ICEServers),
		})

	case domain.EventLobbyCreated, domain.EventLobbyJoined, domain.EventLobbyUpdated:
		data := proto.LobbyStateData{Lobby: proto.LobbyFromDomain(ev.Lobby)}
		if m := ev.Media; m != nil {
			data.Media = &proto.MediaGrant{URL: m.URL, Token: m.Token, RoomName: m.RoomName, Identity: m.Identity}
		}
		return eventFrame(ev, data)

	case domain.EventParticipantJoined:
		return eventFrame(ev, proto.ParticipantJoinedData{
			LobbyID:     ev.LobbyID,
			Participant: proto.ParticipantFromDomain(*ev.Participant),
		})

	case domain.EventParticipantLeft:
		return eventFrame(ev, proto.UserRefData{LobbyID: ev.LobbyID, UserID: ev.UserID})

	case domain.EventHostChanged:
		return eventFrame(ev, proto.HostChangedData{LobbyID: ev.LobbyID, NewHostID: ev.UserID})

	case domain.EventLobbyDisbanded, domain.EventLobbyLeft:
		return eventFrame(ev, proto.LobbyRefData{LobbyID: ev.LobbyID})

	case domain.EventLobbyKicked:
		return eventFrame(ev, proto.KickedData{LobbyID: ev.LobbyID, ByUserID: ev.UserID})

	case domain.EventVoiceOffer, domain.EventVoiceAnswer, domain.EventVoiceICECandidate:
		return eventFrame(ev, proto.SignalForwardData{From: ev.Signal.From, Payload: ev.Signal.Payload})

	case domain.EventMuteToggled:
		return eventFrame(ev, proto.MuteToggledData{LobbyID: ev.LobbyID, UserID: ev.UserID, IsMuted: ev.Flag})

	case domain.EventDeafenToggled:
		return eventFrame(ev, proto.DeafenToggledData{LobbyID: ev.LobbyID, UserID: ev.UserID, IsDeafened: ev.Flag})

	case domain.EventChatMessage:
		return eventFrame(ev, proto.ChatMessageFromDomain(ev.Message))

	case domain.EventChatMessageDeleted:
		return eventFrame(ev, proto.MessageDeletedData{LobbyID: ev.LobbyID, MessageID: ev.MessageID})

	case domain.EventChatHistory:
		return eventFrame(ev, proto.ChatHistoryData{
			LobbyID:  ev.LobbyID,
			Messages: proto.ChatMessagesFromDomain(ev.Messages),
		})

	case domain.EventPong:
		return eventFrame(ev, proto.PongData{Time: time.Now().UnixMilli()})

	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: ev.Kind.String()}
	}
}

func iceServers(in []domain.ICEServer) []proto.ICEServer {
	out := make([]proto.ICEServer, 0, len(in))
	for _, s := range in {
		out = append(out, proto.ICEServer{URLs: s.URLs, Username: s.Username, Credential: s.Credential})
	}
	return out
}
