package http

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/gamebridge-server/internal/config"
	"github.com/vovakirdan/gamebridge-server/internal/proto"
)

func TestHealthEndpoint(t *testing.T) {
	s := startTestServer(t, nil)

	resp := s.do(t, "GET", "/health", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestWebSocketHeaderTokenGreets(t *testing.T) {
	s := startTestServer(t, nil)
	token, userID := s.register(t, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, s.wsURL()+"?token="+token, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	var ready proto.SessionReadyData
	decodeData(t, expectEvent(ctx, t, conn, "session.ready"), &ready)
	if ready.UserID != userID || ready.Username != "alice" || ready.Protocol != proto.ProtocolVersion {
		t.Fatalf("session.ready = %+v", ready)
	}
	if ready.ConnectionID == "" || len(ready.ICEServers) != 1 {
		t.Fatalf("session.ready = %+v", ready)
	}
}

func TestWebSocketHelloLobbyChatAndSignal(t *testing.T) {
	s := startTestServer(t, nil)
	tokenA, idA := s.register(t, "alice")
	tokenB, idB := s.register(t, "bob")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := s.dial(ctx, t, tokenA)

	// Bob authenticates with a hello frame instead of a header.
	connB, _, err := websocket.Dial(ctx, s.wsURL(), nil)
	if err != nil {
		t.Fatalf("dial B: %v", err)
	}
	defer connB.Close(websocket.StatusNormalClosure, "done")
	send(ctx, t, connB, proto.InboundTypeHello, proto.HelloData{Token: tokenB, Protocol: proto.ProtocolVersion})
	expectEvent(ctx, t, connB, "session.ready")

	send(ctx, t, connA, proto.InboundTypeLobbyCreate, proto.CreateLobbyData{Name: "squad", MaxParticipants: 4})
	var created proto.LobbyStateData
	decodeData(t, expectEvent(ctx, t, connA, "lobby.created"), &created)
	if created.Lobby.HostID != idA || created.Lobby.ParticipantCount != 1 || len(created.Lobby.LobbyCode) != 6 {
		t.Fatalf("created = %+v", created.Lobby)
	}

	send(ctx, t, connB, proto.InboundTypeLobbyJoin, proto.JoinLobbyData{LobbyCode: created.Lobby.LobbyCode})
	var joined proto.LobbyStateData
	decodeData(t, expectEvent(ctx, t, connB, "lobby.joined"), &joined)
	if joined.Lobby.ID != created.Lobby.ID || joined.Lobby.ParticipantCount != 2 {
		t.Fatalf("joined = %+v", joined.Lobby)
	}

	var pj proto.ParticipantJoinedData
	decodeData(t, expectEvent(ctx, t, connA, "lobby.participant_joined"), &pj)
	if pj.Participant.UserID != idB || pj.Participant.Platform != "xbox" {
		t.Fatalf("participant_joined = %+v", pj)
	}

	send(ctx, t, connB, proto.InboundTypeChatMessage, proto.ChatMessageData{Content: "hi"})
	for {
		var msg proto.ChatMessage
		decodeData(t, expectEvent(ctx, t, connA, "chat.message_received"), &msg)
		if msg.UserID == nil {
			continue // join notice
		}
		if *msg.UserID != idB || msg.Content != "hi" || msg.MessageType != "text" {
			t.Fatalf("chat = %+v", msg)
		}
		break
	}

	send(ctx, t, connA, proto.InboundTypeVoiceOffer, proto.SignalData{To: idB, Payload: json.RawMessage(`{"sdp":"v=0"}`)})
	var offer proto.SignalForwardData
	decodeData(t, expectEvent(ctx, t, connB, "voice.offer"), &offer)
	if offer.From != idA || string(offer.Payload) != `{"sdp":"v=0"}` {
		t.Fatalf("offer = %+v", offer)
	}

	send(ctx, t, connB, proto.InboundTypeVoiceMute, map[string]bool{"isMuted": true})
	var muted proto.MuteToggledData
	decodeData(t, expectEvent(ctx, t, connA, "voice.mute_toggle"), &muted)
	if muted.UserID != idB || !muted.IsMuted {
		t.Fatalf("mute = %+v", muted)
	}

	send(ctx, t, connA, proto.InboundTypeLobbyLeave, nil)
	var hc proto.HostChangedData
	decodeData(t, expectEvent(ctx, t, connB, "lobby.host_changed"), &hc)
	if hc.NewHostID != idB {
		t.Fatalf("host_changed = %+v", hc)
	}
	expectEvent(ctx, t, connA, "lobby.left")
}

func TestWebSocketInvalidTokenIsRejected(t *testing.T) {
	s := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, s.wsURL(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	send(ctx, t, conn, proto.InboundTypeHello, proto.HelloData{Token: "invalid"})
	expectError(ctx, t, conn, "auth.error", "unauthorized")

	var f frame
	err = wsjson.Read(ctx, conn, &f)
	if websocket.CloseStatus(err) != websocket.StatusPolicyViolation {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestWebSocketHeaderTokenInvalid(t *testing.T) {
	s := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, s.wsURL()+"?token=garbage", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	expectError(ctx, t, conn, "auth.error", "unauthorized")
}

func TestWebSocketFirstFrameMustBeHello(t *testing.T) {
	s := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, s.wsURL(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	send(ctx, t, conn, proto.InboundTypeLobbyCreate, proto.CreateLobbyData{Name: "x"})
	expectError(ctx, t, conn, "auth.error", "unauthorized")
}

func TestWebSocketAuthTimeout(t *testing.T) {
	s := startTestServer(t, func(cfg *config.Config) {
		cfg.WS.AuthTimeout = 100 * time.Millisecond
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, s.wsURL(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	var f frame
	err = wsjson.Read(ctx, conn, &f)
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected server to close, got %v (%+v)", err, f)
	}
}

func TestWebSocketCommandErrors(t *testing.T) {
	s := startTestServer(t, nil)
	token, _ := s.register(t, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := s.dial(ctx, t, token)

	send(ctx, t, conn, proto.InboundTypeLobbyCreate, proto.CreateLobbyData{})
	expectError(ctx, t, conn, "lobby.error", "invalid_argument")

	send(ctx, t, conn, proto.InboundTypeLobbyJoin, proto.JoinLobbyData{LobbyCode: "ZZZZZZ"})
	expectError(ctx, t, conn, "lobby.error", "not_found")

	send(ctx, t, conn, proto.InboundTypeChatMessage, proto.ChatMessageData{Content: "hello"})
	expectError(ctx, t, conn, "chat.error", "invalid_argument")

	send(ctx, t, conn, "bogus.thing", nil)
	expectError(ctx, t, conn, "session.error", "invalid_argument")

	if err := conn.Write(ctx, websocket.MessageText, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	expectError(ctx, t, conn, "session.error", proto.CodeInvalidMessage)

	// The connection survives bad frames.
	send(ctx, t, conn, proto.InboundTypePing, nil)
	expectEvent(ctx, t, conn, "pong")
}

func TestWebSocketRateLimit(t *testing.T) {
	s := startTestServer(t, func(cfg *config.Config) {
		cfg.WS.RateLimitPerSec = 1
		cfg.WS.RateBurst = 1
	})
	token, _ := s.register(t, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := s.dial(ctx, t, token)

	send(ctx, t, conn, proto.InboundTypePing, nil)
	send(ctx, t, conn, proto.InboundTypePing, nil)

	expectEvent(ctx, t, conn, "pong")
	expectError(ctx, t, conn, "session.error", "rate_limited")
}

func TestWebSocketDisconnectLeavesLobby(t *testing.T) {
	s := startTestServer(t, nil)
	tokenA, _ := s.register(t, "alice")
	tokenB, idB := s.register(t, "bob")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := s.dial(ctx, t, tokenA)
	connB := s.dial(ctx, t, tokenB)

	send(ctx, t, connA, proto.InboundTypeLobbyCreate, proto.CreateLobbyData{Name: "squad"})
	var created proto.LobbyStateData
	decodeData(t, expectEvent(ctx, t, connA, "lobby.created"), &created)

	send(ctx, t, connB, proto.InboundTypeLobbyJoin, proto.JoinLobbyData{LobbyID: created.Lobby.ID})
	expectEvent(ctx, t, connB, "lobby.joined")
	expectEvent(ctx, t, connA, "lobby.participant_joined")

	connB.Close(websocket.StatusNormalClosure, "bye")

	var left proto.UserRefData
	decodeData(t, expectEvent(ctx, t, connA, "lobby.participant_left"), &left)
	if left.UserID != idB {
		t.Fatalf("participant_left = %+v", left)
	}
	if _, ok := s.lobbies.LobbyOf(idB); ok {
		t.Fatal("bob still in a lobby")
	}
}

func TestProtocolVersionMismatch(t *testing.T) {
	s := startTestServer(t, nil)
	token, _ := s.register(t, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, s.wsURL(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	send(ctx, t, conn, proto.InboundTypeHello, proto.HelloData{Token: token, Protocol: proto.ProtocolVersion + 1})
	expectError(ctx, t, conn, "auth.error", proto.CodeUnsupportedVersion)

	var f frame
	if err := wsjson.Read(ctx, conn, &f); err == nil || errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected close, got %v (%+v)", err, f)
	}
}
