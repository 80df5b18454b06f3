package broadcast

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/vovakirdan/gamebridge-server/internal/domain"
	"github.com/vovakirdan/gamebridge-server/internal/lobby"
	"github.com/vovakirdan/gamebridge-server/internal/session"
)

type chanSink struct {
	events chan *domain.Event
}

func newChanSink(size int) *chanSink {
	return &chanSink{events: make(chan *domain.Event, size)}
}

func (s *chanSink) Deliver(ev *domain.Event) bool {
	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}

type fixture struct {
	store *lobby.Store
	reg   *session.Registry
	bc    *Broadcaster
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	return newFixtureWithStore(t, lobby.NewStore(nil), opts...)
}

func newFixtureWithStore(t *testing.T, store *lobby.Store, opts ...Option) *fixture {
	t.Helper()
	reg := session.NewRegistry(nil)
	bc := New(store, reg, nil, opts...)
	store.Subscribe(bc)
	t.Cleanup(bc.Close)
	return &fixture{store: store, reg: reg, bc: bc}
}

func (f *fixture) connect(t *testing.T, userID string, buffer int) *chanSink {
	t.Helper()
	sink := newChanSink(buffer)
	if _, err := f.reg.Register("conn-"+userID, domain.Identity{UserID: userID, Username: userID}, sink); err != nil {
		t.Fatalf("register: %v", err)
	}
	return sink
}

func member(id string) lobby.Member {
	return lobby.Member{UserID: id, Username: id, Platform: domain.PlatformPC}
}

func next(t *testing.T, sink *chanSink) *domain.Event {
	t.Helper()
	select {
	case ev := <-sink.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("no event received")
		return nil
	}
}

func expectNone(t *testing.T, sink *chanSink) {
	t.Helper()
	select {
	case ev := <-sink.events:
		t.Fatalf("unexpected event %s", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestJoinNotifiesOthersOnly(t *testing.T) {
	f := newFixture(t)
	host := f.connect(t, "host", 8)
	guest := f.connect(t, "guest", 8)

	l, err := f.store.CreateLobby(member("host"), lobby.CreateParams{Name: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.store.JoinLobby(member("guest"), lobby.JoinTarget{LobbyID: l.ID}); err != nil {
		t.Fatalf("join: %v", err)
	}

	ev := next(t, host)
	if ev.Kind != domain.EventParticipantJoined || ev.Participant.UserID != "guest" || ev.LobbyID != l.ID {
		t.Fatalf("unexpected event: %+v", ev)
	}
	expectNone(t, guest)
}

func TestHostLeaveOrdersLeftBeforeHostChanged(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "a", 8)
	b := f.connect(t, "b", 8)
	c := f.connect(t, "c", 8)

	l, _ := f.store.CreateLobby(member("a"), lobby.CreateParams{Name: "x"})
	f.store.JoinLobby(member("b"), lobby.JoinTarget{LobbyID: l.ID})
	f.store.JoinLobby(member("c"), lobby.JoinTarget{LobbyID: l.ID})

	// b saw c join.
	if ev := next(t, b); ev.Kind != domain.EventParticipantJoined {
		t.Fatalf("b got %s", ev.Kind)
	}

	if _, err := f.store.LeaveLobby("a"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	for _, sink := range []*chanSink{b, c} {
		left := next(t, sink)
		if left.Kind != domain.EventParticipantLeft || left.UserID != "a" {
			t.Fatalf("expected participant_left, got %+v", left)
		}
		host := next(t, sink)
		if host.Kind != domain.EventHostChanged || host.UserID != "b" {
			t.Fatalf("expected host_changed to b, got %+v", host)
		}
	}
}

func TestMessagesArriveInCommitOrder(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "a", 8)
	b := f.connect(t, "b", 256)

	l, _ := f.store.CreateLobby(member("a"), lobby.CreateParams{Name: "x"})
	f.store.JoinLobby(member("b"), lobby.JoinTarget{LobbyID: l.ID})

	const n = 100
	for i := range n {
		if _, err := f.store.AppendMessage(l.ID, "a", fmt.Sprintf("%d", i), domain.MessageText); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	for i := range n {
		ev := next(t, b)
		if ev.Kind != domain.EventChatMessage || ev.Message.Content != fmt.Sprintf("%d", i) {
			t.Fatalf("message %d out of order: %+v", i, ev.Message)
		}
	}
}

func TestKickNotifiesTarget(t *testing.T) {
	f := newFixture(t)
	host := f.connect(t, "host", 8)
	target := f.connect(t, "target", 8)

	l, _ := f.store.CreateLobby(member("host"), lobby.CreateParams{Name: "x"})
	f.store.JoinLobby(member("target"), lobby.JoinTarget{LobbyID: l.ID})
	next(t, host) // participant_joined

	if _, err := f.store.KickParticipant("host", l.ID, "target"); err != nil {
		t.Fatalf("kick: %v", err)
	}
	if ev := next(t, host); ev.Kind != domain.EventParticipantLeft || ev.UserID != "target" {
		t.Fatalf("host got %+v", ev)
	}
	if ev := next(t, target); ev.Kind != domain.EventLobbyKicked || ev.LobbyID != l.ID {
		t.Fatalf("target got %+v", ev)
	}
}

func TestMuteAndSettingsReachEveryone(t *testing.T) {
	f := newFixture(t)
	a := f.connect(t, "a", 8)
	b := f.connect(t, "b", 8)

	l, _ := f.store.CreateLobby(member("a"), lobby.CreateParams{Name: "x"})
	f.store.JoinLobby(member("b"), lobby.JoinTarget{LobbyID: l.ID})
	next(t, a) // participant_joined

	f.store.SetMute("b", true)
	for _, sink := range []*chanSink{a, b} {
		ev := next(t, sink)
		if ev.Kind != domain.EventMuteToggled || ev.UserID != "b" || !ev.Flag {
			t.Fatalf("unexpected mute event: %+v", ev)
		}
	}

	name := "renamed"
	f.store.UpdateLobbySettings("a", l.ID, domain.SettingsPatch{Name: &name})
	for _, sink := range []*chanSink{a, b} {
		ev := next(t, sink)
		if ev.Kind != domain.EventLobbyUpdated || ev.Lobby.Name != "renamed" {
			t.Fatalf("unexpected update event: %+v", ev)
		}
	}
}

func TestBroadcastToLobbyExcludesConnection(t *testing.T) {
	f := newFixture(t)
	a := f.connect(t, "a", 8)
	b := f.connect(t, "b", 8)

	l, _ := f.store.CreateLobby(member("a"), lobby.CreateParams{Name: "x"})
	f.store.JoinLobby(member("b"), lobby.JoinTarget{LobbyID: l.ID})
	next(t, a) // participant_joined

	if err := f.bc.BroadcastToLobby(l.ID, &domain.Event{Kind: domain.EventPong}, "conn-a"); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if ev := next(t, b); ev.Kind != domain.EventPong {
		t.Fatalf("b got %s", ev.Kind)
	}
	expectNone(t, a)

	err := f.bc.BroadcastToLobby("missing", &domain.Event{Kind: domain.EventPong}, "")
	if domain.CodeOf(err) != domain.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSlowConnectionDoesNotBlockOthers(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "a", 8)
	slow := f.connect(t, "slow", 0)
	fast := f.connect(t, "fast", 64)

	l, _ := f.store.CreateLobby(member("a"), lobby.CreateParams{Name: "x"})
	f.store.JoinLobby(member("slow"), lobby.JoinTarget{LobbyID: l.ID})
	f.store.JoinLobby(member("fast"), lobby.JoinTarget{LobbyID: l.ID})

	for i := range 10 {
		f.store.AppendMessage(l.ID, "a", fmt.Sprintf("%d", i), domain.MessageText)
	}
	for i := range 10 {
		if ev := next(t, fast); ev.Message.Content != fmt.Sprintf("%d", i) {
			t.Fatalf("fast got %+v", ev.Message)
		}
	}
	if len(slow.events) != 0 {
		t.Fatalf("slow sink should have dropped everything")
	}
}

func TestIdleLaneIsReaped(t *testing.T) {
	f := newFixture(t, WithLaneIdle(20*time.Millisecond))
	f.connect(t, "a", 8)
	b := f.connect(t, "b", 8)

	l, _ := f.store.CreateLobby(member("a"), lobby.CreateParams{Name: "x"})
	f.store.JoinLobby(member("b"), lobby.JoinTarget{LobbyID: l.ID})
	f.store.AppendMessage(l.ID, "a", "hi", domain.MessageText)
	next(t, b)

	deadline := time.Now().Add(2 * time.Second)
	for f.bc.Lanes() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("lane not reaped")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// A new lane is started on demand.
	f.store.AppendMessage(l.ID, "a", "again", domain.MessageText)
	if ev := next(t, b); ev.Message.Content != "again" {
		t.Fatalf("b got %+v", ev.Message)
	}
}

type stubIssuer struct{}

func (stubIssuer) GrantLobby(_ context.Context, lobbyID, userID, _ string) (*domain.MediaGrant, error) {
	return &domain.MediaGrant{RoomName: lobbyID, Identity: userID}, nil
}

func TestJoinerStateIsOrderedOnTheLane(t *testing.T) {
	f := newFixtureWithStore(t, lobby.NewStore(nil, lobby.WithJoinHistory(10)), WithMedia(stubIssuer{}))
	host := f.connect(t, "host", 16)
	guest := f.connect(t, "guest", 16)
	other := newChanSink(16)
	if _, err := f.reg.Register("conn-guest-2", domain.Identity{UserID: "guest", Username: "guest"}, other); err != nil {
		t.Fatalf("register: %v", err)
	}

	hostMember := member("host")
	hostMember.ConnID = "conn-host"
	l, err := f.store.CreateLobby(hostMember, lobby.CreateParams{Name: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	created := next(t, host)
	if created.Kind != domain.EventLobbyCreated || created.Media == nil || created.Media.Identity != "host" {
		t.Fatalf("host got %+v", created)
	}
	before, _ := f.store.AppendMessage(l.ID, "host", "before", domain.MessageText)
	next(t, host)

	guestMember := member("guest")
	guestMember.ConnID = "conn-guest"
	if _, err := f.store.JoinLobby(guestMember, lobby.JoinTarget{LobbyID: l.ID}); err != nil {
		t.Fatalf("join: %v", err)
	}
	f.store.AppendMessage(l.ID, "host", "after", domain.MessageText)

	joined := next(t, guest)
	if joined.Kind != domain.EventLobbyJoined || len(joined.Lobby.Participants) != 2 || joined.Media == nil || joined.Media.Identity != "guest" {
		t.Fatalf("guest got %+v", joined)
	}
	history := next(t, guest)
	if history.Kind != domain.EventChatHistory || len(history.Messages) != 1 || history.Messages[0].ID != before.ID {
		t.Fatalf("guest history %+v", history)
	}
	if ev := next(t, guest); ev.Kind != domain.EventChatMessage || ev.Message.Content != "after" {
		t.Fatalf("guest got %+v", ev)
	}

	// The user's other connection only sees the lobby broadcast.
	if ev := next(t, other); ev.Kind != domain.EventChatMessage || ev.Message.Content != "after" {
		t.Fatalf("second connection got %+v", ev)
	}
	expectNone(t, other)
}
