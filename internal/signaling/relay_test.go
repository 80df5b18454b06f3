package signaling

import (
	"encoding/json"
	"testing"

	"github.com/vovakirdan/gamebridge-server/internal/domain"
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

func register(t *testing.T, reg *session.Registry, connID, userID string, sink session.Sink) {
	t.Helper()
	if _, err := reg.Register(connID, domain.Identity{UserID: userID, Username: userID}, sink); err != nil {
		t.Fatalf("register %s: %v", connID, err)
	}
}

func TestRelayDeliversOpaquePayload(t *testing.T) {
	reg := session.NewRegistry(nil)
	bob := newChanSink(1)
	register(t, reg, "c-bob", "bob", bob)

	relay := NewRelay(reg, nil)
	payload := json.RawMessage(`{"sdp":"v=0\r\n...","type":"offer","extra":[1,2,3]}`)
	if !relay.Relay("alice", "bob", domain.SignalOffer, payload) {
		t.Fatalf("expected delivery")
	}

	ev := <-bob.events
	if ev.Kind != domain.EventVoiceOffer || ev.Signal.From != "alice" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if string(ev.Signal.Payload) != string(payload) {
		t.Fatalf("payload altered: %s", ev.Signal.Payload)
	}
}

func TestRelayKinds(t *testing.T) {
	reg := session.NewRegistry(nil)
	bob := newChanSink(3)
	register(t, reg, "c-bob", "bob", bob)
	relay := NewRelay(reg, nil)

	want := map[domain.SignalKind]domain.EventKind{
		domain.SignalOffer:        domain.EventVoiceOffer,
		domain.SignalAnswer:       domain.EventVoiceAnswer,
		domain.SignalICECandidate: domain.EventVoiceICECandidate,
	}
	for kind, evKind := range want {
		relay.Relay("alice", "bob", kind, json.RawMessage(`{}`))
		if ev := <-bob.events; ev.Kind != evKind {
			t.Fatalf("kind %v delivered as %v", kind, ev.Kind)
		}
	}
}

func TestRelayOfflineTargetIsSilent(t *testing.T) {
	reg := session.NewRegistry(nil)
	alice := newChanSink(1)
	register(t, reg, "c-alice", "alice", alice)

	relay := NewRelay(reg, nil)
	if relay.Relay("alice", "ghost", domain.SignalAnswer, json.RawMessage(`{}`)) {
		t.Fatalf("delivery reported for offline user")
	}
	select {
	case ev := <-alice.events:
		t.Fatalf("sender must not be notified, got %+v", ev)
	default:
	}
}

func TestRelayPrefersLatestConnection(t *testing.T) {
	reg := session.NewRegistry(nil)
	old, fresh := newChanSink(1), newChanSink(1)
	register(t, reg, "c-old", "bob", old)
	register(t, reg, "c-new", "bob", fresh)

	relay := NewRelay(reg, nil)
	relay.Relay("alice", "bob", domain.SignalICECandidate, json.RawMessage(`{"candidate":"x"}`))

	if len(fresh.events) != 1 || len(old.events) != 0 {
		t.Fatalf("fresh=%d old=%d", len(fresh.events), len(old.events))
	}
}

func TestRelayFullSinkDrops(t *testing.T) {
	reg := session.NewRegistry(nil)
	bob := newChanSink(0)
	register(t, reg, "c-bob", "bob", bob)

	if NewRelay(reg, nil).Relay("alice", "bob", domain.SignalOffer, json.RawMessage(`{}`)) {
		t.Fatalf("full sink should drop")
	}
}
