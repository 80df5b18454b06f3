package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/gamebridge-server/internal/broadcast"
	"github.com/vovakirdan/gamebridge-server/internal/domain"
	"github.com/vovakirdan/gamebridge-server/internal/lobby"
	"github.com/vovakirdan/gamebridge-server/internal/session"
	"github.com/vovakirdan/gamebridge-server/internal/signaling"
)

func mustEvent(t *testing.T, ch <-chan *domain.Event, kind domain.EventKind) *domain.Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustError(t *testing.T, c *Client, namespace string, code domain.Code) {
	t.Helper()

	ev := mustEvent(t, c.Events, domain.EventError)
	if ev.Namespace != namespace || ev.Error == nil || ev.Error.Code != code {
		t.Fatalf("expected %s.error %s, got %+v (%v)", namespace, code, ev, ev.Error)
	}
}

// noEvent drains ch for d and fails if an event of kind shows up.
func noEvent(t *testing.T, ch <-chan *domain.Event, kind domain.EventKind, d time.Duration) {
	t.Helper()

	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event %v: %+v", kind, ev)
			}
		case <-timer.C:
			return
		}
	}
}

type fakePresence struct {
	mu      sync.Mutex
	online  map[string]int
	offline map[string]int
}

func newFakePresence() *fakePresence {
	return &fakePresence{online: map[string]int{}, offline: map[string]int{}}
}

func (p *fakePresence) SetOnline(_ context.Context, userID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID]++
	return nil
}

func (p *fakePresence) SetOffline(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offline[userID]++
	return nil
}

func (p *fakePresence) counts(userID string) (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID], p.offline[userID]
}

type testEnv struct {
	hub      *Hub
	lobbies  *lobby.Store
	sessions *session.Registry
	presence *fakePresence
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	sessions := session.NewRegistry(nil)
	lobbies := lobby.NewStore(nil, lobby.WithJoinHistory(opts.HistoryOnJoin))
	var bcOpts []broadcast.Option
	if opts.Media != nil {
		bcOpts = append(bcOpts, broadcast.WithMedia(opts.Media))
	}
	bc := broadcast.New(lobbies, sessions, nil, bcOpts...)
	lobbies.Subscribe(bc)
	t.Cleanup(bc.Close)

	pres := newFakePresence()
	if opts.Presence == nil {
		opts.Presence = pres
	}
	return &testEnv{
		hub:      NewHub(sessions, lobbies, signaling.NewRelay(sessions, nil), opts, nil),
		lobbies:  lobbies,
		sessions: sessions,
		presence: pres,
	}
}

var connSeq int

// connect registers a new connection for userID and consumes session.ready.
func (e *testEnv) connect(t *testing.T, userID, username string) *Client {
	t.Helper()

	connSeq++
	c := NewClient(fmt.Sprintf("conn-%s-%d", userID, connSeq), 64)
	if err := e.hub.Connect(context.Background(), c, domain.Identity{UserID: userID, Username: username}); err != nil {
		t.Fatalf("connect %s: %v", userID, err)
	}
	mustEvent(t, c.Events, domain.EventSessionReady)
	return c
}

func (e *testEnv) handle(c *Client, cmd *Command) {
	e.hub.Handle(context.Background(), c, cmd)
}

func (e *testEnv) createLobby(t *testing.T, host *Client, name string, capacity int) domain.Lobby {
	t.Helper()

	e.handle(host, &Command{Kind: CommandCreateLobby, Name: name, MaxParticipants: capacity})
	ev := mustEvent(t, host.Events, domain.EventLobbyCreated)
	if ev.Lobby == nil {
		t.Fatalf("lobby.created without lobby")
	}
	return *ev.Lobby
}
