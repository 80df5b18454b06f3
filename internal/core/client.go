package core

import (
	"sync"
	"sync/atomic"

	"github.com/vovakirdan/gamebridge-server/internal/domain"
)

// State is a connection's position in its lifecycle.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateInLobby
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateInLobby:
		return "in_lobby"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

const defaultEventBuffer = 64

// Client is one connection as seen by the core layer. Events are read by
// the transport's write loop.
type Client struct {
	ID     string
	Events chan *domain.Event

	state   atomic.Int32
	dropped atomic.Uint64

	mu       sync.Mutex
	identity domain.Identity
	lobbyID  string // hint; the lobby store is authoritative
}

// NewClient constructs a client in the Connecting state.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	return &Client{
		ID:     id,
		Events: make(chan *domain.Event, buffer),
	}
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Identity returns the verified identity, zero before authentication.
func (c *Client) Identity() domain.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// LobbyHint returns the lobby this connection last saw itself in.
func (c *Client) LobbyHint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lobbyID
}

// Deliver queues ev for the write loop without blocking. It implements
// session.Sink.
func (c *Client) Deliver(ev *domain.Event) bool {
	if ev == nil || c.State() == StateClosed {
		return false
	}
	select {
	case c.Events <- ev:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

// Dropped returns how many events were discarded because Events was full.
func (c *Client) Dropped() uint64 {
	return c.dropped.Load()
}

func (c *Client) authenticate(id domain.Identity) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.CompareAndSwap(int32(StateConnecting), int32(StateAuthenticated)) {
		return false
	}
	c.identity = id
	return true
}

// setLobby records the lobby the store reported for this connection's user.
// An empty id moves the connection back to Authenticated.
func (c *Client) setLobby(lobbyID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() == StateClosed || c.State() == StateConnecting {
		return
	}
	c.lobbyID = lobbyID
	if lobbyID == "" {
		c.state.Store(int32(StateAuthenticated))
	} else {
		c.state.Store(int32(StateInLobby))
	}
}

// close marks the client closed and returns the state it was in.
func (c *Client) close() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State(c.state.Swap(int32(StateClosed)))
}
