// Package session maps live connections to the identities that opened them.
package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamebridge-server/internal/domain"
)

// Sink receives events for one connection. Deliver must not block; it
// reports false when the event was dropped.
type Sink interface {
	Deliver(ev *domain.Event) bool
}

// Entry is a registered connection.
type Entry struct {
	ConnID       string
	Identity     domain.Identity
	Sink         Sink
	RegisteredAt time.Time
}

// Registry owns the connection <-> identity mapping.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Entry
	byUser map[string][]string // conn ids in registration order
	log    zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zerolog.Logger) *Registry {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "session").Logger()
	}
	return &Registry{
		conns:  make(map[string]*Entry),
		byUser: make(map[string][]string),
		log:    l,
	}
}

// Register binds connID to an identity that was already verified by the
// auth service. It reports whether this is the user's first live connection,
// which is when the caller should mark the user online.
func (r *Registry) Register(connID string, id domain.Identity, sink Sink) (bool, error) {
	if connID == "" || id.UserID == "" {
		return false, domain.Errorf(domain.CodeInvalidArgument, "connection id and user id are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[connID]; exists {
		return false, domain.Errorf(domain.CodeConflict, "connection %s already registered", connID)
	}

	r.conns[connID] = &Entry{
		ConnID:       connID,
		Identity:     id,
		Sink:         sink,
		RegisteredAt: time.Now(),
	}
	first := len(r.byUser[id.UserID]) == 0
	r.byUser[id.UserID] = append(r.byUser[id.UserID], connID)

	r.log.Debug().Str("conn_id", connID).Str("user_id", id.UserID).Bool("first", first).Msg("registered")
	return first, nil
}

// Lookup returns the entry for connID.
func (r *Registry) Lookup(connID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[connID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Unregister removes connID. It returns the removed entry and whether the
// user has no remaining live connections.
func (r *Registry) Unregister(connID string) (Entry, bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return Entry{}, false, false
	}
	delete(r.conns, connID)

	userID := e.Identity.UserID
	ids := r.byUser[userID]
	for i, id := range ids {
		if id == connID {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	last := len(ids) == 0
	if last {
		delete(r.byUser, userID)
	} else {
		r.byUser[userID] = ids
	}

	r.log.Debug().Str("conn_id", connID).Str("user_id", userID).Bool("last", last).Msg("unregistered")
	return *e, last, true
}

// FindConnectionForUser returns the most recently registered connection of userID.
func (r *Registry) FindConnectionForUser(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byUser[userID]
	if len(ids) == 0 {
		return "", false
	}
	return ids[len(ids)-1], true
}

// SinkForUser resolves the delivery handle of the user's current connection.
func (r *Registry) SinkForUser(userID string) (string, Sink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byUser[userID]
	if len(ids) == 0 {
		return "", nil, false
	}
	connID := ids[len(ids)-1]
	return connID, r.conns[connID].Sink, true
}

// ConnectionsForUsers returns every live entry that belongs to one of userIDs.
func (r *Registry) ConnectionsForUsers(userIDs []string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(userIDs))
	for _, uid := range userIDs {
		for _, connID := range r.byUser[uid] {
			out = append(out, *r.conns[connID])
		}
	}
	return out
}

// IsOnline reports whether userID has at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
