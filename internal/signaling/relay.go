// Package signaling forwards opaque WebRTC negotiation messages between users.
package signaling

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamebridge-server/internal/domain"
	"github.com/vovakirdan/gamebridge-server/internal/session"
)

// Directory resolves a user to one live connection.
type Directory interface {
	SinkForUser(userID string) (string, session.Sink, bool)
}

// Relay passes offers, answers and ICE candidates through without looking
// at them. Undeliverable signals are dropped; the sender is never told.
type Relay struct {
	dir Directory
	log zerolog.Logger
}

// NewRelay creates a relay over dir.
func NewRelay(dir Directory, logger *zerolog.Logger) *Relay {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "signaling").Logger()
	}
	return &Relay{dir: dir, log: l}
}

// Relay forwards payload from fromUserID to the most recent connection of
// toUserID. It reports whether the signal was handed to a connection.
func (r *Relay) Relay(fromUserID, toUserID string, kind domain.SignalKind, payload json.RawMessage) bool {
	connID, sink, ok := r.dir.SinkForUser(toUserID)
	if !ok {
		r.log.Debug().
			Str("from", fromUserID).
			Str("to", toUserID).
			Str("kind", kind.EventKind().String()).
			Msg("signal target offline, dropped")
		return false
	}

	ev := &domain.Event{
		Kind:   kind.EventKind(),
		UserID: fromUserID,
		Signal: &domain.Signal{From: fromUserID, Kind: kind, Payload: payload},
	}
	if !sink.Deliver(ev) {
		r.log.Warn().
			Str("from", fromUserID).
			Str("to", toUserID).
			Str("conn_id", connID).
			Msg("signal target backlogged, dropped")
		return false
	}
	return true
}
