// Package persist mirrors lobby state into a store.LobbyStore and loads it
// back on startup.
package persist

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamebridge-server/internal/domain"
	"github.com/vovakirdan/gamebridge-server/internal/lobby"
	"github.com/vovakirdan/gamebridge-server/internal/store"
)

const (
	defaultQueueSize = 1024
	defaultTimeout   = 5 * time.Second
)

type op struct {
	name    string
	lobbyID string
	run     func(ctx context.Context) error
}

// Writer applies lobby changes to the database on a single goroutine, in
// the order they were committed. Observe never blocks; when the queue is
// full the write is dropped and logged.
type Writer struct {
	st      store.LobbyStore
	ops     chan op
	timeout time.Duration
	log     zerolog.Logger
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewWriter creates a writer over st.
func NewWriter(st store.LobbyStore, queueSize int, timeout time.Duration, logger *zerolog.Logger) *Writer {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "persist").Logger()
	}
	return &Writer{
		st:      st,
		ops:     make(chan op, queueSize),
		timeout: timeout,
		log:     l,
	}
}

// Observe translates a committed change into store writes.
func (w *Writer) Observe(ch lobby.Change) {
	l := ch.Lobby
	switch ch.Kind {
	case lobby.ChangeCreated:
		row := lobbyRow(&l)
		w.enqueue("create lobby", l.ID, func(ctx context.Context) error { return w.st.UpsertLobby(ctx, row) })
		w.enqueueParticipant(l.ID, ch.Participant)

	case lobby.ChangeJoined, lobby.ChangeMute, lobby.ChangeDeafen:
		w.enqueueParticipant(l.ID, ch.Participant)

	case lobby.ChangeLeft, lobby.ChangeKicked:
		dep := ch.Departure
		if dep.Disbanded {
			w.enqueue("delete lobby", l.ID, func(ctx context.Context) error { return w.st.DeleteLobby(ctx, dep.LobbyID) })
			return
		}
		w.enqueue("delete participant", l.ID, func(ctx context.Context) error {
			return w.st.DeleteParticipant(ctx, dep.LobbyID, dep.UserID)
		})
		if dep.NewHostID != "" {
			row := lobbyRow(&l)
			w.enqueue("transfer host", l.ID, func(ctx context.Context) error { return w.st.UpsertLobby(ctx, row) })
		}

	case lobby.ChangeSettings:
		row := lobbyRow(&l)
		w.enqueue("update lobby", l.ID, func(ctx context.Context) error { return w.st.UpsertLobby(ctx, row) })

	case lobby.ChangeMessage:
		row := messageRow(ch.Message)
		w.enqueue("save message", l.ID, func(ctx context.Context) error { return w.st.SaveMessage(ctx, row) })

	case lobby.ChangeMessageDeleted:
		id := ch.MessageID
		w.enqueue("delete message", l.ID, func(ctx context.Context) error { return w.st.DeleteMessage(ctx, id) })
	}
}

func (w *Writer) enqueueParticipant(lobbyID string, p *domain.Participant) {
	if p == nil {
		return
	}
	row := participantRow(lobbyID, p)
	w.enqueue("save participant", lobbyID, func(ctx context.Context) error { return w.st.UpsertParticipant(ctx, row) })
}

func (w *Writer) enqueue(name, lobbyID string, run func(ctx context.Context) error) {
	select {
	case w.ops <- op{name: name, lobbyID: lobbyID, run: run}:
	default:
		w.dropped.Add(1)
		w.log.Warn().Str("op", name).Str("lobby_id", lobbyID).Msg("persistence queue full, write dropped")
	}
}

// Run applies queued writes until ctx is done, then drains what is left.
func (w *Writer) Run(ctx context.Context) error {
	for {
		select {
		case o := <-w.ops:
			w.apply(o)
		case <-ctx.Done():
			w.drain()
			return nil
		}
	}
}

func (w *Writer) drain() {
	for {
		select {
		case o := <-w.ops:
			w.apply(o)
		default:
			return
		}
	}
}

func (w *Writer) apply(o op) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := o.run(ctx); err != nil {
		w.failed.Add(1)
		w.log.Error().Err(err).Str("op", o.name).Str("lobby_id", o.lobbyID).Msg("persist failed")
	}
}

// Pending returns the number of queued writes.
func (w *Writer) Pending() int { return len(w.ops) }

// Dropped returns how many writes were discarded because the queue was full.
func (w *Writer) Dropped() uint64 { return w.dropped.Load() }

// Failed returns how many writes the store rejected.
func (w *Writer) Failed() uint64 { return w.failed.Load() }

func lobbyRow(l *domain.Lobby) *store.Lobby {
	return &store.Lobby{
		ID:              l.ID,
		Name:            l.Name,
		HostID:          l.HostID,
		MaxParticipants: l.MaxParticipants,
		IsPrivate:       l.IsPrivate,
		Code:            l.Code,
		CreatedAt:       l.CreatedAt,
	}
}

func participantRow(lobbyID string, p *domain.Participant) *store.Participant {
	return &store.Participant{
		LobbyID:    lobbyID,
		UserID:     p.UserID,
		Username:   p.Username,
		Platform:   string(p.Platform),
		IsMuted:    p.IsMuted,
		IsDeafened: p.IsDeafened,
		JoinedAt:   p.JoinedAt,
	}
}

func messageRow(m *domain.ChatMessage) *store.Message {
	row := &store.Message{
		ID:        m.ID,
		LobbyID:   m.LobbyID,
		Username:  m.AuthorName,
		Body:      m.Content,
		Type:      string(m.Kind),
		CreatedAt: m.CreatedAt,
	}
	if !m.IsSystem() {
		author := m.AuthorID
		row.UserID = &author
	}
	if row.Username == "" {
		row.Username = SystemAuthor
	}
	return row
}
