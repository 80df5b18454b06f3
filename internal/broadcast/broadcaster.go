// Package broadcast fans lobby events out to the live connections of the
// lobby's participants.
package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamebridge-server/internal/domain"
	"github.com/vovakirdan/gamebridge-server/internal/media"
	"github.com/vovakirdan/gamebridge-server/internal/session"
)

const (
	defaultLaneBuffer = 256
	defaultLaneIdle   = 30 * time.Second
	grantTimeout      = 3 * time.Second
)

// Roster reads the current participants of a lobby.
type Roster interface {
	Roster(lobbyID string) ([]string, error)
}

// Directory resolves users to their live connections.
type Directory interface {
	ConnectionsForUsers(userIDs []string) []session.Entry
}

type delivery struct {
	recipients    []string
	connID        string // only this connection, when set
	excludeConnID string
	excludeUserID string
	grant         bool // attach a media grant per recipient
	event         *domain.Event
}

type lane struct {
	ch chan delivery
}

// Broadcaster delivers events per lobby in the order they were enqueued.
// Each lobby gets its own lane goroutine, so a slow lobby never holds up
// another one. Delivery to a connection never blocks: a full connection
// buffer drops the event for that connection only.
type Broadcaster struct {
	roster Roster
	dir    Directory
	media  media.Issuer
	log    zerolog.Logger

	laneBuffer int
	laneIdle   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool
}

// Option configures a Broadcaster.
type Option func(*Broadcaster)

// WithLaneBuffer sets how many pending deliveries a lobby lane holds.
func WithLaneBuffer(n int) Option {
	return func(b *Broadcaster) {
		if n > 0 {
			b.laneBuffer = n
		}
	}
}

// WithLaneIdle sets how long an empty lane lives before its goroutine exits.
func WithLaneIdle(d time.Duration) Option {
	return func(b *Broadcaster) {
		if d > 0 {
			b.laneIdle = d
		}
	}
}

// WithMedia attaches SFU grants to the lobby.joined sent to a joiner.
func WithMedia(issuer media.Issuer) Option {
	return func(b *Broadcaster) { b.media = issuer }
}

// New creates a broadcaster. Close must be called to stop lane goroutines.
func New(roster Roster, dir Directory, logger *zerolog.Logger, opts ...Option) *Broadcaster {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "broadcast").Logger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Broadcaster{
		roster:     roster,
		dir:        dir,
		log:        l,
		laneBuffer: defaultLaneBuffer,
		laneIdle:   defaultLaneIdle,
		ctx:        ctx,
		cancel:     cancel,
		lanes:      make(map[string]*lane),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BroadcastToLobby sends ev to every live connection of the lobby's current
// participants except excludeConnID.
func (b *Broadcaster) BroadcastToLobby(lobbyID string, ev *domain.Event, excludeConnID string) error {
	userIDs, err := b.roster.Roster(lobbyID)
	if err != nil {
		return err
	}
	b.enqueue(lobbyID, delivery{recipients: userIDs, excludeConnID: excludeConnID, event: ev})
	return nil
}

func (b *Broadcaster) enqueue(lobbyID string, d delivery) {
	if len(d.recipients) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	ln, ok := b.lanes[lobbyID]
	if !ok {
		ln = &lane{ch: make(chan delivery, b.laneBuffer)}
		b.lanes[lobbyID] = ln
		b.wg.Add(1)
		go b.runLane(lobbyID, ln)
	}

	select {
	case ln.ch <- d:
	default:
		b.log.Warn().
			Str("lobby_id", lobbyID).
			Str("event", d.event.Kind.String()).
			Msg("lobby lane full, event dropped")
	}
}

func (b *Broadcaster) runLane(lobbyID string, ln *lane) {
	defer b.wg.Done()

	idle := time.NewTimer(b.laneIdle)
	defer idle.Stop()

	for {
		select {
		case d := <-ln.ch:
			b.deliver(lobbyID, d)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(b.laneIdle)
		case <-idle.C:
			b.mu.Lock()
			if len(ln.ch) == 0 {
				delete(b.lanes, lobbyID)
				b.mu.Unlock()
				return
			}
			b.mu.Unlock()
			idle.Reset(b.laneIdle)
		case <-b.ctx.Done():
			return
		}
	}
}

func (b *Broadcaster) deliver(lobbyID string, d delivery) {
	for _, e := range b.dir.ConnectionsForUsers(d.recipients) {
		if d.connID != "" && e.ConnID != d.connID {
			continue
		}
		if e.ConnID == d.excludeConnID || (d.excludeUserID != "" && e.Identity.UserID == d.excludeUserID) {
			continue
		}
		ev := d.event
		if d.grant {
			ev = b.withGrant(lobbyID, ev, e.Identity)
		}
		if !e.Sink.Deliver(ev) {
			b.log.Warn().
				Str("lobby_id", lobbyID).
				Str("conn_id", e.ConnID).
				Str("event", d.event.Kind.String()).
				Msg("connection backlogged, event dropped")
		}
	}
}

func (b *Broadcaster) withGrant(lobbyID string, ev *domain.Event, id domain.Identity) *domain.Event {
	if b.media == nil {
		return ev
	}
	ctx, cancel := context.WithTimeout(b.ctx, grantTimeout)
	defer cancel()
	grant, err := b.media.GrantLobby(ctx, lobbyID, id.UserID, id.Username)
	if err != nil {
		b.log.Warn().Err(err).Str("lobby_id", lobbyID).Msg("media grant failed")
		return ev
	}
	out := *ev
	out.Media = grant
	return &out
}

// Lanes returns the number of active lobby lanes.
func (b *Broadcaster) Lanes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lanes)
}

// Close stops all lanes. Pending deliveries are discarded.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()
}
