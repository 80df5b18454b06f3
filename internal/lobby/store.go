// Package lobby is the authoritative in-memory state of lobbies, their
// participants and their chat history.
//
// Every lobby has its own mutex. Operations on one lobby are serialized,
// operations on different lobbies run in parallel. The global indexes
// (lobby by id, lobby by code, lobby by user, lobby by message) live behind
// Store.mu. Lock order is always lobby.mu before Store.mu.
package lobby

import (
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamebridge-server/internal/domain"
)

const (
	maxCodeAttempts = 32

	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
	DefaultListLimit    = 50
)

// Member is the identity and presentation data of a user entering a lobby.
type Member struct {
	UserID   string
	Username string
	Platform domain.Platform
	ConnID   string // connection that asked to create or join; empty for restores
}

// CreateParams are the user supplied settings of a new lobby.
type CreateParams struct {
	Name            string
	MaxParticipants int // 0 means domain.DefaultMaxParticipants
	IsPrivate       bool
}

// JoinTarget selects a lobby by id or by join code. ID wins when both are set.
type JoinTarget struct {
	LobbyID string
	Code    string
}

// FlagResult is the outcome of a mute or deafen toggle.
type FlagResult struct {
	LobbyID string
	UserID  string
	Value   bool
}

type lobbyState struct {
	mu       sync.Mutex
	deleted  bool
	seq      uint64
	lobby    domain.Lobby
	messages []domain.ChatMessage
}

// Store holds all lobbies.
type Store struct {
	mu       sync.RWMutex
	lobbies  map[string]*lobbyState
	codes    map[string]string // join code -> lobby id
	members  map[string]string // user id -> lobby id
	messages map[string]string // message id -> lobby id

	obsMu     sync.RWMutex
	observers []Observer

	joinHistory int

	genCode func() (string, error)
	now     func() time.Time
	newID   func() string
	log     zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithObserver registers an observer at construction time.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observers = append(s.observers, o) }
}

// WithCodeGenerator replaces the join code source.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *Store) { s.genCode = gen }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithJoinHistory makes joins carry the last n messages in Change.History.
func WithJoinHistory(n int) Option {
	return func(s *Store) {
		if n > MaxHistoryLimit {
			n = MaxHistoryLimit
		}
		s.joinHistory = n
	}
}

// NewStore creates an empty store.
func NewStore(logger *zerolog.Logger, opts ...Option) *Store {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "lobby").Logger()
	}
	s := &Store{
		lobbies:  make(map[string]*lobbyState),
		codes:    make(map[string]string),
		members:  make(map[string]string),
		messages: make(map[string]string),
		genCode:  GenerateCode,
		now:      time.Now,
		newID:    uuid.NewString,
		log:      l,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe adds an observer. Changes committed before the call are not replayed.
func (s *Store) Subscribe(o Observer) {
	s.obsMu.Lock()
	s.observers = append(s.observers, o)
	s.obsMu.Unlock()
}

// notify must be called with ls.mu held.
func (s *Store) notify(ls *lobbyState, ch Change) {
	ls.seq++
	ch.Seq = ls.seq
	ch.Lobby = snapshot(&ls.lobby)

	s.obsMu.RLock()
	obs := s.observers
	s.obsMu.RUnlock()
	for _, o := range obs {
		o.Observe(ch)
	}
}

// CreateLobby creates a lobby with host as its first participant.
func (s *Store) CreateLobby(host Member, params CreateParams) (domain.Lobby, error) {
	if host.UserID == "" {
		return domain.Lobby{}, domain.Errorf(domain.CodeInvalidArgument, "host user id is required")
	}
	name, err := validateName(params.Name)
	if err != nil {
		return domain.Lobby{}, err
	}
	capacity := params.MaxParticipants
	if capacity == 0 {
		capacity = domain.DefaultMaxParticipants
	}
	if capacity < domain.MinParticipants || capacity > domain.MaxParticipants {
		return domain.Lobby{}, domain.Errorf(domain.CodeInvalidArgument,
			"max participants must be between %d and %d", domain.MinParticipants, domain.MaxParticipants)
	}

	now := s.now()
	ls := &lobbyState{
		lobby: domain.Lobby{
			ID:              s.newID(),
			Name:            name,
			HostID:          host.UserID,
			MaxParticipants: capacity,
			IsPrivate:       params.IsPrivate,
			CreatedAt:       now,
			Participants:    []domain.Participant{newParticipant(host, now)},
		},
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	s.mu.Lock()
	if other, busy := s.members[host.UserID]; busy {
		s.mu.Unlock()
		return domain.Lobby{}, domain.Errorf(domain.CodeConflict, "already in lobby %s", other)
	}
	code, err := s.allocCodeLocked()
	if err != nil {
		s.mu.Unlock()
		return domain.Lobby{}, err
	}
	ls.lobby.Code = code
	s.lobbies[ls.lobby.ID] = ls
	s.codes[code] = ls.lobby.ID
	s.members[host.UserID] = ls.lobby.ID
	s.mu.Unlock()

	p := ls.lobby.Participants[0]
	s.notify(ls, Change{Kind: ChangeCreated, ActorID: host.UserID, ActorConnID: host.ConnID, Participant: &p})

	s.log.Info().
		Str("lobby_id", ls.lobby.ID).
		Str("host_id", host.UserID).
		Str("code", code).
		Msg("lobby created")
	return snapshot(&ls.lobby), nil
}

// allocCodeLocked must be called with s.mu held for writing.
func (s *Store) allocCodeLocked() (string, error) {
	for range maxCodeAttempts {
		code, err := s.genCode()
		if err != nil {
			return "", domain.Errorf(domain.CodeInternal, "generate join code: %v", err)
		}
		if _, taken := s.codes[code]; !taken {
			return code, nil
		}
	}
	return "", domain.Errorf(domain.CodeResourceExhausted, "no free join code")
}

// JoinLobby adds member to the lobby selected by target.
func (s *Store) JoinLobby(member Member, target JoinTarget) (domain.Lobby, error) {
	if member.UserID == "" {
		return domain.Lobby{}, domain.Errorf(domain.CodeInvalidArgument, "user id is required")
	}
	if target.LobbyID == "" && target.Code == "" {
		return domain.Lobby{}, domain.Errorf(domain.CodeInvalidArgument, "lobby id or code is required")
	}

	s.mu.RLock()
	id := target.LobbyID
	if id == "" {
		id = s.codes[NormalizeCode(target.Code)]
	}
	ls := s.lobbies[id]
	s.mu.RUnlock()
	if ls == nil {
		return domain.Lobby{}, domain.Errorf(domain.CodeNotFound, "lobby not found")
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.deleted {
		return domain.Lobby{}, domain.Errorf(domain.CodeNotFound, "lobby not found")
	}
	if _, already := ls.lobby.Participant(member.UserID); already {
		return domain.Lobby{}, domain.Errorf(domain.CodeConflict, "already in this lobby")
	}
	if len(ls.lobby.Participants) >= ls.lobby.MaxParticipants {
		return domain.Lobby{}, domain.Errorf(domain.CodeResourceExhausted, "lobby is full")
	}

	s.mu.Lock()
	if other, busy := s.members[member.UserID]; busy {
		s.mu.Unlock()
		return domain.Lobby{}, domain.Errorf(domain.CodeConflict, "already in lobby %s", other)
	}
	s.members[member.UserID] = ls.lobby.ID
	s.mu.Unlock()

	p := newParticipant(member, s.now())
	ls.lobby.Participants = append(ls.lobby.Participants, p)
	ch := Change{Kind: ChangeJoined, ActorID: member.UserID, ActorConnID: member.ConnID, Participant: &p}
	if s.joinHistory > 0 {
		start := max(len(ls.messages)-s.joinHistory, 0)
		ch.History = append([]domain.ChatMessage{}, ls.messages[start:]...)
	}
	s.notify(ls, ch)

	s.log.Debug().
		Str("lobby_id", ls.lobby.ID).
		Str("user_id", member.UserID).
		Int("participants", len(ls.lobby.Participants)).
		Msg("participant joined")
	return snapshot(&ls.lobby), nil
}

// LeaveLobby removes userID from its lobby. The host role passes to the
// earliest joined remaining participant; the last leaver disbands the lobby
// together with its messages.
func (s *Store) LeaveLobby(userID string) (Departure, error) {
	ls := s.lobbyOfUser(userID)
	if ls == nil {
		return Departure{}, domain.Errorf(domain.CodeNotFound, "not in a lobby")
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.deleted {
		return Departure{}, domain.Errorf(domain.CodeNotFound, "not in a lobby")
	}
	dep, ok := s.removeLocked(ls, userID)
	if !ok {
		return Departure{}, domain.Errorf(domain.CodeNotFound, "not in a lobby")
	}
	s.notify(ls, Change{Kind: ChangeLeft, ActorID: userID, Departure: &dep})

	ev := s.log.Debug()
	if dep.Disbanded {
		ev = s.log.Info()
	}
	ev.Str("lobby_id", dep.LobbyID).
		Str("user_id", userID).
		Bool("was_host", dep.WasHost).
		Str("new_host_id", dep.NewHostID).
		Bool("disbanded", dep.Disbanded).
		Msg("participant left")
	return dep, nil
}

// KickParticipant removes target from lobbyID on behalf of the host.
func (s *Store) KickParticipant(requesterID, lobbyID, targetID string) (Departure, error) {
	ls := s.lobbyByID(lobbyID)
	if ls == nil {
		return Departure{}, domain.Errorf(domain.CodeNotFound, "lobby not found")
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.deleted {
		return Departure{}, domain.Errorf(domain.CodeNotFound, "lobby not found")
	}
	if ls.lobby.HostID != requesterID {
		return Departure{}, domain.Errorf(domain.CodePermissionDenied, "only the host can kick participants")
	}
	if targetID == requesterID {
		return Departure{}, domain.Errorf(domain.CodeInvalidArgument, "cannot kick yourself")
	}
	dep, ok := s.removeLocked(ls, targetID)
	if !ok {
		return Departure{}, domain.Errorf(domain.CodeNotFound, "user is not in this lobby")
	}
	s.notify(ls, Change{Kind: ChangeKicked, ActorID: requesterID, Departure: &dep})

	s.log.Info().
		Str("lobby_id", lobbyID).
		Str("host_id", requesterID).
		Str("user_id", targetID).
		Msg("participant kicked")
	return dep, nil
}

// removeLocked must be called with ls.mu held.
func (s *Store) removeLocked(ls *lobbyState, userID string) (Departure, bool) {
	idx := -1
	for i, p := range ls.lobby.Participants {
		if p.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Departure{}, false
	}

	gone := ls.lobby.Participants[idx]
	ls.lobby.Participants = append(ls.lobby.Participants[:idx:idx], ls.lobby.Participants[idx+1:]...)

	dep := Departure{
		LobbyID:  ls.lobby.ID,
		UserID:   userID,
		Username: gone.Username,
		WasHost:  ls.lobby.HostID == userID,
	}

	if len(ls.lobby.Participants) == 0 {
		dep.Disbanded = true
		ls.deleted = true
		s.mu.Lock()
		delete(s.lobbies, ls.lobby.ID)
		delete(s.codes, ls.lobby.Code)
		delete(s.members, userID)
		for _, m := range ls.messages {
			delete(s.messages, m.ID)
		}
		s.mu.Unlock()
		ls.messages = nil
		return dep, true
	}

	s.mu.Lock()
	delete(s.members, userID)
	s.mu.Unlock()

	if dep.WasHost {
		next := earliest(ls.lobby.Participants)
		ls.lobby.HostID = next.UserID
		dep.NewHostID = next.UserID
	}
	return dep, true
}

// earliest returns the participant with the smallest JoinedAt; ties go to
// the one that arrived first.
func earliest(ps []domain.Participant) domain.Participant {
	best := ps[0]
	for _, p := range ps[1:] {
		if p.JoinedAt.Before(best.JoinedAt) {
			best = p
		}
	}
	return best
}

// UpdateLobbySettings applies patch on behalf of the host.
func (s *Store) UpdateLobbySettings(requesterID, lobbyID string, patch domain.SettingsPatch) (domain.Lobby, error) {
	if patch.Empty() {
		return domain.Lobby{}, domain.Errorf(domain.CodeInvalidArgument, "nothing to update")
	}
	ls := s.lobbyByID(lobbyID)
	if ls == nil {
		return domain.Lobby{}, domain.Errorf(domain.CodeNotFound, "lobby not found")
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.deleted {
		return domain.Lobby{}, domain.Errorf(domain.CodeNotFound, "lobby not found")
	}
	if ls.lobby.HostID != requesterID {
		return domain.Lobby{}, domain.Errorf(domain.CodePermissionDenied, "only the host can update the lobby")
	}

	next := ls.lobby
	if patch.Name != nil {
		name, err := validateName(*patch.Name)
		if err != nil {
			return domain.Lobby{}, err
		}
		next.Name = name
	}
	if patch.MaxParticipants != nil {
		capacity := *patch.MaxParticipants
		if capacity < domain.MinParticipants || capacity > domain.MaxParticipants {
			return domain.Lobby{}, domain.Errorf(domain.CodeInvalidArgument,
				"max participants must be between %d and %d", domain.MinParticipants, domain.MaxParticipants)
		}
		if capacity < len(ls.lobby.Participants) {
			return domain.Lobby{}, domain.Errorf(domain.CodeInvalidArgument,
				"max participants cannot be below the current %d participants", len(ls.lobby.Participants))
		}
		next.MaxParticipants = capacity
	}
	if patch.IsPrivate != nil {
		next.IsPrivate = *patch.IsPrivate
	}
	ls.lobby = next

	s.notify(ls, Change{Kind: ChangeSettings, ActorID: requesterID})
	return snapshot(&ls.lobby), nil
}

// SetMute records userID's mute flag. It fails with NotFound when the user
// is not in a lobby and leaves state untouched.
func (s *Store) SetMute(userID string, muted bool) (FlagResult, error) {
	return s.setFlag(userID, muted, ChangeMute)
}

// SetDeafen records userID's deafen flag.
func (s *Store) SetDeafen(userID string, deafened bool) (FlagResult, error) {
	return s.setFlag(userID, deafened, ChangeDeafen)
}

func (s *Store) setFlag(userID string, value bool, kind ChangeKind) (FlagResult, error) {
	ls := s.lobbyOfUser(userID)
	if ls == nil {
		return FlagResult{}, domain.Errorf(domain.CodeNotFound, "not in a lobby")
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.deleted {
		return FlagResult{}, domain.Errorf(domain.CodeNotFound, "not in a lobby")
	}
	for i := range ls.lobby.Participants {
		p := &ls.lobby.Participants[i]
		if p.UserID != userID {
			continue
		}
		if kind == ChangeMute {
			p.IsMuted = value
		} else {
			p.IsDeafened = value
		}
		cp := *p
		s.notify(ls, Change{Kind: kind, ActorID: userID, Participant: &cp})
		return FlagResult{LobbyID: ls.lobby.ID, UserID: userID, Value: value}, nil
	}
	return FlagResult{}, domain.Errorf(domain.CodeNotFound, "not in a lobby")
}

// AppendMessage stores a chat message. An empty authorID posts a system
// message; otherwise the author must be a participant.
func (s *Store) AppendMessage(lobbyID, authorID, content string, kind domain.MessageKind) (domain.ChatMessage, error) {
	if !kind.Valid() {
		return domain.ChatMessage{}, domain.Errorf(domain.CodeInvalidArgument, "unknown message type %q", kind)
	}
	ls := s.lobbyByID(lobbyID)
	if ls == nil {
		return domain.ChatMessage{}, domain.Errorf(domain.CodeNotFound, "lobby not found")
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.deleted {
		return domain.ChatMessage{}, domain.Errorf(domain.CodeNotFound, "lobby not found")
	}

	authorName := ""
	if authorID != "" {
		p, ok := ls.lobby.Participant(authorID)
		if !ok {
			return domain.ChatMessage{}, domain.Errorf(domain.CodePermissionDenied, "not in this lobby")
		}
		authorName = p.Username
	}
	if strings.TrimSpace(content) == "" {
		return domain.ChatMessage{}, domain.Errorf(domain.CodeInvalidArgument, "message content is required")
	}
	if kind == domain.MessageText && utf8.RuneCountInString(content) > domain.MaxMessageLength {
		return domain.ChatMessage{}, domain.Errorf(domain.CodeInvalidArgument,
			"message exceeds %d characters", domain.MaxMessageLength)
	}

	msg := domain.ChatMessage{
		ID:         s.newID(),
		LobbyID:    ls.lobby.ID,
		AuthorID:   authorID,
		AuthorName: authorName,
		Content:    content,
		Kind:       kind,
		CreatedAt:  s.now(),
	}
	ls.messages = append(ls.messages, msg)

	s.mu.Lock()
	s.messages[msg.ID] = ls.lobby.ID
	s.mu.Unlock()

	cp := msg
	s.notify(ls, Change{Kind: ChangeMessage, ActorID: authorID, Message: &cp})
	return msg, nil
}

// DeleteMessage removes a message on behalf of its author or the lobby host.
func (s *Store) DeleteMessage(requesterID, messageID string) (domain.ChatMessage, error) {
	s.mu.RLock()
	ls := s.lobbies[s.messages[messageID]]
	s.mu.RUnlock()
	if ls == nil {
		return domain.ChatMessage{}, domain.Errorf(domain.CodeNotFound, "message not found")
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.deleted {
		return domain.ChatMessage{}, domain.Errorf(domain.CodeNotFound, "message not found")
	}
	idx := -1
	for i := range ls.messages {
		if ls.messages[i].ID == messageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ChatMessage{}, domain.Errorf(domain.CodeNotFound, "message not found")
	}
	msg := ls.messages[idx]
	if requesterID == "" || (requesterID != msg.AuthorID && requesterID != ls.lobby.HostID) {
		return domain.ChatMessage{}, domain.Errorf(domain.CodePermissionDenied, "only the author or the host can delete a message")
	}

	ls.messages = append(ls.messages[:idx:idx], ls.messages[idx+1:]...)
	s.mu.Lock()
	delete(s.messages, messageID)
	s.mu.Unlock()

	s.notify(ls, Change{Kind: ChangeMessageDeleted, ActorID: requesterID, MessageID: messageID, Message: &msg})
	return msg, nil
}

// Get returns a snapshot of the lobby.
func (s *Store) Get(lobbyID string) (domain.Lobby, error) {
	ls := s.lobbyByID(lobbyID)
	if ls == nil {
		return domain.Lobby{}, domain.Errorf(domain.CodeNotFound, "lobby not found")
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.deleted {
		return domain.Lobby{}, domain.Errorf(domain.CodeNotFound, "lobby not found")
	}
	return snapshot(&ls.lobby), nil
}

// GetByCode returns a snapshot of the lobby with the given join code.
func (s *Store) GetByCode(code string) (domain.Lobby, error) {
	s.mu.RLock()
	id := s.codes[NormalizeCode(code)]
	s.mu.RUnlock()
	if id == "" {
		return domain.Lobby{}, domain.Errorf(domain.CodeNotFound, "lobby not found")
	}
	return s.Get(id)
}

// LobbyOf returns the lobby userID currently belongs to.
func (s *Store) LobbyOf(userID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.members[userID]
	return id, ok
}

// Roster returns the participant ids of a lobby in arrival order.
func (s *Store) Roster(lobbyID string) ([]string, error) {
	l, err := s.Get(lobbyID)
	if err != nil {
		return nil, err
	}
	return l.UserIDs(), nil
}

// ListPublic returns up to limit (at most DefaultListLimit) non-private
// lobbies, newest first.
func (s *Store) ListPublic(limit int) []domain.Lobby {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	states := make([]*lobbyState, 0, len(s.lobbies))
	for _, ls := range s.lobbies {
		states = append(states, ls)
	}
	s.mu.RUnlock()

	out := make([]domain.Lobby, 0, len(states))
	for _, ls := range states {
		ls.mu.Lock()
		if !ls.deleted && !ls.lobby.IsPrivate {
			out = append(out, snapshot(&ls.lobby))
		}
		ls.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// History returns up to limit messages older than beforeID (or the newest
// ones when beforeID is empty), oldest first. Only participants may read it.
func (s *Store) History(requesterID, lobbyID string, limit int, beforeID string) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	ls := s.lobbyByID(lobbyID)
	if ls == nil {
		return nil, domain.Errorf(domain.CodeNotFound, "lobby not found")
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.deleted {
		return nil, domain.Errorf(domain.CodeNotFound, "lobby not found")
	}
	if _, ok := ls.lobby.Participant(requesterID); !ok {
		return nil, domain.Errorf(domain.CodePermissionDenied, "not in this lobby")
	}

	end := len(ls.messages)
	if beforeID != "" {
		end = -1
		for i := range ls.messages {
			if ls.messages[i].ID == beforeID {
				end = i
				break
			}
		}
		if end < 0 {
			return nil, domain.Errorf(domain.CodeNotFound, "message not found")
		}
	}
	start := max(end-limit, 0)
	out := make([]domain.ChatMessage, end-start)
	copy(out, ls.messages[start:end])
	return out, nil
}

// Count returns the number of live lobbies.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lobbies)
}

func (s *Store) lobbyByID(id string) *lobbyState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lobbies[id]
}

func (s *Store) lobbyOfUser(userID string) *lobbyState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lobbies[s.members[userID]]
}

func newParticipant(m Member, at time.Time) domain.Participant {
	platform := m.Platform
	if !platform.Valid() {
		platform = domain.DefaultPlatform
	}
	return domain.Participant{
		UserID:   m.UserID,
		Username: m.Username,
		Platform: platform,
		JoinedAt: at,
	}
}

func validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", domain.Errorf(domain.CodeInvalidArgument, "lobby name is required")
	}
	if utf8.RuneCountInString(name) > domain.MaxLobbyNameLength {
		return "", domain.Errorf(domain.CodeInvalidArgument,
			"lobby name exceeds %d characters", domain.MaxLobbyNameLength)
	}
	return name, nil
}

// snapshot copies l so callers never share the roster slice with the store.
func snapshot(l *domain.Lobby) domain.Lobby {
	out := *l
	out.Participants = make([]domain.Participant, len(l.Participants))
	copy(out.Participants, l.Participants)
	for i := range out.Participants {
		out.Participants[i].IsHost = out.Participants[i].UserID == l.HostID
	}
	return out
}
