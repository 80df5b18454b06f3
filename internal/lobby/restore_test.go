package lobby

import (
	"testing"
	"time"

	"github.com/vovakirdan/gamebridge-server/internal/domain"
)

func TestRestore(t *testing.T) {
	s, rec := newTestStore(t)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	snaps := []Snapshot{
		{
			Lobby: domain.Lobby{
				ID: "l1", Name: "one", HostID: "gone", MaxParticipants: 4, Code: "abc123",
				Participants: []domain.Participant{
					{UserID: "u2", Username: "two", JoinedAt: t0.Add(2 * time.Second)},
					{UserID: "u1", Username: "one", JoinedAt: t0.Add(time.Second)},
				},
			},
			Messages: []domain.ChatMessage{
				{ID: "m2", LobbyID: "l1", AuthorID: "u2", Content: "later", Kind: domain.MessageText, CreatedAt: t0.Add(4 * time.Second)},
				{ID: "m1", LobbyID: "l1", AuthorID: "u1", Content: "first", Kind: domain.MessageText, CreatedAt: t0.Add(3 * time.Second)},
			},
		},
		{Lobby: domain.Lobby{ID: "empty", Name: "e", Code: "EEEEEE"}},
		{
			Lobby: domain.Lobby{
				ID: "dup-code", Name: "d", HostID: "u9", MaxParticipants: 4, Code: "ABC123",
				Participants: []domain.Participant{{UserID: "u9", JoinedAt: t0}},
			},
		},
		{
			Lobby: domain.Lobby{
				ID: "clash", Name: "c", HostID: "u1", MaxParticipants: 4, Code: "CCCCCC",
				Participants: []domain.Participant{{UserID: "u1", JoinedAt: t0}},
			},
		},
	}

	loaded := s.Restore(snaps)
	if len(loaded) != 1 || loaded[0] != "l1" {
		t.Fatalf("loaded = %v", loaded)
	}
	if len(rec.kinds()) != 0 {
		t.Fatalf("restore must not notify observers")
	}

	l, err := s.GetByCode("ABC123")
	if err != nil {
		t.Fatalf("get by code: %v", err)
	}
	if l.HostID != "u1" || l.Participants[0].UserID != "u1" {
		t.Fatalf("host not repaired: %+v", l)
	}
	if id, _ := s.LobbyOf("u2"); id != "l1" {
		t.Fatalf("u2 not indexed")
	}

	history, err := s.History("u2", "l1", 0, "")
	if err != nil || len(history) != 2 || history[0].ID != "m1" {
		t.Fatalf("history = %+v %v", history, err)
	}
	if _, err := s.DeleteMessage("u2", "m2"); err != nil {
		t.Fatalf("restored message not indexed: %v", err)
	}

	// Restored lobbies behave like live ones.
	dep, err := s.LeaveLobby("u1")
	if err != nil || dep.NewHostID != "u2" {
		t.Fatalf("leave after restore: %+v %v", dep, err)
	}
}
