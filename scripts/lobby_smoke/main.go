package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/gamebridge-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("lobby_smoke: %v", err)
		os.Exit(1)
	}
}

// frame is an outbound envelope with the payload left raw.
type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func run() error {
	base := flag.String("addr", "http://localhost:8080", "server base URL")
	platform := flag.String("platform", "pc", "guest platform")
	name := flag.String("lobby", "smoke test", "lobby name")
	text := flag.String("text", "hello from smoke test", "chat message to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	token, err := guestToken(ctx, *base, *platform)
	if err != nil {
		return err
	}

	wsURL := strings.Replace(*base, "http", "ws", 1) + "/ws?token=" + url.QueryEscape(token)
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(msgType string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", msgType, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", msgType, err)
		}
		return nil
	}

	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		fmt.Printf("received type=%s event=%s\n", f.Type, f.Event)
		if f.Error != nil {
			return fmt.Errorf("%s: %s (%s)", f.Event, f.Error.Message, f.Error.Code)
		}

		switch f.Event {
		case "session.ready":
			if err := send(proto.InboundTypeLobbyCreate, proto.CreateLobbyData{Name: *name}); err != nil {
				return err
			}
		case "lobby.created":
			var state proto.LobbyStateData
			if err := json.Unmarshal(f.Data, &state); err != nil {
				return fmt.Errorf("unmarshal lobby: %w", err)
			}
			fmt.Printf("lobby id=%s code=%s\n", state.Lobby.ID, state.Lobby.LobbyCode)
			if err := send(proto.InboundTypeChatMessage, proto.ChatMessageData{Content: *text}); err != nil {
				return err
			}
		case "chat.message_received":
			var msg proto.ChatMessage
			if err := json.Unmarshal(f.Data, &msg); err != nil {
				return fmt.Errorf("unmarshal message: %w", err)
			}
			if msg.UserID == nil {
				continue
			}
			fmt.Printf("chat: user=%s content=%q at=%s\n", *msg.Username, msg.Content, msg.CreatedAt)
			return send(proto.InboundTypeLobbyLeave, nil)
		}
	}
}

func guestToken(ctx context.Context, base, platform string) (string, error) {
	body, _ := json.Marshal(map[string]string{"platform": platform})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/guest", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("guest login: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("guest login: status %d", resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode guest token: %w", err)
	}
	return out.Token, nil
}
