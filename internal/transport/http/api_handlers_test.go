package http

import (
	"net/http"
	"testing"
)

func TestRegisterLoginAndMe(t *testing.T) {
	s := startTestServer(t, nil)

	resp := s.do(t, "POST", "/api/register", "", RegisterRequest{Username: "alice", Password: "password123", Platform: "playstation"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	var reg AuthResponse
	decodeBody(t, resp, &reg)
	if reg.Token == "" {
		t.Fatal("empty token")
	}

	resp = s.do(t, "POST", "/api/register", "", RegisterRequest{Username: "alice", Password: "password123"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register status = %d", resp.StatusCode)
	}

	resp = s.do(t, "POST", "/api/login", "", LoginRequest{Username: "alice", Password: "password123"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	var login AuthResponse
	decodeBody(t, resp, &login)

	resp = s.do(t, "GET", "/api/me", login.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d", resp.StatusCode)
	}
	var me ProfileResponse
	decodeBody(t, resp, &me)
	if me.Username != "alice" || me.Platform != "playstation" || me.IsGuest || me.UserID == "" {
		t.Fatalf("me = %+v", me)
	}
}

func TestRegisterValidation(t *testing.T) {
	s := startTestServer(t, nil)

	cases := []struct {
		name string
		body any
	}{
		{"short username", RegisterRequest{Username: "ab", Password: "password123"}},
		{"weak password", RegisterRequest{Username: "alice", Password: "short"}},
		{"bad platform", RegisterRequest{Username: "alice", Password: "password123", Platform: "atari"}},
		{"missing fields", map[string]string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := s.do(t, "POST", "/api/register", "", tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			var body ErrorResponse
			decodeBody(t, resp, &body)
			if body.Code != "invalid_argument" {
				t.Fatalf("body = %+v", body)
			}
		})
	}
}

func TestLoginWrongPassword(t *testing.T) {
	s := startTestServer(t, nil)
	s.register(t, "alice")

	resp := s.do(t, "POST", "/api/login", "", LoginRequest{Username: "alice", Password: "wrongpass1"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestGuestLogin(t *testing.T) {
	s := startTestServer(t, nil)

	resp := s.do(t, "POST", "/api/guest", "", GuestRequest{Platform: "mobile"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var auth AuthResponse
	decodeBody(t, resp, &auth)

	var cookie bool
	for _, c := range resp.Cookies() {
		if c.Name == "guest_session" && c.Value != "" && c.HttpOnly {
			cookie = true
		}
	}
	if !cookie {
		t.Fatal("guest_session cookie not set")
	}

	resp = s.do(t, "GET", "/api/me", auth.Token, nil)
	var me ProfileResponse
	decodeBody(t, resp, &me)
	if !me.IsGuest || me.Platform != "mobile" {
		t.Fatalf("me = %+v", me)
	}

	resp = s.do(t, "POST", "/api/guest", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("guest without body status = %d", resp.StatusCode)
	}
}

func TestAuthMiddlewareRejects(t *testing.T) {
	s := startTestServer(t, nil)

	for _, token := range []string{"", "garbage"} {
		resp := s.do(t, "GET", "/api/me", token, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("token %q: status = %d", token, resp.StatusCode)
		}
	}
}
