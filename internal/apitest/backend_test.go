package apitest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"
)

func newTestBackend(t *testing.T) (*Backend, http.Handler) {
	t.Helper()
	b, err := NewBackend(Config{})
	if err != nil {
		t.Fatalf("NewBackend() error: %v", err)
	}
	return b, NewHandler(b)
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func registerAndLogin(t *testing.T, h http.Handler, username string) string {
	t.Helper()
	creds := map[string]string{"username": username, "password": "pw-" + username}
	if rr := doJSON(t, h, http.MethodPost, "/register", "", creds); rr.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", username, rr.Code, rr.Body.String())
	}
	rr := doJSON(t, h, http.MethodPost, "/login", "", creds)
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", username, rr.Code, rr.Body.String())
	}
	var res struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil || res.Token == "" {
		t.Fatalf("login %s: no token in %s", username, rr.Body.String())
	}
	return res.Token
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	_, h := newTestBackend(t)
	creds := map[string]string{"username": "bob", "password": "pw"}
	if rr := doJSON(t, h, http.MethodPost, "/register", "", creds); rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	rr := doJSON(t, h, http.MethodPost, "/register", "", creds)
	if rr.Code != http.StatusConflict || !strings.Contains(rr.Body.String(), "Username already exists") {
		t.Fatalf("expected 409 conflict, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	_, h := newTestBackend(t)
	registerAndLogin(t, h, "bob")
	rr := doJSON(t, h, http.MethodPost, "/login", "", map[string]string{"username": "bob", "password": "nope"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestProtectedRoutesRequireValidToken(t *testing.T) {
	b, h := newTestBackend(t)

	rr := doJSON(t, h, http.MethodGet, "/profile", "", nil)
	if rr.Code != http.StatusUnauthorized || strings.TrimSpace(rr.Body.String()) != "Authentication required" {
		t.Fatalf("expected plain-text 401, got %d %q", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, h, http.MethodGet, "/profile", "garbage", nil)
	if rr.Code != http.StatusUnauthorized || strings.TrimSpace(rr.Body.String()) != "Invalid token" {
		t.Fatalf("expected invalid token 401, got %d %q", rr.Code, rr.Body.String())
	}

	token := registerAndLogin(t, h, "bob")
	b.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	rr = doJSON(t, h, http.MethodGet, "/profile", token, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected expired token to be rejected, got %d", rr.Code)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	b, h := newTestBackend(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Header().Get("X-Request-Id") != "req-42" {
		t.Fatalf("expected request id echoed, got %q", rr.Header().Get("X-Request-Id"))
	}
	if b.Requests() != 1 {
		t.Fatalf("expected 1 counted request, got %d", b.Requests())
	}
}

func TestPrivateAccountFollowRequestFlow(t *testing.T) {
	_, h := newTestBackend(t)
	alice := registerAndLogin(t, h, "alice")
	bob := registerAndLogin(t, h, "bob")

	if rr := doJSON(t, h, http.MethodPost, "/privacy", alice, map[string]bool{"isPrivate": true}); rr.Code != http.StatusOK {
		t.Fatalf("privacy: %d", rr.Code)
	}

	rr := doJSON(t, h, http.MethodPost, "/follow/alice", bob, nil)
	if !strings.Contains(rr.Body.String(), `"followState":"requested"`) {
		t.Fatalf("expected requested state, got %s", rr.Body.String())
	}

	rr = doJSON(t, h, http.MethodPost, "/api/follow/accept/bob", alice, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("accept: %d %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, h, http.MethodGet, "/api/follow/state/alice", bob, nil)
	var st struct {
		FollowState    string `json:"followState"`
		FollowersCount int    `json:"followersCount"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.FollowState != "following" || st.FollowersCount != 1 {
		t.Fatalf("unexpected state %+v", st)
	}

	if rr := doJSON(t, h, http.MethodPost, "/api/follow/reject/bob", alice, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected no pending request left, got %d", rr.Code)
	}
}

func TestSearchGames(t *testing.T) {
	_, h := newTestBackend(t)
	rr := doJSON(t, h, http.MethodGet, "/games/search?q=LEG", "", nil)
	var games []string
	if err := json.Unmarshal(rr.Body.Bytes(), &games); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Plain case-insensitive substring: "BATTLEGROUNDS" matches too.
	want := []string{"League of Legends", "Apex Legends", "PUBG: BATTLEGROUNDS"}
	if !slices.Equal(games, want) {
		t.Fatalf("unexpected matches: %v, want %v", games, want)
	}
	if rr := doJSON(t, h, http.MethodGet, "/games/search", "", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty query, got %d", rr.Code)
	}
}
