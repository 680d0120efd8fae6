package integration

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"gamerlink/client/internal/api"
	"gamerlink/client/internal/apitest"
	"gamerlink/client/internal/session"
)

type backendServer struct {
	*httptest.Server
	backend *apitest.Backend
}

func startBackend(t *testing.T) backendServer {
	t.Helper()
	b, err := apitest.NewBackend(apitest.Config{})
	if err != nil {
		t.Fatalf("NewBackend() error: %v", err)
	}
	srv := httptest.NewServer(apitest.NewHandler(b))
	t.Cleanup(srv.Close)
	return backendServer{Server: srv, backend: b}
}

type player struct {
	sessions *session.Manager
	client   *api.Client
}

func newPlayer(t *testing.T, baseURL string, store session.Store) player {
	t.Helper()
	m := session.NewManager(store, session.ManagerConfig{})
	c, err := api.New(baseURL, m)
	if err != nil {
		t.Fatalf("api.New() error: %v", err)
	}
	return player{sessions: m, client: c}
}

func (p player) signUp(t *testing.T, username string) {
	t.Helper()
	ctx := context.Background()
	if _, err := p.client.Register(ctx, username, "pw-"+username); err != nil {
		t.Fatalf("Register(%s) error: %v", username, err)
	}
	if _, err := p.client.Login(ctx, username, "pw-"+username); err != nil {
		t.Fatalf("Login(%s) error: %v", username, err)
	}
}

func TestSocialFlowAgainstBackend(t *testing.T) {
	srv := startBackend(t)
	ctx := context.Background()

	alice := newPlayer(t, srv.URL, session.NewMemoryStore())
	bob := newPlayer(t, srv.URL, session.NewMemoryStore())
	alice.signUp(t, "alice")
	bob.signUp(t, "bob")

	if _, err := alice.client.UpdatePrivacySettings(ctx, true); err != nil {
		t.Fatalf("UpdatePrivacySettings() error: %v", err)
	}
	res, err := bob.client.FollowUser(ctx, "alice")
	if err != nil || res.FollowState != api.FollowStateRequested {
		t.Fatalf("FollowUser(private) = %+v, %v", res, err)
	}
	if _, err := alice.client.AcceptFollowRequest(ctx, "bob"); err != nil {
		t.Fatalf("AcceptFollowRequest() error: %v", err)
	}
	st, err := bob.client.GetFollowState(ctx, "alice")
	if err != nil || st.FollowState != api.FollowStateFollowing || st.FollowersCount != 1 {
		t.Fatalf("GetFollowState() = %+v, %v", st, err)
	}

	if _, err := alice.client.ConnectTwitch(ctx, "alicetv"); err != nil {
		t.Fatalf("ConnectTwitch() error: %v", err)
	}
	if _, err := alice.client.ConnectGame(ctx, "Valorant", api.GameDetails{Username: "ali", ID: "ali#EU"}); err != nil {
		t.Fatalf("ConnectGame() error: %v", err)
	}

	p, err := bob.client.GetUserProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserProfile() error: %v", err)
	}
	if !p.IsPrivate || !p.IsFollowing || p.TwitchUsername != "alicetv" {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if len(p.ConnectedGames) != 1 || p.ConnectedGames[0].GameID != "ali#EU" {
		t.Fatalf("unexpected games: %+v", p.ConnectedGames)
	}

	users, err := bob.client.GetAllUsers(ctx)
	if err != nil || len(users) != 2 {
		t.Fatalf("GetAllUsers() = %d users, %v", len(users), err)
	}
	if users[0].Username != "alice" || users[0].ConnectedGames[0].Name != "Valorant" {
		t.Fatalf("unexpected feed entry: %+v", users[0])
	}

	games, err := bob.client.SearchGames(ctx, "legends")
	if err != nil || len(games) != 2 {
		t.Fatalf("SearchGames() = %v, %v", games, err)
	}

	if _, err := alice.client.DisconnectTwitch(ctx); err != nil {
		t.Fatalf("DisconnectTwitch() error: %v", err)
	}
	if _, err := alice.client.DisconnectGame(ctx, "Valorant"); err != nil {
		t.Fatalf("DisconnectGame() error: %v", err)
	}
	own, err := alice.client.GetProfile(ctx)
	if err != nil {
		t.Fatalf("GetProfile() error: %v", err)
	}
	if own.TwitchUsername != "" || len(own.ConnectedGames) != 0 || own.FollowersCount != 1 {
		t.Fatalf("unexpected own profile: %+v", own)
	}

	if res, err := bob.client.UnfollowUser(ctx, "alice"); err != nil || res.FollowState != api.FollowStateNotFollowing {
		t.Fatalf("UnfollowUser() = %+v, %v", res, err)
	}
}

func TestLoggedOutClientMakesNoRequests(t *testing.T) {
	srv := startBackend(t)
	p := newPlayer(t, srv.URL, session.NewMemoryStore())
	p.signUp(t, "bob")
	if err := p.client.Logout(); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}

	before := srv.backend.Requests()
	if _, err := p.client.GetProfile(context.Background()); !errors.Is(err, api.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := p.client.FollowUser(context.Background(), "alice"); !errors.Is(err, api.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if after := srv.backend.Requests(); after != before {
		t.Fatalf("expected no requests after logout, got %d", after-before)
	}
}

func TestRejectedTokenSurfacesAsUnauthenticated(t *testing.T) {
	srv := startBackend(t)
	p := newPlayer(t, srv.URL, session.NewMemoryStore())
	if err := p.sessions.Login("forged", "mallory"); err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	_, err := p.client.GetProfile(context.Background())
	if !errors.Is(err, api.ErrUnauthenticated) || api.StatusOf(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401 unauthenticated, got %v", err)
	}
	// The backend answers in plain text, so the message is synthesized.
	if err.Error() != "request failed with status 401" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !p.sessions.IsAuthenticated() {
		t.Fatalf("a rejected token must not clear the session")
	}
}

func TestFileBackedSessionIsSharedAcrossClients(t *testing.T) {
	srv := startBackend(t)
	path := filepath.Join(t.TempDir(), "session.json")

	first, err := session.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	newPlayer(t, srv.URL, first).signUp(t, "bob")

	second, err := session.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	p := newPlayer(t, srv.URL, second)
	prof, err := p.client.GetProfile(context.Background())
	if err != nil {
		t.Fatalf("GetProfile() with restored session error: %v", err)
	}
	if prof.Username != "bob" {
		t.Fatalf("unexpected profile %+v", prof)
	}
}
