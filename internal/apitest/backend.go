// Package apitest is an in-memory gamerlink backend. It serves the same
// routes and payload shapes as the production REST API and backs the
// end-to-end tests.
package apitest

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

// PopularGames is the catalog searched by /games/search.
var PopularGames = []string{
	"Valorant",
	"BGMI",
	"Counter-Strike 2",
	"League of Legends",
	"Dota 2",
	"Apex Legends",
	"Fortnite",
	"Call of Duty: Warzone",
	"PUBG: BATTLEGROUNDS",
	"Minecraft",
	"GTA V",
	"Overwatch 2",
	"Rainbow Six Siege",
	"Rocket League",
}

var platformFields = map[string]string{
	"twitch":    "twitchUsername",
	"discord":   "discordUsername",
	"instagram": "instagramHandle",
	"youtube":   "youtubeChannel",
}

type game struct {
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	GameID   string `json:"gameId,omitempty"`
}

type user struct {
	username     string
	passwordHash []byte
	isPrivate    bool
	handles      map[string]string
	games        []game
}

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type Config struct {
	Logger   *slog.Logger
	TokenTTL time.Duration
	// BcryptCost defaults to bcrypt.MinCost to keep tests fast.
	BcryptCost int
}

type Backend struct {
	log      *slog.Logger
	secret   []byte
	tokenTTL time.Duration
	cost     int
	now      func() time.Time
	requests atomic.Int64

	mu        sync.Mutex
	users     map[string]*user
	following map[string]map[string]bool
	pending   map[string]map[string]bool
}

func NewBackend(cfg Config) (*Backend, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.MinCost
	}
	return &Backend{
		log:       cfg.Logger,
		secret:    secret,
		tokenTTL:  cfg.TokenTTL,
		cost:      cfg.BcryptCost,
		now:       time.Now,
		users:     make(map[string]*user),
		following: make(map[string]map[string]bool),
		pending:   make(map[string]map[string]bool),
	}, nil
}

// Requests reports how many HTTP requests the backend has received.
func (b *Backend) Requests() int64 {
	return b.requests.Load()
}

func NewHandler(b *Backend) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)

	r.HandleFunc("/register", b.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", b.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/users", b.handleListUsers).Methods(http.MethodGet)
	r.HandleFunc("/games/search", b.handleSearchGames).Methods(http.MethodGet)

	r.HandleFunc("/profile", b.requireAuth(b.handleOwnProfile)).Methods(http.MethodGet)
	r.HandleFunc("/profile/{username}", b.requireAuth(b.handleUserProfile)).Methods(http.MethodGet)
	r.HandleFunc("/privacy", b.requireAuth(b.handlePrivacy)).Methods(http.MethodPost)

	r.HandleFunc("/connect/game", b.requireAuth(b.handleConnectGame)).Methods(http.MethodPost)
	r.HandleFunc("/disconnect/game", b.requireAuth(b.handleDisconnectGame)).Methods(http.MethodPost)
	r.HandleFunc("/connect/{platform}", b.requireAuth(b.handleConnectPlatform)).Methods(http.MethodPost)
	r.HandleFunc("/disconnect/{platform}", b.requireAuth(b.handleDisconnectPlatform)).Methods(http.MethodPost)

	r.HandleFunc("/follow/{username}", b.requireAuth(b.handleFollow)).Methods(http.MethodPost)
	r.HandleFunc("/unfollow/{username}", b.requireAuth(b.handleUnfollow)).Methods(http.MethodPost)
	r.HandleFunc("/api/follow/state/{username}", b.requireAuth(b.handleFollowState)).Methods(http.MethodGet)
	r.HandleFunc("/api/follow/accept/{username}", b.requireAuth(b.handleAcceptRequest)).Methods(http.MethodPost)
	r.HandleFunc("/api/follow/reject/{username}", b.requireAuth(b.handleRejectRequest)).Methods(http.MethodPost)

	return loggingMiddleware(b, r)
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), b.cost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error creating user")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[req.Username]; ok {
		writeError(w, http.StatusConflict, "Username already exists")
		return
	}
	b.users[req.Username] = &user{username: req.Username, passwordHash: hash, handles: make(map[string]string)}
	b.log.Info("user registered", "username", req.Username)

	writeJSON(w, http.StatusCreated, map[string]string{
		"message":  "User created successfully",
		"username": req.Username,
	})
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	u, ok := b.users[strings.TrimSpace(req.Username)]
	b.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := b.issueToken(u.username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error generating token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"token":    token,
		"username": u.username,
		"message":  "Login successful",
	})
}

func (b *Backend) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.users))
	for name := range b.users {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]map[string]any, 0, len(names))
	for _, name := range names {
		u := b.users[name]
		games := make([]string, 0, len(u.games))
		for _, g := range u.games {
			games = append(games, g.Name)
		}
		entry := map[string]any{
			"username":       u.username,
			"isPrivate":      u.isPrivate,
			"connectedGames": games,
		}
		for platform, handle := range u.handles {
			entry[platformFields[platform]] = handle
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleSearchGames(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	if q == "" {
		writeError(w, http.StatusBadRequest, "Search query is required")
		return
	}
	matches := make([]string, 0)
	for _, name := range PopularGames {
		if strings.Contains(strings.ToLower(name), q) {
			matches = append(matches, name)
		}
	}
	writeJSON(w, http.StatusOK, matches)
}

func (b *Backend) handleOwnProfile(w http.ResponseWriter, _ *http.Request, username string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[username]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, b.profileLocked(u, username))
}

func (b *Backend) handleUserProfile(w http.ResponseWriter, r *http.Request, viewer string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[mux.Vars(r)["username"]]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, b.profileLocked(u, viewer))
}

func (b *Backend) profileLocked(u *user, viewer string) map[string]any {
	state := b.followStateLocked(viewer, u.username)
	games := u.games
	if games == nil {
		games = []game{}
	}
	out := map[string]any{
		"username":       u.username,
		"isPrivate":      u.isPrivate,
		"followersCount": b.followersLocked(u.username),
		"followingCount": len(b.following[u.username]),
		"isFollowing":    state == "following",
		"followState":    state,
		"connectedGames": games,
	}
	for platform, handle := range u.handles {
		out[platformFields[platform]] = handle
	}
	return out
}

func (b *Backend) handlePrivacy(w http.ResponseWriter, r *http.Request, username string) {
	var req struct {
		IsPrivate bool `json:"isPrivate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[username]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	u.isPrivate = req.IsPrivate
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Privacy settings updated",
		"isPrivate": req.IsPrivate,
	})
}

func (b *Backend) handleConnectPlatform(w http.ResponseWriter, r *http.Request, username string) {
	platform := mux.Vars(r)["platform"]
	field, ok := platformFields[platform]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown platform")
		return
	}
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	handle := strings.TrimSpace(req[field])
	if handle == "" {
		writeError(w, http.StatusBadRequest, field+" is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[username]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	u.handles[platform] = handle
	writeJSON(w, http.StatusOK, map[string]string{"message": platform + " connected successfully"})
}

func (b *Backend) handleDisconnectPlatform(w http.ResponseWriter, r *http.Request, username string) {
	platform := mux.Vars(r)["platform"]
	if _, ok := platformFields[platform]; !ok {
		writeError(w, http.StatusNotFound, "Unknown platform")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[username]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	delete(u.handles, platform)
	writeJSON(w, http.StatusOK, map[string]string{"message": platform + " disconnected successfully"})
}

func (b *Backend) handleConnectGame(w http.ResponseWriter, r *http.Request, username string) {
	var req struct {
		GameName     string `json:"gameName"`
		GameUsername string `json:"gameUsername"`
		GameID       string `json:"gameId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.GameName) == "" {
		writeError(w, http.StatusBadRequest, "Game name is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[username]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	g := game{Name: req.GameName, Username: req.GameUsername, GameID: req.GameID}
	for i := range u.games {
		if u.games[i].Name == g.Name {
			u.games[i] = g
			writeJSON(w, http.StatusOK, map[string]string{"message": "Game connected successfully"})
			return
		}
	}
	u.games = append(u.games, g)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Game connected successfully"})
}

func (b *Backend) handleDisconnectGame(w http.ResponseWriter, r *http.Request, username string) {
	var req struct {
		GameName string `json:"gameName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[username]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	for i := range u.games {
		if u.games[i].Name == req.GameName {
			u.games = append(u.games[:i], u.games[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Game disconnected successfully"})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Game not connected")
}

func (b *Backend) handleFollow(w http.ResponseWriter, r *http.Request, username string) {
	target := mux.Vars(r)["username"]
	if target == username {
		writeError(w, http.StatusBadRequest, "Cannot follow yourself")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.users[target]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if b.following[username][target] {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Already following", "followState": "following"})
		return
	}
	if t.isPrivate {
		addEdge(b.pending, target, username)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Follow request sent", "followState": "requested"})
		return
	}
	addEdge(b.following, username, target)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully followed user", "followState": "following"})
}

func (b *Backend) handleUnfollow(w http.ResponseWriter, r *http.Request, username string) {
	target := mux.Vars(r)["username"]

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[target]; !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	delete(b.following[username], target)
	delete(b.pending[target], username)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully unfollowed user", "followState": "not_following"})
}

func (b *Backend) handleFollowState(w http.ResponseWriter, r *http.Request, username string) {
	target := mux.Vars(r)["username"]

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[target]; !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	state := b.followStateLocked(username, target)
	writeJSON(w, http.StatusOK, map[string]any{
		"isFollowing":    state == "following",
		"followState":    state,
		"followersCount": b.followersLocked(target),
	})
}

// handleAcceptRequest lets the logged-in account approve a pending request
// from the named requester.
func (b *Backend) handleAcceptRequest(w http.ResponseWriter, r *http.Request, username string) {
	requester := mux.Vars(r)["username"]

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.pending[username][requester] {
		writeError(w, http.StatusNotFound, "Follow request not found")
		return
	}
	delete(b.pending[username], requester)
	addEdge(b.following, requester, username)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Follow request accepted"})
}

func (b *Backend) handleRejectRequest(w http.ResponseWriter, r *http.Request, username string) {
	requester := mux.Vars(r)["username"]

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.pending[username][requester] {
		writeError(w, http.StatusNotFound, "Follow request not found")
		return
	}
	delete(b.pending[username], requester)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Follow request rejected"})
}

func (b *Backend) followStateLocked(viewer, target string) string {
	switch {
	case viewer == target:
		return "self"
	case b.following[viewer][target]:
		return "following"
	case b.pending[target][viewer]:
		return "requested"
	default:
		return "not_following"
	}
}

func (b *Backend) followersLocked(target string) int {
	n := 0
	for _, followees := range b.following {
		if followees[target] {
			n++
		}
	}
	return n
}

func addEdge(edges map[string]map[string]bool, from, to string) {
	if edges[from] == nil {
		edges[from] = make(map[string]bool)
	}
	edges[from][to] = true
}

func (b *Backend) issueToken(username string) (string, error) {
	now := b.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(b.tokenTTL)),
		},
	})
	return token.SignedString(b.secret)
}

func (b *Backend) parseToken(raw string) (string, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return b.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(b.now))
	if err != nil {
		return "", err
	}
	if c.Username == "" {
		return "", errors.New("token has no username")
	}
	return c.Username, nil
}

type authedHandler func(w http.ResponseWriter, r *http.Request, username string)

// requireAuth answers with plain-text 401 bodies, as the production backend
// does.
func (b *Backend) requireAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := extractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		username, err := b.parseToken(raw)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		next(w, r, username)
	}
}

func extractBearerToken(authHeader string) (string, error) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func loggingMiddleware(b *Backend, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.requests.Add(1)
		reqID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		b.log.Debug("backend request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"request_id", reqID,
		)
	})
}
