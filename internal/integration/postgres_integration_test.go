package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"gamerlink/client/internal/api"
	"gamerlink/client/internal/session"
	_ "github.com/lib/pq"
)

func openTestPostgres(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping Postgres integration tests")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("sql.Open() error: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := db.Ping(); err != nil {
		t.Fatalf("db.Ping() error: %v", err)
	}
	return db
}

func TestPostgresSessionStoreRoundTrip(t *testing.T) {
	db := openTestPostgres(t)

	key := fmt.Sprintf("itest_session_%d", time.Now().UnixNano())
	store, err := session.NewPostgresStore(db, key)
	if err != nil {
		t.Fatalf("NewPostgresStore() error: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Exec("DELETE FROM client_sessions WHERE client_key = $1", key)
	})

	m := session.NewManager(store, session.ManagerConfig{})
	if m.IsAuthenticated() {
		t.Fatalf("expected fresh key to be unauthenticated")
	}
	if err := m.Login("tok-1", "bob"); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if err := m.Login("tok-2", "alice"); err != nil {
		t.Fatalf("second Login() error: %v", err)
	}

	var rows int
	if err := db.QueryRow("SELECT COUNT(*) FROM client_sessions WHERE client_key = $1", key).Scan(&rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected a single session row, got %d", rows)
	}

	reopened, err := session.NewPostgresStore(db, key)
	if err != nil {
		t.Fatalf("reopen NewPostgresStore() error: %v", err)
	}
	got, err := reopened.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.Token != "tok-2" || got.Username != "alice" {
		t.Fatalf("unexpected stored session: %+v", got)
	}

	if err := m.Logout(); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if m.IsAuthenticated() || m.Username() != "" {
		t.Fatalf("expected cleared session")
	}
}

func TestPostgresBackedClientAgainstBackend(t *testing.T) {
	db := openTestPostgres(t)
	srv := startBackend(t)

	key := fmt.Sprintf("itest_client_%d", time.Now().UnixNano())
	store, err := session.NewPostgresStore(db, key)
	if err != nil {
		t.Fatalf("NewPostgresStore() error: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Exec("DELETE FROM client_sessions WHERE client_key = $1", key)
	})

	m := session.NewManager(store, session.ManagerConfig{})
	c, err := api.New(srv.URL, m)
	if err != nil {
		t.Fatalf("api.New() error: %v", err)
	}
	ctx := context.Background()
	if _, err := c.Register(ctx, "pg-bob", "pw"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if _, err := c.Login(ctx, "pg-bob", "pw"); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	p, err := c.GetProfile(ctx)
	if err != nil {
		t.Fatalf("GetProfile() error: %v", err)
	}
	if p.Username != "pg-bob" {
		t.Fatalf("unexpected profile %+v", p)
	}
}
