package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var out HealthStatus
	err := c.do(ctx, request{op: "health", method: http.MethodGet, path: "/health"}, &out)
	return out, err
}

// Register creates an account. When the backend answers with a token the
// session is stored, so the caller is logged in on return.
func (c *Client) Register(ctx context.Context, username, password string) (AuthResult, error) {
	const op = "register"
	creds, err := newCredentials(op, username, password)
	if err != nil {
		return AuthResult{}, err
	}

	var out AuthResult
	if err := c.do(ctx, request{op: op, method: http.MethodPost, path: "/register", body: creds}, &out); err != nil {
		return AuthResult{}, err
	}
	if out.Username == "" {
		out.Username = creds.Username
	}
	if out.Token == "" {
		return out, nil
	}
	if err := c.storeSession(op, out); err != nil {
		return out, err
	}
	return out, nil
}

// Login authenticates and stores the returned session before returning.
func (c *Client) Login(ctx context.Context, username, password string) (AuthResult, error) {
	const op = "login"
	creds, err := newCredentials(op, username, password)
	if err != nil {
		return AuthResult{}, err
	}

	var out AuthResult
	if err := c.do(ctx, request{op: op, method: http.MethodPost, path: "/login", body: creds}, &out); err != nil {
		return AuthResult{}, err
	}
	if out.Token == "" {
		return AuthResult{}, errInvalidResponse(op, http.StatusOK, fmt.Errorf("no token in login response"))
	}
	if out.Username == "" {
		out.Username = creds.Username
	}
	if err := c.storeSession(op, out); err != nil {
		return out, err
	}
	return out, nil
}

// Logout forgets the local session. The backend keeps no session state, so
// no request is made.
func (c *Client) Logout() error {
	if c.sessions == nil {
		return nil
	}
	return c.sessions.Logout()
}

func (c *Client) storeSession(op string, res AuthResult) error {
	if c.sessions == nil {
		return nil
	}
	if err := c.sessions.Login(res.Token, res.Username); err != nil {
		c.log.Warn("persist session failed", "op", op, "username", res.Username, "err", err)
		return errSession(op, err)
	}
	return nil
}

func newCredentials(op, username, password string) (credentials, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return credentials{}, errInvalidInput(op, "username and password are required")
	}
	return credentials{Username: username, Password: password}, nil
}
