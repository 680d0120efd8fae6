package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// GetAllUsers lists public profiles for the feed. Entries without a username
// are dropped.
func (c *Client) GetAllUsers(ctx context.Context) ([]Profile, error) {
	var raw []Profile
	if err := c.do(ctx, request{op: "get_all_users", method: http.MethodGet, path: "/users"}, &raw); err != nil {
		return nil, err
	}
	out := make([]Profile, 0, len(raw))
	for _, p := range raw {
		if err := p.Validate(); err != nil {
			c.log.Warn("skipping invalid profile in user list", "err", err)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// GetProfile returns the logged-in user's own profile.
func (c *Client) GetProfile(ctx context.Context) (Profile, error) {
	const op = "get_profile"
	var out Profile
	if err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/profile", auth: authRequired}, &out); err != nil {
		return Profile{}, err
	}
	if err := out.Validate(); err != nil {
		return Profile{}, errInvalidResponse(op, http.StatusOK, err)
	}
	return out, nil
}

// GetUserProfile returns another user's profile. A missing user yields a
// KindNotFound error naming the user.
func (c *Client) GetUserProfile(ctx context.Context, username string) (Profile, error) {
	const op = "get_user_profile"
	username = strings.TrimSpace(username)
	if username == "" {
		return Profile{}, errInvalidInput(op, "username is required")
	}

	var out Profile
	err := c.do(ctx, request{
		op:       op,
		method:   http.MethodGet,
		path:     userPath("/profile/", username),
		auth:     authRequired,
		notFound: fmt.Sprintf("user %q not found", username),
	}, &out)
	if err != nil {
		return Profile{}, err
	}
	if err := out.Validate(); err != nil {
		return Profile{}, errInvalidResponse(op, http.StatusOK, err)
	}
	return out, nil
}

// UpdatePrivacySettings sets the account's privacy flag. An empty response
// body is taken as acceptance of the requested value.
func (c *Client) UpdatePrivacySettings(ctx context.Context, isPrivate bool) (PrivacySettings, error) {
	out := PrivacySettings{IsPrivate: isPrivate}
	body := map[string]bool{"isPrivate": isPrivate}
	if err := c.do(ctx, request{op: "update_privacy", method: http.MethodPost, path: "/privacy", body: body, auth: authRequired}, &out); err != nil {
		return PrivacySettings{}, err
	}
	return out, nil
}
