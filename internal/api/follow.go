package api

import (
	"context"
	"net/http"
	"strings"
)

// FollowUser follows a public account or requests to follow a private one;
// the returned state tells which happened.
func (c *Client) FollowUser(ctx context.Context, username string) (FollowResult, error) {
	return c.followAction(ctx, "follow_user", "/follow/", username)
}

func (c *Client) UnfollowUser(ctx context.Context, username string) (FollowResult, error) {
	return c.followAction(ctx, "unfollow_user", "/unfollow/", username)
}

func (c *Client) followAction(ctx context.Context, op, prefix, username string) (FollowResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return FollowResult{}, errInvalidInput(op, "username is required")
	}
	var out FollowResult
	if err := c.do(ctx, request{op: op, method: http.MethodPost, path: userPath(prefix, username), auth: authRequired}, &out); err != nil {
		return FollowResult{}, err
	}
	return out, nil
}

// GetFollowState reports how the logged-in user relates to username.
func (c *Client) GetFollowState(ctx context.Context, username string) (FollowStatus, error) {
	const op = "get_follow_state"
	username = strings.TrimSpace(username)
	if username == "" {
		return FollowStatus{}, errInvalidInput(op, "username is required")
	}
	var out FollowStatus
	if err := c.do(ctx, request{op: op, method: http.MethodGet, path: userPath("/api/follow/state/", username), auth: authRequired}, &out); err != nil {
		return FollowStatus{}, err
	}
	return out, nil
}

// AcceptFollowRequest approves a pending request from username to follow
// the logged-in (private) account.
func (c *Client) AcceptFollowRequest(ctx context.Context, username string) (Ack, error) {
	return c.followRequestAction(ctx, "accept_follow_request", "/api/follow/accept/", username)
}

func (c *Client) RejectFollowRequest(ctx context.Context, username string) (Ack, error) {
	return c.followRequestAction(ctx, "reject_follow_request", "/api/follow/reject/", username)
}

func (c *Client) followRequestAction(ctx context.Context, op, prefix, username string) (Ack, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Ack{}, errInvalidInput(op, "username is required")
	}
	var out Ack
	err := c.do(ctx, request{op: op, method: http.MethodPost, path: userPath(prefix, username), auth: authRequired}, &out)
	return out, err
}
