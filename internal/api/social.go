package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// ConnectPlatform links the user's handle on a third-party platform.
func (c *Client) ConnectPlatform(ctx context.Context, platform Platform, handle string) (Ack, error) {
	op := "connect_" + string(platform)
	field := platform.handleField()
	if field == "" {
		return Ack{}, errInvalidInput(op, fmt.Sprintf("unsupported platform %q", platform))
	}
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return Ack{}, errInvalidInput(op, fmt.Sprintf("%s handle is required", platform))
	}

	var out Ack
	body := map[string]string{field: handle}
	err := c.do(ctx, request{op: op, method: http.MethodPost, path: "/connect/" + string(platform), body: body, auth: authRequired}, &out)
	return out, err
}

// DisconnectPlatform unlinks the platform. No payload is sent.
func (c *Client) DisconnectPlatform(ctx context.Context, platform Platform) (Ack, error) {
	op := "disconnect_" + string(platform)
	if platform.handleField() == "" {
		return Ack{}, errInvalidInput(op, fmt.Sprintf("unsupported platform %q", platform))
	}

	var out Ack
	err := c.do(ctx, request{op: op, method: http.MethodPost, path: "/disconnect/" + string(platform), auth: authRequired}, &out)
	return out, err
}

func (c *Client) ConnectTwitch(ctx context.Context, username string) (Ack, error) {
	return c.ConnectPlatform(ctx, PlatformTwitch, username)
}

func (c *Client) ConnectDiscord(ctx context.Context, username string) (Ack, error) {
	return c.ConnectPlatform(ctx, PlatformDiscord, username)
}

func (c *Client) ConnectInstagram(ctx context.Context, handle string) (Ack, error) {
	return c.ConnectPlatform(ctx, PlatformInstagram, handle)
}

func (c *Client) ConnectYouTube(ctx context.Context, channel string) (Ack, error) {
	return c.ConnectPlatform(ctx, PlatformYouTube, channel)
}

func (c *Client) DisconnectTwitch(ctx context.Context) (Ack, error) {
	return c.DisconnectPlatform(ctx, PlatformTwitch)
}

func (c *Client) DisconnectDiscord(ctx context.Context) (Ack, error) {
	return c.DisconnectPlatform(ctx, PlatformDiscord)
}

func (c *Client) DisconnectInstagram(ctx context.Context) (Ack, error) {
	return c.DisconnectPlatform(ctx, PlatformInstagram)
}

func (c *Client) DisconnectYouTube(ctx context.Context) (Ack, error) {
	return c.DisconnectPlatform(ctx, PlatformYouTube)
}
