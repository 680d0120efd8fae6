package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// SearchGames returns the names of games matching query. The token is sent
// when one is stored but is not required.
func (c *Client) SearchGames(ctx context.Context, query string) ([]string, error) {
	const op = "search_games"
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errInvalidInput(op, "search query is required")
	}

	var out []string
	err := c.do(ctx, request{
		op:     op,
		method: http.MethodGet,
		path:   "/games/search",
		query:  url.Values{"q": {query}},
		auth:   authOptional,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

type connectGameBody struct {
	GameName     string `json:"gameName"`
	GameUsername string `json:"gameUsername,omitempty"`
	GameID       string `json:"gameId,omitempty"`
}

// ConnectGame links a game with the player's account details on it.
func (c *Client) ConnectGame(ctx context.Context, name string, details GameDetails) (Ack, error) {
	const op = "connect_game"
	body := connectGameBody{
		GameName:     strings.TrimSpace(name),
		GameUsername: strings.TrimSpace(details.Username),
		GameID:       strings.TrimSpace(details.ID),
	}
	if body.GameName == "" {
		return Ack{}, errInvalidInput(op, "game name is required")
	}
	if body.GameUsername == "" && body.GameID == "" {
		return Ack{}, errInvalidInput(op, "game username or game id is required")
	}

	var out Ack
	err := c.do(ctx, request{op: op, method: http.MethodPost, path: "/connect/game", body: body, auth: authRequired}, &out)
	return out, err
}

func (c *Client) DisconnectGame(ctx context.Context, name string) (Ack, error) {
	const op = "disconnect_game"
	name = strings.TrimSpace(name)
	if name == "" {
		return Ack{}, errInvalidInput(op, "game name is required")
	}

	var out Ack
	body := connectGameBody{GameName: name}
	err := c.do(ctx, request{op: op, method: http.MethodPost, path: "/disconnect/game", body: body, auth: authRequired}, &out)
	return out, err
}
