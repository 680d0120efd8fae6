package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"gamerlink/client/internal/api"
	"gamerlink/client/internal/app"
)

type command struct {
	usage string
	// nargs is the exact positional count, or -1 when run parses its own
	// arguments.
	nargs int
	run   func(ctx context.Context, a *app.App, args []string) (any, error)
}

var commands = map[string]command{
	"health": {nargs: 0, run: func(ctx context.Context, a *app.App, _ []string) (any, error) {
		return a.Client.Health(ctx)
	}},
	"register": {usage: "<username> <password>", nargs: 2, run: func(ctx context.Context, a *app.App, args []string) (any, error) {
		return a.Client.Register(ctx, args[0], args[1])
	}},
	"login": {usage: "<username> <password>", nargs: 2, run: func(ctx context.Context, a *app.App, args []string) (any, error) {
		res, err := a.Client.Login(ctx, args[0], args[1])
		if err != nil {
			return nil, err
		}
		return map[string]string{"username": res.Username, "message": res.Message}, nil
	}},
	"logout": {nargs: 0, run: func(_ context.Context, a *app.App, _ []string) (any, error) {
		return nil, a.Client.Logout()
	}},
	"whoami": {nargs: 0, run: func(_ context.Context, a *app.App, _ []string) (any, error) {
		sess := a.Sessions.Current()
		return map[string]any{"authenticated": !sess.IsZero(), "username": sess.Username}, nil
	}},
	"users": {nargs: 0, run: func(ctx context.Context, a *app.App, _ []string) (any, error) {
		return a.Client.GetAllUsers(ctx)
	}},
	"profile": {nargs: 0, run: func(ctx context.Context, a *app.App, _ []string) (any, error) {
		return a.Client.GetProfile(ctx)
	}},
	"user": {usage: "<username>", nargs: 1, run: func(ctx context.Context, a *app.App, args []string) (any, error) {
		return a.Client.GetUserProfile(ctx, args[0])
	}},
	"privacy": {usage: "<private|public>", nargs: 1, run: func(ctx context.Context, a *app.App, args []string) (any, error) {
		switch strings.ToLower(args[0]) {
		case "private", "on", "true":
			return a.Client.UpdatePrivacySettings(ctx, true)
		case "public", "off", "false":
			return a.Client.UpdatePrivacySettings(ctx, false)
		}
		return nil, errUsage
	}},
	"connect": {usage: "<twitch|discord|instagram|youtube> <handle>", nargs: 2, run: func(ctx context.Context, a *app.App, args []string) (any, error) {
		platform, ok := api.ParsePlatform(args[0])
		if !ok {
			return nil, errUsage
		}
		return a.Client.ConnectPlatform(ctx, platform, args[1])
	}},
	"disconnect": {usage: "<twitch|discord|instagram|youtube>", nargs: 1, run: func(ctx context.Context, a *app.App, args []string) (any, error) {
		platform, ok := api.ParsePlatform(args[0])
		if !ok {
			return nil, errUsage
		}
		return a.Client.DisconnectPlatform(ctx, platform)
	}},
	"games": {usage: "<query>", nargs: 1, run: func(ctx context.Context, a *app.App, args []string) (any, error) {
		return a.Client.SearchGames(ctx, args[0])
	}},
	"connect-game": {usage: "[-username name] [-id id] <game>", nargs: -1, run: runConnectGame},
	"disconnect-game": {usage: "<game>", nargs: 1, run: func(ctx context.Context, a *app.App, args []string) (any, error) {
		return a.Client.DisconnectGame(ctx, args[0])
	}},
	"follow": {usage: "<username>", nargs: 1, run: func(ctx context.Context, a *app.App, args []string) (any, error) {
		return a.Client.FollowUser(ctx, args[0])
	}},
	"unfollow": {usage: "<username>", nargs: 1, run: func(ctx context.Context, a *app.App, args []string) (any, error) {
		return a.Client.UnfollowUser(ctx, args[0])
	}},
	"follow-state": {usage: "<username>", nargs: 1, run: func(ctx context.Context, a *app.App, args []string) (any, error) {
		return a.Client.GetFollowState(ctx, args[0])
	}},
	"accept": {usage: "<username>", nargs: 1, run: func(ctx context.Context, a *app.App, args []string) (any, error) {
		return a.Client.AcceptFollowRequest(ctx, args[0])
	}},
	"reject": {usage: "<username>", nargs: 1, run: func(ctx context.Context, a *app.App, args []string) (any, error) {
		return a.Client.RejectFollowRequest(ctx, args[0])
	}},
	"audit": {nargs: 0, run: func(_ context.Context, a *app.App, _ []string) (any, error) {
		return a.Audit.ReadAll()
	}},
}

func runConnectGame(ctx context.Context, a *app.App, args []string) (any, error) {
	fs := flag.NewFlagSet("connect-game", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var details api.GameDetails
	fs.StringVar(&details.Username, "username", "", "in-game username")
	fs.StringVar(&details.ID, "id", "", "in-game id")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return nil, errUsage
	}
	return a.Client.ConnectGame(ctx, fs.Arg(0), details)
}
