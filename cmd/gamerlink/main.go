package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"gamerlink/client/internal/app"
	"gamerlink/client/internal/config"
	"github.com/joho/godotenv"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var errUsage = errors.New("invalid arguments")

func main() {
	_ = godotenv.Load() // .env is optional

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return exitUsage
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage(stdout)
		return exitOK
	}

	name, rest := args[0], args[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", name)
		printUsage(stderr)
		return exitUsage
	}
	if cmd.nargs >= 0 && len(rest) != cmd.nargs {
		return fail(stderr, name, cmd.usage, errUsage)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return exitError
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "create app: %v\n", err)
		return exitError
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.Logger().Warn("close app", "err", err)
		}
	}()

	result, err := cmd.run(ctx, a, rest)
	if err != nil {
		return fail(stderr, name, cmd.usage, err)
	}
	if result == nil {
		return exitOK
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return exitError
	}
	return exitOK
}

func fail(stderr io.Writer, name, usage string, err error) int {
	if errors.Is(err, errUsage) {
		fmt.Fprintf(stderr, "usage: gamerlink %s %s\n", name, usage)
		return exitUsage
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	return exitError
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: gamerlink <command> [arguments]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %s\n", name, commands[name].usage)
	}
}
