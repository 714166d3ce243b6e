package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/erazemk/najdeno/internal/app"
	"github.com/erazemk/najdeno/internal/config"
)

const usage = `Usage: najdeno <serve|migrate> [flags]

Commands:
  serve     run the HTTP server (migrates the database first)
  migrate   apply database migrations and exit

Flags:
  -addr <host:port>     listen address (default: :8080)
  -db <dsn>             SQLite path or postgres:// URL (default: lostfound.sqlite3)
  -uploads <dir>        upload folder of the local asset backend (default: uploads)
  -assets <backend>     asset backend: local or minio (default: local)
  -secret <key>         session signing key (default: generated and stored)
  -log-level <level>    debug, info, warn or error (default: info)

Every flag can also be set through the environment or a .env file.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = cmdServe(os.Args[2:])
	case "migrate":
		err = cmdMigrate(os.Args[2:])
	case "-h", "-help", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", os.Args[1], usage)
		os.Exit(1)
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprint(os.Stdout, usage)
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func cmdServe(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	log := app.NewLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to start")
		return err
	}
	defer a.Close()

	return a.Run(ctx)
}

func cmdMigrate(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	return app.Migrate(cfg, app.NewLogger(cfg, os.Stdout))
}
