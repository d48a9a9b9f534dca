package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

var ErrNameRequired = errors.New("NAME argument required")

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "affiliates",
		Usage: "Mirror affiliate announcements and sync the affiliate role",
		Commands: []*cli.Command{
			syncCommand(),
			dbCommand(),
		},
	}

	return app.Run(ctx, os.Args)
}
