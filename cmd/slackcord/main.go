// Copyright 2024-2026 Aiku AI

// Command slackcord relays messages from Slack channels to Discord, with
// optional mirrors into Mattermost and Matrix. It listens for Slack events
// over HTTP or socket mode and reposts each message as embeds.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/aiku/slackcord/pkg/connector"
)

// These are filled at build time with -ldflags.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.StringP("config", "c", "config.yaml", "path to the config file")
	version := flag.BoolP("version", "v", false, "print the version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("slackcord %s (%s, built %s)\n", Tag, Commit, BuildTime)
		return
	}

	bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()

	// A .env file is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		bootLog.Fatal().Err(err).Msg("Failed to load .env")
	}

	cfg, err := connector.LoadConfig(*configPath)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}

	log := newLogger(cfg.Logging, os.Stderr)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("Invalid config")
	}

	log.Info().
		Str("version", Tag).
		Str("commit", Commit).
		Str("built", BuildTime).
		Msg("Starting slackcord")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sc, err := connector.NewSlackConnector(ctx, cfg, log, connector.Deps{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create connector")
	}
	defer sc.Close()

	if err := sc.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Relay stopped")
		sc.Close()
		os.Exit(1)
	}
	log.Info().Msg("Shut down cleanly")
}

// newLogger writes JSON logs to out, or console output when pretty logging
// is enabled and out is a terminal.
func newLogger(cfg connector.LoggingConfig, out *os.File) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var w io.Writer = out
	if usePretty(cfg, out) {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(level)
}

func usePretty(cfg connector.LoggingConfig, out *os.File) bool {
	if !cfg.Pretty {
		return false
	}
	fd := out.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
