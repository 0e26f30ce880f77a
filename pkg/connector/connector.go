// Copyright 2024-2026 Aiku AI

package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"golang.org/x/sync/errgroup"

	"github.com/aiku/slackcord/pkg/connector/slackfmt"
)

// Deps are the collaborators of a SlackConnector. Nil fields are built from
// the config.
type Deps struct {
	API    SlackAPI
	Sharer slackfmt.FileSharer
	Dedup  Deduper
	Sinks  []Sink
}

// SlackConnector receives Slack events and relays new messages from the
// listened channels to every configured sink.
type SlackConnector struct {
	Config *Config
	Log    zerolog.Logger

	api       SlackAPI
	socket    *socketmode.Client
	directory *Directory
	publisher *slackfmt.Publisher
	relay     *Relay
	dedup     Deduper
	closers   []io.Closer

	channelMu sync.RWMutex
	channels  map[string]struct{}

	botUserID string
	botID     string

	inflight sync.WaitGroup
}

// NewSlackConnector wires a connector from cfg, building any collaborator
// missing from deps.
func NewSlackConnector(ctx context.Context, cfg *Config, log zerolog.Logger, deps Deps) (*SlackConnector, error) {
	if err := cfg.PostProcess(); err != nil {
		return nil, fmt.Errorf("failed to post-process config: %w", err)
	}
	sc := &SlackConnector{
		Config:   cfg,
		Log:      log,
		api:      deps.API,
		dedup:    deps.Dedup,
		channels: make(map[string]struct{}),
	}

	if sc.api == nil {
		client := newSlackClient(cfg.Slack, cfg.Slack.BotToken, log)
		sc.api = client
		if cfg.Slack.SocketMode {
			sc.socket = socketmode.New(client, socketmode.OptionLog(slackLogger{log: log}))
		}
	}

	sharer := deps.Sharer
	if sharer == nil {
		fs := SlackFileSharer{}
		if cfg.Slack.UserToken != "" {
			fs.API = newSlackClient(cfg.Slack, cfg.Slack.UserToken, log)
		}
		sharer = fs
	}
	sc.publisher = slackfmt.NewPublisher(sharer)
	sc.directory = NewDirectory(sc.api, cfg)

	if sc.dedup == nil {
		if cfg.Dedup.RedisURL != "" {
			rd, err := NewRedisDeduper(ctx, cfg.Dedup.RedisURL, cfg.DedupTTL())
			if err != nil {
				return nil, err
			}
			sc.dedup = rd
			sc.closers = append(sc.closers, rd)
		} else {
			sc.dedup = NewMemoryDeduper(cfg.DedupTTL())
		}
	}

	sinks := deps.Sinks
	if sinks == nil {
		var err error
		sinks, err = sc.buildSinks()
		if err != nil {
			sc.Close()
			return nil, err
		}
	}
	sc.relay = NewRelay(cfg.Relay.QueueSize, cfg.SendTimeout(), log, sinks...)

	sc.ReloadChannels(cfg.Slack.ListeningChannels)
	return sc, nil
}

func (sc *SlackConnector) buildSinks() ([]Sink, error) {
	var sinks []Sink
	cfg := sc.Config
	if cfg.Discord.Enabled() {
		session, err := OpenDiscordSession(cfg.Discord, sc.Log)
		if err != nil {
			return nil, err
		}
		sc.closers = append(sc.closers, session)
		sinks = append(sinks, NewDiscordSink(session, cfg.Discord, cfg.EmbedColor()))
	}
	if cfg.Mattermost.Enabled() {
		sinks = append(sinks, NewMattermostSink(NewMattermostClient(cfg.Mattermost), cfg.Mattermost, cfg.EmbedColor()))
	}
	if cfg.Matrix.Enabled() {
		client, err := NewMatrixClient(cfg.Matrix)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, NewMatrixSink(client, cfg.Matrix))
	}
	return sinks, nil
}

// Run serves Slack events and delivers notifications until ctx is cancelled.
// The relay keeps running until ingestion has stopped and every in-flight
// event has been queued, then drains the queue.
func (sc *SlackConnector) Run(ctx context.Context) error {
	if len(sc.relay.sinks) == 0 {
		return ErrNoSinks
	}
	sc.identify(ctx)

	relayCtx, stopRelay := context.WithCancel(context.WithoutCancel(ctx))
	defer stopRelay()
	relayDone := make(chan error, 1)
	go func() { relayDone <- sc.relay.Run(relayCtx) }()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sc.serve(gctx) })
	if sc.socket != nil {
		g.Go(func() error { return sc.runSocketMode(gctx) })
	}
	err := g.Wait()
	sc.inflight.Wait()

	stopRelay()
	if relayErr := <-relayDone; err == nil {
		err = relayErr
	}
	return err
}

// Close releases the connections opened by NewSlackConnector.
func (sc *SlackConnector) Close() {
	for _, c := range sc.closers {
		if err := c.Close(); err != nil {
			sc.Log.Warn().Err(err).Msg("Failed to close connection")
		}
	}
	sc.closers = nil
}

// identify learns the bot's own user and bot IDs so its messages are not
// relayed back.
func (sc *SlackConnector) identify(ctx context.Context) {
	resp, err := sc.api.AuthTestContext(ctx)
	if err != nil {
		sc.Log.Warn().Err(err).Msg("Failed to get bot identity, own messages will not be filtered")
		return
	}
	sc.botUserID = resp.UserID
	sc.botID = resp.BotID
	sc.Log.Info().
		Str("team", resp.Team).
		Str("bot_user_id", resp.UserID).
		Str("bot_id", resp.BotID).
		Msg("Authenticated with Slack")
}

func (sc *SlackConnector) serve(ctx context.Context) error {
	server := &http.Server{
		Addr:         sc.Config.Server.ListenAddr,
		Handler:      sc.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		sc.Log.Info().Str("addr", server.Addr).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
		return nil
	}
}

func (sc *SlackConnector) runSocketMode(ctx context.Context) error {
	sc.inflight.Add(1)
	go func() {
		defer sc.inflight.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-sc.socket.Events:
				if !ok {
					return
				}
				sc.handleSocketEvent(context.WithoutCancel(ctx), evt, func(req socketmode.Request) { sc.socket.Ack(req) })
			}
		}
	}()
	if err := sc.socket.RunContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("socket mode: %w", err)
	}
	return nil
}

// IsListening reports whether messages from channelID are relayed.
// Thread-safe.
func (sc *SlackConnector) IsListening(channelID string) bool {
	sc.channelMu.RLock()
	defer sc.channelMu.RUnlock()
	_, ok := sc.channels[channelID]
	return ok
}

// ChannelCount returns the number of listened channels. Thread-safe.
func (sc *SlackConnector) ChannelCount() int {
	sc.channelMu.RLock()
	defer sc.channelMu.RUnlock()
	return len(sc.channels)
}

// ReloadChannels replaces the set of listened channels and returns how many
// were added and removed. Cached channel names are dropped.
func (sc *SlackConnector) ReloadChannels(channelIDs []string) (added, removed int) {
	desired := make(map[string]struct{}, len(channelIDs))
	for _, ch := range channelIDs {
		if ch = strings.TrimSpace(ch); ch != "" {
			desired[ch] = struct{}{}
		}
	}

	sc.channelMu.Lock()
	for ch := range sc.channels {
		if _, ok := desired[ch]; !ok {
			delete(sc.channels, ch)
			removed++
		}
	}
	for ch := range desired {
		if _, ok := sc.channels[ch]; !ok {
			sc.channels[ch] = struct{}{}
			added++
		}
	}
	total := len(sc.channels)
	sc.channelMu.Unlock()

	if sc.directory != nil {
		sc.directory.Forget()
	}
	sc.Log.Info().
		Int("added", added).
		Int("removed", removed).
		Int("total", total).
		Msg("Listening channels updated")
	return added, removed
}

// channelsFromEnv reads the listened channels from SLACK_LISTENING_CHANNELS,
// falling back to the configured list.
func (sc *SlackConnector) channelsFromEnv() []string {
	if val := strings.TrimSpace(os.Getenv("SLACK_LISTENING_CHANNELS")); val != "" {
		return strings.Fields(val)
	}
	return sc.Config.Slack.ListeningChannels
}

// maxReloadBodySize is the maximum allowed request body for channel reload (1 MB).
const maxReloadBodySize = 1 << 20

// HandleReloadChannels is an HTTP handler for POST /api/reload-channels.
// It accepts an optional JSON array of channel IDs; if the body is empty or
// absent, it reloads from the environment.
func (sc *SlackConnector) HandleReloadChannels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var channels []string
	if r.Body != nil && r.ContentLength != 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxReloadBodySize)
		defer r.Body.Close()
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		if len(body) > 0 {
			if err := json.Unmarshal(body, &channels); err != nil {
				http.Error(w, "invalid JSON", http.StatusBadRequest)
				return
			}
		}
	}

	source := "body"
	if len(channels) == 0 {
		source = "env"
		channels = sc.channelsFromEnv()
	}
	sc.Log.Info().
		Str("remote_addr", r.RemoteAddr).
		Str("source", source).
		Int("entries", len(channels)).
		Msg("Channel reload requested")

	added, removed := sc.ReloadChannels(channels)
	resp := map[string]int{
		"added":   added,
		"removed": removed,
		"total":   sc.ChannelCount(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		sc.Log.Warn().Err(err).Msg("Failed to write reload response")
	}
}

var _ SlackAPI = (*slack.Client)(nil)
