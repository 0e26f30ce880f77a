// Copyright 2024-2026 Aiku AI

package connector

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"
	"time"

	up "go.mau.fi/util/configupgrade"
	"gopkg.in/yaml.v3"

	"github.com/aiku/slackcord/pkg/connector/discordfmt"
)

//go:embed example-config.yaml
var ExampleConfig string

// Config holds the relay configuration.
type Config struct {
	Slack      SlackConfig      `yaml:"slack"`
	Discord    DiscordConfig    `yaml:"discord"`
	Mattermost MattermostConfig `yaml:"mattermost"`
	Matrix     MatrixConfig     `yaml:"matrix"`
	Server     ServerConfig     `yaml:"server"`
	Relay      RelayConfig      `yaml:"relay"`
	Dedup      DedupConfig      `yaml:"dedup"`
	Logging    LoggingConfig    `yaml:"logging"`

	// DisplaynameTemplate renders the author name shown on relayed
	// messages from the Slack profile fields.
	DisplaynameTemplate string `yaml:"displayname_template"`

	displaynameTemplate *template.Template `yaml:"-"`
	embedColor          int                `yaml:"-"`
}

type SlackConfig struct {
	BotToken      string `yaml:"bot_token"`
	AppToken      string `yaml:"app_token"`
	UserToken     string `yaml:"user_token"`
	SigningSecret string `yaml:"signing_secret"`
	// ListeningChannels are the Slack channel IDs whose messages are relayed.
	ListeningChannels []string `yaml:"listening_channels"`
	// SocketMode receives events over a websocket instead of the Events API
	// endpoint. Requires AppToken.
	SocketMode bool `yaml:"socket_mode"`
	// APIURL overrides the Slack Web API base URL.
	APIURL string `yaml:"api_url"`
}

type DiscordConfig struct {
	BotToken      string `yaml:"bot_token"`
	ChannelID     string `yaml:"channel_id"`
	MentionRoleID string `yaml:"mention_role_id"`
	// EmbedColor is a hex RGB colour such as "91e4a3".
	EmbedColor string `yaml:"embed_color"`
	// Presence is the "Watching ..." status shown on the bot.
	Presence string `yaml:"presence"`
}

// Enabled reports whether the Discord sink is configured.
func (c DiscordConfig) Enabled() bool {
	return c.BotToken != "" && c.ChannelID != ""
}

type MattermostConfig struct {
	ServerURL string `yaml:"server_url"`
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

// Enabled reports whether the Mattermost mirror is configured.
func (c MattermostConfig) Enabled() bool {
	return c.ServerURL != "" && c.Token != "" && c.ChannelID != ""
}

type MatrixConfig struct {
	HomeserverURL string `yaml:"homeserver_url"`
	UserID        string `yaml:"user_id"`
	AccessToken   string `yaml:"access_token"`
	RoomID        string `yaml:"room_id"`
}

// Enabled reports whether the Matrix mirror is configured.
func (c MatrixConfig) Enabled() bool {
	return c.HomeserverURL != "" && c.AccessToken != "" && c.RoomID != ""
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type RelayConfig struct {
	QueueSize int `yaml:"queue_size"`
	// SendTimeout bounds the delivery of one notification to one sink, in
	// seconds.
	SendTimeout int `yaml:"send_timeout"`
}

type DedupConfig struct {
	// RedisURL selects the Redis store. Empty keeps seen event IDs in memory.
	RedisURL string `yaml:"redis_url"`
	// TTL is how long an event ID is remembered, in seconds.
	TTL int `yaml:"ttl"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// DisplaynameParams holds the parameters for rendering the displayname template.
type DisplaynameParams struct {
	DisplayName string
	RealName    string
	Username    string
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type rawConfig Config
	return node.Decode((*rawConfig)(c))
}

// PostProcess compiles derived fields and fills defaults.
func (c *Config) PostProcess() error {
	var err error
	c.displaynameTemplate, err = template.New("displayname").Parse(c.DisplaynameTemplate)
	if err != nil {
		return fmt.Errorf("invalid displayname_template: %w", err)
	}
	c.embedColor = discordfmt.DefaultColor
	if c.Discord.EmbedColor != "" {
		color, err := strconv.ParseUint(strings.TrimPrefix(c.Discord.EmbedColor, "#"), 16, 24)
		if err != nil {
			return fmt.Errorf("invalid discord.embed_color %q: %w", c.Discord.EmbedColor, err)
		}
		c.embedColor = int(color)
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":5000"
	}
	if c.Relay.QueueSize <= 0 {
		c.Relay.QueueSize = 64
	}
	if c.Relay.SendTimeout <= 0 {
		c.Relay.SendTimeout = 30
	}
	if c.Dedup.TTL <= 0 {
		c.Dedup.TTL = 600
	}
	return nil
}

var (
	ErrMissingSlackToken = errors.New("slack.bot_token is required")
	ErrNoSinksConfigured = errors.New("no delivery target configured")
)

// Validate checks that the configuration can run a relay.
func (c *Config) Validate() error {
	if c.Slack.BotToken == "" {
		return ErrMissingSlackToken
	}
	if c.Slack.SocketMode && c.Slack.AppToken == "" {
		return errors.New("slack.app_token is required in socket mode")
	}
	if !c.Slack.SocketMode && c.Slack.SigningSecret == "" {
		return errors.New("slack.signing_secret is required for the events endpoint")
	}
	if !c.Discord.Enabled() && !c.Mattermost.Enabled() && !c.Matrix.Enabled() {
		return ErrNoSinksConfigured
	}
	return nil
}

// EmbedColor returns the parsed Discord embed colour.
func (c *Config) EmbedColor() int {
	return c.embedColor
}

// SendTimeout returns the per-sink delivery timeout.
func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.Relay.SendTimeout) * time.Second
}

// DedupTTL returns how long event IDs are remembered.
func (c *Config) DedupTTL() time.Duration {
	return time.Duration(c.Dedup.TTL) * time.Second
}

func upgradeConfig(helper up.Helper) {
	helper.Copy(up.Str, "slack", "bot_token")
	helper.Copy(up.Str, "slack", "app_token")
	helper.Copy(up.Str, "slack", "user_token")
	helper.Copy(up.Str, "slack", "signing_secret")
	helper.Copy(up.List, "slack", "listening_channels")
	helper.Copy(up.Bool, "slack", "socket_mode")
	helper.Copy(up.Str, "slack", "api_url")
	helper.Copy(up.Str, "discord", "bot_token")
	helper.Copy(up.Str|up.Int, "discord", "channel_id")
	helper.Copy(up.Str|up.Int, "discord", "mention_role_id")
	helper.Copy(up.Str, "discord", "embed_color")
	helper.Copy(up.Str, "discord", "presence")
	helper.Copy(up.Str, "mattermost", "server_url")
	helper.Copy(up.Str, "mattermost", "token")
	helper.Copy(up.Str, "mattermost", "channel_id")
	helper.Copy(up.Str, "matrix", "homeserver_url")
	helper.Copy(up.Str, "matrix", "user_id")
	helper.Copy(up.Str, "matrix", "access_token")
	helper.Copy(up.Str, "matrix", "room_id")
	helper.Copy(up.Str, "server", "listen_addr")
	helper.Copy(up.Int, "relay", "queue_size")
	helper.Copy(up.Int, "relay", "send_timeout")
	helper.Copy(up.Str, "dedup", "redis_url")
	helper.Copy(up.Int, "dedup", "ttl")
	helper.Copy(up.Str, "logging", "level")
	helper.Copy(up.Bool, "logging", "pretty")
	helper.Copy(up.Str, "displayname_template")
}

// Upgrader merges a user config over the embedded example config.
func Upgrader() up.BaseUpgrader {
	return &up.StructUpgrader{
		SimpleUpgrader: up.SimpleUpgrader(upgradeConfig),
		Blocks: [][]string{
			{"discord"},
			{"mattermost"},
			{"matrix"},
			{"server"},
			{"relay"},
			{"dedup"},
			{"logging"},
			{"displayname_template"},
		},
		Base: ExampleConfig,
	}
}

// LoadConfig reads the config file at path, merged over the example config,
// then applies environment overrides. A missing file yields the example
// config.
func LoadConfig(path string) (*Config, error) {
	data := []byte(ExampleConfig)
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			data, _, err = up.Do(path, false, Upgrader())
			if err != nil {
				return nil, fmt.Errorf("failed to upgrade config: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config: %w", err)
		}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.PostProcess(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides config values from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if val, ok := lookup(key); ok && val != "" {
			*dst = val
		}
	}
	str("SLACK_BOT_TOKEN", &c.Slack.BotToken)
	str("SLACK_APP_TOKEN", &c.Slack.AppToken)
	str("SLACK_USER_TOKEN", &c.Slack.UserToken)
	str("SLACK_SIGNING_SECRET", &c.Slack.SigningSecret)
	if val, ok := lookup("SLACK_LISTENING_CHANNELS"); ok && strings.TrimSpace(val) != "" {
		c.Slack.ListeningChannels = strings.Fields(val)
	}
	if val, ok := lookup("SLACK_SOCKET_MODE"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Slack.SocketMode = b
		}
	}
	str("DISCORD_BOT_TOKEN", &c.Discord.BotToken)
	str("DISCORD_POSTING_CHANNEL", &c.Discord.ChannelID)
	str("DISCORD_MENTION_ID", &c.Discord.MentionRoleID)
	str("MATTERMOST_SERVER_URL", &c.Mattermost.ServerURL)
	str("MATTERMOST_TOKEN", &c.Mattermost.Token)
	str("MATTERMOST_CHANNEL_ID", &c.Mattermost.ChannelID)
	str("MATRIX_HOMESERVER_URL", &c.Matrix.HomeserverURL)
	str("MATRIX_ACCESS_TOKEN", &c.Matrix.AccessToken)
	str("MATRIX_ROOM_ID", &c.Matrix.RoomID)
	str("REDIS_URL", &c.Dedup.RedisURL)
	if val, ok := lookup("PORT"); ok && val != "" {
		c.Server.ListenAddr = ":" + val
	}
}

// FormatDisplayname generates a display name from the template and params.
// An empty result falls back to the display name, then the real name.
func (c *Config) FormatDisplayname(params DisplaynameParams) string {
	fallback := params.DisplayName
	if fallback == "" {
		fallback = params.RealName
	}
	if c.displaynameTemplate == nil {
		return fallback
	}
	var sb strings.Builder
	if err := c.displaynameTemplate.Execute(&sb, params); err != nil {
		return fallback
	}
	if strings.TrimSpace(sb.String()) == "" {
		return fallback
	}
	return sb.String()
}
