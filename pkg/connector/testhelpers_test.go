// Copyright 2024-2026 Aiku AI

package connector

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

const testSigningSecret = "8f742231b10e8888abcd99yyyzzz85a5"

// fakeSlackAPI is an in-memory SlackAPI. Lookups for unknown IDs fail.
type fakeSlackAPI struct {
	mu sync.Mutex

	Auth     *slack.AuthTestResponse
	Users    map[string]*slack.User
	Emoji    map[string]string
	Team     *slack.TeamInfo
	Channels map[string]string
	// Fail makes every call return an error.
	Fail bool

	calls map[string]int
}

func newFakeSlackAPI() *fakeSlackAPI {
	return &fakeSlackAPI{
		Auth:     &slack.AuthTestResponse{Team: "Acme", UserID: "UBOT", BotID: "BBOT"},
		Users:    make(map[string]*slack.User),
		Emoji:    make(map[string]string),
		Team:     &slack.TeamInfo{Name: "Acme", Icon: map[string]any{"image_68": "https://team/68.png"}},
		Channels: make(map[string]string),
		calls:    make(map[string]int),
	}
}

var errFakeSlack = errors.New("fake slack error")

func (f *fakeSlackAPI) record(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	if f.Fail {
		return errFakeSlack
	}
	return nil
}

// Calls returns how often method was called.
func (f *fakeSlackAPI) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeSlackAPI) AuthTestContext(_ context.Context) (*slack.AuthTestResponse, error) {
	if err := f.record("auth.test"); err != nil {
		return nil, err
	}
	return f.Auth, nil
}

func (f *fakeSlackAPI) GetUserInfoContext(_ context.Context, user string) (*slack.User, error) {
	if err := f.record("users.info"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.Users[user]
	if !ok {
		return nil, slack.SlackErrorResponse{Err: "user_not_found"}
	}
	return u, nil
}

func (f *fakeSlackAPI) GetEmojiContext(_ context.Context) (map[string]string, error) {
	if err := f.record("emoji.list"); err != nil {
		return nil, err
	}
	return f.Emoji, nil
}

func (f *fakeSlackAPI) GetTeamInfoContext(_ context.Context) (*slack.TeamInfo, error) {
	if err := f.record("team.info"); err != nil {
		return nil, err
	}
	return f.Team, nil
}

func (f *fakeSlackAPI) GetConversationInfoContext(_ context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error) {
	if err := f.record("conversations.info"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.Channels[input.ChannelID]
	if !ok {
		return nil, slack.SlackErrorResponse{Err: "channel_not_found"}
	}
	ch := &slack.Channel{}
	ch.ID = input.ChannelID
	ch.Name = name
	return ch, nil
}

// addUser registers a user with the given profile display name.
func (f *fakeSlackAPI) addUser(id, displayName, realName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Users[id] = &slack.User{
		ID:       id,
		Name:     strings.ToLower(strings.ReplaceAll(realName, " ", ".")),
		RealName: realName,
		Profile: slack.UserProfile{
			DisplayName: displayName,
			RealName:    realName,
			Image72:     "https://avatars/" + id + "_72.png",
		},
	}
}

// fakeSharer records which files were shared.
type fakeSharer struct {
	mu     sync.Mutex
	shared []string
	err    error
}

func (f *fakeSharer) EnsurePubliclyShared(_ context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shared = append(f.shared, fileID)
	return f.err
}

func (f *fakeSharer) Shared() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.shared...)
}

// fakeSink records delivered notifications and signals each delivery on
// delivered.
type fakeSink struct {
	name string
	err  error

	mu            sync.Mutex
	notifications []*Notification
	delivered     chan *Notification
}

func newFakeSink(name string) *fakeSink {
	return &fakeSink{name: name, delivered: make(chan *Notification, 64)}
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Deliver(_ context.Context, n *Notification) error {
	f.mu.Lock()
	f.notifications = append(f.notifications, n)
	f.mu.Unlock()
	f.delivered <- n
	return f.err
}

func (f *fakeSink) Notifications() []*Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Notification(nil), f.notifications...)
}

// wait returns the next delivered notification or fails the test.
func (f *fakeSink) wait(t *testing.T) *Notification {
	t.Helper()
	select {
	case n := <-f.delivered:
		return n
	case <-time.After(5 * time.Second):
		t.Fatalf("sink %s: no notification delivered", f.name)
		return nil
	}
}

// fakeDiscord records the messages sent through DiscordAPI.
type fakeDiscord struct {
	mu       sync.Mutex
	sent     []*discordgo.MessageSend
	channels []string
	// failAt makes the nth send (1-based) fail.
	failAt int
}

func (f *fakeDiscord) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAt > 0 && len(f.sent)+1 == f.failAt {
		return nil, errors.New("discord unavailable")
	}
	f.sent = append(f.sent, data)
	f.channels = append(f.channels, channelID)
	return &discordgo.Message{ID: strconv.Itoa(len(f.sent)), ChannelID: channelID}, nil
}

// endpointCall records which API endpoints were hit during a test.
type endpointCall struct {
	Method string
	Path   string
	Body   string
}

// fakeServer wraps an httptest.Server simulating a chat server API. It
// records calls and answers with canned responses.
type fakeServer struct {
	Server *httptest.Server

	mu    sync.Mutex
	calls []endpointCall

	// FailEndpoints causes matching path substrings to return 500.
	FailEndpoints map[string]bool
}

func newFakeServer(handler func(w http.ResponseWriter, r *http.Request, body []byte)) *fakeServer {
	f := &fakeServer{FailEndpoints: make(map[string]bool)}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.record(r.Method, r.URL.Path, string(body))
		for sub := range f.failing() {
			if strings.Contains(r.URL.Path, sub) {
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{"message": "fake error"})
				return
			}
		}
		handler(w, r, body)
	}))
	return f
}

func (f *fakeServer) Close() {
	f.Server.Close()
}

func (f *fakeServer) URL() string {
	return f.Server.URL
}

func (f *fakeServer) failing() map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make(map[string]bool, len(f.FailEndpoints))
	for k, v := range f.FailEndpoints {
		cp[k] = v
	}
	return cp
}

func (f *fakeServer) fail(sub string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailEndpoints[sub] = true
}

func (f *fakeServer) record(method, path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, endpointCall{Method: method, Path: path, Body: body})
}

func (f *fakeServer) Calls() []endpointCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]endpointCall, len(f.calls))
	copy(cp, f.calls)
	return cp
}

// newFakeMM simulates the Mattermost posts endpoint.
func newFakeMM() *fakeServer {
	return newFakeServer(func(w http.ResponseWriter, r *http.Request, body []byte) {
		switch {
		// POST /api/v4/posts
		case r.Method == http.MethodPost && r.URL.Path == "/api/v4/posts":
			var post map[string]any
			_ = json.Unmarshal(body, &post)
			post["id"] = "created-post-id"
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(post)
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "not found: " + r.URL.Path})
		}
	})
}

// newFakeMatrix simulates the Matrix send event endpoint.
func newFakeMatrix() *fakeServer {
	var n int
	var mu sync.Mutex
	return newFakeServer(func(w http.ResponseWriter, r *http.Request, _ []byte) {
		switch {
		// PUT /_matrix/client/v3/rooms/{roomID}/send/m.room.message/{txnID}
		case r.Method == http.MethodPut && strings.Contains(r.URL.Path, "/send/m.room.message/"):
			mu.Lock()
			n++
			eventID := "$event" + strconv.Itoa(n)
			mu.Unlock()
			_ = json.NewEncoder(w).Encode(map[string]string{"event_id": eventID})
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"errcode": "M_NOT_FOUND", "error": "not found"})
		}
	})
}

// newFakeSlackWeb simulates Slack Web API methods for a real *slack.Client.
// responses maps a method name such as "files.sharedPublicURL" to its JSON
// reply.
func newFakeSlackWeb(responses map[string]string) *fakeServer {
	return newFakeServer(func(w http.ResponseWriter, r *http.Request, _ []byte) {
		method := strings.TrimPrefix(r.URL.Path, "/")
		resp, ok := responses[method]
		if !ok {
			resp = `{"ok":false,"error":"unknown_method"}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(resp))
	})
}

// newTestConfig returns a processed config for HTTP mode listening on C1.
func newTestConfig(t testing.TB) *Config {
	t.Helper()
	cfg := &Config{
		Slack: SlackConfig{
			BotToken:          "xoxb-test",
			SigningSecret:     testSigningSecret,
			ListeningChannels: []string{"C1"},
		},
		Discord: DiscordConfig{
			BotToken:      "discord-token",
			ChannelID:     "D1",
			MentionRoleID: "42",
		},
		DisplaynameTemplate: "{{or .DisplayName .RealName}}",
	}
	if err := cfg.PostProcess(); err != nil {
		t.Fatalf("PostProcess: %v", err)
	}
	return cfg
}

// testConnector bundles a connector with its fakes.
type testConnector struct {
	*SlackConnector
	api    *fakeSlackAPI
	sharer *fakeSharer
	sink   *fakeSink
}

// newTestConnector creates a connector backed by fakes. The relay is not
// running until startRelay is called.
func newTestConnector(t testing.TB) *testConnector {
	t.Helper()
	api := newFakeSlackAPI()
	api.Channels["C1"] = "general-chat"
	api.addUser("U1", "alice", "Alice Liddell")
	sharer := &fakeSharer{}
	sink := newFakeSink("fake")
	sc, err := NewSlackConnector(context.Background(), newTestConfig(t), zerolog.Nop(), Deps{
		API:    api,
		Sharer: sharer,
		Dedup:  NewMemoryDeduper(time.Minute),
		Sinks:  []Sink{sink},
	})
	if err != nil {
		t.Fatalf("NewSlackConnector: %v", err)
	}
	return &testConnector{SlackConnector: sc, api: api, sharer: sharer, sink: sink}
}

// startRelay runs the relay until the test ends.
func (tc *testConnector) startRelay(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = tc.relay.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

// signRequest adds a valid Slack request signature for body.
func signRequest(req *http.Request, secret string, body []byte) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte("v0:" + ts + ":"))
	_, _ = mac.Write(body)
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
}

// messageCallback builds an Events API callback body for a message event.
func messageCallback(eventID string, event map[string]any) []byte {
	if _, ok := event["type"]; !ok {
		event["type"] = "message"
	}
	body, _ := json.Marshal(map[string]any{
		"token":      "verification-token",
		"team_id":    "T1",
		"api_app_id": "A1",
		"type":       "event_callback",
		"event_id":   eventID,
		"event_time": 1700000000,
		"event":      event,
	})
	return body
}

// richText builds the blocks of a message made of one plain text section.
func richText(text string) []map[string]any {
	return []map[string]any{{
		"type":     "rich_text",
		"block_id": "b1",
		"elements": []map[string]any{{
			"type": "rich_text_section",
			"elements": []map[string]any{{
				"type": "text",
				"text": text,
			}},
		}},
	}}
}
