// Copyright 2024-2026 Aiku AI

package connector

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// FuzzParseTimestamp: arbitrary Slack timestamps must either parse to a UTC
// time or fail, and parsing is deterministic.
// ---------------------------------------------------------------------------

func FuzzParseTimestamp(f *testing.F) {
	f.Add("1700000000.000100")
	f.Add("1700000000")
	f.Add("1700000000.")
	f.Add(".5")
	f.Add("")
	f.Add("-1.5")
	f.Add("99999999999999999999.1")
	f.Add("1700000000.1234567891234")

	f.Fuzz(func(t *testing.T, ts string) {
		got, err := ParseTimestamp(ts)
		got2, err2 := ParseTimestamp(ts)
		if (err == nil) != (err2 == nil) || !got.Equal(got2) {
			t.Fatalf("non-deterministic: ParseTimestamp(%q)", ts)
		}
		if err != nil {
			return
		}
		if got.Location() != time.UTC {
			t.Errorf("ParseTimestamp(%q) is not UTC", ts)
		}
		if !strings.Contains(ts, ".") && got.Nanosecond() != 0 {
			t.Errorf("ParseTimestamp(%q) has a fraction without a dot", ts)
		}
	})
}

// ---------------------------------------------------------------------------
// FuzzFormatDisplayname: template rendering with arbitrary parameters must
// never panic and never return blank when a fallback exists.
// ---------------------------------------------------------------------------

func FuzzFormatDisplayname(f *testing.F) {
	f.Add("alice", "Alice Liddell", "alice.liddell", "{{.DisplayName}}")
	f.Add("", "Bob", "bob", "{{or .DisplayName .RealName}}")
	f.Add("", "", "", "")
	f.Add("carol", "", "", "{{.Missing}}")
	f.Add(string([]byte{0x00}), "x", "y", "{{.Username}}")

	f.Fuzz(func(t *testing.T, displayName, realName, username, tmpl string) {
		cfg := &Config{DisplaynameTemplate: tmpl}
		// A template that fails to parse leaves displaynameTemplate nil.
		_ = cfg.PostProcess()

		result := cfg.FormatDisplayname(DisplaynameParams{
			DisplayName: displayName,
			RealName:    realName,
			Username:    username,
		})

		fallback := displayName
		if fallback == "" {
			fallback = realName
		}
		if cfg.displaynameTemplate == nil && result != fallback {
			t.Errorf("nil template should return %q, got %q", fallback, result)
		}
		if strings.TrimSpace(result) == "" && result != fallback {
			t.Errorf("blank result %q should fall back to %q", result, fallback)
		}
	})
}

// ---------------------------------------------------------------------------
// FuzzPlainMention: role tokens never survive and the rest of the mention is
// kept.
// ---------------------------------------------------------------------------

func FuzzPlainMention(f *testing.F) {
	f.Add("<@&42> New message posted in the General channel!")
	f.Add("<@&> hi")
	f.Add("<@&12><@&34> twice")
	f.Add("")
	f.Add("<@!42> user ping")

	f.Fuzz(func(t *testing.T, mention string) {
		got := plainMention(mention)
		if roleMentionRe.MatchString(got) {
			t.Errorf("plainMention(%q) = %q still holds a role token", mention, got)
		}
		if got != strings.TrimSpace(got) {
			t.Errorf("plainMention(%q) = %q is not trimmed", mention, got)
		}
	})
}

// ---------------------------------------------------------------------------
// FuzzHandleSlackEvents: signed request bodies of any shape must never panic
// the handler and only ever produce the documented status codes.
// ---------------------------------------------------------------------------

func FuzzHandleSlackEvents(f *testing.F) {
	f.Add([]byte(`{"type":"url_verification","challenge":"abc"}`))
	f.Add(messageCallback("Ev1", userMessage("C1", "1700000000.000100", "hi")))
	f.Add(messageCallback("Ev2", map[string]any{"type": "message", "subtype": "message_changed", "channel": "C1"}))
	f.Add([]byte(`{"type":"event_callback","event":{"type":"message"}}`))
	f.Add([]byte(`{"type":"event_callback","event":null}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`[]`))
	f.Add([]byte(`not json`))

	tc := newTestConnector(f)
	router := tc.Router()

	f.Fuzz(func(t *testing.T, body []byte) {
		req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewReader(body))
		signRequest(req, testSigningSecret, body)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		switch w.Code {
		case http.StatusOK, http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		default:
			t.Errorf("unexpected status %d for %q", w.Code, body)
		}
		tc.inflight.Wait()
		// Keep the queue from filling up across iterations.
		for tc.relay.Len() > 0 {
			<-tc.relay.queue
		}
	})
}
