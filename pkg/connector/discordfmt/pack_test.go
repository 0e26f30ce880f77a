// Copyright 2024-2026 Aiku AI

package discordfmt

import (
	"testing"
	"time"
)

var testEnvelope = Envelope{
	ChannelLabel:  "announcements",
	AuthorName:    "alice",
	AuthorIconURL: "https://avatars/alice.png",
	TeamName:      "ACE Coding",
	TeamIconURL:   "https://icons/team.png",
	Timestamp:     time.Unix(1700000000, 500000000),
}

var testOptions = Options{MentionRoleID: "42"}

const testMention = "<@&42> New message posted in the Announcements channel!"

func assertFooter(t *testing.T, u Unit, idx int) {
	t.Helper()
	if u.FooterText != testEnvelope.TeamName || u.FooterIconURL != testEnvelope.TeamIconURL || !u.Timestamp.Equal(testEnvelope.Timestamp) {
		t.Errorf("unit %d footer: got (%q, %q, %v)", idx, u.FooterText, u.FooterIconURL, u.Timestamp)
	}
}

func assertNoFooter(t *testing.T, u Unit, idx int) {
	t.Helper()
	if u.HasFooter() {
		t.Errorf("unit %d should have no footer, got (%q, %q, %v)", idx, u.FooterText, u.FooterIconURL, u.Timestamp)
	}
}

// --- Pack ---

func TestPackTextOnly(t *testing.T) {
	t.Parallel()
	units := Pack("hello", nil, testEnvelope, testOptions)
	if len(units) != 1 {
		t.Fatalf("unit count: got %d, want 1", len(units))
	}
	u := units[0]
	if u.Description != "hello" {
		t.Errorf("Description: got %q, want %q", u.Description, "hello")
	}
	if u.ImageURL != "" {
		t.Errorf("ImageURL: got %q, want empty", u.ImageURL)
	}
	if u.Mention != testMention {
		t.Errorf("Mention: got %q, want %q", u.Mention, testMention)
	}
	if u.AuthorName != "alice" || u.AuthorIconURL != "https://avatars/alice.png" {
		t.Errorf("author: got (%q, %q)", u.AuthorName, u.AuthorIconURL)
	}
	assertFooter(t, u, 0)
}

func TestPackSingleImage(t *testing.T) {
	t.Parallel()
	units := Pack("caption", []string{"https://img/1"}, testEnvelope, testOptions)
	if len(units) != 1 {
		t.Fatalf("unit count: got %d, want 1", len(units))
	}
	if units[0].Description != "caption" || units[0].ImageURL != "https://img/1" {
		t.Errorf("unit: got (%q, %q)", units[0].Description, units[0].ImageURL)
	}
	assertFooter(t, units[0], 0)
}

func TestPackSingleImageNoText(t *testing.T) {
	t.Parallel()
	units := Pack("", []string{"https://img/1"}, testEnvelope, testOptions)
	if len(units) != 1 {
		t.Fatalf("unit count: got %d, want 1", len(units))
	}
	if units[0].Description != "" || units[0].ImageURL != "https://img/1" {
		t.Errorf("unit: got (%q, %q)", units[0].Description, units[0].ImageURL)
	}
	if units[0].Mention != testMention {
		t.Errorf("Mention: got %q", units[0].Mention)
	}
}

func TestPackEmpty(t *testing.T) {
	t.Parallel()
	units := Pack("", nil, testEnvelope, testOptions)
	if len(units) != 1 {
		t.Fatalf("unit count: got %d, want 1", len(units))
	}
	assertFooter(t, units[0], 0)
}

func TestPackImagesNoText(t *testing.T) {
	t.Parallel()
	units := Pack("", []string{"https://img/1", "https://img/2"}, testEnvelope, testOptions)
	if len(units) != 2 {
		t.Fatalf("unit count: got %d, want 2", len(units))
	}
	for i, u := range units {
		if u.Description != "" {
			t.Errorf("unit %d Description: got %q, want empty", i, u.Description)
		}
	}
	assertNoFooter(t, units[0], 0)
	assertFooter(t, units[1], 1)
	if units[0].Mention != testMention {
		t.Errorf("first image unit should carry the mention, got %q", units[0].Mention)
	}
	if units[0].AuthorName != "alice" {
		t.Errorf("first image unit should carry the author, got %q", units[0].AuthorName)
	}
	if units[1].Mention != "" || units[1].AuthorName != "" {
		t.Errorf("second unit: got mention %q author %q, want none", units[1].Mention, units[1].AuthorName)
	}
}

func TestPackTextAndImages(t *testing.T) {
	t.Parallel()
	images := []string{"https://img/1", "https://img/2"}
	units := Pack("hello", images, testEnvelope, testOptions)
	if len(units) != 3 {
		t.Fatalf("unit count: got %d, want 3", len(units))
	}
	if units[0].Description != "hello" || units[0].ImageURL != "" {
		t.Errorf("unit 0: got (%q, %q), want text only", units[0].Description, units[0].ImageURL)
	}
	if units[0].Mention != testMention {
		t.Errorf("unit 0 Mention: got %q", units[0].Mention)
	}
	assertNoFooter(t, units[0], 0)
	for i, img := range images {
		u := units[i+1]
		if u.ImageURL != img || u.Description != "" || u.Mention != "" {
			t.Errorf("unit %d: got (%q, %q, %q)", i+1, u.Description, u.ImageURL, u.Mention)
		}
	}
	assertNoFooter(t, units[1], 1)
	assertFooter(t, units[2], 2)
}

func TestPackImageOrder(t *testing.T) {
	t.Parallel()
	images := []string{"a", "b", "c", "d", "e"}
	units := Pack("", images, testEnvelope, testOptions)
	if len(units) != len(images) {
		t.Fatalf("unit count: got %d, want %d", len(units), len(images))
	}
	for i, u := range units {
		if u.ImageURL != images[i] {
			t.Errorf("unit %d: got %q, want %q", i, u.ImageURL, images[i])
		}
		if (i == len(units)-1) != u.HasFooter() {
			t.Errorf("unit %d HasFooter: got %v", i, u.HasFooter())
		}
	}
}

func TestPackNoChannelLabel(t *testing.T) {
	t.Parallel()
	env := testEnvelope
	env.ChannelLabel = ""
	units := Pack("hi", []string{"a", "b"}, env, testOptions)
	for i, u := range units {
		if u.Mention != "" {
			t.Errorf("unit %d Mention: got %q, want empty", i, u.Mention)
		}
	}
}

func TestPackEmptyEnvelope(t *testing.T) {
	t.Parallel()
	units := Pack("hi", nil, Envelope{}, Options{})
	if len(units) != 1 {
		t.Fatalf("unit count: got %d, want 1", len(units))
	}
	if units[0].HasFooter() || units[0].Mention != "" || units[0].AuthorName != "" {
		t.Errorf("unit: got %+v, want bare description", units[0])
	}
}

// --- Mention / TitleCase ---

func TestMention(t *testing.T) {
	t.Parallel()
	tests := []struct {
		role, channel, want string
	}{
		{"42", "general", "<@&42> New message posted in the General channel!"},
		{"42", "dev-ops-team", "<@&42> New message posted in the Dev Ops Team channel!"},
		{"", "general", "New message posted in the General channel!"},
		{"42", "", ""},
	}
	for _, tt := range tests {
		if got := Mention(tt.role, tt.channel); got != tt.want {
			t.Errorf("Mention(%q, %q): got %q, want %q", tt.role, tt.channel, got, tt.want)
		}
	}
}

func TestTitleCase(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want string
	}{
		{"announcements", "Announcements"},
		{"team news", "Team News"},
		{"LOUD channel", "Loud Channel"},
		{"dev2ops", "Dev2Ops"},
		{"it's", "It'S"},
		{"été  chat", "Été  Chat"},
		{"", ""},
		{"123", "123"},
	}
	for _, tt := range tests {
		if got := TitleCase(tt.in); got != tt.want {
			t.Errorf("TitleCase(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}
