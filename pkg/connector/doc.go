// Copyright 2024-2026 Aiku AI

// Package connector relays Slack channel messages to Discord, with optional
// mirrors into Mattermost and Matrix.
//
// Slack events arrive either on the signed HTTP endpoint at
// POST /slack/events or over socket mode. Each message from a listened
// channel is rendered to Discord markup, packed into embed-sized units and
// queued for delivery to every configured sink.
//
// # Core Types
//
// [SlackConnector] owns the lifecycle: the HTTP server, the socket mode
// client, the listened channel set and the relay. The channel set can be
// replaced at runtime through POST /api/reload-channels.
//
// [Relay] is a bounded queue drained by one worker. A [Notification] is
// delivered to every [Sink] concurrently, each with its own timeout. Within a
// sink the units are posted in order.
//
// [Directory] resolves channel names, authors and the workspace icon, caching
// what Slack returns between messages.
//
// # Echo and Duplicate Filtering
//
// Messages posted by the relay's own bot user are dropped, as are edits,
// deletions and other non-user subtypes. Slack redelivers events it thinks
// were not acknowledged; a [Deduper] remembers event IDs for a configurable
// TTL, in memory or in Redis when several relays share a workspace.
//
// # Sub-packages
//
//   - slackfmt converts Slack rich text blocks to Discord markup and
//     publishes attached images.
//   - discordfmt packs rendered text into Discord embed units.
//   - matrixfmt converts Discord markup to Matrix HTML.
package connector
