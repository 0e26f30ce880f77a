// Copyright 2024-2026 Aiku AI

package connector

import (
	"context"
	"errors"
	"fmt"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/aiku/slackcord/pkg/connector/discordfmt"
	"github.com/aiku/slackcord/pkg/connector/slackfmt"
)

// relayedSubtypes are the message subtypes that announce a new message.
// Edits, deletions, joins and the like are never relayed.
var relayedSubtypes = map[string]bool{
	"":                 true,
	"file_share":       true,
	"thread_broadcast": true,
}

const (
	skipSubtype = "subtype"
	skipChannel = "channel"
	skipEmpty   = "empty"
	skipEcho    = "echo"
	skipDup     = "duplicate"
)

// handleSocketEvent processes one socket mode event. Events API envelopes are
// acknowledged before the message is processed.
func (sc *SlackConnector) handleSocketEvent(ctx context.Context, evt socketmode.Event, ack func(socketmode.Request)) {
	log := sc.Log.With().Str("transport", "socket").Logger()
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		log.Info().Msg("Connecting to Slack socket mode")
	case socketmode.EventTypeConnected:
		log.Info().Msg("Connected to Slack socket mode")
	case socketmode.EventTypeConnectionError:
		log.Warn().Any("data", evt.Data).Msg("Slack socket mode connection error")
	case socketmode.EventTypeInvalidAuth:
		log.Error().Msg("Slack rejected the app-level token")
	case socketmode.EventTypeEventsAPI:
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			log.Warn().Type("data_type", evt.Data).Msg("Unexpected events API payload")
			return
		}
		if evt.Request != nil {
			ack(*evt.Request)
		}
		eventsReceived.WithLabelValues("socket").Inc()
		sc.dispatch(ctx, apiEvent)
	default:
		log.Trace().Str("event_type", string(evt.Type)).Msg("Ignoring socket mode event")
	}
}

// dispatch routes a parsed Events API callback to the message pipeline.
func (sc *SlackConnector) dispatch(ctx context.Context, apiEvent slackevents.EventsAPIEvent) {
	if apiEvent.Type != slackevents.CallbackEvent {
		return
	}
	ev, ok := apiEvent.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		sc.Log.Trace().Str("inner_type", apiEvent.InnerEvent.Type).Msg("Ignoring non-message event")
		return
	}
	eventID := ""
	if cb, ok := apiEvent.Data.(*slackevents.EventsAPICallbackEvent); ok {
		eventID = cb.EventID
	}
	if reason := sc.skipReason(ev); reason != "" {
		eventsSkipped.WithLabelValues(reason).Inc()
		sc.Log.Trace().
			Str("channel_id", ev.Channel).
			Str("ts", ev.TimeStamp).
			Str("reason", reason).
			Msg("Skipping message event")
		return
	}
	key := eventID
	if key == "" {
		key = MessageKey(ev.Channel, ev.TimeStamp)
	}
	if sc.duplicate(ctx, key) {
		eventsSkipped.WithLabelValues(skipDup).Inc()
		sc.Log.Debug().
			Str("event_id", eventID).
			Str("channel_id", ev.Channel).
			Str("ts", ev.TimeStamp).
			Msg("Dropping redelivered event")
		return
	}
	if err := sc.process(ctx, ev); err != nil {
		sc.Log.Err(err).
			Str("channel_id", ev.Channel).
			Str("ts", ev.TimeStamp).
			Msg("Failed to relay message")
		// Let a redelivery of the same event try again.
		if err := sc.dedup.Forget(context.WithoutCancel(ctx), key); err != nil {
			sc.Log.Warn().Err(err).Str("key", key).Msg("Failed to release event key")
		}
	}
}

// skipReason returns why ev is not relayed, or "" if it should be.
func (sc *SlackConnector) skipReason(ev *slackevents.MessageEvent) string {
	switch {
	case !relayedSubtypes[ev.SubType]:
		return skipSubtype
	case !sc.IsListening(ev.Channel):
		return skipChannel
	case ev.Message == nil:
		return skipEmpty
	case sc.botUserID != "" && ev.User == sc.botUserID,
		sc.botID != "" && ev.BotID == sc.botID:
		return skipEcho
	}
	return ""
}

// duplicate reports whether the event was already handled. Failures of the
// dedup store let the event through.
func (sc *SlackConnector) duplicate(ctx context.Context, key string) bool {
	seen, err := sc.dedup.Seen(ctx, key)
	if err != nil {
		sc.Log.Warn().Err(err).Str("key", key).Msg("Failed to check event redelivery")
		return false
	}
	return seen
}

func (sc *SlackConnector) process(ctx context.Context, ev *slackevents.MessageEvent) error {
	msg := ev.Message
	if msg.Timestamp == "" {
		msg.Timestamp = ev.TimeStamp
	}
	if msg.Username == "" {
		msg.Username = ev.Username
	}
	if msg.User == "" {
		msg.User = ev.User
	}
	n, err := sc.BuildNotification(ctx, ev.Channel, msg)
	if err != nil {
		return err
	}
	if err := sc.relay.Enqueue(ctx, n); err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	sc.Log.Debug().
		Stringer("notification_id", n.ID).
		Str("channel_id", ev.Channel).
		Str("ts", msg.Timestamp).
		Int("units", len(n.Units)).
		Msg("Queued notification")
	return nil
}

// BuildNotification renders msg into the units posted to every sink.
func (sc *SlackConnector) BuildNotification(ctx context.Context, channelID string, msg *slack.Msg) (*Notification, error) {
	if msg == nil {
		return nil, errors.New("nil message")
	}
	ctx = sc.Log.With().Str("channel_id", channelID).Logger().WithContext(ctx)
	renderer := slackfmt.NewRenderer(
		SlackUsers{API: sc.api},
		slackfmt.EmojiResolver{Custom: NewWorkspaceEmoji(sc.api)},
	)
	text := renderText(ctx, renderer, msg)
	images := sc.publisher.Publish(ctx, slackfmt.CollectImages(msg.Files))
	env := sc.directory.Envelope(ctx, channelID, msg)
	units := discordfmt.Pack(text, images, env, discordfmt.Options{
		MentionRoleID: sc.Config.Discord.MentionRoleID,
	})
	return NewNotification(channelID, msg.Timestamp, units), nil
}
