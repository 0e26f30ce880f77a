// Copyright 2024-2026 Aiku AI

package connector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aiku/slackcord/pkg/connector/discordfmt"
)

var (
	// ErrQueueFull is returned by Enqueue when the relay cannot accept more
	// notifications.
	ErrQueueFull = errors.New("relay queue is full")
	// ErrNoSinks is returned by Run when no delivery target is configured.
	ErrNoSinks = errors.New("relay has no sinks")
)

// Notification is a Slack message packed for delivery.
type Notification struct {
	ID             uuid.UUID
	SlackChannelID string
	SlackTS        string
	Units          []discordfmt.Unit
}

// NewNotification creates a Notification with a fresh ID.
func NewNotification(channelID, ts string, units []discordfmt.Unit) *Notification {
	return &Notification{
		ID:             uuid.New(),
		SlackChannelID: channelID,
		SlackTS:        ts,
		Units:          units,
	}
}

// Sink delivers notifications to one destination. Units must be delivered
// in order.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, n *Notification) error
}

// Relay owns a bounded queue of notifications and the worker that delivers
// them to every sink.
type Relay struct {
	queue   chan *Notification
	sinks   []Sink
	timeout time.Duration
	log     zerolog.Logger
}

// NewRelay creates a relay with room for size queued notifications. Each
// delivery to a sink is bounded by timeout.
func NewRelay(size int, timeout time.Duration, log zerolog.Logger, sinks ...Sink) *Relay {
	if size <= 0 {
		size = 1
	}
	return &Relay{
		queue:   make(chan *Notification, size),
		sinks:   sinks,
		timeout: timeout,
		log:     log.With().Str("component", "relay").Logger(),
	}
}

// Enqueue adds n to the queue without waiting for room.
func (r *Relay) Enqueue(ctx context.Context, n *Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case r.queue <- n:
		notificationsEnqueued.Inc()
		queueDepth.Set(float64(len(r.queue)))
		return nil
	default:
		notificationsRejected.Inc()
		return ErrQueueFull
	}
}

// Len returns the number of notifications waiting in the queue.
func (r *Relay) Len() int { return len(r.queue) }

// Run delivers queued notifications until ctx is cancelled. Notifications
// still queued at that point are delivered before Run returns.
func (r *Relay) Run(ctx context.Context) error {
	if len(r.sinks) == 0 {
		return ErrNoSinks
	}
	names := make([]string, len(r.sinks))
	for i, s := range r.sinks {
		names[i] = s.Name()
	}
	r.log.Info().Strs("sinks", names).Int("queue_size", cap(r.queue)).Msg("Relay started")

	for {
		select {
		case <-ctx.Done():
			r.drain(context.WithoutCancel(ctx))
			r.log.Info().Msg("Relay stopped")
			return nil
		case n := <-r.queue:
			queueDepth.Set(float64(len(r.queue)))
			_ = r.Deliver(ctx, n)
		}
	}
}

func (r *Relay) drain(ctx context.Context) {
	for {
		select {
		case n := <-r.queue:
			queueDepth.Set(float64(len(r.queue)))
			_ = r.Deliver(ctx, n)
		default:
			return
		}
	}
}

// Deliver sends n to every sink concurrently. Failures are logged and the
// first one is returned.
func (r *Relay) Deliver(ctx context.Context, n *Notification) error {
	log := r.log.With().
		Str("notification_id", n.ID.String()).
		Str("channel_id", n.SlackChannelID).
		Str("ts", n.SlackTS).
		Logger()

	var g errgroup.Group
	for _, sink := range r.sinks {
		g.Go(func() error {
			start := time.Now()
			sctx := ctx
			if r.timeout > 0 {
				var cancel context.CancelFunc
				sctx, cancel = context.WithTimeout(ctx, r.timeout)
				defer cancel()
			}
			err := sink.Deliver(log.WithContext(sctx), n)
			deliveryDuration.WithLabelValues(sink.Name()).Observe(time.Since(start).Seconds())
			if err != nil {
				deliveries.WithLabelValues(sink.Name(), "error").Inc()
				log.Error().Err(err).Str("sink", sink.Name()).Msg("Failed to deliver notification")
				return fmt.Errorf("%s: %w", sink.Name(), err)
			}
			deliveries.WithLabelValues(sink.Name(), "ok").Inc()
			log.Debug().Str("sink", sink.Name()).Int("units", len(n.Units)).Msg("Delivered notification")
			return nil
		})
	}
	return g.Wait()
}
