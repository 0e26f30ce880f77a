// Copyright 2024-2026 Aiku AI

package connector

import (
	"context"
	"fmt"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// MatrixAPI is the part of the Matrix client-server API the sink uses.
// *mautrix.Client implements it.
type MatrixAPI interface {
	SendMessageEvent(ctx context.Context, roomID id.RoomID, eventType event.Type, contentJSON any, extra ...mautrix.ReqSendEvent) (*mautrix.RespSendEvent, error)
}

var _ MatrixAPI = (*mautrix.Client)(nil)

// NewMatrixClient creates a Matrix client authenticated with an access token.
func NewMatrixClient(cfg MatrixConfig) (*mautrix.Client, error) {
	client, err := mautrix.NewClient(cfg.HomeserverURL, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create matrix client: %w", err)
	}
	return client, nil
}

// MatrixSink mirrors notifications into a Matrix room, one text message per
// unit.
type MatrixSink struct {
	api    MatrixAPI
	roomID id.RoomID
}

var _ Sink = (*MatrixSink)(nil)

// NewMatrixSink creates a sink posting to cfg.RoomID.
func NewMatrixSink(api MatrixAPI, cfg MatrixConfig) *MatrixSink {
	return &MatrixSink{api: api, roomID: id.RoomID(cfg.RoomID)}
}

func (s *MatrixSink) Name() string { return "matrix" }

// Deliver implements Sink.
func (s *MatrixSink) Deliver(ctx context.Context, n *Notification) error {
	for i, unit := range n.Units {
		content := matrixContent(unit)
		if content.Body == "" {
			continue
		}
		if _, err := s.api.SendMessageEvent(ctx, s.roomID, event.EventMessage, content); err != nil {
			return fmt.Errorf("failed to send unit %d of %d: %w", i+1, len(n.Units), err)
		}
	}
	return nil
}
