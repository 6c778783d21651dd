package api

import (
	"context"

	"washroom-tracker-client/internal/notification"
	"washroom-tracker-client/internal/occupancy"
)

// PushPublisher accepts raw push payloads.
type PushPublisher interface {
	Publish(ctx context.Context, origin notification.Origin, raw []byte) (notification.Event, error)
}

// ViewSource supplies the current occupancy view.
type ViewSource interface {
	View() occupancy.View
}

// TokenSource resolves the device's push token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	push   PushPublisher
	views  ViewSource
	tokens TokenSource
}

// NewHandler creates a new API handler.
func NewHandler(push PushPublisher, views ViewSource, tokens TokenSource) *Handler {
	return &Handler{
		push:   push,
		views:  views,
		tokens: tokens,
	}
}
