//go:generate go run go.uber.org/mock/mockgen -source=channels.go -destination=../mocks/mock_channels.go -package=mocks
package service

import (
	"context"

	"github.com/cydxin/presence-sdk/hub"
	"github.com/cydxin/presence-sdk/models"
)

// Broadcaster writes one event to every connection of a room.
type Broadcaster interface {
	Broadcast(roomID, event string, payload any) (hub.BroadcastResult, error)
}

// PushSender delivers a notification to the user's mobile devices.
type PushSender interface {
	Send(ctx context.Context, userID string, n *models.Notification) error
}

// Mailer delivers a notification by email.
type Mailer interface {
	Send(ctx context.Context, userID string, n *models.Notification) error
}
