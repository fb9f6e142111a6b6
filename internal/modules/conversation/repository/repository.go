package repository

import (
	"context"

	"github.com/reshetovitsme/insta-autoreply/internal/modules/conversation/domain"
)

// Repository defines the interface for transcript persistence
type Repository interface {
	// Append writes all messages in one transaction, in order.
	Append(ctx context.Context, messages ...*domain.ChatMessage) error
	// Pair returns the latest limit messages exchanged between a and b in
	// either direction, oldest first.
	Pair(ctx context.Context, a, b string, limit int) ([]domain.ChatMessage, error)
	// Recent returns the latest limit messages of an automation, newest first.
	Recent(ctx context.Context, automationID string, limit int) ([]domain.ChatMessage, error)
}
