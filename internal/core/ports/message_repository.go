package ports

import (
	"context"

	"github.com/otpchat/chat-api/internal/core/domain"
)

// MessageRepository persists chat messages. Every query is scoped to a user.
type MessageRepository interface {
	Create(ctx context.Context, m *domain.Message) (*domain.Message, error)
	// ListRecent returns at most limit messages, newest first.
	ListRecent(ctx context.Context, userID string, limit int) ([]*domain.Message, error)
	// Delete removes one message; a foreign or unknown id yields domain.ErrMessageNotFound.
	Delete(ctx context.Context, userID, id string) error
	DeleteAll(ctx context.Context, userID string) (int64, error)
}
