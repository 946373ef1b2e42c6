package ports

import (
	"context"

	"github.com/otpchat/chat-api/internal/core/domain"
)

type MessageService interface {
	Send(ctx context.Context, userID, content string) (*domain.Message, error)
	// List returns the most recent messages in chronological order.
	List(ctx context.Context, userID string, limit int) ([]*domain.Message, error)
	Delete(ctx context.Context, userID, id string) error
	Clear(ctx context.Context, userID string) (int64, error)
}
