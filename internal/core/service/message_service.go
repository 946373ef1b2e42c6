package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/otpchat/chat-api/internal/core/domain"
	"github.com/otpchat/chat-api/internal/core/ports"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 100
)

type MessageService struct {
	repo ports.MessageRepository
	log  zerolog.Logger
}

func NewMessageService(repo ports.MessageRepository, log zerolog.Logger) *MessageService {
	return &MessageService{repo: repo, log: log}
}

// Send stores the user's message. No replies are generated.
func (s *MessageService) Send(ctx context.Context, userID, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.NewValidationError("content", "message content is required")
	}
	if utf8.RuneCountInString(content) > domain.MaxMessageLength {
		return nil, domain.NewValidationError("content", "message cannot exceed 1000 characters")
	}

	msg := &domain.Message{
		UserID:    userID,
		Content:   content,
		Type:      domain.MessageSent,
		CreatedAt: time.Now().UTC(),
	}
	created, err := s.repo.Create(ctx, msg)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("failed to store message")
		return nil, err
	}
	return created, nil
}

func (s *MessageService) List(ctx context.Context, userID string, limit int) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = defaultMessageLimit
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}

	msgs, err := s.repo.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	// newest-first from the store, oldest-first for display
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *MessageService) Delete(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.ErrMessageNotFound
	}
	return s.repo.Delete(ctx, userID, id)
}

func (s *MessageService) Clear(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.DeleteAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.log.Info().Str("user_id", userID).Int64("deleted", n).Msg("messages cleared")
	return n, nil
}
