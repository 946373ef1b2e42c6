package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/otpchat/chat-api/internal/core/domain"
)

type MessageRepository struct {
	mu     sync.RWMutex
	byUser map[string][]*domain.Message
}

func NewMessageRepository() *MessageRepository {
	return &MessageRepository{byUser: make(map[string][]*domain.Message)}
}

func (r *MessageRepository) Create(_ context.Context, m *domain.Message) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *m
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	r.byUser[stored.UserID] = append(r.byUser[stored.UserID], &stored)
	out := stored
	return &out, nil
}

func (r *MessageRepository) ListRecent(_ context.Context, userID string, limit int) ([]*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.byUser[userID]
	out := make([]*domain.Message, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		c := *all[i]
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MessageRepository) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.byUser[userID]
	for i, m := range msgs {
		if m.ID == id {
			r.byUser[userID] = append(msgs[:i], msgs[i+1:]...)
			return nil
		}
	}
	return domain.ErrMessageNotFound
}

func (r *MessageRepository) DeleteAll(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.byUser[userID]))
	delete(r.byUser, userID)
	return n, nil
}
