package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/otpchat/chat-api/internal/core/domain"
)

func TestMessageRepository_ListRecentNewestFirst(t *testing.T) {
	repo := NewMessageRepository()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, content := range []string{"a", "b", "c", "d"} {
		_, _ = repo.Create(ctx, &domain.Message{UserID: "u1", Content: content, CreatedAt: base.Add(time.Duration(i) * time.Second)})
	}
	// Same timestamp as "d": insertion order breaks the tie.
	_, _ = repo.Create(ctx, &domain.Message{UserID: "u1", Content: "e", CreatedAt: base.Add(3 * time.Second)})

	got, err := repo.ListRecent(ctx, "u1", 3)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	want := []string{"e", "d", "c"}
	for i := range want {
		if got[i].Content != want[i] {
			t.Fatalf("position %d: expected %q, got %q", i, want[i], got[i].Content)
		}
	}
}

func TestMessageRepository_DeleteScopedToUser(t *testing.T) {
	repo := NewMessageRepository()
	ctx := context.Background()

	m, _ := repo.Create(ctx, &domain.Message{UserID: "u1", Content: "hello"})
	if m.ID == "" {
		t.Fatalf("expected generated id")
	}
	if err := repo.Delete(ctx, "u2", m.ID); !errors.Is(err, domain.ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, "u1", m.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	_, _ = repo.Create(ctx, &domain.Message{UserID: "u1", Content: "x"})
	_, _ = repo.Create(ctx, &domain.Message{UserID: "u2", Content: "y"})
	if n, _ := repo.DeleteAll(ctx, "u1"); n != 1 {
		t.Fatalf("expected 1 deleted, got %d", n)
	}
	if left, _ := repo.ListRecent(ctx, "u2", 10); len(left) != 1 {
		t.Fatalf("other user's messages must survive")
	}
}
