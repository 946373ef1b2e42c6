package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/otpchat/chat-api/internal/core/domain"
)

type stubMessageService struct {
	sendFn   func(ctx context.Context, userID, content string) (*domain.Message, error)
	listFn   func(ctx context.Context, userID string, limit int) ([]*domain.Message, error)
	deleteFn func(ctx context.Context, userID, id string) error
	clearFn  func(ctx context.Context, userID string) (int64, error)
}

func (s *stubMessageService) Send(ctx context.Context, userID, content string) (*domain.Message, error) {
	return s.sendFn(ctx, userID, content)
}

func (s *stubMessageService) List(ctx context.Context, userID string, limit int) ([]*domain.Message, error) {
	return s.listFn(ctx, userID, limit)
}

func (s *stubMessageService) Delete(ctx context.Context, userID, id string) error {
	return s.deleteFn(ctx, userID, id)
}

func (s *stubMessageService) Clear(ctx context.Context, userID string) (int64, error) {
	return s.clearFn(ctx, userID)
}

var jane = &domain.User{ID: "u1", PhoneNumber: "9876543210", FullName: "Jane Doe", IsVerified: true}

func TestMessageHandler_Send(t *testing.T) {
	e := newTestEcho()
	stub := &stubMessageService{
		sendFn: func(ctx context.Context, userID, content string) (*domain.Message, error) {
			if userID != "u1" || content != "hello" {
				t.Fatalf("unexpected args: %s %s", userID, content)
			}
			return &domain.Message{ID: "m1", UserID: userID, Content: content, Type: domain.MessageSent}, nil
		},
	}
	h := NewMessageHandler(stub)

	c, rec := postJSON(e, "/api/v1/message/send", `{"content":"hello"}`)
	c.Set(UserContextKey, jane)
	if err := h.Send(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["id"] != "m1" || data["type"] != "sent" {
		t.Fatalf("unexpected message payload: %+v", data)
	}
}

func TestMessageHandler_Send_EmptyContent(t *testing.T) {
	e := newTestEcho()
	h := NewMessageHandler(&stubMessageService{
		sendFn: func(context.Context, string, string) (*domain.Message, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	})

	c, _ := postJSON(e, "/api/v1/message/send", `{"content":""}`)
	c.Set(UserContextKey, jane)
	if err := h.Send(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMessageHandler_List_ParsesLimit(t *testing.T) {
	e := newTestEcho()
	var gotLimit int
	h := NewMessageHandler(&stubMessageService{
		listFn: func(_ context.Context, _ string, limit int) ([]*domain.Message, error) {
			gotLimit = limit
			return []*domain.Message{{ID: "m1"}, {ID: "m2"}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/message?limit=20", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(UserContextKey, jane)

	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if gotLimit != 20 {
		t.Fatalf("expected limit 20, got %d", gotLimit)
	}
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["count"] != float64(2) {
		t.Fatalf("unexpected count: %v", data["count"])
	}
}

func TestMessageHandler_List_BadLimit(t *testing.T) {
	e := newTestEcho()
	h := NewMessageHandler(&stubMessageService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/message?limit=abc", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set(UserContextKey, jane)

	if err := h.List(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMessageHandler_Delete_NotFound(t *testing.T) {
	e := newTestEcho()
	h := NewMessageHandler(&stubMessageService{
		deleteFn: func(_ context.Context, userID, id string) error {
			if userID != "u1" || id != "m9" {
				t.Fatalf("unexpected args: %s %s", userID, id)
			}
			return domain.ErrMessageNotFound
		},
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/message/m9", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("messageId")
	c.SetParamValues("m9")
	c.Set(UserContextKey, jane)

	if err := h.Delete(c); !errors.Is(err, domain.ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestMessageHandler_Clear(t *testing.T) {
	e := newTestEcho()
	h := NewMessageHandler(&stubMessageService{
		clearFn: func(context.Context, string) (int64, error) { return 3, nil },
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/message/clear-all", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(UserContextKey, jane)

	if err := h.Clear(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["deletedCount"] != float64(3) {
		t.Fatalf("unexpected payload: %+v", data)
	}
}

func TestReadinessHandler_ReportsFailingDependency(t *testing.T) {
	e := echo.New()
	h := NewReadinessHandler(
		DependencyCheck{Name: "mongodb", Ping: func(context.Context) error { return nil }},
		DependencyCheck{Name: "redis", Ping: func(context.Context) error { return errors.New("connection refused") }},
	)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	if err := h.Readiness(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	deps := resp["dependencies"].(map[string]any)
	if deps["mongodb"].(map[string]any)["status"] != "ok" || deps["redis"].(map[string]any)["status"] != "unhealthy" {
		t.Fatalf("unexpected dependencies: %+v", deps)
	}
}
