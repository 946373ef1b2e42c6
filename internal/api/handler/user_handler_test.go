package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/otpchat/chat-api/internal/core/domain"
	"github.com/otpchat/chat-api/internal/core/ports"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, phone, fullName string) (*domain.User, error)
	verifyFn   func(ctx context.Context, phone, code string) (*ports.AuthResult, error)
	loginFn    func(ctx context.Context, phone string) (*ports.AuthResult, error)
}

func (s *stubAuthService) Register(ctx context.Context, phone, fullName string) (*domain.User, error) {
	return s.registerFn(ctx, phone, fullName)
}

func (s *stubAuthService) VerifyOTP(ctx context.Context, phone, code string) (*ports.AuthResult, error) {
	return s.verifyFn(ctx, phone, code)
}

func (s *stubAuthService) Login(ctx context.Context, phone string) (*ports.AuthResult, error) {
	return s.loginFn(ctx, phone)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func postJSON(e *echo.Echo, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp
}

func TestUserHandler_Register_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, phone, fullName string) (*domain.User, error) {
			if phone != "9876543210" || fullName != "Jane Doe" {
				t.Fatalf("unexpected args: %s %s", phone, fullName)
			}
			return &domain.User{ID: "u1", PhoneNumber: phone, FullName: fullName}, nil
		},
	}
	h := NewUserHandler(stub, zerolog.Nop())

	c, rec := postJSON(e, "/api/v1/user/register", `{"phoneNumber":"9876543210","fullname":"Jane Doe"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	resp := decodeEnvelope(t, rec)
	if resp["success"] != true || resp["statusCode"] != float64(http.StatusCreated) {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	data, ok := resp["data"].(map[string]any)
	if !ok || data["phoneNumber"] != "9876543210" || data["fullname"] != "Jane Doe" {
		t.Fatalf("unexpected data: %+v", resp["data"])
	}
	if _, leaked := data["otp"]; leaked {
		t.Fatalf("otp must never be returned")
	}
}

func TestUserHandler_Register_RejectsBadPhoneBeforeService(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		registerFn: func(context.Context, string, string) (*domain.User, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	h := NewUserHandler(stub, zerolog.Nop())

	for _, body := range []string{`{"fullname":"Jane Doe"}`, `{"phoneNumber":"1234567890"}`, "not-json"} {
		c, _ := postJSON(e, "/api/v1/user/register", body)
		err := h.Register(c)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("body %q: expected validation error, got %v", body, err)
		}
	}
}

func TestUserHandler_Register_PropagatesConflict(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		registerFn: func(context.Context, string, string) (*domain.User, error) {
			return nil, domain.ErrUserExists
		},
	}
	h := NewUserHandler(stub, zerolog.Nop())

	c, _ := postJSON(e, "/api/v1/user/register", `{"phoneNumber":"9876543210"}`)
	if err := h.Register(c); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestUserHandler_VerifyOTP_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		verifyFn: func(ctx context.Context, phone, code string) (*ports.AuthResult, error) {
			if phone != "9876543210" || code != "123456" {
				t.Fatalf("unexpected args: %s %s", phone, code)
			}
			return &ports.AuthResult{
				User:        &domain.User{ID: "u1", PhoneNumber: phone, FullName: "Jane Doe", IsVerified: true},
				AccessToken: "token123",
			}, nil
		},
	}
	h := NewUserHandler(stub, zerolog.Nop())

	c, rec := postJSON(e, "/api/v1/user/verify-otp", `{"phoneNumber":"9876543210","otp":"123456"}`)
	if err := h.VerifyOTP(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["accessToken"] != "token123" {
		t.Fatalf("expected token, got %v", data["accessToken"])
	}
	user := data["user"].(map[string]any)
	if user["id"] != "u1" || user["isVerified"] != true || user["phoneNumber"] != "9876543210" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
	if _, ok := user["fullname"]; ok {
		t.Fatalf("verify-otp user payload carries only id, phoneNumber, isVerified")
	}
}

func TestUserHandler_VerifyOTP_MissingFields(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		verifyFn: func(context.Context, string, string) (*ports.AuthResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	h := NewUserHandler(stub, zerolog.Nop())

	c, _ := postJSON(e, "/api/v1/user/verify-otp", `{"phoneNumber":"9876543210"}`)
	if err := h.VerifyOTP(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUserHandler_VerifyOTP_MalformedCode(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		verifyFn: func(context.Context, string, string) (*ports.AuthResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	h := NewUserHandler(stub, zerolog.Nop())

	c, _ := postJSON(e, "/api/v1/user/verify-otp", `{"phoneNumber":"9876543210","otp":"12a45"}`)
	err := h.VerifyOTP(c)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ve.Message != "please enter the complete 6-digit OTP" {
		t.Fatalf("unexpected message: %q", ve.Message)
	}
}

func TestUserHandler_Login_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, phone string) (*ports.AuthResult, error) {
			return &ports.AuthResult{
				User:        &domain.User{ID: "u1", PhoneNumber: phone, FullName: "Jane Doe", IsVerified: true},
				AccessToken: "token123",
			}, nil
		},
	}
	h := NewUserHandler(stub, zerolog.Nop())

	c, rec := postJSON(e, "/api/v1/user/login", `{"phoneNumber":"9876543210"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	user := data["user"].(map[string]any)
	if data["accessToken"] != "token123" || user["fullname"] != "Jane Doe" {
		t.Fatalf("unexpected payload: %+v", data)
	}
}

func TestUserHandler_Login_NotFound(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		loginFn: func(context.Context, string) (*ports.AuthResult, error) {
			return nil, domain.ErrUserNotFound
		},
	}
	h := NewUserHandler(stub, zerolog.Nop())

	c, _ := postJSON(e, "/api/v1/user/login", `{"phoneNumber":"9123456789"}`)
	if err := h.Login(c); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserHandler_CurrentUser(t *testing.T) {
	e := newTestEcho()
	h := NewUserHandler(&stubAuthService{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/current-user", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(UserContextKey, &domain.User{
		ID: "u1", PhoneNumber: "9876543210", FullName: "Jane Doe", IsVerified: true,
		OTP: &domain.OTP{CodeHash: "hash"},
	})

	if err := h.CurrentUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if strings.Contains(rec.Body.String(), "hash") {
		t.Fatalf("otp hash leaked: %s", rec.Body.String())
	}
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["fullname"] != "Jane Doe" || data["isVerified"] != true {
		t.Fatalf("unexpected user payload: %+v", data)
	}
}

func TestUserHandler_CurrentUser_WithoutGate(t *testing.T) {
	e := newTestEcho()
	h := NewUserHandler(&stubAuthService{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/current-user", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	if err := h.CurrentUser(c); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestUserHandler_Logout_AlwaysAcknowledges(t *testing.T) {
	e := newTestEcho()
	h := NewUserHandler(&stubAuthService{}, zerolog.Nop())

	c, rec := postJSON(e, "/api/v1/user/logout", ``)
	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
