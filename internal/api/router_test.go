package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/otpchat/chat-api/internal/core/service"
	"github.com/otpchat/chat-api/internal/infrastructure/db/memory"
)

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

type testServer struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	users := memory.NewUserRepository()
	otp := service.NewOTPIssuer(service.StaticCodeGenerator{Code: "123456"}, time.Minute)
	tokens := service.NewJWTIssuer("test-secret", time.Hour)
	auth := service.NewAuthService(users, otp, tokens, nil, zerolog.Nop())
	messages := service.NewMessageService(memory.NewMessageRepository(), zerolog.Nop())

	e := NewRouter(Deps{
		Auth:          auth,
		Authenticator: auth,
		Messages:      messages,
		Log:           zerolog.Nop(),
		Registry:      prometheus.NewRegistry(),
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return &testServer{t: t, srv: srv}
}

func (s *testServer) do(method, path, token, body string) (int, envelope) {
	s.t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, strings.NewReader(body))
	if err != nil {
		s.t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		s.t.Fatalf("%s %s: invalid json: %v", method, path, err)
	}
	if env.StatusCode != resp.StatusCode {
		s.t.Fatalf("envelope statusCode %d does not match HTTP %d", env.StatusCode, resp.StatusCode)
	}
	return resp.StatusCode, env
}

func TestRouter_RegisterVerifyCurrentUser(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(http.MethodPost, "/api/v1/user/register", "", `{"phoneNumber":"9876543210","fullname":"Jane Doe"}`)
	if code != http.StatusCreated || !env.Success {
		t.Fatalf("register: expected 201, got %d (%s)", code, env.Message)
	}

	code, env = s.do(http.MethodPost, "/api/v1/user/verify-otp", "", `{"phoneNumber":"9876543210","otp":"123456"}`)
	if code != http.StatusOK {
		t.Fatalf("verify: expected 200, got %d (%s)", code, env.Message)
	}
	var verified struct {
		User struct {
			ID         string `json:"id"`
			IsVerified bool   `json:"isVerified"`
		} `json:"user"`
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(env.Data, &verified); err != nil {
		t.Fatalf("verify data: %v", err)
	}
	if verified.AccessToken == "" || !verified.User.IsVerified || verified.User.ID == "" {
		t.Fatalf("unexpected verify payload: %s", env.Data)
	}

	code, env = s.do(http.MethodGet, "/api/v1/user/current-user", verified.AccessToken, "")
	if code != http.StatusOK {
		t.Fatalf("current-user: expected 200, got %d (%s)", code, env.Message)
	}
	var me map[string]any
	if err := json.Unmarshal(env.Data, &me); err != nil {
		t.Fatalf("current-user data: %v", err)
	}
	if me["fullname"] != "Jane Doe" || me["phoneNumber"] != "9876543210" || me["isVerified"] != true {
		t.Fatalf("unexpected current user: %+v", me)
	}
	if _, ok := me["otp"]; ok {
		t.Fatalf("otp must not be exposed")
	}

	// Same code a second time: the OTP has been cleared.
	code, _ = s.do(http.MethodPost, "/api/v1/user/verify-otp", "", `{"phoneNumber":"9876543210","otp":"123456"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("second verify: expected 400, got %d", code)
	}

	// Re-registering a verified number conflicts.
	code, _ = s.do(http.MethodPost, "/api/v1/user/register", "", `{"phoneNumber":"9876543210","fullname":"Jane Doe"}`)
	if code != http.StatusConflict {
		t.Fatalf("re-register: expected 409, got %d", code)
	}

	// Login is passwordless once verified.
	code, env = s.do(http.MethodPost, "/api/v1/user/login", "", `{"phoneNumber":"9876543210"}`)
	if code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", code, env.Message)
	}

	code, _ = s.do(http.MethodPost, "/api/v1/user/logout", verified.AccessToken, "")
	if code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", code)
	}
	// The token is stateless and still valid after logout.
	code, _ = s.do(http.MethodGet, "/api/v1/user/current-user", verified.AccessToken, "")
	if code != http.StatusOK {
		t.Fatalf("current-user after logout: expected 200, got %d", code)
	}
}

func TestRouter_LoginUnknownNumber(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(http.MethodPost, "/api/v1/user/login", "", `{"phoneNumber":"9123456789"}`)
	if code != http.StatusNotFound || env.Success {
		t.Fatalf("expected 404 failure envelope, got %d %+v", code, env)
	}
}

func TestRouter_LoginBeforeVerification(t *testing.T) {
	s := newTestServer(t)

	s.do(http.MethodPost, "/api/v1/user/register", "", `{"phoneNumber":"9876543210","fullname":"Jane Doe"}`)
	code, env := s.do(http.MethodPost, "/api/v1/user/login", "", `{"phoneNumber":"9876543210"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if env.Message != "please verify your phone number first" {
		t.Fatalf("unexpected message: %q", env.Message)
	}
}

func TestRouter_ValidationFailures(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		path, body string
	}{
		{"/api/v1/user/register", `{"fullname":"Jane Doe"}`},
		{"/api/v1/user/register", `{"phoneNumber":"5876543210","fullname":"Jane Doe"}`},
		{"/api/v1/user/register", `{"phoneNumber":"9876543210","fullname":"J"}`},
		{"/api/v1/user/verify-otp", `{"phoneNumber":"9876543210"}`},
		{"/api/v1/user/login", `{}`},
	}
	for _, tc := range cases {
		code, env := s.do(http.MethodPost, tc.path, "", tc.body)
		if code != http.StatusBadRequest || env.Success {
			t.Fatalf("%s %s: expected 400, got %d", tc.path, tc.body, code)
		}
	}

	code, _ := s.do(http.MethodPost, "/api/v1/user/verify-otp", "", `{"phoneNumber":"9000000000","otp":"123456"}`)
	if code != http.StatusNotFound {
		t.Fatalf("verify unknown number: expected 404, got %d", code)
	}
}

func TestRouter_GateRejections(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(http.MethodGet, "/api/v1/user/current-user", "", "")
	if code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", code)
	}
	code, _ = s.do(http.MethodGet, "/api/v1/user/current-user", "not-a-jwt", "")
	if code != http.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401, got %d", code)
	}
	code, _ = s.do(http.MethodGet, "/api/v1/message", "", "")
	if code != http.StatusUnauthorized {
		t.Fatalf("messages without token: expected 401, got %d", code)
	}
	code, _ = s.do(http.MethodPost, "/api/v1/user/logout", "not-a-jwt", "")
	if code != http.StatusOK {
		t.Fatalf("logout never hard-fails: got %d", code)
	}
}

func TestRouter_Messages(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/api/v1/user/register", "", `{"phoneNumber":"9876543210","fullname":"Jane Doe"}`)
	_, env := s.do(http.MethodPost, "/api/v1/user/verify-otp", "", `{"phoneNumber":"9876543210","otp":"123456"}`)
	var auth struct {
		AccessToken string `json:"accessToken"`
	}
	_ = json.Unmarshal(env.Data, &auth)

	for _, content := range []string{"first", "second", "third"} {
		code, _ := s.do(http.MethodPost, "/api/v1/message/send", auth.AccessToken, `{"content":"`+content+`"}`)
		if code != http.StatusCreated {
			t.Fatalf("send %s: expected 201, got %d", content, code)
		}
	}

	code, env := s.do(http.MethodGet, "/api/v1/message?limit=2", auth.AccessToken, "")
	if code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", code)
	}
	var list struct {
		Messages []struct {
			ID      string `json:"id"`
			Content string `json:"content"`
		} `json:"messages"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("list data: %v", err)
	}
	if list.Count != 2 || list.Messages[0].Content != "second" || list.Messages[1].Content != "third" {
		t.Fatalf("expected the two most recent in order, got %+v", list)
	}

	code, _ = s.do(http.MethodDelete, "/api/v1/message/"+list.Messages[0].ID, auth.AccessToken, "")
	if code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", code)
	}
	code, _ = s.do(http.MethodDelete, "/api/v1/message/"+list.Messages[0].ID, auth.AccessToken, "")
	if code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", code)
	}

	code, env = s.do(http.MethodDelete, "/api/v1/message/clear-all", auth.AccessToken, "")
	if code != http.StatusOK {
		t.Fatalf("clear: expected 200, got %d", code)
	}
	if !strings.Contains(string(env.Data), `"deletedCount":2`) {
		t.Fatalf("unexpected clear payload: %s", env.Data)
	}
}

func TestRouter_HealthRoutes(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(http.MethodGet, "/api/v1/user/health", "", "")
	if code != http.StatusOK || env.Message != "Server is running" {
		t.Fatalf("unexpected health response: %d %+v", code, env)
	}

	resp, err := http.Get(s.srv.URL + "/health/ready")
	if err != nil {
		t.Fatalf("ready: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ready with no dependencies: expected 200, got %d", resp.StatusCode)
	}
}
