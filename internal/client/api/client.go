// Package api is the typed HTTP transport for the chat REST API. Every
// response is decoded from the shared envelope and normalized into one
// shape per call; failures come back as *Error with a Kind.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// User is the normalized identity returned by the server.
type User struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phoneNumber"`
	FullName    string `json:"fullname"`
	IsVerified  bool   `json:"isVerified"`
}

// Registration is a pending sign-up awaiting OTP verification.
type Registration struct {
	PhoneNumber string
	FullName    string
}

// Session is what a successful verify or login hands back.
type Session struct {
	User        User
	AccessToken string
}

type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New returns a Client rooted at baseURL, e.g. "http://localhost:8000/api/v1".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

// wireUser accepts both "id" and "_id" for the identifier.
type wireUser struct {
	ID          string `json:"id"`
	LegacyID    string `json:"_id"`
	PhoneNumber string `json:"phoneNumber"`
	FullName    string `json:"fullname"`
	IsVerified  bool   `json:"isVerified"`
}

func (w wireUser) normalize() User {
	id := w.ID
	if id == "" {
		id = w.LegacyID
	}
	return User{ID: id, PhoneNumber: w.PhoneNumber, FullName: w.FullName, IsVerified: w.IsVerified}
}

type tokenPayload struct {
	User        *wireUser `json:"user"`
	AccessToken string    `json:"accessToken"`
}

func (p tokenPayload) session() (*Session, error) {
	if p.AccessToken == "" || p.User == nil {
		return nil, &Error{Kind: KindMalformed, Message: "response is missing the user or access token"}
	}
	u := p.User.normalize()
	if u.ID == "" {
		return nil, &Error{Kind: KindMalformed, Message: "response user has no id"}
	}
	return &Session{User: u, AccessToken: p.AccessToken}, nil
}

// Register submits a phone number and name. It is also the resend call.
func (c *Client) Register(ctx context.Context, phone, fullName string) (*Registration, error) {
	var out struct {
		PhoneNumber string `json:"phoneNumber"`
		FullName    string `json:"fullname"`
	}
	body := map[string]string{"phoneNumber": phone, "fullname": fullName}
	if err := c.do(ctx, http.MethodPost, "/user/register", "", body, &out); err != nil {
		return nil, err
	}
	if out.PhoneNumber == "" {
		return nil, &Error{Kind: KindMalformed, Message: "response is missing the phone number"}
	}
	return &Registration{PhoneNumber: out.PhoneNumber, FullName: out.FullName}, nil
}

func (c *Client) VerifyOTP(ctx context.Context, phone, code string) (*Session, error) {
	var out tokenPayload
	body := map[string]string{"phoneNumber": phone, "otp": code}
	if err := c.do(ctx, http.MethodPost, "/user/verify-otp", "", body, &out); err != nil {
		return nil, err
	}
	return out.session()
}

func (c *Client) Login(ctx context.Context, phone string) (*Session, error) {
	var out tokenPayload
	if err := c.do(ctx, http.MethodPost, "/user/login", "", map[string]string{"phoneNumber": phone}, &out); err != nil {
		return nil, err
	}
	return out.session()
}

func (c *Client) CurrentUser(ctx context.Context, token string) (*User, error) {
	var out wireUser
	if err := c.do(ctx, http.MethodGet, "/user/current-user", token, nil, &out); err != nil {
		return nil, err
	}
	u := out.normalize()
	if u.ID == "" {
		return nil, &Error{Kind: KindMalformed, Message: "response user has no id"}
	}
	return &u, nil
}

// Logout notifies the server. The token stays valid server-side.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/user/logout", token, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return &Error{Kind: KindNetwork, Message: "could not reach the server", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Kind: KindNetwork, Status: resp.StatusCode, Message: "connection dropped while reading the response", Err: err}
	}
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("response")

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= http.StatusBadRequest || (decodeErr == nil && !env.Success) {
		status := resp.StatusCode
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(status)
		}
		if status < http.StatusBadRequest {
			return &Error{Kind: KindMalformed, Status: status, Message: msg}
		}
		return &Error{Kind: kindForStatus(status), Status: status, Message: msg}
	}
	if decodeErr != nil {
		return &Error{Kind: KindMalformed, Status: resp.StatusCode, Message: "response is not a valid envelope", Err: decodeErr}
	}

	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &Error{Kind: KindMalformed, Status: resp.StatusCode, Message: "response has no data"}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Kind: KindMalformed, Status: resp.StatusCode, Message: "response data has an unexpected shape", Err: err}
	}
	return nil
}
