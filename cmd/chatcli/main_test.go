package main

import (
	"fmt"
	"testing"

	"github.com/otpchat/chat-api/internal/client/api"
	"github.com/otpchat/chat-api/internal/client/authflow"
)

func TestDescribe(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "network failure suggests retry",
			err:  &api.Error{Kind: api.KindNetwork, Message: "could not reach the server"},
			want: "Error: could not reach the server. Please try again.",
		},
		{
			name: "wrapped server failure suggests retry",
			err:  fmt.Errorf("login: %w", &api.Error{Kind: api.KindServer, Status: 500, Message: "internal server error"}),
			want: "Error: internal server error. Please try again.",
		},
		{
			name: "validation failure asks for new input",
			err:  &api.Error{Kind: api.KindValidation, Status: 400, Message: "invalid or expired OTP"},
			want: "Error: invalid or expired OTP",
		},
		{
			name: "conflict is shown as is",
			err:  &api.Error{Kind: api.KindConflict, Status: 409, Message: "user with this phone number already exists"},
			want: "Error: user with this phone number already exists",
		},
		{
			name: "local flow error",
			err:  authflow.ErrBusy,
			want: "Error: a request is already in progress",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := describe(tc.err); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
