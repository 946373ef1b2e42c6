package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/otpchat/chat-api/internal/core/domain"
)

// UserContextKey is where the Auth middleware stores the resolved record.
const UserContextKey = "user"

// currentUser returns the record placed in the context by the Auth
// middleware. A missing value means the route was not gated.
func currentUser(c echo.Context) (*domain.User, error) {
	user, _ := c.Get(UserContextKey).(*domain.User)
	if user == nil || user.ID == "" {
		return nil, domain.ErrUnauthorized
	}
	return user, nil
}
