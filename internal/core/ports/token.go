package ports

import "github.com/otpchat/chat-api/internal/core/domain"

// TokenIssuer mints and checks stateless bearer tokens.
type TokenIssuer interface {
	Issue(userID, phone string) (string, error)
	Verify(token string) (*domain.Claims, error)
}
