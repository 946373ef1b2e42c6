package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/otpchat/chat-api/internal/core/domain"
)

// DefaultTokenTTL applies when no expiry is configured.
const DefaultTokenTTL = 24 * time.Hour

// accessClaims is the JWT payload. The user id travels as "_id".
type accessClaims struct {
	UserID      string `json:"_id"`
	PhoneNumber string `json:"phoneNumber"`
	jwt.RegisteredClaims
}

// JWTIssuer signs HS256 bearer tokens. Verification is purely stateless:
// signature and expiry only.
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTIssuer(secret string, ttl time.Duration) *JWTIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (j *JWTIssuer) Issue(userID, phone string) (string, error) {
	now := j.now()
	claims := accessClaims{
		UserID:      userID,
		PhoneNumber: phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(j.secret)
}

func (j *JWTIssuer) Verify(token string) (*domain.Claims, error) {
	if token == "" {
		return nil, domain.ErrInvalidToken
	}
	var claims accessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return j.secret, nil
	}, jwt.WithTimeFunc(j.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, errors.Join(domain.ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return nil, domain.ErrInvalidToken
	}

	out := &domain.Claims{
		UserID:      claims.UserID,
		PhoneNumber: claims.PhoneNumber,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
