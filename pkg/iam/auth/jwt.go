package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/robypag/scentsmith/pkg/iam"
)

// Claims are the token claims the platform issues and accepts.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenService validates HS256 bearer tokens.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a validator over a shared secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// Validate parses and verifies a token string.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, iam.Errors().New(iam.ErrInvalidToken).
				WithDetail("alg", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, iam.Errors().NewWithCause(iam.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Email == "" {
		return nil, iam.Errors().New(iam.ErrInvalidToken)
	}
	return claims, nil
}
