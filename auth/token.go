package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/ammiranda/forest_service/config"
	"github.com/ammiranda/forest_service/models"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload issued at login
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and parses HS256 access tokens
type TokenService struct {
	issuer   string
	audience string
	key      []byte
	lifetime time.Duration
}

// NewTokenService creates a token service from validated auth settings
func NewTokenService(cfg *config.AuthConfig) *TokenService {
	return &TokenService{
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		key:      []byte(cfg.Key),
		lifetime: cfg.Lifetime,
	}
}

// Lifetime returns how long issued tokens stay valid
func (s *TokenService) Lifetime() time.Duration {
	return s.lifetime
}

// Issue signs a token for p valid from now for the configured lifetime
func (s *TokenService) Issue(p Principal, now time.Time) (string, error) {
	claims := Claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Username,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse validates a token and returns its principal.
// Every failure wraps models.ErrUnauthorized.
func (s *TokenService) Parse(tokenStr string) (Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	if !token.Valid {
		return Principal{}, fmt.Errorf("%w: invalid token", models.ErrUnauthorized)
	}

	role, err := ParseRole(string(claims.Role))
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return Principal{}, fmt.Errorf("%w: %v", models.ErrUnauthorized, errors.New("token has no subject"))
	}
	return Principal{Username: claims.Subject, Role: role}, nil
}
