// Package auth issues and verifies the signed session tokens carried in
// the session cookie, and checks that a caller owns the data it reads.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/cuongbtq/jobmarket-be/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the session lifetime when none is configured
const DefaultTTL = 365 * 24 * time.Hour

var (
	ErrMissingEmail     = errors.New("identity email is required")
	ErrInvalidSignature = errors.New("invalid session token")
	ErrExpired          = errors.New("session token expired")
)

// Identity is the authenticated caller
type Identity struct {
	Email string `json:"email"`
}

// Claims is the JWT payload
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies session tokens with a shared HMAC secret
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service. A non-positive ttl uses DefaultTTL.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns the lifetime of issued tokens
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for the identity
func (s *TokenService) Issue(identity Identity) (string, error) {
	if identity.Email == "" {
		return "", ErrMissingEmail
	}

	now := s.now()
	claims := &Claims{
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded identity
func (s *TokenService) Verify(token string) (Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpired
		}
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	if !parsed.Valid || claims.Email == "" {
		return Identity{}, ErrInvalidSignature
	}
	return Identity{Email: claims.Email}, nil
}

// Authorize fails with domain.ErrUnauthorized unless the caller owns ownerEmail
func Authorize(caller Identity, ownerEmail string) error {
	if caller.Email == "" || caller.Email != ownerEmail {
		return domain.ErrUnauthorized
	}
	return nil
}
