package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/keyfold/keyfold/internal/pkg/ulid"
)

// ErrTokenInvalid is returned when an API token fails verification,
// including tokens revoked by logout.
var ErrTokenInvalid = errors.New("token: invalid")

const tokenKeyPrefix = "token:"

// TokenStore tracks issued token IDs so tokens can be revoked.
// Satisfied by database.Redis.
type TokenStore interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Exists(ctx context.Context, keys ...string) (int64, error)
	Delete(ctx context.Context, keys ...string) error
}

// TokenService issues, verifies, and revokes API tokens.
type TokenService interface {
	// Issue mints a signed token for the user.
	Issue(ctx context.Context, userID uuid.UUID) (string, error)

	// Verify checks the token signature, expiry, and revocation state,
	// returning the user it was issued to.
	Verify(ctx context.Context, token string) (uuid.UUID, error)

	// Revoke invalidates a token. Revoking an already-revoked or unknown
	// token is not an error.
	Revoke(ctx context.Context, token string) error
}

type tokenService struct {
	secret []byte
	expiry time.Duration
	store  TokenStore
}

// NewTokenService creates a token service signing with the given secret.
func NewTokenService(secret string, expiry time.Duration, store TokenStore) TokenService {
	if expiry == 0 {
		expiry = 24 * time.Hour
	}
	return &tokenService{
		secret: []byte(secret),
		expiry: expiry,
		store:  store,
	}
}

func (s *tokenService) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	now := time.Now()
	jti := ulid.New()

	claims := jwt.RegisteredClaims{
		ID:        jti,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	if err := s.store.Set(ctx, tokenKeyPrefix+jti, userID.String(), s.expiry); err != nil {
		return "", fmt.Errorf("registering token: %w", err)
	}
	return signed, nil
}

func (s *tokenService) Verify(ctx context.Context, token string) (uuid.UUID, error) {
	claims, err := s.parse(token)
	if err != nil {
		return uuid.Nil, ErrTokenInvalid
	}

	// A token whose ID is gone from the store was revoked or expired.
	n, err := s.store.Exists(ctx, tokenKeyPrefix+claims.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("checking token state: %w", err)
	}
	if n == 0 {
		return uuid.Nil, ErrTokenInvalid
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrTokenInvalid
	}
	return userID, nil
}

func (s *tokenService) Revoke(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return nil
	}
	return s.store.Delete(ctx, tokenKeyPrefix+claims.ID)
}

func (s *tokenService) parse(token string) (*jwt.RegisteredClaims, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}

// Compile-time check to ensure tokenService implements TokenService.
var _ TokenService = (*tokenService)(nil)
