// Package auth issues and verifies signed session tokens and keeps the
// revocation set consulted on every verification.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/securemsg/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the session lifetime used when none is configured.
const DefaultTokenTTL = 600 * time.Second

// Token is a freshly issued session token.
type Token struct {
	Raw       string
	Subject   string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Identity is what a verified token asserts.
type Identity struct {
	Username  string
	TokenID   string
	ExpiresAt time.Time
}

// TokenService signs session tokens with HS256 and checks them against a
// RevocationStore. It is safe for concurrent use.
type TokenService struct {
	secret  []byte
	ttl     time.Duration
	revoked RevocationStore
	now     func() time.Time
}

// Option configures a TokenService.
type Option func(*TokenService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService returns a TokenService. A non-positive ttl means
// DefaultTokenTTL.
func NewTokenService(secret []byte, ttl time.Duration, revoked RevocationStore, opts ...Option) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	if revoked == nil {
		return nil, errors.New("revocation store is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	s := &TokenService{
		secret:  append([]byte(nil), secret...),
		ttl:     ttl,
		revoked: revoked,
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a new token for subject.
func (s *TokenService) Issue(subject string) (*Token, error) {
	if subject == "" {
		return nil, errors.New("empty subject")
	}

	now := s.now().Truncate(time.Second)
	t := &Token{
		Subject:   subject,
		TokenID:   uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	claims := jwt.RegisteredClaims{
		Subject:   t.Subject,
		ID:        t.TokenID,
		IssuedAt:  jwt.NewNumericDate(t.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(t.ExpiresAt),
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	t.Raw = raw

	return t, nil
}

// Verify checks signature, expiry and revocation. Every failure, including
// an unreachable revocation store, is common.ErrInvalidToken.
func (s *TokenService) Verify(ctx context.Context, raw string) (*Identity, error) {
	claims, err := s.parse(raw, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil || revoked {
		return nil, common.ErrInvalidToken
	}

	return &Identity{
		Username:  claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke adds the token to the revocation set. The signature must verify;
// an authentic token that has already expired needs no entry. Revoking the
// same token twice is harmless.
func (s *TokenService) Revoke(ctx context.Context, raw string) error {
	claims, err := s.parse(raw, jwt.WithoutClaimsValidation())
	if err != nil {
		return common.ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		return common.ErrInvalidToken
	}

	exp := claims.ExpiresAt.Time
	if !s.now().Before(exp) {
		return nil
	}

	if err := s.revoked.Revoke(ctx, claims.ID, exp); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *TokenService) parse(raw string, opts ...jwt.ParserOption) (*jwt.RegisteredClaims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.NewParser(opts...).ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
