// Package services contains server-side business logic: the credential store,
// the message vault and the bulk export adapter.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/securemsg/internal/common"
	"github.com/dmitrijs2005/securemsg/internal/cryptox"
	"github.com/dmitrijs2005/securemsg/internal/logging"
	"github.com/dmitrijs2005/securemsg/internal/server/auth"
	"github.com/dmitrijs2005/securemsg/internal/server/metrics"
	"github.com/dmitrijs2005/securemsg/internal/server/models"
	"github.com/dmitrijs2005/securemsg/internal/server/repositories/repomanager"
)

// UserService registers users, checks passwords and starts and ends
// sessions. It is safe for concurrent use.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenService
	params      cryptox.PasswordParams
	log         logging.Logger
	metrics     *metrics.Registry

	// dummyHash is verified against for unknown users so that a miss costs
	// as much as a hit.
	dummyHash string
}

// NewUserService constructs a UserService. New password hashes use params.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenService,
	params cryptox.PasswordParams, log logging.Logger, mr *metrics.Registry) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		params:      params,
		log:         log.With("module", "users"),
		metrics:     mr,
		dummyHash:   cryptox.HashPassword(common.GenerateRandByteArray(16), cryptox.NewSalt(), params),
	}
}

// Register stores a new user with a fresh salt. A taken username is
// common.ErrDuplicateUser; any other store failure is common.ErrStoreUnavailable.
func (s *UserService) Register(ctx context.Context, username, password, email string) (*models.User, error) {
	salt := cryptox.NewSalt()
	user := &models.User{
		UserName:     username,
		Salt:         salt,
		PasswordHash: cryptox.HashPassword([]byte(password), salt, s.params),
		Email:        email,
	}

	u, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateUser) {
			return nil, err
		}
		s.log.Error(ctx, "create user failed", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	s.log.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// VerifyCredentials reports whether password belongs to username. Unknown
// users, store failures and mismatches are all false.
func (s *UserService) VerifyCredentials(ctx context.Context, username, password string) bool {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.log.Error(ctx, "load user failed", "error", err)
		}
		_, _ = cryptox.VerifyPassword([]byte(password), cryptox.NewSalt(), s.dummyHash)
		return false
	}

	ok, err := cryptox.VerifyPassword([]byte(password), user.Salt, user.PasswordHash)
	if err != nil {
		s.log.Error(ctx, "stored password hash unreadable", "user_id", user.ID, "error", err)
		return false
	}
	return ok
}

// Login checks credentials and issues a session token. Every failure is
// common.ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, username, password string) (*auth.Token, error) {
	if !s.VerifyCredentials(ctx, username, password) {
		s.metrics.Login(false)
		return nil, common.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(username)
	if err != nil {
		s.log.Error(ctx, "issue token failed", "error", err)
		s.metrics.Login(false)
		return nil, common.ErrInvalidCredentials
	}

	s.metrics.Login(true)
	return token, nil
}

// Logout revokes the session token raw.
func (s *UserService) Logout(ctx context.Context, raw string) error {
	if err := s.tokens.Revoke(ctx, raw); err != nil {
		if !errors.Is(err, common.ErrInvalidToken) {
			s.log.Error(ctx, "revoke token failed", "error", err)
		}
		return err
	}
	s.metrics.Revoked()
	return nil
}

// Authenticate verifies a session token and returns its identity.
func (s *UserService) Authenticate(ctx context.Context, raw string) (*auth.Identity, error) {
	return s.tokens.Verify(ctx, raw)
}

// UserExists reports whether username is registered.
func (s *UserService) UserExists(ctx context.Context, username string) (bool, error) {
	ok, err := s.repomanager.Users(s.db).Exists(ctx, username)
	if err != nil {
		s.log.Error(ctx, "user lookup failed", "error", err)
		return false, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return ok, nil
}
