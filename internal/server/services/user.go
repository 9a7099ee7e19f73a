// Package services contains server-side business logic: accounts and tokens,
// media storage, and the lifecycle of submitted posts.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/postkeeper/internal/common"
	"github.com/dmitrijs2005/postkeeper/internal/dbx"
	"github.com/dmitrijs2005/postkeeper/internal/server/auth"
	"github.com/dmitrijs2005/postkeeper/internal/server/config"
	"github.com/dmitrijs2005/postkeeper/internal/server/models"
	"github.com/dmitrijs2005/postkeeper/internal/server/repositories/repomanager"
)

// decoySaltSize matches the salt length clients generate at registration.
const decoySaltSize = 32

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserService owns the accounts that posts belong to. It never sees
// passwords, only the salt and verifier the client derived.
type UserService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager

	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:         db,
		repos:      m,
		secret:     []byte(cfg.SecretKey),
		accessTTL:  cfg.AccessTokenValidityDuration,
		refreshTTL: cfg.RefreshTokenValidityDuration,
		now:        time.Now,
	}
}

// Register stores a new account. A taken user name yields
// common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, username string, salt, verifier []byte) (*models.User, error) {
	u, err := s.repos.Users(s.db).Create(ctx, &models.User{UserName: username, Salt: salt, Verifier: verifier})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// GetSalt returns the salt for userName. Unknown users get a random salt so
// the answer does not reveal whether the account exists.
func (s *UserService) GetSalt(ctx context.Context, userName string) ([]byte, error) {
	u, err := s.lookup(ctx, userName)
	if errors.Is(err, common.ErrorNotFound) {
		return common.GenerateRandByteArray(decoySaltSize), nil
	}
	if err != nil {
		return nil, err
	}
	return u.Salt, nil
}

// Login checks the verifier in constant time and issues a token pair.
func (s *UserService) Login(ctx context.Context, userName string, verifier []byte) (*TokenPair, error) {
	u, err := s.lookup(ctx, userName)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(u.Verifier, verifier) != 1 {
		return nil, common.ErrorUnauthorized
	}
	return s.issue(ctx, s.db, u.ID)
}

// RefreshToken exchanges a valid refresh token for a new pair. The old token
// is deleted in the same transaction the new one is stored in.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	stored, err := s.repos.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if stored.ExpiredAt(s.now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var err error
		pair, err = s.issue(ctx, tx, stored.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// CleanupRefreshTokens deletes refresh tokens that expired before now.
func (s *UserService) CleanupRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repos.RefreshTokens(s.db).DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("error deleting expired refresh tokens: %w", err)
	}
	return n, nil
}

// lookup passes common.ErrorNotFound through and hides every other
// repository error behind common.ErrorInternal.
func (s *UserService) lookup(ctx context.Context, userName string) (*models.User, error) {
	u, err := s.repos.Users(s.db).GetUserByLogin(ctx, userName)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return nil, err
	case err != nil:
		return nil, common.ErrorInternal
	}
	return u, nil
}

func (s *UserService) issue(ctx context.Context, db dbx.DBTX, userID string) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, s.secret, s.accessTTL)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if err := s.repos.RefreshTokens(db).Create(ctx, userID, refresh, s.refreshTTL); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
