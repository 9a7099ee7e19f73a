// Package services contains application services for the PostKeeper client.
// This file defines the authentication service: online/offline login, register,
// liveness check, and housekeeping of local (offline) auth metadata.
package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/postkeeper/internal/client/client"
	"github.com/dmitrijs2005/postkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/postkeeper/internal/common"
	"github.com/dmitrijs2005/postkeeper/internal/cryptox"
	"github.com/dmitrijs2005/postkeeper/internal/dbx"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - OnlineLogin: authenticate against the server and persist offline auth data.
//   - OfflineLogin: verify credentials against locally cached data.
//   - Register: create a new user on the server.
//   - Ping: check server liveness.
//   - Close: release underlying client resources.
//   - ClearOfflineData: wipe locally cached auth metadata and session tokens.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	OfflineLogin(ctx context.Context, username string, password []byte) error
	OnlineLogin(ctx context.Context, username string, password []byte) error
	Register(ctx context.Context, username string, password []byte) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	ClearOfflineData(ctx context.Context) error
}

// loggerOut is implemented by clients holding a session.
type loggerOut interface {
	Logout()
}

// authService is the concrete AuthService backed by a remote Client
// and a local SQL database for offline metadata.
type authService struct {
	client client.Client
	db     *sql.DB
}

// NewAuthService constructs an AuthService bound to the given API client and DB.
func NewAuthService(client client.Client, db *sql.DB) AuthService {
	return &authService{client: client, db: db}
}

func (a *authService) getMetadataRepo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

// OfflineLogin derives a master key from (password, salt) stored locally
// and verifies it against the locally cached verifier. If local data is
// missing, returns client.ErrLocalDataNotAvailable; if verification fails,
// returns client.ErrUnauthorized.
func (a *authService) OfflineLogin(ctx context.Context, username string, password []byte) error {
	repo := a.getMetadataRepo(a.db)

	values, err := repo.GetMany(ctx, metadata.AuthKeys...)
	if err != nil {
		return err
	}
	for _, key := range metadata.AuthKeys {
		if values[key] == nil {
			return client.ErrLocalDataNotAvailable
		}
	}

	if string(values[metadata.KeyUsername]) != username {
		return client.ErrUnauthorized
	}

	masterKeyCandidate := cryptox.DeriveMasterKey(password, values[metadata.KeySalt])
	verifierCandidate := cryptox.MakeVerifier(masterKeyCandidate)
	common.WipeByteArray(masterKeyCandidate)

	if !cryptox.VerifierMatches(values[metadata.KeyVerifier], verifierCandidate) {
		return client.ErrUnauthorized
	}
	return nil
}

// OnlineLogin authenticates against the server and saves offline metadata
// (username, salt, verifier).
func (a *authService) OnlineLogin(ctx context.Context, userName string, password []byte) error {
	salt, err := a.client.GetSalt(ctx, userName)
	if err != nil {
		return fmt.Errorf("get salt error: %w", err)
	}

	masterKeyCandidate := cryptox.DeriveMasterKey(password, salt)
	verifierCandidate := cryptox.MakeVerifier(masterKeyCandidate)
	common.WipeByteArray(masterKeyCandidate)

	if err := a.client.Login(ctx, userName, verifierCandidate); err != nil {
		return fmt.Errorf("login error: %w", err)
	}

	if err := a.saveOfflineData(ctx, userName, salt, verifierCandidate); err != nil {
		return fmt.Errorf("offline data saving error: %w", err)
	}
	return nil
}

// saveOfflineData persists minimal auth metadata required for offline login:
// username, salt, and verifier, in a single transaction.
func (a *authService) saveOfflineData(ctx context.Context, userName string, salt []byte, verifier []byte) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.getMetadataRepo(tx)
		if err := repo.Set(ctx, metadata.KeyUsername, []byte(userName)); err != nil {
			return err
		}
		if err := repo.Set(ctx, metadata.KeySalt, salt); err != nil {
			return err
		}
		return repo.Set(ctx, metadata.KeyVerifier, verifier)
	})
}

// Register creates a new account on the server. It generates a random salt,
// derives a master key from the provided password, computes a verifier,
// and sends salt/verifier to the server.
func (a *authService) Register(ctx context.Context, username string, password []byte) error {
	salt := common.GenerateRandByteArray(cryptox.SaltSize)
	key := cryptox.DeriveMasterKey(password, salt)
	verifier := cryptox.MakeVerifier(key)
	common.WipeByteArray(key)

	return a.client.Register(ctx, username, salt, verifier)
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}

// ClearOfflineData wipes locally cached auth metadata (e.g., on logout).
// Posts and sync bookkeeping are kept.
func (a *authService) ClearOfflineData(ctx context.Context) error {
	if lo, ok := a.client.(loggerOut); ok {
		lo.Logout()
	}
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return a.getMetadataRepo(tx).Delete(ctx, metadata.AuthKeys...)
	})
}
