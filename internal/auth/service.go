package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/driftlabs/driftpay-backend/pkg/auth"
	"github.com/driftlabs/driftpay-backend/pkg/config"
	"github.com/driftlabs/driftpay-backend/pkg/db/models"
	pkgerrors "github.com/driftlabs/driftpay-backend/pkg/errors"
	"github.com/driftlabs/driftpay-backend/pkg/logger"
	"github.com/driftlabs/driftpay-backend/pkg/security"
)

// invalidCredentialsMessage is identical for unknown client ids, wrong
// secrets, and disabled accounts so callers cannot probe which exist.
const invalidCredentialsMessage = "invalid credentials"

const tokenTypeBearer = "Bearer"

// TokenRequest is the credential exchange payload.
type TokenRequest struct {
	ClientID     string
	ClientSecret string
}

// TokenResponse carries the minted access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Service exchanges service-account credentials for access tokens.
type Service interface {
	IssueToken(ctx context.Context, req TokenRequest) (*TokenResponse, error)
}

type accountRepository interface {
	FindByClientID(ctx context.Context, clientID string) (*models.ServiceAccount, error)
	UpdateLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
}

type service struct {
	accounts accountRepository
	jwtCfg   config.JWTConfig
	logg     *logger.Logger
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	AccountRepo accountRepository
	JWTConfig   config.JWTConfig
	Logger      *logger.Logger
}

// NewService constructs a token-issuing service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.AccountRepo == nil {
		return nil, fmt.Errorf("service account repository is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		accounts: params.AccountRepo,
		jwtCfg:   params.JWTConfig,
		logg:     params.Logger,
	}, nil
}

func (s *service) IssueToken(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	account, err := s.authenticate(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.accounts.UpdateLastUsed(ctx, account.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last used")
	}

	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		AccountID: account.ID,
		ClientID:  account.ClientID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	s.logg.Info(s.logg.WithClientID(ctx, account.ClientID), "access token issued")

	return &TokenResponse{
		AccessToken: accessToken,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   int64(s.jwtCfg.AccessTokenTTL() / time.Second),
	}, nil
}

func (s *service) authenticate(ctx context.Context, clientID, clientSecret string) (*models.ServiceAccount, error) {
	input := strings.TrimSpace(clientID)
	if input == "" || clientSecret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	account, err := s.accounts.FindByClientID(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup service account")
	}

	valid, err := security.VerifySecret(clientSecret, account.SecretHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify secret")
	}
	if !valid || !account.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return account, nil
}
