// Package auth mints and verifies session credentials: signed access tokens,
// opaque refresh tokens persisted server-side, and the XSRF tokens bound
// into each access token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/cryptox"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/refreshtokens"
)

// TokenSet is what a successful sign-in or refresh hands back to the client.
type TokenSet struct {
	AccessToken           string
	RefreshToken          string
	XsrfToken             string
	AccessTokenExpiresIn  time.Duration
	RefreshTokenExpiresIn time.Duration
}

// UserFinder resolves the owner of a refresh token.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type Options struct {
	Secret     string
	Algorithm  string
	Audience   string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Issuer mints token sets and rotates refresh tokens.
type Issuer struct {
	refreshTokens refreshtokens.Repository
	users         UserFinder
	signing       SigningOptions
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewIssuer fails on an unsupported algorithm or an empty secret.
func NewIssuer(refreshTokens refreshtokens.Repository, users UserFinder, opts Options) (*Issuer, error) {
	if _, err := signingMethod(opts.Algorithm); err != nil {
		return nil, err
	}
	if opts.Secret == "" {
		return nil, errors.New("token secret is empty")
	}

	return &Issuer{
		refreshTokens: refreshTokens,
		users:         users,
		signing: SigningOptions{
			Secret:    []byte(opts.Secret),
			Algorithm: opts.Algorithm,
			Audience:  opts.Audience,
			Issuer:    opts.Issuer,
			TTL:       opts.AccessTTL,
		},
		refreshTTL: opts.RefreshTTL,
		now:        time.Now,
	}, nil
}

// GenerateToken mints a fresh XSRF token, refresh token and access token for
// user and persists the refresh token. Earlier refresh tokens of the same
// user stay valid.
func (s *Issuer) GenerateToken(ctx context.Context, user *models.User) (*TokenSet, error) {
	xsrf, err := cryptox.CreateXsrfToken()
	if err != nil {
		return nil, fmt.Errorf("error creating xsrf token: %w", err)
	}
	refresh, err := cryptox.CreateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("error creating refresh token: %w", err)
	}

	claims := Claims{
		Firstname:    user.Firstname,
		Lastname:     user.Lastname,
		ID:           user.ID,
		XsrfToken:    xsrf,
		RefreshToken: refresh,
	}
	claims.Subject = user.ID

	access, err := GenerateToken(claims, s.signing, s.now())
	if err != nil {
		return nil, fmt.Errorf("error signing access token: %w", err)
	}

	if err := s.refreshTokens.Create(ctx, user.ID, refresh, s.refreshTTL); err != nil {
		return nil, err
	}

	return &TokenSet{
		AccessToken:           access,
		RefreshToken:          refresh,
		XsrfToken:             xsrf,
		AccessTokenExpiresIn:  s.signing.TTL,
		RefreshTokenExpiresIn: s.refreshTTL,
	}, nil
}

// Refresh exchanges a refresh token for a new token set and deletes the old
// record. Unknown tokens yield common.ErrInvalidToken, expired ones
// common.ErrExpiredToken. Expired and orphaned records are deleted too.
func (s *Issuer) Refresh(ctx context.Context, refreshToken string) (*TokenSet, *models.User, error) {
	if refreshToken == "" {
		return nil, nil, common.ErrMissingRefreshToken
	}

	token, err := s.refreshTokens.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	if token.Expired(s.now()) {
		_ = s.refreshTokens.Delete(ctx, refreshToken)
		return nil, nil, common.ErrExpiredToken
	}

	user, err := s.users.FindByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = s.refreshTokens.Delete(ctx, refreshToken)
			return nil, nil, common.ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("error resolving token owner: %w", err)
	}

	set, err := s.GenerateToken(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	if err := s.refreshTokens.Delete(ctx, refreshToken); err != nil {
		return nil, nil, err
	}

	return set, user, nil
}

// Verify checks an access token and returns its claims.
func (s *Issuer) Verify(accessToken string) (*Claims, error) {
	return ParseToken(accessToken, s.signing)
}

// SubjectFromToken returns the user id an access token was issued for.
func (s *Issuer) SubjectFromToken(ctx context.Context, accessToken string) (string, error) {
	claims, err := s.Verify(accessToken)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
