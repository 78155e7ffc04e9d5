// Package session checks that an access token and its XSRF token belong to
// the same live session.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

type TokenVerifier interface {
	Verify(accessToken string) (*auth.Claims, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type Validator struct {
	tokens TokenVerifier
	users  UserFinder
}

func NewValidator(tokens TokenVerifier, users UserFinder) *Validator {
	return &Validator{tokens: tokens, users: users}
}

// Validate returns the session owner. Missing tokens yield
// common.ErrMissingAccessToken, an XSRF mismatch common.ErrInvalidToken and
// a subject that no longer exists common.ErrBadCredentials.
func (v *Validator) Validate(ctx context.Context, accessToken, xsrfToken string) (*models.User, *auth.Claims, error) {
	if accessToken == "" || xsrfToken == "" {
		return nil, nil, common.ErrMissingAccessToken
	}

	claims, err := v.tokens.Verify(accessToken)
	if err != nil {
		return nil, nil, err
	}

	if subtle.ConstantTimeCompare([]byte(claims.XsrfToken), []byte(xsrfToken)) != 1 {
		return nil, nil, common.ErrInvalidToken
	}

	user, err := v.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrBadCredentials
		}
		return nil, nil, fmt.Errorf("error loading session user: %w", err)
	}

	return user, claims, nil
}
