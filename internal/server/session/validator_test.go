package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/accountkeeper/internal/server/store"
)

type fakeUsers map[string]*models.User

func (f fakeUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func setup(t *testing.T) (*Validator, *auth.Issuer, fakeUsers) {
	t.Helper()
	users := fakeUsers{"u1": {ID: "u1", Email: "john@doe.com", Role: models.RoleAdmin}}
	iss, err := auth.NewIssuer(refreshtokens.NewKVRepository(store.NewMemoryBackend()), users, auth.Options{
		Secret: "s", Algorithm: "HS256", AccessTTL: time.Minute, RefreshTTL: time.Hour,
	})
	require.NoError(t, err)
	return NewValidator(iss, users), iss, users
}

func TestValidator_Validate(t *testing.T) {
	ctx := context.Background()
	v, iss, users := setup(t)

	set, err := iss.GenerateToken(ctx, users["u1"])
	require.NoError(t, err)

	ghost, err := iss.GenerateToken(ctx, &models.User{ID: "ghost"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		access string
		xsrf   string
		want   error
	}{
		{"no access token", "", set.XsrfToken, common.ErrMissingAccessToken},
		{"no xsrf token", set.AccessToken, "", common.ErrMissingAccessToken},
		{"xsrf mismatch", set.AccessToken, "forged", common.ErrInvalidToken},
		{"garbage token", "abc", set.XsrfToken, common.ErrInvalidToken},
		{"unknown subject", ghost.AccessToken, ghost.XsrfToken, common.ErrBadCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := v.Validate(ctx, tt.access, tt.xsrf)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	user, claims, err := v.Validate(ctx, set.AccessToken, set.XsrfToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, set.RefreshToken, claims.RefreshToken)
}
