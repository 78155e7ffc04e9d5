// Package passwordtokens stores password-reset tokens with a time-to-live.
package passwordtokens

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/server/store"
)

// Repository binds reset tokens to user ids.
type Repository interface {
	Create(ctx context.Context, token, userID string, ttl time.Duration) error
	// UserID returns common.ErrorNotFound for unknown or expired tokens.
	UserID(ctx context.Context, token string) (string, error)
}

type KVRepository struct {
	db store.Backend
}

func NewKVRepository(db store.Backend) *KVRepository {
	return &KVRepository{db: db}
}

func key(token string) string {
	return "user:passwordToken:" + token
}

func (r *KVRepository) Create(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := r.db.Exec(ctx, nil, store.Set(key(token), userID, ttl)); err != nil {
		return fmt.Errorf("error storing password token: %w", err)
	}
	return nil
}

func (r *KVRepository) UserID(ctx context.Context, token string) (string, error) {
	return r.db.Get(ctx, key(token))
}
