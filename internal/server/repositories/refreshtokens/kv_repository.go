package refreshtokens

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/store"
)

const keyRefreshTokens = "user:refreshToken"

// record is the JSON value stored per token; ExpiresOn is epoch milliseconds.
type record struct {
	UserID    string `json:"userId"`
	ExpiresOn int64  `json:"expiresOn"`
}

// KVRepository keeps every refresh token as a field of a single hash.
type KVRepository struct {
	db  store.Backend
	now func() time.Time
}

func NewKVRepository(db store.Backend) *KVRepository {
	return &KVRepository{db: db, now: time.Now}
}

func (r *KVRepository) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	value, err := json.Marshal(record{
		UserID:    userID,
		ExpiresOn: r.now().Add(validity).UnixMilli(),
	})
	if err != nil {
		return err
	}

	if err := r.db.Exec(ctx, nil, store.HSet(keyRefreshTokens, map[string]string{token: string(value)})); err != nil {
		return fmt.Errorf("error storing refresh token: %w", err)
	}
	return nil
}

func (r *KVRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	value, err := r.db.HGet(ctx, keyRefreshTokens, token)
	if err != nil {
		return nil, err
	}

	var rec record
	if err := json.Unmarshal([]byte(value), &rec); err != nil {
		return nil, fmt.Errorf("error decoding refresh token: %w", err)
	}

	return &models.RefreshToken{
		Token:   token,
		UserID:  rec.UserID,
		Expires: time.UnixMilli(rec.ExpiresOn),
	}, nil
}

func (r *KVRepository) Delete(ctx context.Context, token string) error {
	if err := r.db.Exec(ctx, nil, store.HDel(keyRefreshTokens, token)); err != nil {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}
