// Package events stores application event records (type, message, timestamp)
// with a retention TTL.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/accountkeeper/internal/server/store"
)

// Event is one logged occurrence. Timestamp is epoch milliseconds.
type Event struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

type Repository interface {
	Append(ctx context.Context, e Event, retention time.Duration) (string, error)
	Find(ctx context.Context, key string) (*Event, error)
}

type KVRepository struct {
	db store.Backend
}

func NewKVRepository(db store.Backend) *KVRepository {
	return &KVRepository{db: db}
}

// Append stores e under log:<type>:<uuid> and returns the key.
func (r *KVRepository) Append(ctx context.Context, e Event, retention time.Duration) (string, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("log:%s:%s", e.Type, uuid.NewString())
	if err := r.db.Exec(ctx, nil, store.Set(key, string(value), retention)); err != nil {
		return "", fmt.Errorf("error storing event: %w", err)
	}
	return key, nil
}

func (r *KVRepository) Find(ctx context.Context, key string) (*Event, error) {
	value, err := r.db.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var e Event
	if err := json.Unmarshal([]byte(value), &e); err != nil {
		return nil, fmt.Errorf("error decoding event: %w", err)
	}
	return &e, nil
}
