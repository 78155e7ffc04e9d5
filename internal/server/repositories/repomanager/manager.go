// Package repomanager hands out the repositories that share one key-value
// backend.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/events"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/passwordtokens"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/accountkeeper/internal/server/store"
)

type RepositoryManager interface {
	Ping(ctx context.Context) error
	Close() error
	Users() users.Repository
	RefreshTokens() refreshtokens.Repository
	PasswordTokens() passwordtokens.Repository
	Events() events.Repository
}

type KVRepositoryManager struct {
	db             store.Backend
	users          *users.KVRepository
	refreshTokens  *refreshtokens.KVRepository
	passwordTokens *passwordtokens.KVRepository
	events         *events.KVRepository
}

func NewKVRepositoryManager(db store.Backend) *KVRepositoryManager {
	return &KVRepositoryManager{
		db:             db,
		users:          users.NewKVRepository(db),
		refreshTokens:  refreshtokens.NewKVRepository(db),
		passwordTokens: passwordtokens.NewKVRepository(db),
		events:         events.NewKVRepository(db),
	}
}

func (m *KVRepositoryManager) Ping(ctx context.Context) error {
	return m.db.Ping(ctx)
}

func (m *KVRepositoryManager) Close() error {
	return m.db.Close()
}

func (m *KVRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *KVRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return m.refreshTokens
}

func (m *KVRepositoryManager) PasswordTokens() passwordtokens.Repository {
	return m.passwordTokens
}

func (m *KVRepositoryManager) Events() events.Repository {
	return m.events
}
