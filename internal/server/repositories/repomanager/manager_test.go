package repomanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/accountkeeper/internal/server/store"
)

func TestKVRepositoryManager_SharesBackend(t *testing.T) {
	ctx := context.Background()
	var m RepositoryManager = NewKVRepositoryManager(store.NewMemoryBackend())

	require.NoError(t, m.Ping(ctx))

	require.NoError(t, m.RefreshTokens().Create(ctx, "u1", "tok", time.Minute))
	require.NoError(t, m.PasswordTokens().Create(ctx, "reset", "u1", time.Minute))

	rt, err := m.RefreshTokens().Find(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", rt.UserID)

	id, err := m.PasswordTokens().UserID(ctx, "reset")
	require.NoError(t, err)
	assert.Equal(t, "u1", id)

	assert.NotNil(t, m.Users())
	assert.NotNil(t, m.Events())
	assert.NoError(t, m.Close())
}
