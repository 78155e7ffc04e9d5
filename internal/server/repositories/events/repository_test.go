package events

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/accountkeeper/internal/server/store"
)

func TestKVRepository_AppendFind(t *testing.T) {
	ctx := context.Background()
	repo := NewKVRepository(store.NewMemoryBackend())

	e := Event{Type: "signIn", Message: "bad credentials for john@doe.com", Timestamp: 1700000000000}
	key, err := repo.Append(ctx, e, time.Hour)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "log:signIn:"), key)

	got, err := repo.Find(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, e, *got)
}
