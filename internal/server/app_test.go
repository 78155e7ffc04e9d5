package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/store"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.HTTPAddr = "127.0.0.1:0"
	c.GRPCAddr = "127.0.0.1:0"
	c.StoreKind = store.KindMemory
	c.ShutdownTimeout = time.Second
	return c
}

func TestNewApp_MemoryStore(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig())
	require.NoError(t, err)
	assert.NotNil(t, app.handler)
	assert.NotNil(t, app.userService)
	require.NoError(t, app.repos.Close())
}

func TestNewApp_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *config.Config)
	}{
		{"bad log level", func(c *config.Config) { c.LogLevel = "loud" }},
		{"unknown store", func(c *config.Config) { c.StoreKind = "sqlite" }},
		{"bad algorithm", func(c *config.Config) { c.SigningAlgorithm = "RS256" }},
		{"empty secret", func(c *config.Config) { c.SecretKey = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testConfig()
			tt.modify(c)
			_, err := NewApp(context.Background(), c)
			assert.Error(t, err)
		})
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	app, err := newApp(context.Background(), testConfig(), logging.Discard(), store.NewMemoryBackend())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("app exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop after context cancel")
	}
}

func TestRun_ReportsListenFailure(t *testing.T) {
	c := testConfig()
	c.HTTPAddr = "127.0.0.1:99999"
	app, err := newApp(context.Background(), c, logging.Discard(), store.NewMemoryBackend())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "http")
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop after listen failure")
	}
}
