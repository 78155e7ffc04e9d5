package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, ":50051", c.GRPCAddr)
	assert.Equal(t, "redis", c.StoreKind)
	assert.Equal(t, "127.0.0.1:6379", c.RedisAddr)
	assert.Equal(t, "secretKey", c.SecretKey)
	assert.Equal(t, "HS256", c.SigningAlgorithm)
	assert.Equal(t, 15*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, 7*24*time.Hour, c.RefreshTokenValidityDuration)
	assert.Equal(t, time.Hour, c.PasswordTokenValidityDuration)
	assert.Equal(t, 30*24*time.Hour, c.LogRetention)
	assert.Equal(t, []string{"http://localhost:3000"}, c.CORSOrigins)
	assert.Equal(t, "us-east-1", c.S3Region)
	assert.Empty(t, c.S3Bucket)
}

func TestLoadConfig_LayerPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"http_addr":  ":9000",
		"secret_key": "from-json",
		"store":      "memory",
	})

	t.Setenv("ACCOUNTKEEPER_SECRET_KEY", "from-env")
	t.Setenv("ACCOUNTKEEPER_HTTP_ADDR", ":9100")
	os.Args = []string{"testbin", "-c", path, "-a", ":9200"}

	c := LoadConfig()
	require.NotNil(t, c)

	assert.Equal(t, ":9200", c.HTTPAddr)
	assert.Equal(t, "from-env", c.SecretKey)
	assert.Equal(t, "memory", c.StoreKind)
	assert.Equal(t, ":50051", c.GRPCAddr)
}
