// Package config handles configuration for the server component,
// including defaults, JSON overlay, environment and command-line flags.
package config

import "time"

// Config holds runtime settings for the accountkeeper server.
//
// Fields:
//   - HTTPAddr / GRPCAddr: bind addresses of the REST API and the gRPC health endpoint.
//   - StoreKind: "redis" or "memory"; Redis* fields apply to the former.
//   - SecretKey / SigningAlgorithm / TokenAudience / TokenIssuer: access token signing.
//   - *ValidityDuration: lifetimes of access, refresh and password-reset tokens.
//   - LogRetention: TTL of stored event records.
//   - S3*: archive export target; export is off while S3Bucket is empty.
type Config struct {
	HTTPAddr string `env:"ACCOUNTKEEPER_HTTP_ADDR"`
	GRPCAddr string `env:"ACCOUNTKEEPER_GRPC_ADDR"`

	StoreKind     string `env:"ACCOUNTKEEPER_STORE"`
	RedisAddr     string `env:"ACCOUNTKEEPER_REDIS_ADDR"`
	RedisPassword string `env:"ACCOUNTKEEPER_REDIS_PASSWORD"`
	RedisDB       int    `env:"ACCOUNTKEEPER_REDIS_DB"`

	SecretKey        string `env:"ACCOUNTKEEPER_SECRET_KEY"`
	SigningAlgorithm string `env:"ACCOUNTKEEPER_SIGNING_ALGORITHM"`
	TokenAudience    string `env:"ACCOUNTKEEPER_TOKEN_AUDIENCE"`
	TokenIssuer      string `env:"ACCOUNTKEEPER_TOKEN_ISSUER"`

	AccessTokenValidityDuration   time.Duration `env:"ACCOUNTKEEPER_ACCESS_TOKEN_TTL"`
	RefreshTokenValidityDuration  time.Duration `env:"ACCOUNTKEEPER_REFRESH_TOKEN_TTL"`
	PasswordTokenValidityDuration time.Duration `env:"ACCOUNTKEEPER_PASSWORD_TOKEN_TTL"`
	LogRetention                  time.Duration `env:"ACCOUNTKEEPER_LOG_RETENTION"`

	LogLevel         string        `env:"ACCOUNTKEEPER_LOG_LEVEL"`
	CORSOrigins      []string      `env:"ACCOUNTKEEPER_CORS_ORIGINS" envSeparator:","`
	ResetPasswordURL string        `env:"ACCOUNTKEEPER_RESET_PASSWORD_URL"`
	ShutdownTimeout  time.Duration `env:"ACCOUNTKEEPER_SHUTDOWN_TIMEOUT"`

	S3AccessKey    string `env:"ACCOUNTKEEPER_S3_ACCESS_KEY"`
	S3SecretKey    string `env:"ACCOUNTKEEPER_S3_SECRET_KEY"`
	S3Bucket       string `env:"ACCOUNTKEEPER_S3_BUCKET"`
	S3Region       string `env:"ACCOUNTKEEPER_S3_REGION"`
	S3BaseEndpoint string `env:"ACCOUNTKEEPER_S3_BASE_ENDPOINT"`
	S3Prefix       string `env:"ACCOUNTKEEPER_S3_PREFIX"`
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret key is insecure and must be overridden in production.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.GRPCAddr = ":50051"
	c.StoreKind = "redis"
	c.RedisAddr = "127.0.0.1:6379"
	c.RedisDB = 0
	c.SecretKey = "secretKey"
	c.SigningAlgorithm = "HS256"
	c.TokenAudience = "accountkeeper"
	c.TokenIssuer = "accountkeeper"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 7 * 24 * time.Hour
	c.PasswordTokenValidityDuration = time.Hour
	c.LogRetention = 30 * 24 * time.Hour
	c.LogLevel = "info"
	c.CORSOrigins = []string{"http://localhost:3000"}
	c.ResetPasswordURL = "http://localhost:3000/reset-password"
	c.ShutdownTimeout = 10 * time.Second
	c.S3Region = "us-east-1"
	c.S3Prefix = "archived"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
