package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/flagx"
	"github.com/dmitrijs2005/accountkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted.
type JsonConfig struct {
	HTTPAddr                      string         `json:"http_addr"`
	GRPCAddr                      string         `json:"grpc_addr"`
	StoreKind                     string         `json:"store"`
	RedisAddr                     string         `json:"redis_addr"`
	RedisPassword                 string         `json:"redis_password"`
	RedisDB                       *int           `json:"redis_db"`
	SecretKey                     string         `json:"secret_key"`
	SigningAlgorithm              string         `json:"signing_algorithm"`
	TokenAudience                 string         `json:"token_audience"`
	TokenIssuer                   string         `json:"token_issuer"`
	AccessTokenValidityDuration   timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration  timex.Duration `json:"refresh_token_validity_duration"`
	PasswordTokenValidityDuration timex.Duration `json:"password_token_validity_duration"`
	LogRetention                  timex.Duration `json:"log_retention"`
	LogLevel                      string         `json:"log_level"`
	CORSOrigins                   []string       `json:"cors_origins"`
	ResetPasswordURL              string         `json:"reset_password_url"`
	ShutdownTimeout               timex.Duration `json:"shutdown_timeout"`
	S3AccessKey                   string         `json:"s3_access_key"`
	S3SecretKey                   string         `json:"s3_secret_key"`
	S3Bucket                      string         `json:"s3_bucket"`
	S3Region                      string         `json:"s3_region"`
	S3BaseEndpoint                string         `json:"s3_base_endpoint"`
	S3Prefix                      string         `json:"s3_prefix"`
}

// parseJson loads the file named by -c/-config into config. Keys missing
// from the file leave the current values alone. An unreadable file or
// invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.StoreKind, c.StoreKind)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.SigningAlgorithm, c.SigningAlgorithm)
	setString(&config.TokenAudience, c.TokenAudience)
	setString(&config.TokenIssuer, c.TokenIssuer)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.PasswordTokenValidityDuration, c.PasswordTokenValidityDuration)
	setDuration(&config.LogRetention, c.LogRetention)
	setString(&config.LogLevel, c.LogLevel)
	if len(c.CORSOrigins) > 0 {
		config.CORSOrigins = c.CORSOrigins
	}
	setString(&config.ResetPasswordURL, c.ResetPasswordURL)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3Prefix, c.S3Prefix)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
