package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string      HTTP bind address (e.g., ":8080")
//	-grpc string   gRPC health endpoint bind address
//	-store string  store backend: redis or memory
//	-redis string  Redis address
//	-s string      token signing secret
//	-t int         access token validity, minutes
//	-r int         refresh token validity, minutes
//	-l string      log level
//	-o string      comma-separated CORS origins
//	-b string      S3 archive bucket
//	-e string      S3 base endpoint
//
// Duration flags are whole minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-grpc", "-store", "-redis", "-s", "-t", "-r", "-l", "-o", "-b", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to serve the HTTP API")
	fs.StringVar(&config.GRPCAddr, "grpc", config.GRPCAddr, "address and port to serve gRPC health checks")
	fs.StringVar(&config.StoreKind, "store", config.StoreKind, "store backend (redis|memory)")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	origins := fs.String("o", strings.Join(config.CORSOrigins, ","), "allowed CORS origins, comma separated")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 archive bucket")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// only flags given explicitly, so whole-minute rounding does not clobber
	// finer values from earlier layers
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
		case "o":
			config.CORSOrigins = splitOrigins(*origins)
		}
	})
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
