package store

import "fmt"

const (
	KindMemory = "memory"
	KindRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Kind          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open returns the backend named by opts.Kind.
func Open(opts Options) (Backend, error) {
	switch opts.Kind {
	case KindMemory:
		return NewMemoryBackend(), nil
	case KindRedis, "":
		return NewRedisBackend(opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Kind)
	}
}
