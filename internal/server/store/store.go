// Package store provides the key-value backend the repositories are built on:
// a minimal interface over hashes, strings with TTL and sorted sets, with two
// implementations (an in-process map and Redis).
package store

import (
	"context"
	"time"
)

// Backend is the subset of key-value operations used by the repositories.
//
// Reads of missing keys or fields return common.ErrorNotFound. Writes are
// only issued through Exec, which applies the whole batch atomically.
type Backend interface {
	HGet(ctx context.Context, key, field string) (string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Get(ctx context.Context, key string) (string, error)
	ZScore(ctx context.Context, key, member string) (float64, error)

	// Keys returns every key matching a glob pattern such as "user:admin:*".
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Exec checks conds and applies cmds as one unit. When a condition does
	// not hold nothing is written and common.ErrConflict is returned.
	Exec(ctx context.Context, conds []Condition, cmds ...Command) error

	Ping(ctx context.Context) error
	Close() error
}

// Op identifies a write command.
type Op int

const (
	OpHSet Op = iota
	OpHDel
	OpDel
	OpSet
	OpZAdd
)

// Command is a single write in a batch. Use the constructors below.
type Command struct {
	Op     Op
	Key    string
	Fields map[string]string
	Names  []string
	Value  string
	TTL    time.Duration
	Score  float64
}

// HSet sets fields of the hash at key.
func HSet(key string, fields map[string]string) Command {
	return Command{Op: OpHSet, Key: key, Fields: fields}
}

// HDel removes fields from the hash at key.
func HDel(key string, fields ...string) Command {
	return Command{Op: OpHDel, Key: key, Names: fields}
}

// Del removes keys.
func Del(keys ...string) Command {
	return Command{Op: OpDel, Names: keys}
}

// Set stores a string value. A zero ttl keeps the key forever.
func Set(key, value string, ttl time.Duration) Command {
	return Command{Op: OpSet, Key: key, Value: value, TTL: ttl}
}

// ZAdd adds member to the sorted set at key with score.
func ZAdd(key string, score float64, member string) Command {
	return Command{Op: OpZAdd, Key: key, Value: member, Score: score}
}

// Condition guards an Exec on the hash field Key/Field. By default the field
// must be absent or hold Allowed; an empty Allowed requires it to be absent.
// With Present set the field must exist and hold Allowed.
type Condition struct {
	Key     string
	Field   string
	Allowed string
	Present bool
}

// FieldFreeOr builds a Condition allowing either no value or allowed.
func FieldFreeOr(key, field, allowed string) Condition {
	return Condition{Key: key, Field: field, Allowed: allowed}
}

// FieldEquals builds a Condition requiring the field to hold value.
func FieldEquals(key, field, value string) Condition {
	return Condition{Key: key, Field: field, Allowed: value, Present: true}
}

func (c Condition) holds(value string, exists bool) bool {
	if !exists {
		return !c.Present
	}
	return c.Allowed != "" && value == c.Allowed
}
