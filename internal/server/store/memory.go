package store

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
)

type memoryEntry struct {
	str     *string
	hash    map[string]string
	zset    map[string]float64
	expires time.Time
}

// MemoryBackend keeps everything in process memory. TTLs are enforced
// lazily on access.
type MemoryBackend struct {
	mu   sync.Mutex
	data map[string]*memoryEntry
	now  func() time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data: make(map[string]*memoryEntry),
		now:  time.Now,
	}
}

// lookup returns a live entry; the caller must hold mu.
func (m *MemoryBackend) lookup(key string) (*memoryEntry, bool) {
	e, ok := m.data[key]
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.data, key)
		return nil, false
	}
	return e, true
}

func (m *MemoryBackend) HGet(ctx context.Context, key, field string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key)
	if !ok || e.hash == nil {
		return "", common.ErrorNotFound
	}
	v, ok := e.hash[field]
	if !ok {
		return "", common.ErrorNotFound
	}
	return v, nil
}

func (m *MemoryBackend) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key)
	if !ok || len(e.hash) == 0 {
		return nil, common.ErrorNotFound
	}
	out := make(map[string]string, len(e.hash))
	for k, v := range e.hash {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryBackend) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key)
	if !ok || e.str == nil {
		return "", common.ErrorNotFound
	}
	return *e.str, nil
}

func (m *MemoryBackend) ZScore(ctx context.Context, key, member string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key)
	if !ok || e.zset == nil {
		return 0, common.ErrorNotFound
	}
	score, ok := e.zset[member]
	if !ok {
		return 0, common.ErrorNotFound
	}
	return score, nil
}

func (m *MemoryBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for k := range m.data {
		if _, ok := m.lookup(k); !ok {
			continue
		}
		matched, err := path.Match(pattern, k)
		if err != nil {
			return nil, err
		}
		if matched {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *MemoryBackend) Exec(ctx context.Context, conds []Condition, cmds ...Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range conds {
		var (
			value  string
			exists bool
		)
		if e, ok := m.lookup(c.Key); ok && e.hash != nil {
			value, exists = e.hash[c.Field]
		}
		if !c.holds(value, exists) {
			return common.ErrConflict
		}
	}

	for _, cmd := range cmds {
		m.apply(cmd)
	}
	return nil
}

// apply runs one command; the caller must hold mu.
func (m *MemoryBackend) apply(cmd Command) {
	switch cmd.Op {
	case OpHSet:
		e := m.entry(cmd.Key)
		if e.hash == nil {
			e.hash = make(map[string]string, len(cmd.Fields))
		}
		for k, v := range cmd.Fields {
			e.hash[k] = v
		}
	case OpHDel:
		e, ok := m.lookup(cmd.Key)
		if !ok || e.hash == nil {
			return
		}
		for _, f := range cmd.Names {
			delete(e.hash, f)
		}
		if len(e.hash) == 0 {
			delete(m.data, cmd.Key)
		}
	case OpDel:
		for _, k := range cmd.Names {
			delete(m.data, k)
		}
	case OpSet:
		v := cmd.Value
		e := &memoryEntry{str: &v}
		if cmd.TTL > 0 {
			e.expires = m.now().Add(cmd.TTL)
		}
		m.data[cmd.Key] = e
	case OpZAdd:
		e := m.entry(cmd.Key)
		if e.zset == nil {
			e.zset = make(map[string]float64)
		}
		e.zset[cmd.Value] = cmd.Score
	}
}

func (m *MemoryBackend) entry(key string) *memoryEntry {
	if e, ok := m.lookup(key); ok {
		return e
	}
	e := &memoryEntry{}
	m.data[key] = e
	return e
}

func (m *MemoryBackend) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryBackend) Close() error {
	return nil
}
