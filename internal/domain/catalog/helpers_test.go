package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/wellcheck/wellcheck/pkg/scoring"
)

func mustStatic(t *testing.T) *Static {
	t.Helper()
	s, err := NewStatic()
	require.NoError(t, err)
	return s
}

// fakeRedis is an in-memory RedisClient.
type fakeRedis struct {
	mu     sync.Mutex
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

// countingSource wraps a Source, counts fetches and can fail or block.
type countingSource struct {
	Source
	calls   atomic.Int32
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *countingSource) GetTestDefinition(ctx context.Context, code string) (*scoring.TestDefinition, error) {
	s.calls.Add(1)
	if s.started != nil {
		s.started <- struct{}{}
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.Source.GetTestDefinition(ctx, code)
}

func (s *countingSource) List(ctx context.Context) ([]*scoring.TestDefinition, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.Source.List(ctx)
}

var errBackend = errors.New("connection refused")

// mockRepo is an in-memory Repository.
type mockRepo struct {
	mu      sync.Mutex
	defs    map[string]*scoring.TestDefinition
	upserts int
	failOn  string
}

func newMockRepo() *mockRepo {
	return &mockRepo{defs: make(map[string]*scoring.TestDefinition)}
}

func (m *mockRepo) Get(_ context.Context, code string) (*scoring.TestDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	def, ok := m.defs[code]
	if !ok {
		return nil, &scoring.NotFoundError{Code: code}
	}
	return def.Clone(), nil
}

func (m *mockRepo) List(_ context.Context) ([]*scoring.TestDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*scoring.TestDefinition
	for _, d := range m.defs {
		out = append(out, d.Clone())
	}
	return out, nil
}

func (m *mockRepo) Upsert(_ context.Context, def *scoring.TestDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if def.Code == m.failOn {
		return errBackend
	}
	m.upserts++
	m.defs[def.Code] = def.Clone()
	return nil
}
