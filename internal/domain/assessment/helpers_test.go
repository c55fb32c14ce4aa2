package assessment

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wellcheck/wellcheck/internal/domain/catalog"
	"github.com/wellcheck/wellcheck/pkg/scoring"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

// -- Mock Repository --

type mockRepo struct {
	mu        sync.Mutex
	store     map[uuid.UUID]*Record
	createErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[uuid.UUID]*Record)}
}

func (m *mockRepo) Create(_ context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.store[r.ID] = r
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

func (m *mockRepo) Search(_ context.Context, f Filter, limit, offset int) ([]*Record, int, error) {
	m.mu.Lock()
	r := make([]*Record, 0, len(m.store))
	for _, rec := range m.store {
		if f.Matches(rec) {
			r = append(r, rec)
		}
	}
	m.mu.Unlock()
	sort.Slice(r, func(i, j int) bool { return r[i].ID.String() < r[j].ID.String() })
	return page(r, limit, offset), len(r), nil
}

func page(r []*Record, limit, offset int) []*Record {
	if offset > len(r) {
		return nil
	}
	r = r[offset:]
	if limit < len(r) {
		r = r[:limit]
	}
	return r
}

// -- Catalogs --

func mustStatic(t *testing.T) *catalog.Static {
	t.Helper()
	static, err := catalog.NewStatic()
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	return static
}

// editedCatalog applies edit to every definition it hands out.
type editedCatalog struct {
	base scoring.Catalog
	edit func(def *scoring.TestDefinition)
}

func (c editedCatalog) GetTestDefinition(ctx context.Context, code string) (*scoring.TestDefinition, error) {
	def, err := c.base.GetTestDefinition(ctx, code)
	if err != nil {
		return nil, err
	}
	c.edit(def)
	return def, nil
}

func newTestService(t *testing.T, cat scoring.Catalog, repo Repository, log zerolog.Logger) *Service {
	t.Helper()
	if cat == nil {
		cat = mustStatic(t)
	}
	engine := scoring.NewEngine(cat)
	engine.SetClock(func() time.Time { return fixedNow })
	return NewService(engine, repo, log)
}

// -- Responses --

// phq9Answers answers PHQ-9 question i with option value values[i].
func phq9Answers(values ...int) scoring.ResponseSet {
	rs := make(scoring.ResponseSet, 0, len(values))
	for i, v := range values {
		q := 101 + i
		rs = append(rs, scoring.OptionAnswer(q, q*10+v))
	}
	return rs
}

// battery answers every item of the standard battery with one raw value per scale.
func battery(dep, anx, stress float64) scoring.ResponseSet {
	var rs scoring.ResponseSet
	for i := 0; i < 9; i++ {
		rs = append(rs, scoring.ValueAnswer(101+i, dep, scoring.CategoryDepression))
	}
	for i := 0; i < 7; i++ {
		rs = append(rs, scoring.ValueAnswer(201+i, anx, scoring.CategoryAnxiety))
	}
	for i := 0; i < 10; i++ {
		rs = append(rs, scoring.ValueAnswer(301+i, stress, scoring.CategoryStress))
	}
	return rs
}
