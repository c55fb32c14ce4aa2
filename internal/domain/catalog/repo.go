package catalog

import (
	"context"

	"github.com/wellcheck/wellcheck/pkg/scoring"
)

// Repository is durable definition storage.
type Repository interface {
	Get(ctx context.Context, code string) (*scoring.TestDefinition, error)
	List(ctx context.Context) ([]*scoring.TestDefinition, error)
	Upsert(ctx context.Context, def *scoring.TestDefinition) error
}

// Source is anything the service can read definitions from: a Repository,
// the static snapshot, or a decorator around either.
type Source interface {
	scoring.Catalog
	List(ctx context.Context) ([]*scoring.TestDefinition, error)
}

// RepoSource adapts a Repository to Source.
type RepoSource struct{ Repo Repository }

func (s RepoSource) GetTestDefinition(ctx context.Context, code string) (*scoring.TestDefinition, error) {
	return s.Repo.Get(ctx, code)
}

func (s RepoSource) List(ctx context.Context) ([]*scoring.TestDefinition, error) {
	return s.Repo.List(ctx)
}
