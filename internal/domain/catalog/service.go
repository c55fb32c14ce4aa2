package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wellcheck/wellcheck/pkg/scoring"
)

// ErrReadOnly is returned by writes when no repository is configured.
var ErrReadOnly = errors.New("catalog is read-only")

// Summary is the list view of a definition.
type Summary struct {
	Code          string           `json:"code"`
	Name          string           `json:"name"`
	Description   string           `json:"description,omitempty"`
	Category      scoring.Category `json:"category"`
	Version       string           `json:"version,omitempty"`
	QuestionCount int              `json:"question_count"`
	MaxScore      float64          `json:"max_score"`
	Components    []string         `json:"components,omitempty"`
}

func summarize(def *scoring.TestDefinition) Summary {
	return Summary{
		Code:          def.Code,
		Name:          def.Name,
		Description:   def.Description,
		Category:      def.Category,
		Version:       def.Version,
		QuestionCount: len(def.Questions),
		MaxScore:      scoring.MaxScore(def),
		Components:    def.Components,
	}
}

// Invalidator drops cached copies of a definition.
type Invalidator interface {
	Invalidate(ctx context.Context, code string) error
}

// Transactor runs fn in a single database transaction.
type Transactor func(ctx context.Context, fn func(ctx context.Context) error) error

// Service is the catalog the engine reads from. It implements
// scoring.Catalog and scoring.ComponentLoader.
type Service struct {
	source Source
	repo   Repository
	static *Static
	cache  Invalidator
	tx     Transactor
	log    zerolog.Logger
}

func NewService(source Source, repo Repository, static *Static, log zerolog.Logger) *Service {
	return &Service{source: source, repo: repo, static: static, log: log}
}

// SetInvalidator attaches the cache cleared by writes.
func (s *Service) SetInvalidator(inv Invalidator) { s.cache = inv }

// SetTransactor makes Import run in one transaction.
func (s *Service) SetTransactor(tx Transactor) { s.tx = tx }

func (s *Service) GetTestDefinition(ctx context.Context, code string) (*scoring.TestDefinition, error) {
	return s.source.GetTestDefinition(ctx, code)
}

// LoadComponents fetches the components of a composite concurrently and
// returns them in declaration order.
func (s *Service) LoadComponents(ctx context.Context, def *scoring.TestDefinition) ([]*scoring.TestDefinition, error) {
	out := make([]*scoring.TestDefinition, len(def.Components))
	g, gctx := errgroup.WithContext(ctx)
	for i, code := range def.Components {
		g.Go(func() error {
			c, err := s.source.GetTestDefinition(gctx, code)
			if err != nil {
				return fmt.Errorf("%s component %s: %w", def.Code, code, err)
			}
			if c.IsComposite() {
				return &scoring.CatalogDefectError{TestCode: def.Code, Problems: []string{fmt.Sprintf("component %s is itself composite", code)}}
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) List(ctx context.Context) ([]Summary, error) {
	defs, err := s.source.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(defs))
	for _, def := range defs {
		out = append(out, summarize(def))
	}
	return out, nil
}

// Definitions returns every full definition from the source.
func (s *Service) Definitions(ctx context.Context) ([]*scoring.TestDefinition, error) {
	return s.source.List(ctx)
}

// Import validates defs against each other and the bundled snapshot, then
// upserts them. Nothing is written if any definition is invalid.
func (s *Service) Import(ctx context.Context, defs []*scoring.TestDefinition) (int, error) {
	if s.repo == nil {
		return 0, ErrReadOnly
	}
	set := make(map[string]*scoring.TestDefinition)
	if s.static != nil {
		for _, code := range s.static.Codes() {
			set[code], _ = s.static.GetTestDefinition(ctx, code)
		}
	}
	for _, def := range defs {
		set[def.Code] = def
	}
	if err := ValidateSet(set); err != nil {
		return 0, err
	}

	write := func(ctx context.Context) error {
		for _, def := range defs {
			if err := s.repo.Upsert(ctx, def); err != nil {
				return fmt.Errorf("upsert %s: %w", def.Code, err)
			}
		}
		return nil
	}
	if s.tx != nil {
		if err := s.tx(ctx, write); err != nil {
			return 0, err
		}
	} else if err := write(ctx); err != nil {
		return 0, err
	}

	if s.cache != nil {
		for _, def := range defs {
			if err := s.cache.Invalidate(ctx, def.Code); err != nil {
				s.log.Warn().Err(err).Str("code", def.Code).Msg("catalog cache invalidate failed")
			}
		}
	}
	s.log.Info().Int("count", len(defs)).Msg("catalog definitions imported")
	return len(defs), nil
}

// Seed imports the bundled snapshot into the repository.
func (s *Service) Seed(ctx context.Context) (int, error) {
	if s.static == nil {
		return 0, errors.New("no static snapshot configured")
	}
	defs, err := s.static.List(ctx)
	if err != nil {
		return 0, err
	}
	return s.Import(ctx, defs)
}
