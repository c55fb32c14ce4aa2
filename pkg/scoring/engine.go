package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Catalog resolves test definitions by code. Implementations must return a
// *NotFoundError for unknown codes and must be safe for concurrent use.
type Catalog interface {
	GetTestDefinition(ctx context.Context, code string) (*TestDefinition, error)
}

// ComponentLoader is implemented by catalogs that can fetch the components of
// a composite definition more efficiently than one by one.
type ComponentLoader interface {
	LoadComponents(ctx context.Context, def *TestDefinition) ([]*TestDefinition, error)
}

var (
	// ErrCompositeDefinition is returned when a composite code is assessed as a single test.
	ErrCompositeDefinition = errors.New("definition is a composite battery")
	// ErrNotComposite is returned when a single test is assessed as a battery.
	ErrNotComposite = errors.New("definition is not a composite battery")
)

// Engine runs submissions against a catalog. It holds no per-request state.
type Engine struct {
	catalog Catalog
	now     func() time.Time
}

func NewEngine(catalog Catalog) *Engine {
	return &Engine{catalog: catalog, now: time.Now}
}

// SetClock replaces the time source used to stamp results.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Catalog returns the catalog the engine reads from.
func (e *Engine) Catalog() Catalog { return e.catalog }

// Evaluate scores, classifies and finalizes one submission against def.
func (e *Engine) Evaluate(def *TestDefinition, responses ResponseSet) (*ScoredResult, error) {
	if def.IsComposite() {
		return nil, fmt.Errorf("%s: %w", def.Code, ErrCompositeDefinition)
	}
	sub := NewSubmission(def, responses)
	if err := sub.Score(); err != nil {
		return nil, err
	}
	if err := sub.Classify(); err != nil {
		return nil, err
	}
	return sub.Finalize(e.now().UTC())
}

// Assess looks up code and evaluates responses against it.
func (e *Engine) Assess(ctx context.Context, code string, responses ResponseSet) (*ScoredResult, error) {
	def, err := e.catalog.GetTestDefinition(ctx, code)
	if err != nil {
		return nil, err
	}
	return e.Evaluate(def, responses)
}

// AssessComprehensive splits responses by category, evaluates each
// component test of the composite definition and aggregates the results.
func (e *Engine) AssessComprehensive(ctx context.Context, code string, responses ResponseSet) (*ComprehensiveResult, error) {
	def, err := e.catalog.GetTestDefinition(ctx, code)
	if err != nil {
		return nil, err
	}
	if !def.IsComposite() {
		return nil, fmt.Errorf("%s: %w", def.Code, ErrNotComposite)
	}
	components, err := e.components(ctx, def)
	if err != nil {
		return nil, err
	}
	return e.EvaluateBattery(def, components, responses)
}

// EvaluateBattery is AssessComprehensive with the definitions already resolved.
func (e *Engine) EvaluateBattery(def *TestDefinition, components []*TestDefinition, responses ResponseSet) (*ComprehensiveResult, error) {
	byCategory := responses.ByCategory()
	known := make(map[Category]bool, len(components))
	expected := make([]Category, 0, len(components))
	for _, c := range components {
		known[c.Category] = true
		expected = append(expected, c.Category)
	}
	for cat, items := range byCategory {
		if !known[cat] {
			r := items[0]
			return nil, &UnknownQuestionError{TestCode: fmt.Sprintf("%s/%s", def.Code, cat), QuestionID: r.QuestionID, QuestionNumber: r.QuestionNumber}
		}
	}

	sub := make(map[Category]*ScoredResult, len(components))
	for _, c := range components {
		res, err := e.Evaluate(c, byCategory[c.Category])
		if err != nil {
			return nil, err
		}
		sub[c.Category] = res
	}
	return Aggregate(sub, expected)
}

// Rescore re-runs the engine on the responses stored in prev. The returned
// result is new; prev is left untouched.
func (e *Engine) Rescore(ctx context.Context, prev *ScoredResult) (*ScoredResult, error) {
	return e.Assess(ctx, prev.TestCode, prev.Responses)
}

// RescoreComprehensive re-scores every sub-result and aggregates them again.
func (e *Engine) RescoreComprehensive(ctx context.Context, prev *ComprehensiveResult) (*ComprehensiveResult, error) {
	sub := make(map[Category]*ScoredResult, len(prev.SubResults))
	expected := make([]Category, 0, len(prev.SubResults))
	for _, cat := range SortedCategories(prev.SubResults) {
		res, err := e.Rescore(ctx, prev.SubResults[cat])
		if err != nil {
			return nil, err
		}
		sub[cat] = res
		expected = append(expected, cat)
	}
	return Aggregate(sub, expected)
}

func (e *Engine) components(ctx context.Context, def *TestDefinition) ([]*TestDefinition, error) {
	if l, ok := e.catalog.(ComponentLoader); ok {
		return l.LoadComponents(ctx, def)
	}
	out := make([]*TestDefinition, 0, len(def.Components))
	for _, code := range def.Components {
		c, err := e.catalog.GetTestDefinition(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("%s component %s: %w", def.Code, code, err)
		}
		out = append(out, c)
	}
	return out, nil
}
