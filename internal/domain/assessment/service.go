package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wellcheck/wellcheck/pkg/scoring"
)

// DefaultBattery is the composite code used when a comprehensive request
// does not name one.
const DefaultBattery = "comprehensive"

type Service struct {
	engine  *scoring.Engine
	records Repository
	log     zerolog.Logger
}

func NewService(engine *scoring.Engine, records Repository, log zerolog.Logger) *Service {
	return &Service{engine: engine, records: records, log: log}
}

// Assess scores responses against a single test and stores the result.
func (s *Service) Assess(ctx context.Context, userID, code string, responses scoring.ResponseSet) (*Record, error) {
	res, err := s.engine.Assess(ctx, code, responses)
	if err != nil {
		s.logFailure(code, err)
		return nil, err
	}
	rec, err := newSingleRecord(userID, res)
	if err != nil {
		return nil, err
	}
	if err := s.records.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("save assessment: %w", err)
	}
	s.log.Info().
		Str("assessment_id", rec.ID.String()).
		Str("test_code", code).
		Str("severity_level", string(rec.SeverityLevel)).
		Msg("assessment scored")
	return rec, nil
}

// AssessComprehensive scores a battery and stores the aggregated result.
func (s *Service) AssessComprehensive(ctx context.Context, userID, code string, responses scoring.ResponseSet) (*Record, error) {
	if code == "" {
		code = DefaultBattery
	}
	res, err := s.engine.AssessComprehensive(ctx, code, responses)
	if err != nil {
		s.logFailure(code, err)
		return nil, err
	}
	rec, err := newComprehensiveRecord(userID, code, res)
	if err != nil {
		return nil, err
	}
	if err := s.records.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("save assessment: %w", err)
	}
	s.log.Info().
		Str("assessment_id", rec.ID.String()).
		Str("test_code", code).
		Str("risk_level", string(rec.RiskLevel)).
		Msg("assessment scored")
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.records.GetByID(ctx, id)
}

// List returns the records matching f. An empty f.UserID lists every user.
func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Record, int, error) {
	return s.records.Search(ctx, f, limit, offset)
}

// RescoreReport compares a stored result with a fresh evaluation of the
// same responses against the current catalog.
type RescoreReport struct {
	Original   json.RawMessage `json:"original"`
	Rescored   json.RawMessage `json:"rescored"`
	Consistent bool            `json:"consistent"`
	Drift      []string        `json:"drift,omitempty"`
}

// Rescore re-runs the engine on the responses stored with record id. The
// stored record is not modified.
func (s *Service) Rescore(ctx context.Context, id uuid.UUID) (*RescoreReport, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		rescored interface{}
		drift    []string
	)
	switch rec.Kind {
	case KindSingle:
		prev, err := rec.Single()
		if err != nil {
			return nil, err
		}
		next, err := s.engine.Rescore(ctx, prev)
		if err != nil {
			s.logFailure(rec.TestCode, err)
			return nil, err
		}
		rescored, drift = next, compareSingle(prev, next)
	case KindComprehensive:
		prev, err := rec.Comprehensive()
		if err != nil {
			return nil, err
		}
		next, err := s.engine.RescoreComprehensive(ctx, prev)
		if err != nil {
			s.logFailure(rec.TestCode, err)
			return nil, err
		}
		rescored, drift = next, compareComprehensive(prev, next)
	default:
		return nil, fmt.Errorf("record %s has unknown kind %q", rec.ID, rec.Kind)
	}

	raw, err := json.Marshal(rescored)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	if len(drift) > 0 {
		s.log.Warn().
			Str("assessment_id", rec.ID.String()).
			Strs("drift", drift).
			Msg("rescore differs from stored result")
	}
	return &RescoreReport{
		Original:   rec.Result,
		Rescored:   raw,
		Consistent: len(drift) == 0,
		Drift:      drift,
	}, nil
}

func compareSingle(prev, next *scoring.ScoredResult) []string {
	var drift []string
	if prev.RawScore != next.RawScore {
		drift = append(drift, fmt.Sprintf("%s score %g -> %g", prev.TestCode, prev.RawScore, next.RawScore))
	}
	if prev.SeverityLevel != next.SeverityLevel {
		drift = append(drift, fmt.Sprintf("%s severity %s -> %s", prev.TestCode, prev.SeverityLevel, next.SeverityLevel))
	}
	return drift
}

func compareComprehensive(prev, next *scoring.ComprehensiveResult) []string {
	var drift []string
	for _, cat := range scoring.SortedCategories(prev.SubResults) {
		if n, ok := next.SubResults[cat]; ok {
			drift = append(drift, compareSingle(prev.SubResults[cat], n)...)
		}
	}
	if prev.OverallRiskLevel != next.OverallRiskLevel {
		drift = append(drift, fmt.Sprintf("overall risk %s -> %s", prev.OverallRiskLevel, next.OverallRiskLevel))
	}
	return drift
}

// logFailure escalates catalog defects. Validation errors are the caller's
// to correct and only logged at debug.
func (s *Service) logFailure(code string, err error) {
	switch {
	case scoring.IsCatalogDefect(err):
		s.log.Error().Err(err).Bool("alert", true).Str("test_code", code).Msg("catalog defect")
	case scoring.IsValidation(err), scoring.IsNotFound(err), isKindMismatch(err):
		s.log.Debug().Err(err).Str("test_code", code).Msg("assessment rejected")
	default:
		s.log.Error().Err(err).Str("test_code", code).Msg("assessment failed")
	}
}

func isKindMismatch(err error) bool {
	return errors.Is(err, scoring.ErrCompositeDefinition) || errors.Is(err, scoring.ErrNotComposite)
}
