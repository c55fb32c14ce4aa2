package assessment

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wellcheck/wellcheck/pkg/scoring"
)

type Kind string

const (
	KindSingle        Kind = "single"
	KindComprehensive Kind = "comprehensive"
)

// Record maps to the assessment_result table. Result holds the full
// ScoredResult or ComprehensiveResult as returned to the client; the flat
// columns duplicate its headline fields for filtering.
type Record struct {
	ID             uuid.UUID             `db:"id" json:"id"`
	UserID         string                `db:"user_id" json:"user_id"`
	Kind           Kind                  `db:"kind" json:"kind"`
	TestCode       string                `db:"test_code" json:"test_code"`
	Score          float64               `db:"score" json:"score"`
	MaxScore       float64               `db:"max_score" json:"max_score"`
	SeverityLevel  scoring.SeverityLevel `db:"severity_level" json:"severity_level,omitempty"`
	SeverityLabel  string                `db:"severity_label" json:"severity_label,omitempty"`
	RiskLevel      scoring.RiskLevel     `db:"risk_level" json:"risk_level"`
	Interpretation string                `db:"interpretation" json:"interpretation,omitempty"`
	Result         json.RawMessage       `db:"result" json:"result"`
	CreatedAt      time.Time             `db:"created_at" json:"created_at"`
}

func newSingleRecord(userID string, res *scoring.ScoredResult) (*Record, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &Record{
		ID:             uuid.New(),
		UserID:         userID,
		Kind:           KindSingle,
		TestCode:       res.TestCode,
		Score:          res.RawScore,
		MaxScore:       res.MaxScore,
		SeverityLevel:  res.SeverityLevel,
		SeverityLabel:  res.SeverityLabel,
		RiskLevel:      res.RiskLevel,
		Interpretation: res.Interpretation,
		Result:         raw,
		CreatedAt:      res.ComputedAt,
	}, nil
}

func newComprehensiveRecord(userID, code string, res *scoring.ComprehensiveResult) (*Record, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &Record{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      KindComprehensive,
		TestCode:  code,
		Score:     res.OverallScore,
		MaxScore:  res.MaxScore,
		RiskLevel: res.OverallRiskLevel,
		Result:    raw,
		CreatedAt: res.ComputedAt,
	}, nil
}

// Single decodes Result of a single-test record.
func (r *Record) Single() (*scoring.ScoredResult, error) {
	if r.Kind != KindSingle {
		return nil, fmt.Errorf("record %s is %s, not %s", r.ID, r.Kind, KindSingle)
	}
	var res scoring.ScoredResult
	if err := json.Unmarshal(r.Result, &res); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", r.ID, err)
	}
	return &res, nil
}

// Comprehensive decodes Result of a comprehensive record.
func (r *Record) Comprehensive() (*scoring.ComprehensiveResult, error) {
	if r.Kind != KindComprehensive {
		return nil, fmt.Errorf("record %s is %s, not %s", r.ID, r.Kind, KindComprehensive)
	}
	var res scoring.ComprehensiveResult
	if err := json.Unmarshal(r.Result, &res); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", r.ID, err)
	}
	return &res, nil
}

// Body returns the stored result with the record id merged in, the shape
// returned by the assess endpoints.
func (r *Record) Body() (map[string]json.RawMessage, error) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(r.Result, &body); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", r.ID, err)
	}
	id, _ := json.Marshal(r.ID)
	body["id"] = id
	return body, nil
}
