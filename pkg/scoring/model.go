package scoring

import (
	"sort"
	"time"
)

// Category groups test definitions by the construct they measure.
type Category string

const (
	CategoryDepression    Category = "depression"
	CategoryAnxiety       Category = "anxiety"
	CategoryStress        Category = "stress"
	CategoryComprehensive Category = "comprehensive"
)

// SeverityLevel is the machine-readable band name of a ScoringRange.
type SeverityLevel string

const (
	SeverityMinimal          SeverityLevel = "minimal"
	SeverityMild             SeverityLevel = "mild"
	SeverityModerate         SeverityLevel = "moderate"
	SeverityModeratelySevere SeverityLevel = "moderately_severe"
	SeveritySevere           SeverityLevel = "severe"
	SeverityLow              SeverityLevel = "low"
	SeverityHigh             SeverityLevel = "high"
)

// Valid reports whether l is one of the known severity bands.
func (l SeverityLevel) Valid() bool {
	switch l {
	case SeverityMinimal, SeverityMild, SeverityModerate, SeverityModeratelySevere,
		SeveritySevere, SeverityLow, SeverityHigh:
		return true
	}
	return false
}

// RiskLevel is the three-tier risk used by the comprehensive aggregator.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

var riskRank = map[RiskLevel]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2}

// DefaultRisk maps a severity level to its risk tier when the range does not
// set one explicitly.
func DefaultRisk(level SeverityLevel) RiskLevel {
	switch level {
	case SeveritySevere, SeverityModeratelySevere, SeverityHigh:
		return RiskHigh
	case SeverityModerate:
		return RiskMedium
	default:
		return RiskLow
	}
}

// TestDefinition is one standardized questionnaire. Definitions are shared
// read-only by all requests and must not be mutated after publication.
type TestDefinition struct {
	Code          string         `json:"code" yaml:"code"`
	Name          string         `json:"name" yaml:"name"`
	Description   string         `json:"description,omitempty" yaml:"description,omitempty"`
	Category      Category       `json:"category" yaml:"category"`
	Version       string         `json:"version,omitempty" yaml:"version,omitempty"`
	Components    []string       `json:"components,omitempty" yaml:"components,omitempty"`
	Questions     []Question     `json:"questions" yaml:"questions"`
	ScoringRanges []ScoringRange `json:"scoring_ranges" yaml:"scoring_ranges"`
}

// Clone returns a deep copy of d.
func (d *TestDefinition) Clone() *TestDefinition {
	c := *d
	c.Components = append([]string(nil), d.Components...)
	c.ScoringRanges = append([]ScoringRange(nil), d.ScoringRanges...)
	c.Questions = nil
	for _, q := range d.Questions {
		q.Options = append([]AnswerOption(nil), q.Options...)
		c.Questions = append(c.Questions, q)
	}
	return &c
}

// IsComposite reports whether the definition concatenates other definitions.
func (d *TestDefinition) IsComposite() bool { return len(d.Components) > 0 }

// Question returns the question with the given id.
func (d *TestDefinition) Question(id int) (*Question, bool) {
	for i := range d.Questions {
		if d.Questions[i].ID == id {
			return &d.Questions[i], true
		}
	}
	return nil, false
}

// QuestionByNumber returns the question displayed at position n.
func (d *TestDefinition) QuestionByNumber(n int) (*Question, bool) {
	for i := range d.Questions {
		if d.Questions[i].Number == n {
			return &d.Questions[i], true
		}
	}
	return nil, false
}

type Question struct {
	ID              int            `json:"id" yaml:"id"`
	Number          int            `json:"number" yaml:"number"`
	Text            string         `json:"text" yaml:"text"`
	IsReverseScored bool           `json:"is_reverse_scored" yaml:"reverse_scored,omitempty"`
	Options         []AnswerOption `json:"options" yaml:"options"`
}

// Option returns the answer option with the given id.
func (q *Question) Option(id int) (*AnswerOption, bool) {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i], true
		}
	}
	return nil, false
}

// OptionByValue returns the first option carrying value v.
func (q *Question) OptionByValue(v float64) (*AnswerOption, bool) {
	for i := range q.Options {
		if q.Options[i].Value == v {
			return &q.Options[i], true
		}
	}
	return nil, false
}

// valueBounds returns the smallest and largest option value of the question.
func (q *Question) valueBounds() (lo, hi float64) {
	for i, o := range q.Options {
		if i == 0 || o.Value < lo {
			lo = o.Value
		}
		if i == 0 || o.Value > hi {
			hi = o.Value
		}
	}
	return lo, hi
}

type AnswerOption struct {
	ID           int     `json:"id" yaml:"id"`
	Text         string  `json:"text" yaml:"text"`
	Value        float64 `json:"value" yaml:"value"`
	Weight       float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
	DisplayOrder int     `json:"display_order" yaml:"display_order,omitempty"`
}

// EffectiveWeight returns the option weight, defaulting to 1.
func (o AnswerOption) EffectiveWeight() float64 {
	if o.Weight == 0 {
		return 1
	}
	return o.Weight
}

// ScoringRange maps an inclusive score interval to a severity band.
type ScoringRange struct {
	MinScore       float64       `json:"min_score" yaml:"min"`
	MaxScore       float64       `json:"max_score" yaml:"max"`
	SeverityLabel  string        `json:"severity_label" yaml:"label"`
	SeverityLevel  SeverityLevel `json:"severity_level" yaml:"level"`
	Interpretation string        `json:"interpretation" yaml:"interpretation"`
	ColorCode      string        `json:"color_code,omitempty" yaml:"color,omitempty"`
	Risk           RiskLevel     `json:"risk,omitempty" yaml:"risk,omitempty"`
}

// Contains reports whether score lies within the inclusive bounds.
func (r ScoringRange) Contains(score float64) bool {
	return r.MinScore <= score && score <= r.MaxScore
}

// ResponseItem is one answer. The option-id form sets OptionID; the raw-value
// form sets Value (and Category for comprehensive batteries). QuestionNumber
// may stand in for QuestionID.
type ResponseItem struct {
	QuestionID     int      `json:"question_id,omitempty"`
	QuestionNumber int      `json:"question_number,omitempty"`
	OptionID       *int     `json:"option_id,omitempty"`
	Value          *float64 `json:"response,omitempty"`
	Category       Category `json:"category,omitempty"`
}

// OptionAnswer builds an option-id response.
func OptionAnswer(questionID, optionID int) ResponseItem {
	return ResponseItem{QuestionID: questionID, OptionID: &optionID}
}

// ValueAnswer builds a raw-value response.
func ValueAnswer(questionID int, value float64, cat Category) ResponseItem {
	return ResponseItem{QuestionID: questionID, Value: &value, Category: cat}
}

// ResponseSet is the full set of answers for one submission.
type ResponseSet []ResponseItem

// ByCategory splits a comprehensive response set per category, preserving order.
func (rs ResponseSet) ByCategory() map[Category]ResponseSet {
	out := make(map[Category]ResponseSet)
	for _, r := range rs {
		out[r.Category] = append(out[r.Category], r)
	}
	return out
}

// ScoredResult is the outcome of scoring and classifying one single-category test.
type ScoredResult struct {
	TestCode       string        `json:"test_code"`
	Category       Category      `json:"category"`
	RawScore       float64       `json:"calculated_score"`
	MaxScore       float64       `json:"max_score"`
	SeverityLevel  SeverityLevel `json:"severity_level"`
	SeverityLabel  string        `json:"severity_label"`
	Interpretation string        `json:"interpretation"`
	ColorCode      string        `json:"color_code,omitempty"`
	RiskLevel      RiskLevel     `json:"risk_level"`
	Baseline       bool          `json:"baseline"`
	Responses      ResponseSet   `json:"raw_responses"`
	ComputedAt     time.Time     `json:"created_at"`
}

// ComprehensiveResult is derived entirely from its SubResults.
type ComprehensiveResult struct {
	SubResults       map[Category]*ScoredResult `json:"-"`
	OverallScore     float64                    `json:"overall_score"`
	NormalizedScore  float64                    `json:"normalized_score"`
	TotalScore       float64                    `json:"total_score"`
	MaxScore         float64                    `json:"max_score"`
	OverallRiskLevel RiskLevel                  `json:"overall_risk_level"`
	Recommendations  []string                   `json:"recommendations"`
	ComputedAt       time.Time                  `json:"created_at"`
}

// categoryOrder is the presentation order of the standard battery.
var categoryOrder = map[Category]int{
	CategoryDepression: 0,
	CategoryAnxiety:    1,
	CategoryStress:     2,
}

// SortedCategories returns the keys of sub in presentation order: the
// standard battery first, then any other category alphabetically.
func SortedCategories(sub map[Category]*ScoredResult) []Category {
	cats := make([]Category, 0, len(sub))
	for c := range sub {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		oi, iok := categoryOrder[cats[i]]
		oj, jok := categoryOrder[cats[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return cats[i] < cats[j]
		}
	})
	return cats
}
