package scoring

import (
	"context"
	"fmt"
	"time"
)

// likert builds a test with n questions whose options are valued lo..hi.
// Question ids start at 1; option ids are question*10 + value offset.
func likert(code string, cat Category, n int, lo, hi float64, reverse map[int]bool, ranges []ScoringRange) *TestDefinition {
	def := &TestDefinition{Code: code, Name: code, Category: cat, ScoringRanges: ranges}
	for q := 1; q <= n; q++ {
		question := Question{ID: q, Number: q, Text: fmt.Sprintf("%s item %d", code, q), IsReverseScored: reverse[q]}
		for v, i := lo, 0; v <= hi; v, i = v+1, i+1 {
			question.Options = append(question.Options, AnswerOption{
				ID:           q*10 + i,
				Text:         fmt.Sprintf("option %g", v),
				Value:        v,
				DisplayOrder: i,
			})
		}
		def.Questions = append(def.Questions, question)
	}
	return def
}

func phq9() *TestDefinition {
	return likert("phq9", CategoryDepression, 9, 0, 3, nil, []ScoringRange{
		{MinScore: 0, MaxScore: 4, SeverityLevel: SeverityMinimal, SeverityLabel: "Minimal depression", Interpretation: "phq minimal"},
		{MinScore: 5, MaxScore: 9, SeverityLevel: SeverityMild, SeverityLabel: "Mild depression", Interpretation: "phq mild"},
		{MinScore: 10, MaxScore: 14, SeverityLevel: SeverityModerate, SeverityLabel: "Moderate depression", Interpretation: "phq moderate"},
		{MinScore: 15, MaxScore: 19, SeverityLevel: SeverityModeratelySevere, SeverityLabel: "Moderately severe depression", Interpretation: "phq moderately severe"},
		{MinScore: 20, MaxScore: 27, SeverityLevel: SeveritySevere, SeverityLabel: "Severe depression", Interpretation: "phq severe"},
	})
}

func gad7() *TestDefinition {
	return likert("gad7", CategoryAnxiety, 7, 0, 3, nil, []ScoringRange{
		{MinScore: 0, MaxScore: 4, SeverityLevel: SeverityMinimal, SeverityLabel: "Minimal anxiety", Interpretation: "gad minimal"},
		{MinScore: 5, MaxScore: 9, SeverityLevel: SeverityMild, SeverityLabel: "Mild anxiety", Interpretation: "gad mild"},
		{MinScore: 10, MaxScore: 14, SeverityLevel: SeverityModerate, SeverityLabel: "Moderate anxiety", Interpretation: "gad moderate"},
		{MinScore: 15, MaxScore: 21, SeverityLevel: SeveritySevere, SeverityLabel: "Severe anxiety", Interpretation: "gad severe"},
	})
}

func pss10() *TestDefinition {
	return likert("pss10", CategoryStress, 10, 0, 4, map[int]bool{4: true, 5: true, 7: true, 8: true}, []ScoringRange{
		{MinScore: 0, MaxScore: 13, SeverityLevel: SeverityLow, SeverityLabel: "Low stress", Interpretation: "pss low"},
		{MinScore: 14, MaxScore: 26, SeverityLevel: SeverityModerate, SeverityLabel: "Moderate stress", Interpretation: "pss moderate"},
		{MinScore: 27, MaxScore: 40, SeverityLevel: SeverityHigh, SeverityLabel: "High perceived stress", Interpretation: "pss high"},
	})
}

func battery() *TestDefinition {
	return &TestDefinition{
		Code:       "comprehensive",
		Name:       "Comprehensive wellbeing check",
		Category:   CategoryComprehensive,
		Components: []string{"phq9", "gad7", "pss10"},
	}
}

// values answers every question of def in order using the raw-value form.
func values(def *TestDefinition, vals ...float64) ResponseSet {
	rs := make(ResponseSet, 0, len(vals))
	for i, v := range vals {
		rs = append(rs, ValueAnswer(def.Questions[i].ID, v, def.Category))
	}
	return rs
}

// repeat returns n copies of v.
func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

type mapCatalog map[string]*TestDefinition

func (m mapCatalog) GetTestDefinition(_ context.Context, code string) (*TestDefinition, error) {
	def, ok := m[code]
	if !ok {
		return nil, &NotFoundError{Code: code}
	}
	return def, nil
}

func standardCatalog() mapCatalog {
	return mapCatalog{"phq9": phq9(), "gad7": gad7(), "pss10": pss10(), "comprehensive": battery()}
}

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestEngine() *Engine {
	e := NewEngine(standardCatalog())
	e.SetClock(func() time.Time { return fixedNow })
	return e
}
