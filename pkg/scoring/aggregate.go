package scoring

import "math"

// StandardBattery is the set of categories a comprehensive assessment must cover.
var StandardBattery = []Category{CategoryDepression, CategoryAnxiety, CategoryStress}

var genericRecommendations = map[RiskLevel][]string{
	RiskLow: {
		"Keep up the routines that support your wellbeing: regular sleep, physical activity and time with people you trust.",
	},
	RiskMedium: {
		"Try structured self-help such as mindfulness exercises, a regular daily schedule and stress-management techniques.",
		"If these feelings persist for more than two weeks, consider talking to a mental health professional.",
	},
	RiskHigh: {
		"We strongly recommend consulting a qualified mental health professional as soon as possible.",
		"If you have thoughts of harming yourself, contact your local emergency number or a crisis line right away.",
	},
}

// GenericRecommendations returns the generic advice for a risk tier.
func GenericRecommendations(level RiskLevel) []string {
	recs := genericRecommendations[level]
	out := make([]string, len(recs))
	copy(out, recs)
	return out
}

// Aggregate combines per-category results into one comprehensive result.
// Every category in expected must be present.
//
// The overall risk is worst-case: a single high-risk category makes the
// whole result high, regardless of how the others scored.
func Aggregate(sub map[Category]*ScoredResult, expected []Category) (*ComprehensiveResult, error) {
	var missing []Category
	for _, c := range expected {
		if sub[c] == nil {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &AggregationError{Missing: missing}
	}
	if len(sub) == 0 {
		return nil, &AggregationError{}
	}

	res := &ComprehensiveResult{
		SubResults:       make(map[Category]*ScoredResult, len(sub)),
		OverallRiskLevel: RiskLow,
	}
	var normalized float64
	var recs []string
	for _, c := range SortedCategories(sub) {
		r := sub[c]
		if r == nil {
			continue
		}
		res.SubResults[c] = r
		res.TotalScore += r.RawScore
		res.MaxScore += r.MaxScore
		if r.MaxScore > 0 {
			normalized += r.RawScore / r.MaxScore * 100
		}
		if risk := riskOf(r); riskRank[risk] > riskRank[res.OverallRiskLevel] {
			res.OverallRiskLevel = risk
		}
		if !r.Baseline && r.Interpretation != "" {
			recs = append(recs, r.Interpretation)
		}
		if r.ComputedAt.After(res.ComputedAt) {
			res.ComputedAt = r.ComputedAt
		}
	}

	n := float64(len(res.SubResults))
	if n == 0 {
		return nil, &AggregationError{Missing: expected}
	}
	res.OverallScore = math.Round(res.TotalScore / n)
	res.NormalizedScore = math.Round(normalized/n*10) / 10
	res.Recommendations = append(recs, GenericRecommendations(res.OverallRiskLevel)...)
	return res, nil
}

// riskOf falls back to the severity level when a result carries no risk tier,
// e.g. records stored before risk tiers were recorded.
func riskOf(r *ScoredResult) RiskLevel {
	if r.RiskLevel != "" {
		return r.RiskLevel
	}
	return DefaultRisk(r.SeverityLevel)
}
