package scoring

import "sort"

// Classification is the severity band a score falls into.
type Classification struct {
	SeverityLevel  SeverityLevel
	SeverityLabel  string
	Interpretation string
	ColorCode      string
	Risk           RiskLevel
	// Baseline is true when the band is the lowest one configured for the test.
	Baseline bool
}

// Classify returns the first range, in ascending MinScore order, whose
// inclusive bounds contain score. A score outside every range yields an
// UnclassifiableScoreError; it is never mapped to a default band.
func Classify(score float64, ranges []ScoringRange) (Classification, error) {
	return classify("", score, ranges)
}

func classify(code string, score float64, ranges []ScoringRange) (Classification, error) {
	sorted := sortedRanges(ranges)
	for i, r := range sorted {
		if !r.Contains(score) {
			continue
		}
		risk := r.Risk
		if risk == "" {
			risk = DefaultRisk(r.SeverityLevel)
		}
		return Classification{
			SeverityLevel:  r.SeverityLevel,
			SeverityLabel:  r.SeverityLabel,
			Interpretation: r.Interpretation,
			ColorCode:      r.ColorCode,
			Risk:           risk,
			Baseline:       i == 0,
		}, nil
	}
	return Classification{}, &UnclassifiableScoreError{TestCode: code, Score: score}
}

// sortedRanges returns a copy of ranges ordered by MinScore. Ties keep their
// configured order so that first-match semantics stay predictable.
func sortedRanges(ranges []ScoringRange) []ScoringRange {
	out := make([]ScoringRange, len(ranges))
	copy(out, ranges)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MinScore < out[j].MinScore })
	return out
}
