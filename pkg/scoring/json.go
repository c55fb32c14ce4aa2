package scoring

import (
	"encoding/json"
	"time"
)

type comprehensiveSummary struct {
	OverallScore     float64   `json:"overall_score"`
	NormalizedScore  float64   `json:"normalized_score"`
	TotalScore       float64   `json:"total_score"`
	MaxScore         float64   `json:"max_score"`
	OverallRiskLevel RiskLevel `json:"overall_risk_level"`
	Recommendations  []string  `json:"recommendations"`
	ComputedAt       time.Time `json:"created_at"`
}

var summaryKeys = map[string]bool{
	"overall_score": true, "normalized_score": true, "total_score": true, "max_score": true,
	"overall_risk_level": true, "recommendations": true, "created_at": true,
}

// MarshalJSON writes each sub-result under its category name next to the
// summary fields, e.g. {"depression": {...}, "anxiety": {...}, "total_score": 31}.
func (r ComprehensiveResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.SubResults)+len(summaryKeys))
	for cat, sub := range r.SubResults {
		out[string(cat)] = sub
	}
	out["overall_score"] = r.OverallScore
	out["normalized_score"] = r.NormalizedScore
	out["total_score"] = r.TotalScore
	out["max_score"] = r.MaxScore
	out["overall_risk_level"] = r.OverallRiskLevel
	recs := r.Recommendations
	if recs == nil {
		recs = []string{}
	}
	out["recommendations"] = recs
	out["created_at"] = r.ComputedAt
	return json.Marshal(out)
}

func (r *ComprehensiveResult) UnmarshalJSON(data []byte) error {
	var summary comprehensiveSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	sub := make(map[Category]*ScoredResult)
	for key, msg := range raw {
		if summaryKeys[key] || !isObject(msg) {
			continue
		}
		var sr ScoredResult
		if err := json.Unmarshal(msg, &sr); err != nil {
			return err
		}
		sub[Category(key)] = &sr
	}
	*r = ComprehensiveResult{
		SubResults:       sub,
		OverallScore:     summary.OverallScore,
		NormalizedScore:  summary.NormalizedScore,
		TotalScore:       summary.TotalScore,
		MaxScore:         summary.MaxScore,
		OverallRiskLevel: summary.OverallRiskLevel,
		Recommendations:  summary.Recommendations,
		ComputedAt:       summary.ComputedAt,
	}
	return nil
}

// isObject reports whether msg holds a JSON object; other keys such as a
// record id travel alongside the sub-results and are skipped.
func isObject(msg json.RawMessage) bool {
	for _, b := range msg {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b == '{'
	}
	return false
}
