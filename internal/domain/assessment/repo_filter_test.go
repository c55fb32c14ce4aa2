package assessment

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/wellcheck/wellcheck/pkg/scoring"
)

func TestSearchClause(t *testing.T) {
	tests := []struct {
		name  string
		f     Filter
		where string
		args  []interface{}
	}{
		{"empty", Filter{}, ` WHERE 1=1`, nil},
		{"user", Filter{UserID: "u1"}, ` WHERE 1=1 AND user_id = $1`, []interface{}{"u1"}},
		{"risk", Filter{RiskLevel: scoring.RiskHigh}, ` WHERE 1=1 AND risk_level = $1`, []interface{}{"high"}},
		{
			"all",
			Filter{UserID: "u1", TestCode: "phq9", RiskLevel: scoring.RiskMedium},
			` WHERE 1=1 AND user_id = $1 AND test_code = $2 AND risk_level = $3`,
			[]interface{}{"u1", "phq9", "medium"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := searchClause(tt.f)
			if where != tt.where {
				t.Errorf("where = %q, want %q", where, tt.where)
			}
			if diff := cmp.Diff(tt.args, args); diff != "" {
				t.Errorf("args mismatch:\n%s", diff)
			}
		})
	}
}

func TestMongoFilter(t *testing.T) {
	got := mongoFilter(Filter{UserID: "u1", RiskLevel: scoring.RiskHigh})
	want := bson.M{"userId": "u1", "riskLevel": "high"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("filter mismatch:\n%s", diff)
	}
	if len(mongoFilter(Filter{})) != 0 {
		t.Error("empty filter should match every document")
	}
}
