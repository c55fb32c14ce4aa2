package scoring

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestScore_SumsOptionValues(t *testing.T) {
	def := phq9()
	got, err := Score(def, values(def, 0, 1, 2, 3, 0, 1, 2, 3, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 13 {
		t.Errorf("Score = %g, want 13", got)
	}
}

func TestScore_Deterministic(t *testing.T) {
	def := pss10()
	rs := values(def, 0, 4, 1, 3, 2, 2, 4, 0, 1, 3)
	first, err := Score(def, rs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 50; i++ {
		again, err := Score(def, rs)
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", i, err)
		}
		if again != first {
			t.Fatalf("run %d: Score = %g, want %g", i, again, first)
		}
	}
}

func TestScore_OptionIDForm(t *testing.T) {
	def := phq9()
	var rs ResponseSet
	for _, q := range def.Questions {
		rs = append(rs, OptionAnswer(q.ID, q.Options[2].ID))
	}
	got, err := Score(def, rs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 18 {
		t.Errorf("Score = %g, want 18", got)
	}
}

func TestScore_QuestionNumberForm(t *testing.T) {
	def := gad7()
	var rs ResponseSet
	for _, q := range def.Questions {
		v := 1.0
		rs = append(rs, ResponseItem{QuestionNumber: q.Number, Value: &v})
	}
	got, err := Score(def, rs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 7 {
		t.Errorf("Score = %g, want 7", got)
	}
}

func TestScore_ReverseScoring(t *testing.T) {
	def := likert("rev", CategoryStress, 1, 0, 3, map[int]bool{1: true}, nil)
	tests := []struct {
		value float64
		want  float64
	}{
		{0, 3},
		{1, 2},
		{2, 1},
		{3, 0},
	}
	for _, tt := range tests {
		got, err := Score(def, values(def, tt.value))
		if err != nil {
			t.Fatalf("value %g: unexpected error: %v", tt.value, err)
		}
		if got != tt.want {
			t.Errorf("value %g contributes %g, want %g", tt.value, got, tt.want)
		}
	}
}

func TestScore_ReverseScoringOneBasedScale(t *testing.T) {
	def := likert("rev15", CategoryStress, 1, 1, 5, map[int]bool{1: true}, nil)
	for value, want := range map[float64]float64{1: 5, 2: 4, 3: 3, 5: 1} {
		got, err := Score(def, values(def, value))
		if err != nil {
			t.Fatalf("value %g: unexpected error: %v", value, err)
		}
		if got != want {
			t.Errorf("value %g contributes %g, want %g", value, got, want)
		}
	}
}

func TestScore_Weights(t *testing.T) {
	def := likert("w", CategoryStress, 2, 0, 3, nil, nil)
	for i := range def.Questions[0].Options {
		def.Questions[0].Options[i].Weight = 2
	}
	got, err := Score(def, values(def, 3, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 7 {
		t.Errorf("Score = %g, want 7", got)
	}
	if m := MaxScore(def); m != 9 {
		t.Errorf("MaxScore = %g, want 9", m)
	}
}

func TestScore_PSS10AllSometimes(t *testing.T) {
	def := pss10()
	got, err := Score(def, values(def, repeat(2, 10)...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 20 {
		t.Errorf("Score = %g, want 20", got)
	}
}

func TestScore_IncompleteNamesMissingQuestion(t *testing.T) {
	def := phq9()
	rs := values(def, repeat(1, 9)...)
	rs = append(rs[:6], rs[7:]...) // drop question 7

	_, err := Score(def, rs)
	var incomplete *IncompleteResponseError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteResponseError, got %v", err)
	}
	if diff := cmp.Diff([]int{7}, incomplete.Missing); diff != "" {
		t.Errorf("missing question ids mismatch:\n%s", diff)
	}
	if !IsValidation(err) {
		t.Error("expected IsValidation to be true")
	}
}

func TestScore_EmptyResponsesListsAllQuestions(t *testing.T) {
	def := gad7()
	_, err := Score(def, nil)
	var incomplete *IncompleteResponseError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteResponseError, got %v", err)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5, 6, 7}, incomplete.Missing); diff != "" {
		t.Errorf("missing question ids mismatch:\n%s", diff)
	}
}

func TestScore_DuplicateAnswer(t *testing.T) {
	def := gad7()
	rs := values(def, repeat(0, 7)...)
	rs = append(rs, ValueAnswer(3, 2, CategoryAnxiety))

	_, err := Score(def, rs)
	var dup *DuplicateResponseError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateResponseError, got %v", err)
	}
	if dup.QuestionID != 3 {
		t.Errorf("QuestionID = %d, want 3", dup.QuestionID)
	}
}

func TestScore_UnknownQuestion(t *testing.T) {
	def := gad7()
	rs := values(def, repeat(0, 7)...)
	rs = append(rs, ValueAnswer(99, 0, CategoryAnxiety))

	_, err := Score(def, rs)
	var unknown *UnknownQuestionError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownQuestionError, got %v", err)
	}
}

func TestScore_InvalidOption(t *testing.T) {
	def := phq9()
	rs := values(def, repeat(0, 9)...)
	foreign := def.Questions[1].Options[0].ID
	rs[0] = OptionAnswer(def.Questions[0].ID, foreign)

	_, err := Score(def, rs)
	var invalid *InvalidOptionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidOptionError, got %v", err)
	}
	if invalid.QuestionID != 1 {
		t.Errorf("QuestionID = %d, want 1", invalid.QuestionID)
	}
}

func TestScore_ValueOffScale(t *testing.T) {
	def := phq9()
	rs := values(def, repeat(0, 9)...)
	v := 7.0
	rs[4].Value = &v

	_, err := Score(def, rs)
	var invalid *InvalidOptionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidOptionError, got %v", err)
	}
}

func TestScore_NoSelection(t *testing.T) {
	def := gad7()
	rs := values(def, repeat(0, 7)...)
	rs[2] = ResponseItem{QuestionID: 3}

	_, err := Score(def, rs)
	var invalid *InvalidOptionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidOptionError, got %v", err)
	}
}

func TestScore_IncompleteCheckedBeforeOptions(t *testing.T) {
	def := gad7()
	rs := values(def, repeat(0, 6)...)
	bogus := 12345
	rs[0].Value = nil
	rs[0].OptionID = &bogus

	_, err := Score(def, rs)
	var incomplete *IncompleteResponseError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteResponseError first, got %v", err)
	}
}

func TestScore_DoesNotMutateResponses(t *testing.T) {
	def := pss10()
	rs := values(def, repeat(1, 10)...)
	before := make(ResponseSet, len(rs))
	copy(before, rs)
	if _, err := Score(def, rs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(before, rs); diff != "" {
		t.Errorf("responses mutated:\n%s", diff)
	}
}

func TestMaxAndMinScore(t *testing.T) {
	tests := []struct {
		name     string
		def      *TestDefinition
		min, max float64
	}{
		{"phq9", phq9(), 0, 27},
		{"gad7", gad7(), 0, 21},
		{"pss10", pss10(), 0, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaxScore(tt.def); got != tt.max {
				t.Errorf("MaxScore = %g, want %g", got, tt.max)
			}
			if got := MinScore(tt.def); got != tt.min {
				t.Errorf("MinScore = %g, want %g", got, tt.min)
			}
		})
	}
}
