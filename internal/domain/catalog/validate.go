package catalog

import (
	"fmt"
	"sort"

	"github.com/wellcheck/wellcheck/pkg/scoring"
)

var knownCategories = map[scoring.Category]bool{
	scoring.CategoryDepression:    true,
	scoring.CategoryAnxiety:       true,
	scoring.CategoryStress:        true,
	scoring.CategoryComprehensive: true,
}

// Validate checks that def can be scored and that every reachable score
// falls into exactly one range. It returns a *scoring.CatalogDefectError
// listing every problem found.
func Validate(def *scoring.TestDefinition) error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if def.Code == "" {
		add("code is required")
	}
	if def.Name == "" {
		add("name is required")
	}
	if !knownCategories[def.Category] {
		add("unknown category %q", def.Category)
	}

	if def.IsComposite() {
		if len(def.Questions) > 0 || len(def.ScoringRanges) > 0 {
			add("composite definition must not carry questions or scoring ranges")
		}
		seen := make(map[string]bool, len(def.Components))
		for _, c := range def.Components {
			if c == def.Code {
				add("composite lists itself as a component")
			}
			if seen[c] {
				add("component %s listed twice", c)
			}
			seen[c] = true
		}
	} else {
		qp := validateQuestions(def)
		problems = append(problems, qp...)
		if len(qp) == 0 {
			problems = append(problems, validateRanges(def)...)
		}
	}

	if len(problems) > 0 {
		return &scoring.CatalogDefectError{TestCode: def.Code, Problems: problems}
	}
	return nil
}

func validateQuestions(def *scoring.TestDefinition) []string {
	var problems []string
	if len(def.Questions) == 0 {
		return []string{"definition has no questions"}
	}
	ids := make(map[int]bool)
	numbers := make(map[int]bool)
	optionIDs := make(map[int]int)
	for _, q := range def.Questions {
		if q.ID < 1 {
			problems = append(problems, fmt.Sprintf("question %d: id must be positive", q.ID))
		}
		if ids[q.ID] {
			problems = append(problems, fmt.Sprintf("question id %d is not unique", q.ID))
		}
		ids[q.ID] = true
		if q.Number < 1 {
			problems = append(problems, fmt.Sprintf("question %d: number must be positive", q.ID))
		} else if numbers[q.Number] {
			problems = append(problems, fmt.Sprintf("question number %d is not unique", q.Number))
		}
		numbers[q.Number] = true

		if len(q.Options) == 0 {
			problems = append(problems, fmt.Sprintf("question %d has no options", q.ID))
			continue
		}
		values := make(map[float64]bool)
		for _, o := range q.Options {
			if owner, dup := optionIDs[o.ID]; dup {
				problems = append(problems, fmt.Sprintf("option id %d is used by questions %d and %d", o.ID, owner, q.ID))
			}
			optionIDs[o.ID] = q.ID
			if values[o.Value] {
				problems = append(problems, fmt.Sprintf("question %d: option value %g appears twice", q.ID, o.Value))
			}
			values[o.Value] = true
			if o.Weight < 0 {
				problems = append(problems, fmt.Sprintf("question %d: option %d has negative weight", q.ID, o.ID))
			}
		}
	}
	return problems
}

// validateRanges requires ascending, non-overlapping ranges with no gap
// wider than one point, spanning the reachable score interval.
func validateRanges(def *scoring.TestDefinition) []string {
	if len(def.ScoringRanges) == 0 {
		return []string{"definition has no scoring ranges"}
	}
	var problems []string
	ranges := append([]scoring.ScoringRange(nil), def.ScoringRanges...)
	sort.SliceStable(ranges, func(i, j int) bool { return ranges[i].MinScore < ranges[j].MinScore })

	for i, r := range ranges {
		if r.MinScore > r.MaxScore {
			problems = append(problems, fmt.Sprintf("range %g-%g is inverted", r.MinScore, r.MaxScore))
		}
		if !r.SeverityLevel.Valid() {
			problems = append(problems, fmt.Sprintf("range %g-%g: unknown severity level %q", r.MinScore, r.MaxScore, r.SeverityLevel))
		}
		if r.SeverityLabel == "" {
			problems = append(problems, fmt.Sprintf("range %g-%g: label is required", r.MinScore, r.MaxScore))
		}
		if i == 0 {
			continue
		}
		prev := ranges[i-1]
		switch {
		case r.MinScore <= prev.MaxScore:
			problems = append(problems, fmt.Sprintf("ranges %g-%g and %g-%g overlap", prev.MinScore, prev.MaxScore, r.MinScore, r.MaxScore))
		case r.MinScore-prev.MaxScore > 1:
			problems = append(problems, fmt.Sprintf("gap between %g and %g", prev.MaxScore, r.MinScore))
		}
	}

	lo, hi := scoring.MinScore(def), scoring.MaxScore(def)
	if first := ranges[0]; first.MinScore > lo {
		problems = append(problems, fmt.Sprintf("lowest range starts at %g, scores start at %g", first.MinScore, lo))
	}
	if last := ranges[len(ranges)-1]; last.MaxScore < hi {
		problems = append(problems, fmt.Sprintf("highest range ends at %g, scores reach %g", last.MaxScore, hi))
	}
	return problems
}

// ValidateSet validates every definition and checks that each composite's
// components are present in the set with distinct categories.
func ValidateSet(defs map[string]*scoring.TestDefinition) error {
	codes := make([]string, 0, len(defs))
	for code := range defs {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		def := defs[code]
		if err := Validate(def); err != nil {
			return err
		}
		if !def.IsComposite() {
			continue
		}
		var problems []string
		cats := make(map[scoring.Category]string)
		for _, c := range def.Components {
			comp, ok := defs[c]
			if !ok {
				problems = append(problems, fmt.Sprintf("component %s is not in the catalog", c))
				continue
			}
			if comp.IsComposite() {
				problems = append(problems, fmt.Sprintf("component %s is itself composite", c))
			}
			if other, dup := cats[comp.Category]; dup {
				problems = append(problems, fmt.Sprintf("components %s and %s share category %s", other, c, comp.Category))
			}
			cats[comp.Category] = c
		}
		if len(problems) > 0 {
			return &scoring.CatalogDefectError{TestCode: code, Problems: problems}
		}
	}
	return nil
}
