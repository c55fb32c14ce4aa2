package scoring

import "sort"

// answer is a response resolved against its question.
type answer struct {
	question *Question
	item     ResponseItem
}

// Score validates the response set against the definition and returns the
// raw score: the sum of every chosen option's value times its weight, with
// reverse-scored questions inverted on their own option scale.
//
// Checks run in order: unknown or duplicate answers, then completeness, then
// option membership. Score never mutates its arguments.
func Score(def *TestDefinition, responses ResponseSet) (float64, error) {
	chosen, err := resolve(def, responses)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, c := range chosen {
		total += contribution(c.question, c.option)
	}
	return total, nil
}

// MaxScore is the highest raw score the definition can produce.
func MaxScore(def *TestDefinition) float64 {
	var total float64
	for i := range def.Questions {
		q := &def.Questions[i]
		var best float64
		for j, o := range q.Options {
			if v := contribution(q, o); j == 0 || v > best {
				best = v
			}
		}
		total += best
	}
	return total
}

// MinScore is the lowest raw score the definition can produce.
func MinScore(def *TestDefinition) float64 {
	var total float64
	for i := range def.Questions {
		q := &def.Questions[i]
		var worst float64
		for j, o := range q.Options {
			if v := contribution(q, o); j == 0 || v < worst {
				worst = v
			}
		}
		total += worst
	}
	return total
}

// contribution is the scored value of choosing o on q.
func contribution(q *Question, o AnswerOption) float64 {
	v := o.Value
	if q.IsReverseScored {
		lo, hi := q.valueBounds()
		v = lo + hi - v
	}
	return v * o.EffectiveWeight()
}

type choice struct {
	question *Question
	option   AnswerOption
}

func resolve(def *TestDefinition, responses ResponseSet) ([]choice, error) {
	answers := make(map[int]answer, len(responses))
	for _, r := range responses {
		q, ok := lookupQuestion(def, r)
		if !ok {
			return nil, &UnknownQuestionError{TestCode: def.Code, QuestionID: r.QuestionID, QuestionNumber: r.QuestionNumber}
		}
		if _, dup := answers[q.ID]; dup {
			return nil, &DuplicateResponseError{TestCode: def.Code, QuestionID: q.ID}
		}
		answers[q.ID] = answer{question: q, item: r}
	}

	var missing []int
	for _, q := range def.Questions {
		if _, ok := answers[q.ID]; !ok {
			missing = append(missing, q.ID)
		}
	}
	if len(missing) > 0 {
		sort.Ints(missing)
		return nil, &IncompleteResponseError{TestCode: def.Code, Missing: missing}
	}

	chosen := make([]choice, 0, len(def.Questions))
	for i := range def.Questions {
		a := answers[def.Questions[i].ID]
		opt, ok := selectedOption(a)
		if !ok {
			return nil, &InvalidOptionError{
				TestCode:   def.Code,
				QuestionID: a.question.ID,
				OptionID:   a.item.OptionID,
				Value:      a.item.Value,
			}
		}
		chosen = append(chosen, choice{question: a.question, option: *opt})
	}
	return chosen, nil
}

func lookupQuestion(def *TestDefinition, r ResponseItem) (*Question, bool) {
	if r.QuestionID != 0 {
		return def.Question(r.QuestionID)
	}
	if r.QuestionNumber != 0 {
		return def.QuestionByNumber(r.QuestionNumber)
	}
	return nil, false
}

func selectedOption(a answer) (*AnswerOption, bool) {
	switch {
	case a.item.OptionID != nil:
		return a.question.Option(*a.item.OptionID)
	case a.item.Value != nil:
		return a.question.OptionByValue(*a.item.Value)
	default:
		return nil, false
	}
}
