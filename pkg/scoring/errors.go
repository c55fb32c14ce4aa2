package scoring

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError is returned for an unknown test code.
type NotFoundError struct {
	Code string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("test definition %q not found", e.Code)
}

// IncompleteResponseError names the questions left unanswered.
type IncompleteResponseError struct {
	TestCode string
	Missing  []int
}

func (e *IncompleteResponseError) Error() string {
	return fmt.Sprintf("%s: unanswered question(s) %s", e.TestCode, joinInts(e.Missing))
}

// DuplicateResponseError is returned when one question is answered more than once.
type DuplicateResponseError struct {
	TestCode   string
	QuestionID int
}

func (e *DuplicateResponseError) Error() string {
	return fmt.Sprintf("%s: question %d answered more than once", e.TestCode, e.QuestionID)
}

// UnknownQuestionError is returned for an answer to a question the test does not have.
type UnknownQuestionError struct {
	TestCode       string
	QuestionID     int
	QuestionNumber int
}

func (e *UnknownQuestionError) Error() string {
	if e.QuestionID == 0 && e.QuestionNumber != 0 {
		return fmt.Sprintf("%s: no question with number %d", e.TestCode, e.QuestionNumber)
	}
	return fmt.Sprintf("%s: no question with id %d", e.TestCode, e.QuestionID)
}

// InvalidOptionError is returned when the selected option does not belong to the question.
type InvalidOptionError struct {
	TestCode   string
	QuestionID int
	OptionID   *int
	Value      *float64
}

func (e *InvalidOptionError) Error() string {
	switch {
	case e.OptionID != nil:
		return fmt.Sprintf("%s: option %d does not belong to question %d", e.TestCode, *e.OptionID, e.QuestionID)
	case e.Value != nil:
		return fmt.Sprintf("%s: value %g is not on the scale of question %d", e.TestCode, *e.Value, e.QuestionID)
	default:
		return fmt.Sprintf("%s: question %d has no selected option", e.TestCode, e.QuestionID)
	}
}

// UnclassifiableScoreError means a score fell outside every configured range.
// It is a catalog defect, not a user error.
type UnclassifiableScoreError struct {
	TestCode string
	Score    float64
}

func (e *UnclassifiableScoreError) Error() string {
	if e.TestCode == "" {
		return fmt.Sprintf("score %g matches no scoring range", e.Score)
	}
	return fmt.Sprintf("%s: score %g matches no scoring range", e.TestCode, e.Score)
}

// CatalogDefectError reports a malformed test definition.
type CatalogDefectError struct {
	TestCode string
	Problems []string
}

func (e *CatalogDefectError) Error() string {
	return fmt.Sprintf("test definition %q is malformed: %s", e.TestCode, strings.Join(e.Problems, "; "))
}

// AggregationError is returned when sub-results are missing for expected categories.
type AggregationError struct {
	Missing []Category
}

func (e *AggregationError) Error() string {
	names := make([]string, len(e.Missing))
	for i, c := range e.Missing {
		names[i] = string(c)
	}
	return fmt.Sprintf("missing sub-result(s) for %s", strings.Join(names, ", "))
}

// IsValidation reports whether err is caused by user input that can be
// corrected and resubmitted.
func IsValidation(err error) bool {
	var (
		incomplete *IncompleteResponseError
		duplicate  *DuplicateResponseError
		unknown    *UnknownQuestionError
		invalid    *InvalidOptionError
		agg        *AggregationError
	)
	return errors.As(err, &incomplete) ||
		errors.As(err, &duplicate) ||
		errors.As(err, &unknown) ||
		errors.As(err, &invalid) ||
		errors.As(err, &agg)
}

// IsCatalogDefect reports whether err is caused by broken reference data.
func IsCatalogDefect(err error) bool {
	var (
		unclassifiable *UnclassifiableScoreError
		defect         *CatalogDefectError
	)
	return errors.As(err, &unclassifiable) || errors.As(err, &defect)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Kind returns a short stable name for the error class, used on the wire.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsNotFound(err):
		return "not_found"
	case IsCatalogDefect(err):
		return "catalog_defect"
	}
	var (
		incomplete *IncompleteResponseError
		duplicate  *DuplicateResponseError
		unknown    *UnknownQuestionError
		invalid    *InvalidOptionError
		agg        *AggregationError
	)
	switch {
	case errors.As(err, &incomplete):
		return "incomplete_response"
	case errors.As(err, &duplicate):
		return "duplicate_response"
	case errors.As(err, &unknown):
		return "unknown_question"
	case errors.As(err, &invalid):
		return "invalid_option"
	case errors.As(err, &agg):
		return "aggregation"
	}
	return "internal"
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}
