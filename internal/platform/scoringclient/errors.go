package scoringclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/wellcheck/wellcheck/pkg/scoring"
)

// APIError is a non-2xx answer from the server that has no typed
// equivalent in package scoring.
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("remote scoring: %d %s: %s", e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("remote scoring: %d: %s", e.Status, e.Message)
}

type unavailableError struct {
	err error
}

func (e *unavailableError) Error() string { return "remote scoring unreachable: " + e.err.Error() }

func (e *unavailableError) Unwrap() error { return e.err }

// IsUnavailable reports whether err means the server could not answer:
// a transport failure or a 5xx that carries no typed error.
func IsUnavailable(err error) bool {
	var u *unavailableError
	if errors.As(err, &u) {
		return true
	}
	var api *APIError
	return errors.As(err, &api) && api.Status >= 500
}

type errorBody struct {
	Message            string             `json:"message"`
	Error              string             `json:"error"`
	Kind               string             `json:"kind"`
	MissingQuestionIDs []int              `json:"missing_question_ids"`
	MissingCategories  []scoring.Category `json:"missing_categories"`
	QuestionID         int                `json:"question_id"`
	QuestionNumber     int                `json:"question_number"`
	OptionID           *int               `json:"option_id"`
	Value              *float64           `json:"value"`
}

// decodeError turns an error response back into the scoring error the
// server reported, so callers classify remote and local failures alike.
func decodeError(status int, code string, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	msg := eb.Error
	if msg == "" {
		msg = eb.Message
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch eb.Kind {
	case "incomplete_response":
		return &scoring.IncompleteResponseError{TestCode: code, Missing: eb.MissingQuestionIDs}
	case "duplicate_response":
		return &scoring.DuplicateResponseError{TestCode: code, QuestionID: eb.QuestionID}
	case "unknown_question":
		return &scoring.UnknownQuestionError{TestCode: code, QuestionID: eb.QuestionID, QuestionNumber: eb.QuestionNumber}
	case "invalid_option":
		return &scoring.InvalidOptionError{TestCode: code, QuestionID: eb.QuestionID, OptionID: eb.OptionID, Value: eb.Value}
	case "aggregation":
		return &scoring.AggregationError{Missing: eb.MissingCategories}
	case "catalog_defect":
		return &scoring.CatalogDefectError{TestCode: code, Problems: []string{msg}}
	case "not_found":
		return &scoring.NotFoundError{Code: code}
	}
	if status == http.StatusNotFound {
		return &scoring.NotFoundError{Code: code}
	}
	return &APIError{Status: status, Kind: eb.Kind, Message: msg}
}
