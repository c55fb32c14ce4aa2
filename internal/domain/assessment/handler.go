package assessment

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/wellcheck/wellcheck/internal/platform/auth"
	"github.com/wellcheck/wellcheck/pkg/pagination"
	"github.com/wellcheck/wellcheck/pkg/scoring"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the assessment endpoints. recordMW wraps the routes
// that read stored records, outside the role checks so denied attempts pass
// through it too.
func (h *Handler) RegisterRoutes(api *echo.Group, recordMW ...echo.MiddlewareFunc) {
	respondent := auth.RequireRole(auth.RoleRespondent)
	api.POST("/tests/:code/assess", h.Assess, respondent)
	api.POST("/assessments/comprehensive", h.AssessComprehensive, respondent)

	api.GET("/assessments", h.ListAssessments, recordMW...)
	api.GET("/assessments/:id", h.GetAssessment, recordMW...)
	rescoreMW := append(append([]echo.MiddlewareFunc{}, recordMW...), auth.RequireRole(auth.RoleClinician))
	api.POST("/assessments/:id/rescore", h.Rescore, rescoreMW...)
}

type assessRequest struct {
	TestCode  string              `json:"test_code,omitempty"`
	Responses scoring.ResponseSet `json:"responses"`
}

func (h *Handler) Assess(c echo.Context) error {
	var req assessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	rec, err := h.svc.Assess(ctx, auth.UserIDFromContext(ctx), c.Param("code"), req.Responses)
	if err != nil {
		return assessmentError(err)
	}
	return respondRecord(c, http.StatusCreated, rec)
}

func (h *Handler) AssessComprehensive(c echo.Context) error {
	var req assessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	rec, err := h.svc.AssessComprehensive(ctx, auth.UserIDFromContext(ctx), req.TestCode, req.Responses)
	if err != nil {
		return assessmentError(err)
	}
	return respondRecord(c, http.StatusCreated, rec)
}

// ListAssessments returns the caller's records. Clinicians may pass user_id
// to read another user's history, or scope=all to read every user's.
// test_code and risk_level narrow the list.
func (h *Handler) ListAssessments(c echo.Context) error {
	ctx := c.Request().Context()
	f := Filter{
		UserID:   auth.UserIDFromContext(ctx),
		TestCode: c.QueryParam("test_code"),
	}
	other := c.QueryParam("user_id")
	all := c.QueryParam("scope") == "all"
	if (all || (other != "" && other != f.UserID)) && !auth.HasRole(ctx, auth.RoleClinician) {
		return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
	}
	switch {
	case all, other != "":
		f.UserID = other
	case f.UserID == "":
		return echo.NewHTTPError(http.StatusUnauthorized, "missing user identity")
	}
	if risk := c.QueryParam("risk_level"); risk != "" {
		switch scoring.RiskLevel(risk) {
		case scoring.RiskLow, scoring.RiskMedium, scoring.RiskHigh:
			f.RiskLevel = scoring.RiskLevel(risk)
		default:
			return echo.NewHTTPError(http.StatusBadRequest, "risk_level must be low, medium or high")
		}
	}

	p := pagination.FromContext(c)
	items, total, err := h.svc.List(ctx, f, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Record{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p))
}

func (h *Handler) GetAssessment(c echo.Context) error {
	rec, err := h.visibleRecord(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) Rescore(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	report, err := h.svc.Rescore(c.Request().Context(), id)
	if err != nil {
		return assessmentError(err)
	}
	return c.JSON(http.StatusOK, report)
}

// visibleRecord loads the record named by :id. Records owned by someone else
// are reported as missing unless the caller is a clinician.
func (h *Handler) visibleRecord(c echo.Context) (*Record, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	rec, err := h.svc.Get(ctx, id)
	if err != nil {
		return nil, assessmentError(err)
	}
	if rec.UserID != auth.UserIDFromContext(ctx) && !auth.HasRole(ctx, auth.RoleClinician) {
		return nil, assessmentError(ErrNotFound)
	}
	return rec, nil
}

func respondRecord(c echo.Context, status int, rec *Record) error {
	body, err := rec.Body()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(status, body)
}

func assessmentError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), scoring.IsNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case scoring.IsValidation(err):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, validationBody(err))
	case isKindMismatch(err):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]interface{}{
			"error":                err.Error(),
			"kind":                 "wrong_test_kind",
			"missing_question_ids": []int{},
		})
	case scoring.IsCatalogDefect(err):
		return echo.NewHTTPError(http.StatusInternalServerError, map[string]interface{}{
			"error": "test definition is misconfigured",
			"kind":  scoring.Kind(err),
		})
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// validationBody describes a rejected submission with enough detail for a
// client to rebuild the typed error.
func validationBody(err error) map[string]interface{} {
	body := map[string]interface{}{
		"error":                err.Error(),
		"kind":                 scoring.Kind(err),
		"missing_question_ids": []int{},
	}
	var (
		incomplete *scoring.IncompleteResponseError
		duplicate  *scoring.DuplicateResponseError
		unknown    *scoring.UnknownQuestionError
		invalid    *scoring.InvalidOptionError
		agg        *scoring.AggregationError
	)
	switch {
	case errors.As(err, &incomplete):
		body["missing_question_ids"] = incomplete.Missing
	case errors.As(err, &duplicate):
		body["question_id"] = duplicate.QuestionID
	case errors.As(err, &unknown):
		body["question_id"] = unknown.QuestionID
		body["question_number"] = unknown.QuestionNumber
	case errors.As(err, &invalid):
		body["question_id"] = invalid.QuestionID
		if invalid.OptionID != nil {
			body["option_id"] = *invalid.OptionID
		}
		if invalid.Value != nil {
			body["value"] = *invalid.Value
		}
	case errors.As(err, &agg):
		body["missing_categories"] = agg.Missing
	}
	return body
}
