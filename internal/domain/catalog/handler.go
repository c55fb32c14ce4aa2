package catalog

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wellcheck/wellcheck/internal/platform/auth"
	"github.com/wellcheck/wellcheck/pkg/scoring"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the catalog endpoints. readMW wraps the two public
// reads only.
func (h *Handler) RegisterRoutes(api *echo.Group, readMW ...echo.MiddlewareFunc) {
	api.GET("/tests", h.ListTests, readMW...)
	api.GET("/tests/:code", h.GetTest, readMW...)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.PUT("/tests/:code", h.PutTest)
	admin.POST("/tests/seed", h.Seed)
}

func (h *Handler) ListTests(c echo.Context) error {
	items, err := h.svc.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if cat := c.QueryParam("category"); cat != "" {
		filtered := items[:0]
		for _, s := range items {
			if string(s.Category) == cat {
				filtered = append(filtered, s)
			}
		}
		items = filtered
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
}

func (h *Handler) GetTest(c echo.Context) error {
	def, err := h.svc.GetTestDefinition(c.Request().Context(), c.Param("code"))
	if err != nil {
		return definitionError(err)
	}
	return c.JSON(http.StatusOK, def)
}

func (h *Handler) PutTest(c echo.Context) error {
	var def scoring.TestDefinition
	if err := c.Bind(&def); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if def.Code == "" {
		def.Code = c.Param("code")
	}
	if def.Code != c.Param("code") {
		return echo.NewHTTPError(http.StatusBadRequest, "code in body does not match path")
	}
	if _, err := h.svc.Import(c.Request().Context(), []*scoring.TestDefinition{&def}); err != nil {
		return definitionError(err)
	}
	return c.JSON(http.StatusOK, &def)
}

func (h *Handler) Seed(c echo.Context) error {
	n, err := h.svc.Seed(c.Request().Context())
	if err != nil {
		return definitionError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"imported": n})
}

func definitionError(err error) error {
	var defect *scoring.CatalogDefectError
	switch {
	case scoring.IsNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.As(err, &defect):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]interface{}{
			"error":    "invalid test definition",
			"kind":     scoring.Kind(err),
			"problems": defect.Problems,
		})
	case errors.Is(err, ErrReadOnly):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
