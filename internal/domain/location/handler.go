package location

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nhflow/flow/pkg/pagination"
)

type Handler struct {
	dir  *Directory
	repo Repository
}

func NewHandler(dir *Directory, repo Repository) *Handler {
	return &Handler{dir: dir, repo: repo}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/locations", h.CreateLocation)
	api.GET("/locations", h.ListLocations)
	api.GET("/locations/:id", h.GetLocation)
	api.GET("/locations/beds/available", h.ListAvailableBeds)
	api.POST("/pos", h.CreatePOS)
}

func (h *Handler) CreateLocation(c echo.Context) error {
	var loc Location
	if err := c.Bind(&loc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if loc.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if loc.Usage == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "usage is required")
	}
	loc.Active = true
	if err := h.repo.Create(c.Request().Context(), &loc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, loc)
}

func (h *Handler) GetLocation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	loc, err := h.dir.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "location not found")
	}
	return c.JSON(http.StatusOK, loc)
}

func (h *Handler) ListLocations(c echo.Context) error {
	pg := pagination.FromContext(c)
	locs, total, err := h.repo.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(locs, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListAvailableBeds(c echo.Context) error {
	ctx := c.Request().Context()
	if under := c.QueryParam("under"); under != "" {
		root, err := uuid.Parse(under)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid under parameter")
		}
		beds, err := h.dir.AvailableBedsUnder(ctx, root)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, beds)
	}
	ids, err := h.dir.AvailableBedIDs(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ids)
}

func (h *Handler) CreatePOS(c echo.Context) error {
	var pos POS
	if err := c.Bind(&pos); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if pos.LocationID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "location_id is required")
	}
	if err := h.repo.CreatePOS(c.Request().Context(), &pos); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, pos)
}
