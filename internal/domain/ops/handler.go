package ops

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nhflow/flow/internal/domain/activity"
	"github.com/nhflow/flow/internal/platform/db"
	"github.com/nhflow/flow/pkg/pagination"
)

// Handler exposes the patient-flow workflows. Every mutating endpoint runs
// its whole cascade in one transaction, so a failed cascade leaves nothing
// half applied.
type Handler struct {
	eng  *activity.Engine
	deps Deps
}

func NewHandler(eng *activity.Engine, deps Deps) *Handler {
	return &Handler{eng: eng, deps: deps}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/movements", h.CreateMovement)
	api.POST("/swaps", h.CreateSwap)
	api.POST("/placements", h.CreatePlacement)
	api.GET("/placements/form", h.PlacementForm)
	api.POST("/discharges", h.CreateDischarge)
	api.POST("/admissions", h.CreateAdmission)

	api.GET("/activities", h.ListActivities)
	api.GET("/activities/:id", h.GetActivity)
	api.POST("/activities/:id/start", h.StartActivity)
	api.POST("/activities/:id/complete", h.CompleteActivity)
	api.POST("/activities/:id/cancel", h.CancelActivity)
}

func httpError(err error) error {
	switch activity.KindOf(err) {
	case activity.KindMissingField:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case activity.KindInvariant:
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case activity.KindNotFound:
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// createAndSubmit inserts a workflow activity and pushes the same values
// through submit, inside one transaction.
func (h *Handler) createAndSubmit(c echo.Context, model string, vals activity.Values) error {
	var id uuid.UUID
	err := db.RunInTx(c.Request().Context(), func(ctx context.Context) error {
		var err error
		id, err = h.eng.Create(ctx, model, activity.Refs{}, vals)
		if err != nil {
			return err
		}
		return h.eng.Submit(ctx, id, vals)
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"activity_id": id})
}

type movementRequest struct {
	PatientID    uuid.UUID  `json:"patient_id"`
	LocationID   *uuid.UUID `json:"location_id"`
	Reason       string     `json:"reason"`
	MoveDatetime *time.Time `json:"move_datetime"`
}

func (h *Handler) CreateMovement(c echo.Context) error {
	var req movementRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	vals := activity.Values{
		"patient_id":    req.PatientID,
		"location_id":   req.LocationID,
		"move_datetime": req.MoveDatetime,
	}
	if req.Reason != "" {
		vals["reason"] = req.Reason
	}
	return h.createAndSubmit(c, ModelMovement, vals)
}

type swapRequest struct {
	Location1ID uuid.UUID `json:"location1_id"`
	Location2ID uuid.UUID `json:"location2_id"`
}

func (h *Handler) CreateSwap(c echo.Context) error {
	var req swapRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return h.createAndSubmit(c, ModelSwap, activity.Values{
		"location1_id": req.Location1ID,
		"location2_id": req.Location2ID,
	})
}

type placementRequest struct {
	PatientID           uuid.UUID  `json:"patient_id"`
	SuggestedLocationID uuid.UUID  `json:"suggested_location_id"`
	LocationID          *uuid.UUID `json:"location_id"`
	Reason              string     `json:"reason"`
}

func (h *Handler) CreatePlacement(c echo.Context) error {
	var req placementRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	vals := activity.Values{
		"patient_id":            req.PatientID,
		"suggested_location_id": req.SuggestedLocationID,
		"location_id":           req.LocationID,
	}
	if req.Reason != "" {
		vals["reason"] = req.Reason
	}
	return h.createAndSubmit(c, ModelPlacement, vals)
}

func (h *Handler) PlacementForm(c echo.Context) error {
	patientID, err := uuid.Parse(c.QueryParam("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	field, err := PlacementForm(c.Request().Context(), h.eng, h.deps, patientID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, field)
}

type dischargeRequest struct {
	PatientID     uuid.UUID  `json:"patient_id"`
	DischargeDate *time.Time `json:"discharge_date"`
}

func (h *Handler) CreateDischarge(c echo.Context) error {
	var req dischargeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return h.createAndSubmit(c, ModelDischarge, activity.Values{
		"patient_id":     req.PatientID,
		"discharge_date": req.DischargeDate,
	})
}

type admissionRequest struct {
	PatientID    uuid.UUID   `json:"patient_id"`
	POSID        uuid.UUID   `json:"pos_id"`
	LocationID   uuid.UUID   `json:"location_id"`
	Code         string      `json:"code"`
	StartDate    *time.Time  `json:"start_date"`
	RefDoctorIDs []uuid.UUID `json:"ref_doctor_ids"`
	ConDoctorIDs []uuid.UUID `json:"con_doctor_ids"`
}

func (h *Handler) CreateAdmission(c echo.Context) error {
	var req admissionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	vals := activity.Values{
		"patient_id":     req.PatientID,
		"pos_id":         req.POSID,
		"location_id":    req.LocationID,
		"start_date":     req.StartDate,
		"ref_doctor_ids": req.RefDoctorIDs,
		"con_doctor_ids": req.ConDoctorIDs,
	}
	if req.Code != "" {
		vals["code"] = req.Code
	}
	return h.createAndSubmit(c, ModelAdmission, vals)
}

func (h *Handler) GetActivity(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	act, err := h.eng.Browse(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, act)
}

func (h *Handler) ListActivities(c echo.Context) error {
	f := activity.Filter{DataModel: c.QueryParam("data_model")}
	if raw := c.QueryParam("patient_id"); raw != "" {
		pid, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &pid
	}
	if raw := c.QueryParam("state"); raw != "" {
		f.States = []activity.State{activity.State(raw)}
	}
	acts, err := h.eng.Search(c.Request().Context(), f, activity.OrderSequenceAsc)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	p := pagination.FromContext(c)
	total := len(acts)
	if p.Offset >= total {
		acts = nil
	} else if end := p.Offset + p.Limit; end < total {
		acts = acts[p.Offset:end]
	} else {
		acts = acts[p.Offset:]
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(acts, total, p.Limit, p.Offset))
}

func (h *Handler) transition(c echo.Context, fn func(ctx context.Context, id uuid.UUID) error) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	err = db.RunInTx(c.Request().Context(), func(ctx context.Context) error {
		return fn(ctx, id)
	})
	if err != nil {
		return httpError(err)
	}
	act, err := h.eng.Browse(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, act)
}

func (h *Handler) StartActivity(c echo.Context) error {
	return h.transition(c, h.eng.Start)
}

func (h *Handler) CompleteActivity(c echo.Context) error {
	return h.transition(c, h.eng.Complete)
}

func (h *Handler) CancelActivity(c echo.Context) error {
	return h.transition(c, h.eng.Cancel)
}
