package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/worktime-ledger/internal/model"
	"github.com/iliyamo/worktime-ledger/internal/repository"
	"github.com/iliyamo/worktime-ledger/internal/worktime"
)

// ShiftHandler serves /v1/shifts.  Every operation is scoped to the caller.
type ShiftHandler struct {
	Shifts *worktime.ShiftRegistry
}

func NewShiftHandler(r *worktime.ShiftRegistry) *ShiftHandler { return &ShiftHandler{Shifts: r} }

type shiftReq struct {
	StartOfShift *model.Clock `json:"start_of_shift"`
	EndOfShift   *model.Clock `json:"end_of_shift"`
}

// Create: POST /v1/shifts
func (h *ShiftHandler) Create(c echo.Context) error {
	uid, ok, err := ownerID(c)
	if !ok {
		return err
	}
	var req shiftReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	s, err := h.Shifts.Create(ctx, uid, req.StartOfShift, req.EndOfShift)
	if err != nil {
		var verr *worktime.ValidationError
		if errors.As(err, &verr) {
			return badRequest(c, verr.Error())
		}
		return internalError(c, "create shift failed")
	}
	return c.JSON(http.StatusCreated, s)
}

// List: GET /v1/shifts
func (h *ShiftHandler) List(c echo.Context) error {
	uid, ok, err := ownerID(c)
	if !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	list, err := h.Shifts.List(ctx, uid)
	if err != nil {
		return internalError(c, "list shifts failed")
	}
	return c.JSON(http.StatusOK, list)
}

// Get: GET /v1/shifts/:id
func (h *ShiftHandler) Get(c echo.Context) error {
	uid, ok, err := ownerID(c)
	if !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	s, err := h.Shifts.Get(ctx, uid, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrShiftNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "shift not found"})
		}
		return internalError(c, "load shift failed")
	}
	return c.JSON(http.StatusOK, s)
}

// Delete: DELETE /v1/shifts/:id.  Workdays measured against the shift go
// with it.
func (h *ShiftHandler) Delete(c echo.Context) error {
	uid, ok, err := ownerID(c)
	if !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Shifts.Delete(ctx, uid, c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrShiftNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "shift not found"})
		}
		return internalError(c, "delete shift failed")
	}
	return c.NoContent(http.StatusNoContent)
}
