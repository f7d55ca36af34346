package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/worktime-ledger/internal/model"
	"github.com/iliyamo/worktime-ledger/internal/repository"
	"github.com/iliyamo/worktime-ledger/internal/worktime"
)

// WorkDayHandler serves /v1/workdays and the summary endpoint.
type WorkDayHandler struct {
	Ledger  *worktime.Ledger
	Days    *repository.WorkDayRepo
	Summary *worktime.Summarizer
	Log     *zap.Logger
}

func NewWorkDayHandler(l *worktime.Ledger, days *repository.WorkDayRepo, s *worktime.Summarizer, log *zap.Logger) *WorkDayHandler {
	return &WorkDayHandler{Ledger: l, Days: days, Summary: s, Log: log}
}

type workDayReq struct {
	Date        model.Date     `json:"date"`
	Category    model.Category `json:"category"`
	StartOfWork *model.Clock   `json:"start_of_work"`
	EndOfWork   *model.Clock   `json:"end_of_work"`
	Comment     *string        `json:"comment"`
	Shift       string         `json:"shift"`
	ShiftID     string         `json:"shift_id"`
}

func validationResponse(c echo.Context, verr *worktime.ValidationError) error {
	body := echo.Map{"error": verr.Message}
	if verr.Field != "" {
		body["field"] = verr.Field
	}
	return c.JSON(http.StatusBadRequest, body)
}

// Create: POST /v1/workdays
func (h *WorkDayHandler) Create(c echo.Context) error {
	uid, ok, err := ownerID(c)
	if !ok {
		return err
	}
	var req workDayReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	shiftID := req.Shift
	if shiftID == "" {
		shiftID = req.ShiftID
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	w, err := h.Ledger.Submit(ctx, uid, worktime.Candidate{
		Date:        req.Date,
		Category:    req.Category,
		StartOfWork: req.StartOfWork,
		EndOfWork:   req.EndOfWork,
		Comment:     req.Comment,
		ShiftID:     shiftID,
	})
	if err != nil {
		var verr *worktime.ValidationError
		if errors.As(err, &verr) {
			return validationResponse(c, verr)
		}
		h.Log.Error("submit workday", zap.String("user_id", uid), zap.Error(err))
		return internalError(c, "create workday failed")
	}
	return c.JSON(http.StatusCreated, w)
}

// List: GET /v1/workdays?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *WorkDayHandler) List(c echo.Context) error {
	uid, ok, err := ownerID(c)
	if !ok {
		return err
	}
	var from, to model.Date
	if s := c.QueryParam("from"); s != "" {
		if from, err = model.ParseDate(s); err != nil {
			return badRequest(c, "from must be YYYY-MM-DD")
		}
	}
	if s := c.QueryParam("to"); s != "" {
		if to, err = model.ParseDate(s); err != nil {
			return badRequest(c, "to must be YYYY-MM-DD")
		}
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	list, err := h.Days.ListByOwner(ctx, uid, from, to)
	if err != nil {
		return internalError(c, "list workdays failed")
	}
	return c.JSON(http.StatusOK, list)
}

// Get: GET /v1/workdays/:id
func (h *WorkDayHandler) Get(c echo.Context) error {
	uid, ok, err := ownerID(c)
	if !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	w, err := h.Days.GetByIDAndOwner(ctx, c.Param("id"), uid)
	if err != nil {
		if errors.Is(err, repository.ErrWorkDayNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "workday not found"})
		}
		return internalError(c, "load workday failed")
	}
	return c.JSON(http.StatusOK, w)
}

// Delete: DELETE /v1/workdays/:id
func (h *WorkDayHandler) Delete(c echo.Context) error {
	uid, ok, err := ownerID(c)
	if !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Days.DeleteByIDAndOwner(ctx, c.Param("id"), uid); err != nil {
		if errors.Is(err, repository.ErrWorkDayNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "workday not found"})
		}
		return internalError(c, "delete workday failed")
	}
	return c.NoContent(http.StatusNoContent)
}

type workCalcReq struct {
	FromDate model.Date `json:"from_date" query:"from_date"`
	ToDate   model.Date `json:"to_date" query:"to_date"`
}

// Calculate: POST /v1/work-calc {from_date, to_date}, also GET with the
// same names as query parameters.  An inverted range answers with an
// all-zero report.
func (h *WorkDayHandler) Calculate(c echo.Context) error {
	uid, ok, err := ownerID(c)
	if !ok {
		return err
	}
	var req workCalcReq
	if c.Request().Method == http.MethodGet {
		if req.FromDate, err = model.ParseDate(c.QueryParam("from_date")); err != nil {
			return badRequest(c, "from_date must be YYYY-MM-DD")
		}
		if req.ToDate, err = model.ParseDate(c.QueryParam("to_date")); err != nil {
			return badRequest(c, "to_date must be YYYY-MM-DD")
		}
	} else if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.FromDate.IsZero() || req.ToDate.IsZero() {
		return badRequest(c, "from_date and to_date required")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()
	report, err := h.Summary.Summarize(ctx, uid, req.FromDate, req.ToDate)
	if err != nil {
		h.Log.Error("summarize", zap.String("user_id", uid), zap.Error(err))
		return internalError(c, "summary failed")
	}
	return c.JSON(http.StatusOK, report)
}
