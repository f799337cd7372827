package scheduling

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/agenda/internal/platform/auth"
	"github.com/clinic/agenda/pkg/pagination"
)

type Handler struct {
	mgr *Manager
}

func NewHandler(mgr *Manager) *Handler {
	return &Handler{mgr: mgr}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Reads: any clinic role. Admin always passes.
	read := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleReceptionist, auth.RolePatient))
	read.GET("/schedules/:id", h.GetInterval)
	read.GET("/doctors/:doctor_id/schedules", h.ListForDoctor)
	read.GET("/doctors/:doctor_id/schedules/weekly", h.WeeklyView)
	read.GET("/doctors/:doctor_id/slots", h.ListSlots)

	write := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleReceptionist))
	write.POST("/schedules", h.CreateInterval)
	write.PATCH("/schedules/:id", h.UpdateInterval)
	write.PUT("/schedules/:id", h.UpdateInterval)
	write.DELETE("/schedules/:id", h.DeleteInterval)
}

type intervalResponse struct {
	WeeklyInterval
	DayName string `json:"day_name"`
}

func (h *Handler) present(w WeeklyInterval) intervalResponse {
	return intervalResponse{WeeklyInterval: w, DayName: h.mgr.Policy().Days.Name(w.DayOfWeek)}
}

type createIntervalRequest struct {
	DoctorID  int64           `json:"doctor_id"`
	DayOfWeek json.RawMessage `json:"day_of_week"`
	Start     string          `json:"start"`
	End       string          `json:"end"`
}

func (h *Handler) CreateInterval(c echo.Context) error {
	var req createIntervalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.DoctorID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor_id is required")
	}
	day, err := ParseDayJSON(req.DayOfWeek)
	if err != nil {
		return httpError(err)
	}
	w, err := h.mgr.Create(c.Request().Context(), req.DoctorID, day, req.Start, req.End)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, h.present(*w))
}

func (h *Handler) GetInterval(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	w, err := h.mgr.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, h.present(*w))
}

func (h *Handler) UpdateInterval(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&fields); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	patch, err := parsePatch(fields)
	if err != nil {
		return httpError(err)
	}
	if patch.Empty() {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one of day_of_week, start, end is required")
	}
	w, err := h.mgr.Update(c.Request().Context(), id, patch)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, h.present(*w))
}

// parsePatch keeps only the fields the caller actually sent. Unknown fields
// are ignored.
func parsePatch(fields map[string]json.RawMessage) (Patch, error) {
	var p Patch
	if raw, ok := fields["day_of_week"]; ok {
		day, err := ParseDayJSON(raw)
		if err != nil {
			return Patch{}, err
		}
		p.DayOfWeek = Some(day)
	}
	for _, f := range []struct {
		key string
		dst *Optional[string]
	}{{"start", &p.Start}, {"end", &p.End}} {
		raw, ok := fields[f.key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Patch{}, newError(KindInvalidTimeFormat, "parse patch", "%s must be a HH:MM string", f.key)
		}
		*f.dst = Some(s)
	}
	return p, nil
}

func (h *Handler) DeleteInterval(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.mgr.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListForDoctor(c echo.Context) error {
	doctorID, err := doctorParam(c)
	if err != nil {
		return err
	}
	items, err := h.mgr.ListForDoctor(c.Request().Context(), doctorID)
	if err != nil {
		return httpError(err)
	}
	out := make([]intervalResponse, 0, len(items))
	for _, w := range items {
		out = append(out, h.present(w))
	}
	// Without limit/offset the whole week is returned.
	if p, ok := pagination.FromContext(c); ok {
		resp := pagination.NewResponse(pagination.Page(out, p), len(out), p)
		resp.Links = p.Links(c.Request().URL.Path, len(out))
		return c.JSON(http.StatusOK, resp)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor_id": doctorID,
		"data":      out,
		"total":     len(out),
	})
}

func (h *Handler) WeeklyView(c echo.Context) error {
	doctorID, err := doctorParam(c)
	if err != nil {
		return err
	}
	view, err := h.mgr.WeeklyView(c.Request().Context(), doctorID)
	if err != nil {
		return httpError(err)
	}
	days := h.mgr.Policy().Days
	out := make([]DayView, 0, MaxDay)
	for d := MinDay; d <= MaxDay; d++ {
		out = append(out, DayView{DayOfWeek: d, DayName: days.Name(d), Intervals: view[d]})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor_id": doctorID,
		"days":      out,
	})
}

type slotsResponse struct {
	DoctorID  int64       `json:"doctor_id"`
	DayOfWeek int         `json:"day_of_week"`
	DayName   string      `json:"day_name"`
	Date      string      `json:"date,omitempty"`
	Duration  int         `json:"duration"`
	Slots     []TimeOfDay `json:"slots"`
}

// ListSlots answers ?day_of_week=N for the recurring week, ?date=YYYY-MM-DD
// for a calendar day with existing bookings removed, or ?from=&to= for a
// range of calendar days.
func (h *Handler) ListSlots(c echo.Context) error {
	doctorID, err := doctorParam(c)
	if err != nil {
		return err
	}
	duration := h.mgr.DefaultSlotMinutes()
	if raw := c.QueryParam("duration"); raw != "" {
		if duration, err = strconv.Atoi(strings.TrimSpace(raw)); err != nil {
			return httpError(newError(KindInvalidDuration, "list slots", "duration must be an integer number of minutes"))
		}
	}

	resp := slotsResponse{DoctorID: doctorID, Duration: duration}
	ctx := c.Request().Context()
	switch {
	case c.QueryParam("from") != "" || c.QueryParam("to") != "":
		return h.searchSlots(c, doctorID, duration)
	case c.QueryParam("date") != "":
		date, perr := time.Parse(dateLayout, c.QueryParam("date"))
		if perr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		resp.Date = date.Format(dateLayout)
		resp.DayOfWeek = ISOWeekday(date)
		resp.Slots, err = h.mgr.SlotsForDate(ctx, doctorID, date, duration)
	case c.QueryParam("day_of_week") != "":
		day, perr := ParseDay(c.QueryParam("day_of_week"))
		if perr != nil {
			return httpError(perr)
		}
		resp.DayOfWeek = day
		resp.Slots, err = h.mgr.SlotsForDay(ctx, doctorID, day, duration)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "day_of_week or date is required")
	}
	if err != nil {
		return httpError(err)
	}
	resp.DayName = h.mgr.Policy().Days.Name(resp.DayOfWeek)
	return c.JSON(http.StatusOK, resp)
}

type searchSlotsResponse struct {
	DoctorID int64       `json:"doctor_id"`
	From     string      `json:"from"`
	To       string      `json:"to"`
	Duration int         `json:"duration"`
	Days     []DateSlots `json:"days"`
}

// searchSlots answers ?from=YYYY-MM-DD&to=YYYY-MM-DD. A missing to means
// the single day from.
func (h *Handler) searchSlots(c echo.Context, doctorID int64, duration int) error {
	rawFrom, rawTo := c.QueryParam("from"), c.QueryParam("to")
	if rawTo == "" {
		rawTo = rawFrom
	}
	from, err := time.Parse(dateLayout, rawFrom)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "from must be YYYY-MM-DD")
	}
	to, err := time.Parse(dateLayout, rawTo)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "to must be YYYY-MM-DD")
	}
	days, err := h.mgr.SearchSlots(c.Request().Context(), doctorID, SlotSearch{From: from, To: to, Duration: duration})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, searchSlotsResponse{
		DoctorID: doctorID,
		From:     from.Format(dateLayout),
		To:       to.Format(dateLayout),
		Duration: duration,
		Days:     days,
	})
}

func doctorParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("doctor_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
	}
	return id, nil
}

// StatusFor maps an error kind onto an HTTP status code.
func StatusFor(kind Kind) int {
	switch {
	case kind.IsInvalidInput():
		return http.StatusBadRequest
	case kind == KindConflict:
		return http.StatusConflict
	case kind == KindNotFound:
		return http.StatusNotFound
	case kind == KindStoreFailure:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func httpError(err error) error {
	kind := KindOf(err)
	msg := err.Error()
	switch kind {
	case KindStoreFailure:
		msg = "schedule store unavailable"
	case KindUnknown:
		msg = "internal error"
	}
	return echo.NewHTTPError(StatusFor(kind), map[string]string{
		"error":   kind.String(),
		"message": msg,
	}).SetInternal(fmt.Errorf("%s: %w", kind, err))
}
