package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/car-rental-backend/internal/availability"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/request"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/response"
)

// maxCalendarDays caps calendar requests to about a year.
const maxCalendarDays = 366

type Handler struct {
	checker  *availability.Checker
	calendar *availability.CalendarBuilder
	fleet    *availability.FleetFilter
}

func NewHandler(checker *availability.Checker, calendar *availability.CalendarBuilder, fleet *availability.FleetFilter) *Handler {
	return &Handler{
		checker:  checker,
		calendar: calendar,
		fleet:    fleet,
	}
}

// Check reports whether the vehicle can be booked for [start, end].
// An unavailable vehicle is a normal 200 response carrying the reason.
func (h *Handler) Check(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle id", "details": err.Error()})
		return
	}
	var q request.DateRangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	if err := request.CheckSpan(q.Start, q.End); err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.checker.Check(c.Request.Context(), uri.ID, q.Start, q.End)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewCheckResponse(res))
}

func (h *Handler) Calendar(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle id", "details": err.Error()})
		return
	}
	var q request.DateRangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}
	if q.Range().Days() > maxCalendarDays {
		c.JSON(http.StatusBadRequest, gin.H{"error": "calendar range must not exceed 366 days"})
		return
	}

	cal, err := h.calendar.Build(c.Request.Context(), uri.ID, q.Start, q.End)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewCalendarResponse(cal))
}

func (h *Handler) ListAvailable(c *gin.Context) {
	var req ListAvailableRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}
	if err := request.CheckSpan(req.Start, req.End); err != nil {
		response.Error(c, err)
		return
	}
	filters, err := req.Filters()
	if err != nil {
		response.Error(c, err)
		return
	}

	vehicles, err := h.fleet.ListAvailable(c.Request.Context(), req.Start, req.End, filters)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]VehicleTag, len(vehicles))
	for i, v := range vehicles {
		items[i] = NewVehicleTag(v)
	}

	page := response.Paginate(items, req.Page, req.PageSize)
	c.JSON(http.StatusOK, response.NewPageResponse(page, req.Page, req.PageSize, len(items)))
}
