package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/request"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/response"
	"github.com/nekogravitycat/car-rental-backend/internal/pricing"
)

type Handler struct {
	calculator *pricing.Calculator
}

func NewHandler(calculator *pricing.Calculator) *Handler {
	return &Handler{calculator: calculator}
}

// Quote prices a candidate rental without persisting anything.
func (h *Handler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	q, err := req.ToQuote()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dates must use YYYY-MM-DD", "details": err.Error()})
		return
	}

	if err := request.CheckSpan(q.Start, q.End); err != nil {
		response.Error(c, err)
		return
	}

	bd, err := h.calculator.Calculate(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBreakdownResponse(bd))
}
