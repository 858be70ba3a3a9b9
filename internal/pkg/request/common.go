package request

import (
	"fmt"
	"time"

	"github.com/nekogravitycat/car-rental-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/dayrange"
)

// MaxRangeDays bounds the span of any availability, quote or booking request.
const MaxRangeDays = 731

var ErrRangeTooLong = apperror.Validation(fmt.Sprintf("date range must not exceed %d days", MaxRangeDays))

// CheckSpan rejects ranges longer than MaxRangeDays. Inverted ranges pass and
// are reported by the component that receives them.
func CheckSpan(start, end time.Time) error {
	if dayrange.New(start, end).Days() > MaxRangeDays {
		return ErrRangeTooLong
	}
	return nil
}

// ByIDRequest is a common struct for endpoints that require an ID path parameter.
type ByIDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// DateRangeQuery binds ?start=YYYY-MM-DD&end=YYYY-MM-DD.
// Date ordering is not validated here; inverted ranges are reported by the availability checker.
type DateRangeQuery struct {
	Start time.Time `form:"start" binding:"required" time_format:"2006-01-02" time_utc:"1"`
	End   time.Time `form:"end" binding:"required" time_format:"2006-01-02" time_utc:"1"`
}

// Range returns the normalized (possibly inverted) day range.
func (q DateRangeQuery) Range() dayrange.Range {
	return dayrange.New(q.Start, q.End)
}

// ListParams holds common pagination parameters.
type ListParams struct {
	Page     int `form:"page,default=1" binding:"min=1"`
	PageSize int `form:"page_size,default=20" binding:"min=1,max=100"`
}
