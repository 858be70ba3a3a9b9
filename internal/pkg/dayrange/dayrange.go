// Package dayrange models inclusive ranges of calendar days.
//
// Occupancy in the rental core is tracked per calendar day, so every instant
// entering the core is truncated to midnight UTC of its own calendar date.
package dayrange

import (
	"errors"
	"time"
)

const (
	// DateLayout is the wire format for calendar days.
	DateLayout = "2006-01-02"

	secondsPerDay = 24 * 60 * 60
)

var ErrEndBeforeStart = errors.New("end date is before start date")

// Normalize drops the time-of-day component, keeping the calendar date as seen in t's own location.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Parse reads a YYYY-MM-DD day.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Normalize(t), nil
}

// Format renders a day as YYYY-MM-DD.
func Format(t time.Time) string {
	return Normalize(t).Format(DateLayout)
}

// Range is an inclusive [Start, End] range of normalized days.
type Range struct {
	Start time.Time
	End   time.Time
}

// New normalizes both bounds. It does not reject inverted ranges; use Valid or NewValid.
func New(start, end time.Time) Range {
	return Range{Start: Normalize(start), End: Normalize(end)}
}

// NewValid normalizes both bounds and rejects ranges that end before they start.
func NewValid(start, end time.Time) (Range, error) {
	r := New(start, end)
	if !r.Valid() {
		return Range{}, ErrEndBeforeStart
	}
	return r, nil
}

// Single is the one-day range covering t.
func Single(t time.Time) Range {
	d := Normalize(t)
	return Range{Start: d, End: d}
}

func (r Range) Valid() bool {
	return !r.End.Before(r.Start)
}

// Days returns the inclusive number of days, or 0 for an inverted range.
func (r Range) Days() int {
	if !r.Valid() {
		return 0
	}
	// Bounds are UTC midnights, so whole-second arithmetic is exact and does
	// not saturate the way time.Duration does past ~292 years.
	return int((r.End.Unix()-r.Start.Unix())/secondsPerDay) + 1
}

// Each calls fn for every day in the range, in order.
func (r Range) Each(fn func(d time.Time)) {
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}

// List returns every day in the range, in order.
func (r Range) List() []time.Time {
	out := make([]time.Time, 0, r.Days())
	r.Each(func(d time.Time) { out = append(out, d) })
	return out
}

func (r Range) Contains(t time.Time) bool {
	d := Normalize(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Overlaps reports whether two inclusive ranges share at least one day.
func (r Range) Overlaps(o Range) bool {
	return !(o.End.Before(r.Start) || o.Start.After(r.End))
}

// Intersect returns the shared days of r and o; ok is false when they are disjoint.
func (r Range) Intersect(o Range) (Range, bool) {
	if !r.Overlaps(o) {
		return Range{}, false
	}
	start := r.Start
	if o.Start.After(start) {
		start = o.Start
	}
	end := r.End
	if o.End.Before(end) {
		end = o.End
	}
	return Range{Start: start, End: end}, true
}

// OverlapDays is the inclusive day count of the intersection, zero when disjoint.
func (r Range) OverlapDays(o Range) int {
	in, ok := r.Intersect(o)
	if !ok {
		return 0
	}
	return in.Days()
}

// WeekendDays counts Saturdays and Sundays in the range.
func (r Range) WeekendDays() int {
	n := 0
	r.Each(func(d time.Time) {
		if IsWeekend(d) {
			n++
		}
	})
	return n
}

// IsWeekend reports whether t falls on ISO weekday 6 or 7.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (r Range) String() string {
	return Format(r.Start) + ".." + Format(r.End)
}
