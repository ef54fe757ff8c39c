package daterange

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date layout used on every wire boundary.
const DateLayout = "2006-01-02"

var ErrInvalidRange = errors.New("end date is before start date")

// Range is an inclusive span of calendar days.
type Range struct {
	Start time.Time
	End   time.Time
}

// New builds a Range from two instants. Only the calendar date of each value is kept.
func New(start, end time.Time) (Range, error) {
	s := truncate(start)
	e := truncate(end)
	if e.Before(s) {
		return Range{}, fmt.Errorf("%w: %s > %s", ErrInvalidRange, s.Format(DateLayout), e.Format(DateLayout))
	}
	return Range{Start: s, End: e}, nil
}

// Parse builds a Range from two YYYY-MM-DD strings.
func Parse(start, end string) (Range, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return Range{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return Range{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	return New(s, e)
}

// Days returns every calendar date from Start to End, ascending, one per day.
func (r Range) Days() []time.Time {
	days := make([]time.Time, 0, r.Len())
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Len is the number of days in the range.
func (r Range) Len() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Years lists the distinct calendar years touched by the range.
func (r Range) Years() []int {
	years := []int{}
	for y := r.Start.Year(); y <= r.End.Year(); y++ {
		years = append(years, y)
	}
	return years
}

// Contains reports whether t falls on a day inside the range.
func (r Range) Contains(t time.Time) bool {
	d := truncate(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r Range) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

// Format renders a day as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(DateLayout)
}

// truncate drops the clock and location so day arithmetic is DST independent.
func truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
