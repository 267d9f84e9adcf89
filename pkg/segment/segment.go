// Package segment splits a bounded date window into calendar-sized pieces
// and harvests them one at a time.
package segment

import (
	"fmt"
	"strings"
	"time"

	errs "weibocrawl/pkg/errors"
)

// Unit is the size of one segment.
type Unit string

const (
	UnitNone    Unit = ""
	UnitMonth   Unit = "month"
	UnitQuarter Unit = "quarter"
)

// ParseUnit accepts month, quarter or an empty string.
func ParseUnit(s string) (Unit, error) {
	switch u := Unit(strings.ToLower(strings.TrimSpace(s))); u {
	case UnitNone, UnitMonth, UnitQuarter:
		return u, nil
	default:
		return UnitNone, errs.Configuration("unknown segment unit %q, want month or quarter", s)
	}
}

func (u Unit) months() int {
	if u == UnitQuarter {
		return 3
	}
	return 1
}

// Segment is the closed interval [Start, End].
type Segment struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies inside the segment.
func (s Segment) Contains(t time.Time) bool {
	return !t.Before(s.Start) && !t.After(s.End)
}

func (s Segment) String() string {
	return fmt.Sprintf("%s ~ %s", s.Start.Format("2006-01-02"), s.End.Format("2006-01-02"))
}

// Build partitions [since, until] into contiguous segments in ascending
// order. Each segment runs to the end of the calendar month in which it
// closes, so a window starting mid-month yields a short first segment.
// The last segment ends at until.
func Build(since, until time.Time, unit Unit) ([]Segment, error) {
	if unit == UnitNone {
		return nil, errs.Configuration("a segment unit is required")
	}
	if since.IsZero() || until.IsZero() {
		return nil, errs.Configuration("segmenting needs both since and until")
	}
	if since.After(until) {
		return nil, errs.Configuration("since %s is after until %s", since.Format(time.RFC3339), until.Format(time.RFC3339))
	}

	loc := since.Location()
	var segs []Segment
	for start := since; !start.After(until); {
		boundary := time.Date(start.Year(), start.Month()+time.Month(unit.months()), 1, 0, 0, 0, 0, loc)
		end := boundary.Add(-time.Nanosecond)
		if end.After(until) {
			end = until
		}
		segs = append(segs, Segment{Start: start, End: end})
		start = end.Add(time.Nanosecond)
	}
	return segs, nil
}
