// Package daterange parses optional calendar-date bounds used to filter
// expenses by creation time.
//
// Both bounds are whole UTC days: Start keeps records created at or after
// midnight of the start date, End keeps records created before midnight of
// the day after the end date. A start after the end is not an error; such a
// range simply matches nothing.
package daterange

import (
	"errors"
	"fmt"
	"time"
)

// Layout is the accepted date format.
const Layout = "2006-01-02"

// Query parameter names.
const (
	ParamStart = "start_date"
	ParamEnd   = "end_date"
)

// ErrInvalidDate is wrapped by every ParamError.
var ErrInvalidDate = errors.New("invalid date")

// ParamError reports a malformed date parameter.
type ParamError struct {
	Param string
	Value string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: invalid date %q, expected YYYY-MM-DD", e.Param, e.Value)
}

func (e *ParamError) Unwrap() error {
	return ErrInvalidDate
}

// Range is a half-open interval [From, Until) over creation times.
// A nil bound is unbounded.
type Range struct {
	From  *time.Time
	Until *time.Time
}

// Parse builds a Range from raw start and end parameters.
// Empty strings leave the corresponding bound open.
func Parse(start, end string) (Range, error) {
	var r Range

	if start != "" {
		day, err := parseDay(ParamStart, start)
		if err != nil {
			return Range{}, err
		}
		r.From = &day
	}

	if end != "" {
		day, err := parseDay(ParamEnd, end)
		if err != nil {
			return Range{}, err
		}
		next := day.AddDate(0, 0, 1)
		r.Until = &next
	}

	return r, nil
}

func parseDay(param, value string) (time.Time, error) {
	day, err := time.ParseInLocation(Layout, value, time.UTC)
	if err != nil {
		return time.Time{}, &ParamError{Param: param, Value: value}
	}
	return day, nil
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.Until != nil && !t.Before(*r.Until) {
		return false
	}
	return true
}

// Empty reports whether the range cannot match any instant.
func (r Range) Empty() bool {
	return r.From != nil && r.Until != nil && !r.From.Before(*r.Until)
}
