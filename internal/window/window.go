// Package window resolves an ISO-8601 week label into the calendar range
// the digest-build pipeline treats as that week's article window.
package window

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"briefly/internal/core"
)

// ErrInvalidWeekLabel is returned when a week label does not match the
// "YYYY-Www" form or its week number is outside 1..53.
var ErrInvalidWeekLabel = errors.New("window: invalid week label")

// weekLabelPattern anchors the whole string, per spec.md §4.1's
// ^\d{4}-W\d{1,2}$ contract: no leading or trailing garbage is tolerated.
var weekLabelPattern = regexp.MustCompile(`^(\d{4})-W(\d{1,2})$`)

// ErrInvalidCalendar is returned when the resolved ISO week does not
// round-trip back to the requested year, indicating an out-of-range week
// number (e.g. week 53 in a year with no 53rd ISO week).
var ErrInvalidCalendar = errors.New("window: week does not exist in that calendar year")

// Resolve parses a week label of the form "YYYY-Www" (e.g. "2026-W05") and
// returns the Monday-00:00:00 to Sunday-23:59:59.999999999 window in loc.
func Resolve(label string, loc *time.Location) (core.WeekWindow, error) {
	if loc == nil {
		loc = time.UTC
	}

	m := weekLabelPattern.FindStringSubmatch(label)
	if m == nil {
		return core.WeekWindow{}, fmt.Errorf("%w: %q", ErrInvalidWeekLabel, label)
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return core.WeekWindow{}, fmt.Errorf("%w: %q", ErrInvalidWeekLabel, label)
	}
	week, err := strconv.Atoi(m[2])
	if err != nil {
		return core.WeekWindow{}, fmt.Errorf("%w: %q", ErrInvalidWeekLabel, label)
	}
	if week < 1 || week > 53 {
		return core.WeekWindow{}, fmt.Errorf("%w: %q", ErrInvalidWeekLabel, label)
	}

	start := isoWeekStart(year, week, loc)

	gotYear, gotWeek := start.AddDate(0, 0, 3).ISOWeek() // Thursday anchors the ISO week
	if gotYear != year || gotWeek != week {
		return core.WeekWindow{}, fmt.Errorf("%w: %q", ErrInvalidCalendar, label)
	}

	end := start.AddDate(0, 0, 7).Add(-time.Nanosecond)

	return core.WeekWindow{
		Label: label,
		Start: start,
		End:   end,
	}, nil
}

// isoWeekStart returns the Monday 00:00:00 of the given ISO year/week in loc.
func isoWeekStart(year, week int, loc *time.Location) time.Time {
	// Jan 4th is always in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
	jan4Weekday := int(jan4.Weekday())
	if jan4Weekday == 0 {
		jan4Weekday = 7
	}
	week1Monday := jan4.AddDate(0, 0, -(jan4Weekday - 1))
	return week1Monday.AddDate(0, 0, (week-1)*7)
}

// Label formats t's ISO week as a "YYYY-Www" label.
func Label(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}
