package query

import (
	"fmt"
	"regexp"
	"time"

	// Embed tzdata so Pacific offsets resolve on hosts without a zoneinfo
	// database (scratch containers).
	_ "time/tzdata"

	"github.com/rowgate-io/rowgate/pkg/apperrors"
)

// Calendar-date filter values are interpreted as Pacific-time day
// boundaries. The offset flips between -08:00 and -07:00 across DST
// transitions, which time.Date resolves per-instant against the zone
// database - the classic off-by-one-hour bug lives here.
const pacificZone = "America/Los_Angeles"

var calendarDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// isCalendarDate reports whether s looks like a bare YYYY-MM-DD date.
func isCalendarDate(s string) bool {
	return calendarDatePattern.MatchString(s)
}

func pacificLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(pacificZone)
	if err != nil {
		return nil, fmt.Errorf("load %s zone: %w", pacificZone, err)
	}
	return loc, nil
}

// pacificDayStart returns 00:00:00 Pacific of the given calendar date as a
// UTC instant.
func pacificDayStart(date string) (time.Time, error) {
	y, m, d, err := splitCalendarDate(date)
	if err != nil {
		return time.Time{}, err
	}
	loc, err := pacificLocation()
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(y, m, d, 0, 0, 0, 0, loc).UTC(), nil
}

// pacificNextDayStart returns 00:00:00 Pacific of the day AFTER the given
// calendar date as a UTC instant. Used as the exclusive upper bound of a
// day range.
func pacificNextDayStart(date string) (time.Time, error) {
	y, m, d, err := splitCalendarDate(date)
	if err != nil {
		return time.Time{}, err
	}
	loc, err := pacificLocation()
	if err != nil {
		return time.Time{}, err
	}
	// time.Date normalizes day overflow (Dec 32 -> Jan 1) and picks the
	// correct offset for the resulting instant.
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc).UTC(), nil
}

func splitCalendarDate(date string) (int, time.Month, int, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: bad calendar date %q", apperrors.ErrInvalidValue, date)
	}
	y, m, d := t.Date()
	return y, m, d, nil
}
