package shared

import (
	"errors"
	"time"
)

// PeriodLayout is the "YYYY-MM" payroll period format.
const PeriodLayout = "2006-01"

// ErrInvalidPeriod indicates a malformed period string.
var ErrInvalidPeriod = errors.New("period must be formatted as YYYY-MM")

// ParsePeriod returns the first instant (UTC) of the given period.
func ParsePeriod(period string) (time.Time, error) {
	start, err := time.ParseInLocation(PeriodLayout, period, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidPeriod
	}
	return start, nil
}

// PeriodOf formats the period containing t.
func PeriodOf(t time.Time) string {
	return t.Format(PeriodLayout)
}

// PeriodEnd returns the exclusive upper bound of the period, i.e. the first
// instant of the following month.
func PeriodEnd(period string) (time.Time, error) {
	start, err := ParsePeriod(period)
	if err != nil {
		return time.Time{}, err
	}
	return start.AddDate(0, 1, 0), nil
}

// PeriodBefore reports whether a precedes b. Both must be valid periods; the
// zero-padded layout makes lexical order equal to calendar order.
func PeriodBefore(a, b string) bool {
	return a < b
}

// AddMonthsClamped moves t by n calendar months keeping the day of month,
// clamped to the last day when the target month is shorter.
func AddMonthsClamped(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := DaysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
