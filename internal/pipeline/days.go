package pipeline

import (
	"time"

	"github.com/pkg/errors"
)

// DayLayout is the format of day identifiers.
const DayLayout = "2006-01-02"

// DaysInYear returns every day of year, January 1 to December 31, formatted
// YYYY-MM-DD.
func DaysInYear(year int) []string {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	var days []string
	for d := start; d.Year() == year; d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(DayLayout))
	}
	return days
}

// DaysBetween returns the days from first to last, both included.
func DaysBetween(first, last string) ([]string, error) {
	from, err := time.Parse(DayLayout, first)
	if err != nil {
		return nil, errors.Wrap(err, "invalid first day")
	}
	to, err := time.Parse(DayLayout, last)
	if err != nil {
		return nil, errors.Wrap(err, "invalid last day")
	}
	if to.Before(from) {
		return nil, errors.Errorf("last day %s is before first day %s", last, first)
	}
	var days []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(DayLayout))
	}
	return days, nil
}
