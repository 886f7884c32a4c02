package leadership

import (
	"errors"
	"fmt"
	"time"
)

// PeriodLayout is the month_cycle format.
const PeriodLayout = "2006-01-02"

// ErrInvalidPeriod is returned for cycles that are not the first day of a month.
var ErrInvalidPeriod = errors.New("invalid leadership period")

// Period is one calendar month in UTC.
type Period struct {
	start time.Time
}

// ParsePeriod parses a YYYY-MM-01 month cycle.
func ParsePeriod(s string) (Period, error) {
	t, err := time.ParseInLocation(PeriodLayout, s, time.UTC)
	if err != nil {
		return Period{}, fmt.Errorf("%q: %w", s, ErrInvalidPeriod)
	}
	if t.Day() != 1 {
		return Period{}, fmt.Errorf("%q is not the first day of a month: %w", s, ErrInvalidPeriod)
	}
	return Period{start: t}, nil
}

// PeriodOf returns the month containing t.
func PeriodOf(t time.Time) Period {
	y, m, _ := t.UTC().Date()
	return Period{start: time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)}
}

// Previous returns the month before p.
func (p Period) Previous() Period {
	return Period{start: p.start.AddDate(0, -1, 0)}
}

// Start is the first instant of the month.
func (p Period) Start() time.Time { return p.start }

// End is the first instant of the following month.
func (p Period) End() time.Time { return p.start.AddDate(0, 1, 0) }

// String returns the month_cycle key.
func (p Period) String() string { return p.start.Format(PeriodLayout) }
