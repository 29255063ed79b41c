package finance

import (
	"fmt"
	"time"
)

// Layouts accepted for month and date arguments.
const (
	MonthLayout = "2006-01"
	DateLayout  = "2006-01-02"
)

// Window is an inclusive date range. Either bound may be open.
type Window struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// ParseMonth parses a YYYY-MM month.
func ParseMonth(s string) (time.Time, error) {
	if len(s) != len(MonthLayout) {
		return time.Time{}, fmt.Errorf("%q is not a YYYY-MM month", s)
	}
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a YYYY-MM month", s)
	}
	return t, nil
}

// ParseDate parses a YYYY-MM-DD calendar date. Impossible dates such as
// 2024-02-30 are rejected.
func ParseDate(s string) (time.Time, error) {
	if len(s) != len(DateLayout) {
		return time.Time{}, fmt.Errorf("%q is not a YYYY-MM-DD date", s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a valid YYYY-MM-DD date", s)
	}
	return t, nil
}

// ResolveMonth picks the context month: the explicit month when set, else the
// YYYY-MM prefix of the first non-empty date in dates, else the month of now.
func ResolveMonth(explicit string, dates []string, now time.Time) string {
	if explicit != "" {
		return explicit
	}
	for _, d := range dates {
		if len(d) >= len(MonthLayout) {
			return d[:len(MonthLayout)]
		}
	}
	return now.Format(MonthLayout)
}

// MonthWindow returns the first and last day of month.
func MonthWindow(month string) (Window, error) {
	start, err := ParseMonth(month)
	if err != nil {
		return Window{}, err
	}
	end := start.AddDate(0, 1, -1)
	return Window{StartDate: start.Format(DateLayout), EndDate: end.Format(DateLayout)}, nil
}
