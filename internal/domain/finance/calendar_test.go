package finance

import (
	"testing"
	"time"
)

func TestResolveMonth(t *testing.T) {
	now := time.Date(2024, time.July, 14, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		explicit string
		dates    []string
		want     string
	}{
		{name: "explicit wins", explicit: "2024-01", dates: []string{"2023-05-02"}, want: "2024-01"},
		{name: "derived from first date", dates: []string{"2023-05-02", "2022-01-01"}, want: "2023-05"},
		{name: "skips empty dates", dates: []string{"", "2022-11-30"}, want: "2022-11"},
		{name: "falls back to now", want: "2024-07"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveMonth(tt.explicit, tt.dates, now); got != tt.want {
				t.Errorf("ResolveMonth() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	valid := []string{"2024-02-29", "2023-12-31"}
	invalid := []string{"2023-02-29", "2024-02-30", "2024-13-01", "2024-1-01", "20240101", ""}
	for _, s := range valid {
		if _, err := ParseDate(s); err != nil {
			t.Errorf("ParseDate(%q) error = %v", s, err)
		}
	}
	for _, s := range invalid {
		if _, err := ParseDate(s); err == nil {
			t.Errorf("ParseDate(%q) expected error", s)
		}
	}
}

func TestMonthWindow(t *testing.T) {
	tests := []struct {
		month string
		want  Window
	}{
		{month: "2024-02", want: Window{StartDate: "2024-02-01", EndDate: "2024-02-29"}},
		{month: "2023-02", want: Window{StartDate: "2023-02-01", EndDate: "2023-02-28"}},
		{month: "2024-12", want: Window{StartDate: "2024-12-01", EndDate: "2024-12-31"}},
	}
	for _, tt := range tests {
		got, err := MonthWindow(tt.month)
		if err != nil {
			t.Fatalf("MonthWindow(%q) error = %v", tt.month, err)
		}
		if got != tt.want {
			t.Errorf("MonthWindow(%q) = %+v, want %+v", tt.month, got, tt.want)
		}
	}
	if _, err := MonthWindow("2024-13"); err == nil {
		t.Error("MonthWindow(2024-13) expected error")
	}
}
