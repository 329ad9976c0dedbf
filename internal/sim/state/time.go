package state

import "fmt"

// The game calendar has 12 months of 30 days each.
const (
	MonthsPerYear = 12
	DaysPerMonth  = 30
)

type GameTime struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

func (t GameTime) String() string {
	return fmt.Sprintf("%d-%02d-%02d", t.Year, t.Month, t.Day)
}

// Before reports whether t is strictly earlier than o.
func (t GameTime) Before(o GameTime) bool {
	if t.Year != o.Year {
		return t.Year < o.Year
	}
	if t.Month != o.Month {
		return t.Month < o.Month
	}
	return t.Day < o.Day
}

// Normalize folds out-of-range months and days into the next unit up.
// Values below 1 are raised to 1; the calendar never runs backward.
func (t GameTime) Normalize() GameTime {
	if t.Day < 1 {
		t.Day = 1
	}
	if t.Month < 1 {
		t.Month = 1
	}
	if t.Day > DaysPerMonth {
		t.Month += (t.Day - 1) / DaysPerMonth
		t.Day = (t.Day-1)%DaysPerMonth + 1
	}
	if t.Month > MonthsPerYear {
		t.Year += (t.Month - 1) / MonthsPerYear
		t.Month = (t.Month-1)%MonthsPerYear + 1
	}
	return t
}

// Add advances t by the given amounts with carries. Negative amounts are
// ignored.
func (t GameTime) Add(years, months, days int) GameTime {
	if years < 0 {
		years = 0
	}
	if months < 0 {
		months = 0
	}
	if days < 0 {
		days = 0
	}
	t = t.Normalize()
	t.Year += years
	t.Month += months
	t.Day += days
	return t.Normalize()
}

// Max returns the later of a and b.
func Max(a, b GameTime) GameTime {
	if a.Before(b) {
		return b
	}
	return a
}
