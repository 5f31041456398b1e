package values

import (
	"fmt"
	"sort"
	"time"
)

// BusinessWindow defines the working hours used to classify incident
// creation times. Hours are whole-hour boundaries in UTC; the start is
// inclusive and the end exclusive.
type BusinessWindow struct {
	startHour int
	endHour   int
	weekdays  map[time.Weekday]bool
}

// NewBusinessWindow creates a BusinessWindow from an hour range and the set
// of working weekdays.
func NewBusinessWindow(startHour, endHour int, weekdays []time.Weekday) (BusinessWindow, error) {
	if startHour < 0 || startHour > 23 {
		return BusinessWindow{}, fmt.Errorf("start hour must be in [0,23], got %d", startHour)
	}
	if endHour < 1 || endHour > 24 {
		return BusinessWindow{}, fmt.Errorf("end hour must be in [1,24], got %d", endHour)
	}
	if startHour >= endHour {
		return BusinessWindow{}, fmt.Errorf("start hour %d must precede end hour %d", startHour, endHour)
	}
	if len(weekdays) == 0 {
		return BusinessWindow{}, fmt.Errorf("at least one working weekday is required")
	}

	days := make(map[time.Weekday]bool, len(weekdays))
	for _, d := range weekdays {
		if d < time.Sunday || d > time.Saturday {
			return BusinessWindow{}, fmt.Errorf("invalid weekday %d", d)
		}
		days[d] = true
	}

	return BusinessWindow{
		startHour: startHour,
		endHour:   endHour,
		weekdays:  days,
	}, nil
}

// MustNewBusinessWindow creates a BusinessWindow and panics on error (for constants/tests)
func MustNewBusinessWindow(startHour, endHour int, weekdays []time.Weekday) BusinessWindow {
	w, err := NewBusinessWindow(startHour, endHour, weekdays)
	if err != nil {
		panic(err)
	}
	return w
}

// DefaultBusinessWindow returns 08:00-18:00 UTC, Monday through Friday.
func DefaultBusinessWindow() BusinessWindow {
	return MustNewBusinessWindow(8, 18, []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
	})
}

// IsZero reports whether the window was never constructed.
func (w BusinessWindow) IsZero() bool {
	return w.weekdays == nil
}

// IsBusinessDay reports whether t falls on a working weekday.
func (w BusinessWindow) IsBusinessDay(t time.Time) bool {
	return w.weekdays[t.UTC().Weekday()]
}

// Contains reports whether t falls inside working hours on a working
// weekday.
func (w BusinessWindow) Contains(t time.Time) bool {
	if !w.IsBusinessDay(t) {
		return false
	}
	h := t.UTC().Hour()
	return h >= w.startHour && h < w.endHour
}

// StartHour returns the inclusive opening hour.
func (w BusinessWindow) StartHour() int {
	return w.startHour
}

// EndHour returns the exclusive closing hour.
func (w BusinessWindow) EndHour() int {
	return w.endHour
}

// Weekdays returns the working weekdays in calendar order.
func (w BusinessWindow) Weekdays() []time.Weekday {
	days := make([]time.Weekday, 0, len(w.weekdays))
	for d := range w.weekdays {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}
