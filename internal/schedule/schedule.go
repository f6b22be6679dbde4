// Package schedule expands a doctor's weekly availability template into the
// ordered time-of-day slots bookable on a given date.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/medibook/booking-api/internal/model"
)

// Business defaults applied when a doctor has no configured window for a
// weekday, or the template data is malformed. A doctor with no template is
// still bookable with these hours.
const (
	DefaultDayStart    = "09:00"
	DefaultDayEnd      = "17:00"
	DefaultSlotMinutes = 30
)

// ParseClock converts an "HH:MM" string to minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return h*60 + m, nil
}

// FormatClock converts minutes since midnight to "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// WindowFor resolves the open window and step for a weekday from the
// template. Missing days, nil templates and unparseable clock values all fall
// back to the defaults; an explicit negative step is passed through so Expand
// can reject it.
func WindowFor(av *model.WeeklyAvailability, weekday time.Weekday) (model.DayWindow, int) {
	win := model.DayWindow{Start: DefaultDayStart, End: DefaultDayEnd}
	step := DefaultSlotMinutes

	if av == nil {
		return win, step
	}

	if day, ok := av.Days[model.WeekdayKeys[weekday]]; ok {
		_, startErr := ParseClock(day.Start)
		_, endErr := ParseClock(day.End)
		// A half-parseable day falls back wholesale; pairing one configured
		// bound with a default could produce a window nobody configured.
		if startErr == nil && endErr == nil {
			win = day
		}
	}

	if av.SlotLength != 0 {
		step = av.SlotLength
	}

	return win, step
}

// Expand produces the ordered slot times in [win.Start, win.End) at
// stepMinutes granularity. An inverted or empty window yields no slots; a
// non-positive step is a configuration error.
func Expand(win model.DayWindow, stepMinutes int) ([]string, error) {
	if stepMinutes <= 0 {
		return nil, fmt.Errorf("slot length must be positive, got %d", stepMinutes)
	}

	start, err := ParseClock(win.Start)
	if err != nil {
		return nil, err
	}
	end, err := ParseClock(win.End)
	if err != nil {
		return nil, err
	}

	var times []string
	for t := start; t < end; t += stepMinutes {
		times = append(times, FormatClock(t))
	}
	return times, nil
}

// TimesFor expands the template for the weekday of the given date.
func TimesFor(av *model.WeeklyAvailability, date time.Time) ([]string, error) {
	win, step := WindowFor(av, date.Weekday())
	return Expand(win, step)
}
