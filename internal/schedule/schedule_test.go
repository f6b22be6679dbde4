package schedule

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medibook/booking-api/internal/model"
)

func TestExpandEndExclusive(t *testing.T) {
	times, err := Expand(model.DayWindow{Start: "09:00", End: "11:00"}, 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30"}, times)
}

func TestExpandDeterministic(t *testing.T) {
	win := model.DayWindow{Start: "08:15", End: "10:00"}
	first, err := Expand(win, 45)
	require.NoError(t, err)

	second, err := Expand(win, 45)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"08:15", "09:00", "09:45"}, first)
}

func TestExpandEmptyWindow(t *testing.T) {
	times, err := Expand(model.DayWindow{Start: "09:00", End: "09:00"}, 30)
	require.NoError(t, err)
	assert.Empty(t, times)

	times, err = Expand(model.DayWindow{Start: "17:00", End: "09:00"}, 30)
	require.NoError(t, err)
	assert.Empty(t, times)
}

func TestExpandRejectsBadStep(t *testing.T) {
	_, err := Expand(model.DayWindow{Start: "09:00", End: "17:00"}, 0)
	assert.Error(t, err)

	_, err = Expand(model.DayWindow{Start: "09:00", End: "17:00"}, -15)
	assert.Error(t, err)
}

func TestExpandRejectsMalformedClock(t *testing.T) {
	_, err := Expand(model.DayWindow{Start: "9am", End: "17:00"}, 30)
	assert.Error(t, err)

	_, err = Expand(model.DayWindow{Start: "09:00", End: "25:00"}, 30)
	assert.Error(t, err)
}

func TestWindowForDefaults(t *testing.T) {
	win, step := WindowFor(nil, time.Monday)
	assert.Equal(t, DefaultDayStart, win.Start)
	assert.Equal(t, DefaultDayEnd, win.End)
	assert.Equal(t, DefaultSlotMinutes, step)

	// Configured template but the weekday is absent.
	av := &model.WeeklyAvailability{
		Days:       map[string]model.DayWindow{"tue": {Start: "10:00", End: "14:00"}},
		SlotLength: 20,
	}
	win, step = WindowFor(av, time.Monday)
	assert.Equal(t, DefaultDayStart, win.Start)
	assert.Equal(t, DefaultDayEnd, win.End)
	assert.Equal(t, 20, step)
}

func TestWindowForConfiguredDay(t *testing.T) {
	av := &model.WeeklyAvailability{
		Days:       map[string]model.DayWindow{"tue": {Start: "10:00", End: "14:00"}},
		SlotLength: 60,
	}
	win, step := WindowFor(av, time.Tuesday)
	assert.Equal(t, "10:00", win.Start)
	assert.Equal(t, "14:00", win.End)
	assert.Equal(t, 60, step)
}

func TestWindowForMalformedClockFallsBack(t *testing.T) {
	// One malformed bound discards the whole configured day, not just the
	// bad half.
	av := &model.WeeklyAvailability{
		Days: map[string]model.DayWindow{"wed": {Start: "morning", End: "13:00"}},
	}
	win, step := WindowFor(av, time.Wednesday)
	assert.Equal(t, DefaultDayStart, win.Start)
	assert.Equal(t, DefaultDayEnd, win.End)
	assert.Equal(t, DefaultSlotMinutes, step)

	av = &model.WeeklyAvailability{
		Days: map[string]model.DayWindow{"wed": {Start: "08:00", End: "1pm"}},
	}
	win, _ = WindowFor(av, time.Wednesday)
	assert.Equal(t, DefaultDayStart, win.Start)
	assert.Equal(t, DefaultDayEnd, win.End)
}

func TestTimesForUsesDateWeekday(t *testing.T) {
	av := &model.WeeklyAvailability{
		Days:       map[string]model.DayWindow{"sun": {Start: "12:00", End: "13:00"}},
		SlotLength: 30,
	}

	// 2025-06-01 is a Sunday.
	sunday := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	times, err := TimesFor(av, sunday)
	require.NoError(t, err)
	assert.Equal(t, []string{"12:00", "12:30"}, times)

	// Monday has no entry, so the default window applies.
	monday := sunday.AddDate(0, 0, 1)
	times, err = TimesFor(av, monday)
	require.NoError(t, err)
	require.NotEmpty(t, times)
	assert.Equal(t, DefaultDayStart, times[0])
	assert.Equal(t, "16:30", times[len(times)-1])
}

func TestWeeklyAvailabilityJSONShape(t *testing.T) {
	raw := `{"mon":{"start":"09:00","end":"12:00"},"fri":{"start":"13:00","end":"17:00"},"slotLength":15}`

	var av model.WeeklyAvailability
	require.NoError(t, json.Unmarshal([]byte(raw), &av))
	assert.Equal(t, 15, av.SlotLength)
	assert.Equal(t, model.DayWindow{Start: "09:00", End: "12:00"}, av.Days["mon"])

	out, err := json.Marshal(av)
	require.NoError(t, err)

	var reparsed model.WeeklyAvailability
	require.NoError(t, json.Unmarshal(out, &reparsed))
	assert.Equal(t, av, reparsed)
}

func TestParseClock(t *testing.T) {
	min, err := ParseClock("14:45")
	require.NoError(t, err)
	assert.Equal(t, 14*60+45, min)
	assert.Equal(t, "14:45", FormatClock(min))

	for _, bad := range []string{"", "9", "09:5x", "24:00", "-1:00"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}
