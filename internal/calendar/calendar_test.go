package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/minisource/jobengine/internal/calendar"
)

func TestDailyCalendarExcludesWindow(t *testing.T) {
	cal := calendar.DailyCalendar{StartHour: 2, StartMinute: 0, EndHour: 2, EndMinute: 30}

	in := time.Date(2026, 1, 1, 2, 15, 0, 0, time.UTC)
	before := time.Date(2026, 1, 1, 1, 59, 0, 0, time.UTC)
	after := time.Date(2026, 1, 1, 2, 30, 0, 0, time.UTC)

	assert.True(t, cal.IsTimeExcluded(in))
	assert.False(t, cal.IsTimeExcluded(before))
	assert.False(t, cal.IsTimeExcluded(after))
}

func TestDailyCalendarWrapsMidnight(t *testing.T) {
	cal := calendar.DailyCalendar{StartHour: 23, StartMinute: 0, EndHour: 1, EndMinute: 0}

	lateNight := time.Date(2026, 1, 1, 23, 30, 0, 0, time.UTC)
	earlyMorning := time.Date(2026, 1, 2, 0, 30, 0, 0, time.UTC)
	midday := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)

	assert.True(t, cal.IsTimeExcluded(lateNight))
	assert.True(t, cal.IsTimeExcluded(earlyMorning))
	assert.False(t, cal.IsTimeExcluded(midday))
}

func TestHolidayCalendarExcludesWholeDay(t *testing.T) {
	holiday := time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC)
	cal := calendar.NewHolidayCalendar(holiday)

	morning := time.Date(2026, 12, 25, 9, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 12, 25, 21, 0, 0, 0, time.UTC)
	nextDay := time.Date(2026, 12, 26, 9, 0, 0, 0, time.UTC)

	assert.True(t, cal.IsTimeExcluded(morning))
	assert.True(t, cal.IsTimeExcluded(evening))
	assert.False(t, cal.IsTimeExcluded(nextDay))

	cal.AddHoliday(nextDay)
	assert.True(t, cal.IsTimeExcluded(nextDay))
}

func TestUnionExcludesIfAnyMemberExcludes(t *testing.T) {
	holiday := calendar.NewHolidayCalendar(time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC))
	daily := calendar.DailyCalendar{StartHour: 2, EndHour: 3}
	union := calendar.Union{holiday, daily}

	assert.True(t, union.IsTimeExcluded(time.Date(2026, 7, 4, 10, 0, 0, 0, time.UTC)))
	assert.True(t, union.IsTimeExcluded(time.Date(2026, 1, 1, 2, 30, 0, 0, time.UTC)))
	assert.False(t, union.IsTimeExcluded(time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)))
}
