// Package calendar provides time-domain exclusion filters consulted when
// computing trigger fire times.
package calendar

import "time"

// Calendar excludes time windows from firing. Satisfies store.Calendar.
type Calendar interface {
	IsTimeExcluded(t time.Time) bool
}

// DailyCalendar excludes a fixed wall-clock window every day, e.g. a
// maintenance window from 02:00 to 02:30.
type DailyCalendar struct {
	StartHour, StartMinute int
	EndHour, EndMinute     int
}

// Kind identifies this calendar type for persistence codecs.
func (d DailyCalendar) Kind() string { return "daily" }

func (d DailyCalendar) IsTimeExcluded(t time.Time) bool {
	startMin := d.StartHour*60 + d.StartMinute
	endMin := d.EndHour*60 + d.EndMinute
	cur := t.Hour()*60 + t.Minute()
	if startMin <= endMin {
		return cur >= startMin && cur < endMin
	}
	// window wraps midnight
	return cur >= startMin || cur < endMin
}

// HolidayCalendar excludes a fixed set of whole calendar days.
type HolidayCalendar struct {
	Dates map[string]struct{} // "2006-01-02" keys
}

// NewHolidayCalendar builds a HolidayCalendar from a list of dates.
func NewHolidayCalendar(dates ...time.Time) *HolidayCalendar {
	h := &HolidayCalendar{Dates: make(map[string]struct{}, len(dates))}
	for _, d := range dates {
		h.Dates[d.Format("2006-01-02")] = struct{}{}
	}
	return h
}

func (h *HolidayCalendar) AddHoliday(t time.Time) {
	if h.Dates == nil {
		h.Dates = make(map[string]struct{})
	}
	h.Dates[t.Format("2006-01-02")] = struct{}{}
}

// Kind identifies this calendar type for persistence codecs.
func (h *HolidayCalendar) Kind() string { return "holiday" }

func (h *HolidayCalendar) IsTimeExcluded(t time.Time) bool {
	_, excluded := h.Dates[t.Format("2006-01-02")]
	return excluded
}

// Union combines calendars: a time is excluded if any member excludes it —
// used when a trigger needs more than one calendar applied (not exposed by
// the store contract directly, but handy for callers composing calendars
// before registering them by name).
type Union []Calendar

func (u Union) IsTimeExcluded(t time.Time) bool {
	for _, c := range u {
		if c.IsTimeExcluded(t) {
			return true
		}
	}
	return false
}
