package calendar

import (
	"encoding/json"
	"fmt"

	"github.com/minisource/jobengine/internal/store"
)

func init() {
	store.RegisterCalendarCodec(dailyCodec{})
	store.RegisterCalendarCodec(holidayCodec{})
}

type dailyCalendarData struct {
	StartHour, StartMinute int
	EndHour, EndMinute     int
}

type dailyCodec struct{}

func (dailyCodec) Kind() string { return "daily" }

func (dailyCodec) EncodeData(c store.Calendar) (json.RawMessage, error) {
	d := c.(DailyCalendar)
	return json.Marshal(dailyCalendarData{d.StartHour, d.StartMinute, d.EndHour, d.EndMinute})
}

func (dailyCodec) Decode(rec store.CalendarRecord) (store.Calendar, error) {
	var data dailyCalendarData
	if err := json.Unmarshal(rec.Data, &data); err != nil {
		return nil, err
	}
	return DailyCalendar{StartHour: data.StartHour, StartMinute: data.StartMinute, EndHour: data.EndHour, EndMinute: data.EndMinute}, nil
}

type holidayCalendarData struct {
	Dates []string `json:"dates"`
}

type holidayCodec struct{}

func (holidayCodec) Kind() string { return "holiday" }

func (holidayCodec) EncodeData(c store.Calendar) (json.RawMessage, error) {
	h := c.(*HolidayCalendar)
	dates := make([]string, 0, len(h.Dates))
	for d := range h.Dates {
		dates = append(dates, d)
	}
	return json.Marshal(holidayCalendarData{Dates: dates})
}

func (holidayCodec) Decode(rec store.CalendarRecord) (store.Calendar, error) {
	var data holidayCalendarData
	if err := json.Unmarshal(rec.Data, &data); err != nil {
		return nil, err
	}
	h := &HolidayCalendar{Dates: make(map[string]struct{}, len(data.Dates))}
	for _, d := range data.Dates {
		h.Dates[d] = struct{}{}
	}
	return h, nil
}

// EncodeCalendarRecord builds the persisted row for cal, deriving its kind
// via the concrete type's own Kind() method.
func EncodeCalendarRecord(name string, cal store.Calendar) (store.CalendarRecord, error) {
	kinded, ok := cal.(interface{ Kind() string })
	if !ok {
		return store.CalendarRecord{}, fmt.Errorf("calendar: %T does not declare a Kind()", cal)
	}
	return store.EncodeCalendarRecord(name, kinded.Kind(), cal)
}
