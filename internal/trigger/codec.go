package trigger

import (
	"encoding/json"
	"time"

	"github.com/minisource/jobengine/internal/store"
)

func init() {
	store.RegisterTriggerCodec(simpleCodec{})
	store.RegisterTriggerCodec(cronCodec{})
}

type simpleTriggerData struct {
	StartAt     time.Time `json:"start_at"`
	IntervalNS  int64     `json:"interval_ns"`
	RepeatCount int       `json:"repeat_count"`
	TimesFired  int       `json:"times_fired"`
}

type simpleCodec struct{}

func (simpleCodec) Kind() string { return "simple" }

func (simpleCodec) EncodeData(t store.Trigger) (json.RawMessage, error) {
	st := t.(*SimpleTrigger)
	return json.Marshal(simpleTriggerData{
		StartAt:     st.StartAt,
		IntervalNS:  int64(st.Interval),
		RepeatCount: st.RepeatCount,
		TimesFired:  st.timesFired,
	})
}

func (simpleCodec) Decode(rec store.TriggerRecord) (store.Trigger, error) {
	var data simpleTriggerData
	if err := json.Unmarshal(rec.Data, &data); err != nil {
		return nil, err
	}
	t := NewSimpleTrigger(rec.Name, rec.Group, rec.JobName, rec.JobGroup, data.StartAt, time.Duration(data.IntervalNS), data.RepeatCount, rec.Priority)
	t.calendarName = rec.CalendarName
	t.volatile = rec.Volatile
	t.misfirePolicy = MisfirePolicy(rec.MisfirePolicy)
	t.nextFireTime = rec.NextFireTime
	t.previousFireTime = rec.PreviousFireTime
	t.timesFired = data.TimesFired
	return t, nil
}

type cronTriggerData struct {
	Expression string `json:"expression"`
}

type cronCodec struct{}

func (cronCodec) Kind() string { return "cron" }

func (cronCodec) EncodeData(t store.Trigger) (json.RawMessage, error) {
	ct := t.(*CronTrigger)
	return json.Marshal(cronTriggerData{Expression: ct.Expression})
}

func (cronCodec) Decode(rec store.TriggerRecord) (store.Trigger, error) {
	var data cronTriggerData
	if err := json.Unmarshal(rec.Data, &data); err != nil {
		return nil, err
	}
	t, err := NewCronTrigger(rec.Name, rec.Group, rec.JobName, rec.JobGroup, data.Expression, rec.Priority)
	if err != nil {
		return nil, err
	}
	t.calendarName = rec.CalendarName
	t.volatile = rec.Volatile
	t.misfirePolicy = MisfirePolicy(rec.MisfirePolicy)
	t.nextFireTime = rec.NextFireTime
	t.previousFireTime = rec.PreviousFireTime
	return t, nil
}
