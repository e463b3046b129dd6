package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/minisource/jobengine/internal/models"
)

// jobDataOverrider is implemented by trigger kinds that can carry a
// one-shot JobData payload for a single firing (currently SimpleTrigger's
// manual trigger path). Checked structurally so store never needs to
// import internal/trigger.
type jobDataOverrider interface {
	JobDataOverride() json.RawMessage
}

// applyJobDataOverride overwrites job.JobData in place if t carries a
// one-shot override, used by both InMemoryStore and PostgresStore's
// TriggersFired before building the FireResult.
func applyJobDataOverride(t Trigger, job *models.JobDetail) {
	if ov, ok := t.(jobDataOverrider); ok {
		if data := ov.JobDataOverride(); len(data) > 0 {
			job.JobData = data
		}
	}
}

// TriggerRecord is the column-level shape PostgresStore persists for every
// trigger regardless of kind; kind-specific fields live in Data and are
// (de)serialized through a registered TriggerCodec. This indirection lets
// internal/trigger's concrete kinds register themselves without this
// package importing internal/trigger (which itself imports this package
// for the Trigger/Calendar interfaces).
type TriggerRecord struct {
	Name             string          `gorm:"primaryKey;size:255"`
	Group            string          `gorm:"primaryKey;size:255"`
	JobName          string          `gorm:"size:255;index:idx_trig_job"`
	JobGroup         string          `gorm:"size:255;index:idx_trig_job"`
	Kind             string          `gorm:"size:32"`
	CalendarName     string          `gorm:"size:255"`
	Priority         int
	Volatile         bool
	MisfirePolicy    int
	State            string          `gorm:"size:20"`
	NextFireTime     *time.Time      `gorm:"index:idx_trig_next_fire"`
	PreviousFireTime *time.Time
	Data             json.RawMessage `gorm:"type:jsonb"`
	CreatedAt        time.Time       `gorm:"autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime"`
}

func (TriggerRecord) TableName() string { return "trigger_records" }

// TriggerCodec lets a concrete Trigger kind (internal/trigger) teach the
// store how to persist and rehydrate it.
type TriggerCodec interface {
	Kind() string
	EncodeData(t Trigger) (json.RawMessage, error)
	Decode(rec TriggerRecord) (Trigger, error)
}

var triggerCodecs = map[string]TriggerCodec{}

// RegisterTriggerCodec installs a codec for its Kind(), called from
// internal/trigger's package init.
func RegisterTriggerCodec(c TriggerCodec) {
	triggerCodecs[c.Kind()] = c
}

// EncodeTriggerRecord builds the persisted row for t.
func EncodeTriggerRecord(t Trigger, state string) (TriggerRecord, error) {
	codec, ok := triggerCodecs[t.Kind()]
	if !ok {
		return TriggerRecord{}, fmt.Errorf("store: no codec registered for trigger kind %q", t.Kind())
	}
	data, err := codec.EncodeData(t)
	if err != nil {
		return TriggerRecord{}, err
	}
	key, jobKey := t.Key(), t.JobKey()
	return TriggerRecord{
		Name:             key.Name,
		Group:            key.Group,
		JobName:          jobKey.Name,
		JobGroup:         jobKey.Group,
		Kind:             t.Kind(),
		CalendarName:     t.CalendarName(),
		Priority:         t.Priority(),
		Volatile:         t.Volatile(),
		MisfirePolicy:    t.MisfirePolicy(),
		State:            state,
		NextFireTime:     t.NextFireTime(),
		PreviousFireTime: t.PreviousFireTime(),
		Data:             data,
	}, nil
}

// DecodeTriggerRecord rehydrates a Trigger from its persisted row.
func DecodeTriggerRecord(rec TriggerRecord) (Trigger, error) {
	codec, ok := triggerCodecs[rec.Kind]
	if !ok {
		return nil, fmt.Errorf("store: no codec registered for trigger kind %q", rec.Kind)
	}
	return codec.Decode(rec)
}

// CalendarRecord is the persisted row for a named calendar.
type CalendarRecord struct {
	Name      string          `gorm:"primaryKey;size:255"`
	Kind      string          `gorm:"size:32"`
	Data      json.RawMessage `gorm:"type:jsonb"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime"`
}

func (CalendarRecord) TableName() string { return "calendar_records" }

// CalendarCodec mirrors TriggerCodec for internal/calendar's kinds.
type CalendarCodec interface {
	Kind() string
	EncodeData(c Calendar) (json.RawMessage, error)
	Decode(rec CalendarRecord) (Calendar, error)
}

var calendarCodecs = map[string]CalendarCodec{}

// RegisterCalendarCodec installs a codec for its Kind().
func RegisterCalendarCodec(c CalendarCodec) {
	calendarCodecs[c.Kind()] = c
}

// EncodeCalendarRecord builds the persisted row for cal under kind.
func EncodeCalendarRecord(name, kind string, cal Calendar) (CalendarRecord, error) {
	codec, ok := calendarCodecs[kind]
	if !ok {
		return CalendarRecord{}, fmt.Errorf("store: no codec registered for calendar kind %q", kind)
	}
	data, err := codec.EncodeData(cal)
	if err != nil {
		return CalendarRecord{}, err
	}
	return CalendarRecord{Name: name, Kind: kind, Data: data}, nil
}

// DecodeCalendarRecord rehydrates a Calendar from its persisted row.
func DecodeCalendarRecord(rec CalendarRecord) (Calendar, error) {
	codec, ok := calendarCodecs[rec.Kind]
	if !ok {
		return nil, fmt.Errorf("store: no codec registered for calendar kind %q", rec.Kind)
	}
	return codec.Decode(rec)
}
