package engine

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/go-huddle/internal/config"
)

// icalDateTimeUTC is the iCalendar UTC DATE-TIME layout.
const icalDateTimeUTC = "20060102T150405Z"

// Exporter renders a confirmed event as an iCalendar feed.
type Exporter struct {
	Clock Clock

	// Location is the zone of the reminder time (time.Local when nil).
	Location *time.Location

	// FormatSummary allows the caller to inject localized event titles.
	// part and parts number the contiguous runs of confirmed days.
	FormatSummary func(title string, part, parts int) string

	// FormatAlarm allows the caller to inject the localized reminder text.
	FormatAlarm func(title string) string
}

// Export writes one all-day VEVENT per contiguous run of confirmed days.
// The first event carries a DISPLAY alarm at ReminderHour on the reminder date.
func (x *Exporter) Export(title string, req ConfirmRequest) ([]byte, error) {
	runs := contiguousRuns(req.SelectedDates)
	if len(runs) == 0 {
		return nil, ErrSelectionIncomplete
	}

	clock := x.Clock
	if clock == nil {
		clock = RealClock{}
	}
	loc := x.Location
	if loc == nil {
		loc = time.Local
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	dtStamp := ical.NewProp(config.PropDTStamp)
	dtStamp.SetDateTime(clock.Now().UTC())

	for i, run := range runs {
		start, end := run[0], run[len(run)-1]

		event := ical.NewEvent()
		event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, req.EventID, start, config.ICalDomain))
		event.Props.SetText(config.PropSummary, x.summary(title, i+1, len(runs)))
		event.Props.Set(dtStamp)

		dtStart := ical.NewProp(config.PropDTStart)
		dtStart.SetDate(start.Time(time.UTC))
		event.Props.Set(dtStart)

		// DTEND is exclusive for all-day events.
		dtEnd := ical.NewProp(config.PropDTEnd)
		dtEnd.SetDate(end.AddDays(1).Time(time.UTC))
		event.Props.Set(dtEnd)

		if i == 0 && req.ReminderDate.Valid() {
			addAlarm(event, req.ReminderDate, loc, x.alarm(title))
		}

		cal.Children = append(cal.Children, event.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}
	return buf.Bytes(), nil
}

func (x *Exporter) summary(title string, part, parts int) string {
	if x.FormatSummary != nil {
		return x.FormatSummary(title, part, parts)
	}
	if parts > 1 {
		return fmt.Sprintf(config.FallbackSummaryPart, title, part, parts)
	}
	return fmt.Sprintf(config.FallbackSummary, title)
}

func (x *Exporter) alarm(title string) string {
	if x.FormatAlarm != nil {
		return x.FormatAlarm(title)
	}
	return fmt.Sprintf(config.FallbackAlarm, title)
}

// addAlarm appends a DISPLAY alarm with an absolute trigger.
func addAlarm(event *ical.Event, reminder DateKey, loc *time.Location, description string) {
	alarm := ical.NewComponent(config.ICalComponent)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	at := reminder.Time(loc).Add(config.ReminderHour * time.Hour)
	trigger := ical.NewProp(config.PropTrigger)
	trigger.Params.Set(config.ParamValue, config.ParamValueDateTime)
	trigger.Value = at.UTC().Format(icalDateTimeUTC)
	alarm.Props.Set(trigger)

	event.Children = append(event.Children, alarm)
}

// contiguousRuns splits sorted-or-not days into chronological runs of consecutive days.
func contiguousRuns(days []DateKey) [][]DateKey {
	sorted := make([]DateKey, 0, len(days))
	seen := make(map[DateKey]struct{}, len(days))
	for _, d := range days {
		if !d.Valid() {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		sorted = append(sorted, d)
	}
	sortKeys(sorted)

	var runs [][]DateKey
	for _, d := range sorted {
		if n := len(runs); n > 0 {
			last := runs[n-1]
			if last[len(last)-1].AddDays(1) == d {
				runs[n-1] = append(last, d)
				continue
			}
		}
		runs = append(runs, []DateKey{d})
	}
	return runs
}
