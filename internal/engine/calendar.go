package engine

import (
	"time"

	"github.com/tartampluch/go-huddle/internal/config"
)

// ViewMode selects how CalendarView handles clicks.
type ViewMode uint8

const (
	// ViewMulti forwards clicks to the SelectionEngine (event confirmation).
	ViewMulti ViewMode = iota
	// ViewSingle reports the clicked day through OnSelect and keeps no selection.
	ViewSingle
)

// DayState is the presentation state of one calendar cell.
type DayState struct {
	Date        DateKey   `json:"date"`
	Day         int       `json:"day"`
	InMonth     bool      `json:"in_month"`
	InWindow    bool      `json:"in_window"`
	Today       bool      `json:"today"`
	Selected    bool      `json:"selected"`
	Disabled    bool      `json:"disabled"`
	Interactive bool      `json:"interactive"`
	Tally       DateTally `json:"tally"`
	Style       Style     `json:"style"`
	Classes     []string  `json:"classes"`
}

// MonthGrid is a month laid out in whole weeks.
type MonthGrid struct {
	Year  int          `json:"year"`
	Month time.Month   `json:"month"`
	Weeks [][]DayState `json:"weeks"`
}

// ClickKind describes what a click did.
type ClickKind uint8

const (
	ClickIgnored ClickKind = iota
	ClickToggled
	ClickReported
)

func (k ClickKind) String() string {
	switch k {
	case ClickToggled:
		return "toggled"
	case ClickReported:
		return "reported"
	default:
		return "ignored"
	}
}

func (k ClickKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ClickResult is returned by CalendarView.Click.
type ClickResult struct {
	Date   DateKey      `json:"date"`
	Kind   ClickKind    `json:"kind"`
	Toggle ToggleResult `json:"toggle"`
}

// CalendarView composes the window, the tallies, the palette and the
// selection into per-day presentation state. It holds no state of its own.
type CalendarView struct {
	Window    EventWindow
	Tallies   map[DateKey]DateTally
	Selection *SelectionEngine
	Mode      ViewMode
	Palette   Palette
	Clock     Clock

	// OnSelect receives in-window clicks in ViewSingle mode.
	OnSelect func(DateKey)
}

func (v CalendarView) palette() Palette {
	if v.Palette == (Palette{}) {
		return DefaultPalette
	}
	return v.Palette
}

func (v CalendarView) today() DateKey {
	if v.Clock == nil {
		return InvalidKey
	}
	return KeyOf(v.Clock.Now())
}

func (v CalendarView) selecting() bool {
	return v.Mode == ViewMulti && v.Selection != nil && v.Selection.Active()
}

// Decorate returns the state of day k.
//
// Days outside the window are greyed out and never interactive. While
// selecting, chosen days carry the "selected" class on top of their tally
// color, and once the cap is reached every other day is disabled.
func (v CalendarView) Decorate(k DateKey) DayState {
	tally := v.Tallies[k]
	st := DayState{
		Date:     k,
		InMonth:  true,
		InWindow: InWindow(k, v.Window),
		Tally:    tally,
		Style:    v.palette().ColorFor(tally),
		Classes:  []string{},
	}
	if k.Valid() {
		_, _, st.Day = k.Time(time.UTC).Date()
	}
	if today := v.today(); today.Valid() && today == k {
		st.Today = true
		st.Classes = append(st.Classes, config.ClassToday)
	}

	if !st.InWindow {
		st.Classes = append(st.Classes, config.ClassOutOfRange)
		return st
	}

	switch {
	case v.Mode == ViewSingle:
		st.Interactive = true
	case v.selecting():
		switch {
		case v.Selection.IsSelected(k):
			st.Selected = true
			st.Interactive = true
			st.Classes = append(st.Classes, config.ClassSelected)
		case v.Selection.IsComplete():
			st.Disabled = true
			st.Classes = append(st.Classes, config.ClassDisabled)
		default:
			st.Interactive = true
		}
	}
	return st
}

// Month lays out the given month in weeks starting on weekStart. Leading and
// trailing days of neighbouring months are included and flagged.
func (v CalendarView) Month(year int, month time.Month, weekStart time.Weekday) MonthGrid {
	grid := MonthGrid{Year: year, Month: month}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(first.Weekday()) - int(weekStart) + config.DaysPerWeek) % config.DaysPerWeek
	cursor := first.AddDate(0, 0, -offset)
	last := first.AddDate(0, 1, -1)

	for !cursor.After(last) {
		week := make([]DayState, 0, config.DaysPerWeek)
		for i := 0; i < config.DaysPerWeek; i++ {
			st := v.Decorate(KeyOf(cursor))
			if cursor.Month() != month {
				st.InMonth = false
				st.Classes = append(st.Classes, config.ClassOutside)
			}
			week = append(week, st)
			cursor = cursor.AddDate(0, 0, 1)
		}
		grid.Weeks = append(grid.Weeks, week)
	}
	return grid
}

// Click handles a click on day k.
//
// In ViewSingle mode the SelectionEngine is bypassed and OnSelect receives k
// when it is in-window. In ViewMulti mode the click becomes a Toggle.
func (v CalendarView) Click(k DateKey) ClickResult {
	res := ClickResult{Date: k, Kind: ClickIgnored}
	if v.Mode == ViewSingle {
		if !InWindow(k, v.Window) {
			return res
		}
		if v.OnSelect != nil {
			v.OnSelect(k)
		}
		res.Kind = ClickReported
		return res
	}

	if v.Selection == nil {
		res.Toggle = ToggleInactive
		return res
	}
	res.Toggle = v.Selection.Toggle(k)
	if res.Toggle.Changed() {
		res.Kind = ClickToggled
	}
	return res
}
