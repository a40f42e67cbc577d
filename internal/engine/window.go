package engine

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"
)

var (
	// ErrMalformedWindow reports an earliest date after the latest date, or an invalid bound.
	ErrMalformedWindow = errors.New("engine: event window earliest date must not be after latest date")
	// ErrInvalidDuration reports a duration below one day or longer than the window.
	ErrInvalidDuration = errors.New("engine: event duration must be between 1 and the window length")
)

// EventWindow is the organiser-declared range of candidate days plus the
// number of days that must finally be confirmed.
type EventWindow struct {
	Earliest DateKey `json:"earliest"`
	Latest   DateKey `json:"latest"`
	Duration int     `json:"duration"`
}

// NewEventWindow validates and builds a window.
func NewEventWindow(earliest, latest DateKey, duration int) (EventWindow, error) {
	w := EventWindow{Earliest: earliest, Latest: latest, Duration: duration}
	return w, w.Validate()
}

// Validate checks earliest <= latest and 1 <= duration <= window length.
func (w EventWindow) Validate() error {
	if !w.Earliest.Valid() || !w.Latest.Valid() || w.Latest.Before(w.Earliest) {
		return ErrMalformedWindow
	}
	if w.Duration < 1 || w.Duration > w.Length() {
		return ErrInvalidDuration
	}
	return nil
}

// Length is the number of days in the window, bounds included.
// It is zero for malformed windows.
func (w EventWindow) Length() int {
	if !w.Earliest.Valid() || !w.Latest.Valid() || w.Latest.Before(w.Earliest) {
		return 0
	}
	return w.Earliest.DaysUntil(w.Latest) + 1
}

// InWindow reports whether k lies in [earliest, latest], bounds included.
// Invalid keys and malformed windows are never in-window.
func InWindow(k DateKey, w EventWindow) bool {
	if !k.Valid() || !w.Earliest.Valid() || !w.Latest.Valid() {
		return false
	}
	return w.Earliest.Compare(k) <= 0 && k.Compare(w.Latest) <= 0
}

// Contains is InWindow as a method.
func (w EventWindow) Contains(k DateKey) bool {
	return InWindow(k, w)
}

// Days lists every day of the window in order (nil for malformed windows).
func (w EventWindow) Days() []DateKey {
	if w.Length() == 0 {
		return nil
	}
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: w.Earliest.Time(time.UTC),
		Until:   w.Latest.Time(time.UTC),
	})
	if err != nil {
		return nil
	}
	occ := r.All()
	days := make([]DateKey, 0, len(occ))
	for _, t := range occ {
		days = append(days, KeyOf(t))
	}
	return days
}
