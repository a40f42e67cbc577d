package engine

import "errors"

var (
	// ErrSelectionIncomplete is returned by Confirm before Duration days are chosen.
	ErrSelectionIncomplete = errors.New("engine: selection does not match the event duration")
	// ErrInvalidReminder is returned by Confirm for an unusable reminder date.
	ErrInvalidReminder = errors.New("engine: reminder date is invalid")
)

// Mode is the organiser's position in the confirmation flow.
type Mode uint8

const (
	// ModeIdle: not choosing dates.
	ModeIdle Mode = iota
	// ModeChoosing: toggling days, fewer than Duration selected.
	ModeChoosing
	// ModeConfirming: Duration days selected, waiting for the reminder date and submit.
	ModeConfirming
)

func (m Mode) String() string {
	switch m {
	case ModeChoosing:
		return "choosing"
	case ModeConfirming:
		return "confirming"
	default:
		return "idle"
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ToggleResult is the outcome of one Toggle call. Rejections leave the state unchanged.
type ToggleResult uint8

const (
	ToggleAdded ToggleResult = iota
	ToggleRemoved
	// ToggleOutOfWindow: the day is outside the event window.
	ToggleOutOfWindow
	// ToggleCapReached: Duration days are already selected ("max days reached").
	ToggleCapReached
	// ToggleInactive: the engine is idle; call Begin first.
	ToggleInactive
)

// Changed reports whether the selection was modified.
func (r ToggleResult) Changed() bool {
	return r == ToggleAdded || r == ToggleRemoved
}

func (r ToggleResult) String() string {
	switch r {
	case ToggleAdded:
		return "added"
	case ToggleRemoved:
		return "removed"
	case ToggleOutOfWindow:
		return "out_of_window"
	case ToggleCapReached:
		return "max_days_reached"
	default:
		return "inactive"
	}
}

func (r ToggleResult) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ConfirmRequest is the confirm-event action handed to the persistence collaborator.
type ConfirmRequest struct {
	EventID       string    `json:"event_id"`
	ReminderDate  DateKey   `json:"reminder_date"`
	SelectedDates []DateKey `json:"selectedDates"`
}

// SelectionEngine is the bounded multi-select used to confirm an event.
// The set never holds more than Window.Duration days.
//
// It is not safe for concurrent use; callers serialize access.
type SelectionEngine struct {
	window   EventWindow
	mode     Mode
	selected map[DateKey]struct{}
}

// NewSelectionEngine returns an idle engine for w.
func NewSelectionEngine(w EventWindow) *SelectionEngine {
	return &SelectionEngine{window: w, selected: make(map[DateKey]struct{})}
}

// Window returns the window the engine is bound to.
func (e *SelectionEngine) Window() EventWindow { return e.window }

// Mode returns the current mode.
func (e *SelectionEngine) Mode() Mode { return e.mode }

// Active reports whether the organiser is choosing or confirming.
func (e *SelectionEngine) Active() bool { return e.mode != ModeIdle }

// Len returns the number of selected days.
func (e *SelectionEngine) Len() int { return len(e.selected) }

// IsComplete reports whether exactly Duration days are selected.
func (e *SelectionEngine) IsComplete() bool {
	return e.window.Duration > 0 && len(e.selected) == e.window.Duration
}

// IsSelected reports whether k is selected.
func (e *SelectionEngine) IsSelected(k DateKey) bool {
	_, ok := e.selected[k]
	return ok
}

// Selected returns the chosen days in chronological order.
func (e *SelectionEngine) Selected() []DateKey {
	out := make([]DateKey, 0, len(e.selected))
	for k := range e.selected {
		out = append(out, k)
	}
	sortKeys(out)
	return out
}

// Begin enters choosing mode. Calling it while already active is a no-op.
func (e *SelectionEngine) Begin() {
	if e.mode == ModeIdle {
		e.mode = ModeChoosing
		e.syncMode()
	}
}

// Toggle adds or removes k.
//
// Removing is always allowed. Adding is rejected for days outside the window
// and when Duration days are already selected; a full selection is never
// extended by evicting an older day.
func (e *SelectionEngine) Toggle(k DateKey) ToggleResult {
	if e.mode == ModeIdle {
		return ToggleInactive
	}
	if !InWindow(k, e.window) {
		return ToggleOutOfWindow
	}
	if _, ok := e.selected[k]; ok {
		delete(e.selected, k)
		e.syncMode()
		return ToggleRemoved
	}
	if len(e.selected) >= e.window.Duration {
		return ToggleCapReached
	}
	e.selected[k] = struct{}{}
	e.syncMode()
	return ToggleAdded
}

// Reset clears the selection and returns to idle.
// It is the only way, besides building a new engine, to discard a selection.
func (e *SelectionEngine) Reset() {
	clear(e.selected)
	e.mode = ModeIdle
}

// Confirm builds the confirm-event action. The engine is not reset; callers
// reset once the collaborator has accepted the request.
func (e *SelectionEngine) Confirm(eventID string, reminder DateKey) (ConfirmRequest, error) {
	if e.mode != ModeConfirming || !e.IsComplete() {
		return ConfirmRequest{}, ErrSelectionIncomplete
	}
	if !reminder.Valid() {
		return ConfirmRequest{}, ErrInvalidReminder
	}
	return ConfirmRequest{
		EventID:       eventID,
		ReminderDate:  reminder,
		SelectedDates: e.Selected(),
	}, nil
}

// Rebind moves the engine to a re-fetched window without resetting it.
// Days that left the window are dropped, then the latest days beyond the new
// Duration. The dropped days are returned in chronological order.
func (e *SelectionEngine) Rebind(w EventWindow) []DateKey {
	e.window = w
	var dropped []DateKey
	kept := make([]DateKey, 0, len(e.selected))
	for _, k := range e.Selected() {
		if InWindow(k, w) {
			kept = append(kept, k)
		} else {
			dropped = append(dropped, k)
		}
	}
	if w.Duration >= 0 && len(kept) > w.Duration {
		dropped = append(dropped, kept[w.Duration:]...)
	}
	for _, k := range dropped {
		delete(e.selected, k)
	}
	sortKeys(dropped)
	e.syncMode()
	return dropped
}

// syncMode keeps Choosing and Confirming consistent with the selection size.
func (e *SelectionEngine) syncMode() {
	if e.mode == ModeIdle {
		return
	}
	if e.IsComplete() {
		e.mode = ModeConfirming
	} else {
		e.mode = ModeChoosing
	}
}
