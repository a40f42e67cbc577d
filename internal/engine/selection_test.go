package engine_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-huddle/internal/engine"
)

func juneWindow(t *testing.T, duration int) engine.EventWindow {
	t.Helper()
	w, err := engine.NewEventWindow(key("2025-06-01"), key("2025-06-05"), duration)
	require.NoError(t, err)
	return w
}

// TestSelection_ConfirmationFlow walks the organiser through a two-day confirmation.
func TestSelection_ConfirmationFlow(t *testing.T) {
	sel := engine.NewSelectionEngine(juneWindow(t, 2))
	assert.Equal(t, engine.ModeIdle, sel.Mode())
	assert.Equal(t, engine.ToggleInactive, sel.Toggle(key("2025-06-02")), "toggling requires Begin")

	sel.Begin()
	assert.Equal(t, engine.ModeChoosing, sel.Mode())

	assert.Equal(t, engine.ToggleAdded, sel.Toggle(key("2025-06-02")))
	assert.Equal(t, engine.ToggleAdded, sel.Toggle(key("2025-06-04")))
	assert.Equal(t, engine.ModeConfirming, sel.Mode())
	assert.True(t, sel.IsComplete())

	assert.Equal(t, engine.ToggleCapReached, sel.Toggle(key("2025-06-03")))
	assert.Equal(t, []engine.DateKey{key("2025-06-02"), key("2025-06-04")}, sel.Selected(), "rejection leaves the set unchanged")

	assert.Equal(t, engine.ToggleRemoved, sel.Toggle(key("2025-06-02")))
	assert.Equal(t, engine.ModeChoosing, sel.Mode())
	assert.Equal(t, []engine.DateKey{key("2025-06-04")}, sel.Selected())

	assert.Equal(t, engine.ToggleOutOfWindow, sel.Toggle(key("2025-06-06")))
	assert.Equal(t, engine.ToggleOutOfWindow, sel.Toggle(engine.InvalidKey))
	assert.Equal(t, 1, sel.Len())

	assert.Equal(t, engine.ToggleAdded, sel.Toggle(key("2025-06-01")), "the earliest day is selectable")
	assert.Equal(t, engine.ModeConfirming, sel.Mode())

	req, err := sel.Confirm("evt-1", key("2025-05-30"))
	require.NoError(t, err)
	assert.Equal(t, "evt-1", req.EventID)
	assert.Equal(t, []engine.DateKey{key("2025-06-01"), key("2025-06-04")}, req.SelectedDates)

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event_id":"evt-1","reminder_date":"2025-05-30","selectedDates":["2025-06-01","2025-06-04"]}`, string(data))

	sel.Reset()
	assert.Equal(t, engine.ModeIdle, sel.Mode())
	assert.Zero(t, sel.Len())
}

func TestSelection_ToggleSequence(t *testing.T) {
	sel := engine.NewSelectionEngine(juneWindow(t, 2))
	sel.Begin()

	steps := []struct {
		day      string
		want     engine.ToggleResult
		selected []string
	}{
		{"2025-06-03", engine.ToggleAdded, []string{"2025-06-03"}},
		{"2025-06-10", engine.ToggleOutOfWindow, []string{"2025-06-03"}},
		{"2025-06-04", engine.ToggleAdded, []string{"2025-06-03", "2025-06-04"}},
		{"2025-06-05", engine.ToggleCapReached, []string{"2025-06-03", "2025-06-04"}},
	}
	for _, st := range steps {
		assert.Equal(t, st.want, sel.Toggle(key(st.day)), "toggle %s", st.day)

		want := make([]engine.DateKey, 0, len(st.selected))
		for _, s := range st.selected {
			want = append(want, key(s))
		}
		assert.Equal(t, want, sel.Selected(), "after toggling %s", st.day)
	}
	assert.Equal(t, engine.ModeConfirming, sel.Mode())
}

func TestSelection_CapInvariant(t *testing.T) {
	w := juneWindow(t, 3)
	sel := engine.NewSelectionEngine(w)
	sel.Begin()

	sequence := []string{
		"2025-06-01", "2025-06-02", "2025-06-03", "2025-06-04", "2025-06-05",
		"2025-06-02", "2025-06-05", "2025-06-04", "2025-06-01", "2025-06-03",
		"2025-05-31", "2025-06-06", "2025-06-03", "2025-06-02",
	}
	for _, s := range sequence {
		sel.Toggle(key(s))
		assert.LessOrEqual(t, sel.Len(), w.Duration)
		for _, k := range sel.Selected() {
			assert.True(t, engine.InWindow(k, w), "selected day %s must be in-window", k)
		}
	}
}

func TestSelection_ToggleIsSelfInverse(t *testing.T) {
	sel := engine.NewSelectionEngine(juneWindow(t, 3))
	sel.Begin()
	require.Equal(t, engine.ToggleAdded, sel.Toggle(key("2025-06-01")))
	before := sel.Selected()

	for _, s := range []string{"2025-06-03", "2025-06-01"} {
		k := key(s)
		first := sel.Toggle(k)
		require.True(t, first.Changed())
		second := sel.Toggle(k)
		require.True(t, second.Changed())
		assert.Equal(t, before, sel.Selected())
	}
}

func TestSelection_ConfirmErrors(t *testing.T) {
	sel := engine.NewSelectionEngine(juneWindow(t, 2))

	_, err := sel.Confirm("evt", key("2025-05-30"))
	assert.ErrorIs(t, err, engine.ErrSelectionIncomplete, "idle")

	sel.Begin()
	sel.Toggle(key("2025-06-02"))
	_, err = sel.Confirm("evt", key("2025-05-30"))
	assert.ErrorIs(t, err, engine.ErrSelectionIncomplete, "one of two days")

	sel.Toggle(key("2025-06-03"))
	_, err = sel.Confirm("evt", engine.InvalidKey)
	assert.ErrorIs(t, err, engine.ErrInvalidReminder)

	assert.Equal(t, 2, sel.Len(), "failed confirmations keep the selection")
}

func TestSelection_BeginIsIdempotent(t *testing.T) {
	sel := engine.NewSelectionEngine(juneWindow(t, 1))
	sel.Begin()
	sel.Toggle(key("2025-06-05"))
	sel.Begin()

	assert.Equal(t, engine.ModeConfirming, sel.Mode())
	assert.True(t, sel.IsSelected(key("2025-06-05")))
}

func TestSelection_Rebind(t *testing.T) {
	sel := engine.NewSelectionEngine(juneWindow(t, 3))
	sel.Begin()
	for _, s := range []string{"2025-06-01", "2025-06-03", "2025-06-05"} {
		require.Equal(t, engine.ToggleAdded, sel.Toggle(key(s)))
	}

	narrower, err := engine.NewEventWindow(key("2025-06-02"), key("2025-06-08"), 1)
	require.NoError(t, err)

	dropped := sel.Rebind(narrower)
	assert.Equal(t, []engine.DateKey{key("2025-06-01"), key("2025-06-05")}, dropped)
	assert.Equal(t, []engine.DateKey{key("2025-06-03")}, sel.Selected())
	assert.Equal(t, narrower, sel.Window())
	assert.Equal(t, engine.ModeConfirming, sel.Mode())

	wider, err := engine.NewEventWindow(key("2025-06-01"), key("2025-06-10"), 4)
	require.NoError(t, err)
	assert.Empty(t, sel.Rebind(wider))
	assert.Equal(t, engine.ModeChoosing, sel.Mode(), "a longer duration reopens choosing")
}

func TestToggleResult_Strings(t *testing.T) {
	assert.Equal(t, "max_days_reached", engine.ToggleCapReached.String())
	assert.Equal(t, "out_of_window", engine.ToggleOutOfWindow.String())
	assert.False(t, engine.ToggleInactive.Changed())
	assert.True(t, engine.ToggleRemoved.Changed())
	assert.Equal(t, "confirming", engine.ModeConfirming.String())
}
