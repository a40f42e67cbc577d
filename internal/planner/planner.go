// Package planner owns the state of one event being planned: its window, the
// aggregated availability, the organiser's date selection and the user's own votes.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tartampluch/go-huddle/internal/config"
	"github.com/tartampluch/go-huddle/internal/engine"
	"github.com/tartampluch/go-huddle/internal/locale"
	"github.com/tartampluch/go-huddle/internal/remote"
)

var (
	// ErrNotSynced is returned before the first successful Sync.
	ErrNotSynced = errors.New(config.ErrNotSynced)
	// ErrOutOfWindow is returned by ClickDay for days outside the event window.
	ErrOutOfWindow = errors.New(config.ErrOutOfWindow)
)

// Publisher receives the iCalendar feed of a confirmed event.
type Publisher interface {
	Update(data []byte)
}

// Options configures a Planner.
type Options struct {
	EventID string
	// UserID identifies the local user for single-day votes.
	UserID string

	Profiles  engine.Profiles
	Palette   engine.Palette
	WeekStart time.Weekday
	Location  *time.Location
	Clock     engine.Clock

	Translator *locale.Translator
	// Language is used for the exported calendar strings.
	Language  string
	Publisher Publisher
}

// SelectionState is the organiser's current selection.
type SelectionState struct {
	Mode     engine.Mode      `json:"mode"`
	Selected []engine.DateKey `json:"selected"`
	Duration int              `json:"duration"`
	Complete bool             `json:"complete"`
}

// ToggleOutcome is the result of Toggle. Notice explains rejections and completion.
type ToggleOutcome struct {
	Date      engine.DateKey      `json:"date"`
	Result    engine.ToggleResult `json:"result"`
	Notice    string              `json:"notice,omitempty"`
	Selection SelectionState      `json:"selection"`
}

// ConfirmOutcome is the result of a successful Confirm.
type ConfirmOutcome struct {
	Request engine.ConfirmRequest `json:"request"`
	Notice  string                `json:"notice"`
}

// DayDetail is the per-day "who said what" view.
type DayDetail struct {
	State   engine.DayState   `json:"state"`
	Summary engine.DaySummary `json:"summary"`
	MyVote  engine.Vote       `json:"my_vote"`
	// Labels maps each status wire value to its localized name.
	Labels map[engine.Status]string `json:"labels"`
}

// Snapshot is a read-only view of the planner state.
type Snapshot struct {
	EventID   string                              `json:"event_id"`
	Title     string                              `json:"title"`
	Synced    bool                                `json:"synced"`
	LastSync  time.Time                           `json:"last_sync"`
	Window    engine.EventWindow                  `json:"window"`
	Selection SelectionState                      `json:"selection"`
	Tallies   map[engine.DateKey]engine.DateTally `json:"tallies"`
	Confirmed *engine.ConfirmRequest              `json:"confirmed,omitempty"`
}

// Planner serializes every operation on one event behind a mutex.
// The engine types it drives are not safe for concurrent use on their own.
type Planner struct {
	api  remote.API
	opts Options

	mu        sync.Mutex
	synced    bool
	lastSync  time.Time
	event     remote.Event
	agg       engine.Aggregation
	selection *engine.SelectionEngine
	confirmed *engine.ConfirmRequest
	// writes counts local changes pushed to the API. Sync drops any fetch
	// that started before the latest one.
	writes uint64
}

// New builds a Planner. Nothing is fetched until Sync.
func New(api remote.API, opts Options) *Planner {
	if opts.Clock == nil {
		opts.Clock = engine.RealClock{}
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Palette == (engine.Palette{}) {
		opts.Palette = engine.DefaultPalette
	}
	return &Planner{api: api, opts: opts}
}

// Sync fetches the event and everybody's availability, then re-aggregates.
// An in-progress selection is kept and trimmed to the new window.
//
// A fetch that overlaps a local write (ClickDay, Confirm) may predate it, so
// its result is discarded and the fetch retried, up to config.MaxSyncAttempts.
func (p *Planner) Sync(ctx context.Context) error {
	log := slog.With(config.LogKeyComponent, config.CompPlanner, config.LogKeyEvent, p.opts.EventID)
	log.Debug(config.MsgSyncStarted)

	for attempt := 1; attempt <= config.MaxSyncAttempts; attempt++ {
		p.mu.Lock()
		writes := p.writes
		p.mu.Unlock()

		ev, err := p.api.FetchEvent(ctx, p.opts.EventID)
		if err != nil {
			return err
		}
		av, err := p.api.FetchAvailability(ctx, p.opts.EventID)
		if err != nil {
			return err
		}
		agg := engine.Aggregate(av.Organiser, av.Attendees, p.opts.Profiles)

		if p.apply(writes, ev, agg) {
			log.Info(config.MsgSyncSuccess,
				config.LogKeyAttendees, len(av.Attendees),
				config.LogKeyEntries, len(agg.Entries),
			)
			return nil
		}
		log.Debug(config.MsgSyncStale, config.LogKeyAttempt, attempt)
	}
	// Local state already reflects the newer writes; the next sync catches up.
	return nil
}

// apply stores a fetch result unless a local write happened since writes was read.
func (p *Planner) apply(writes uint64, ev remote.Event, agg engine.Aggregation) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writes != writes {
		return false
	}

	p.event = ev
	p.agg = agg
	if p.selection == nil {
		p.selection = engine.NewSelectionEngine(ev.Window)
	} else if p.selection.Window() != ev.Window {
		if dropped := p.selection.Rebind(ev.Window); len(dropped) > 0 {
			slog.Warn(config.MsgSelectionDrop,
				config.LogKeyComponent, config.CompPlanner,
				config.LogKeyDropped, len(dropped),
			)
		}
	}
	p.synced = true
	p.lastSync = p.opts.Clock.Now()
	return true
}

// Start runs Sync immediately and then on schedule (standard 5-field cron)
// until ctx is done.
func (p *Planner) Start(ctx context.Context, schedule string) error {
	log := slog.With(config.LogKeyComponent, config.CompWorker)

	// A slow sync makes the next tick skip rather than overlap.
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{})))
	if _, err := c.AddFunc(schedule, func() { p.syncAndLog(ctx) }); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCronSchedule, err)
	}

	p.syncAndLog(ctx)
	c.Start()
	log.Info(config.MsgWorkerStart, config.LogKeySchedule, schedule)

	<-ctx.Done()
	log.Info(config.MsgWorkerStop)
	<-c.Stop().Done()
	return nil
}

func (p *Planner) syncAndLog(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := p.Sync(ctx); err != nil {
		slog.Error(config.MsgSyncFailed,
			config.LogKeyComponent, config.CompWorker,
			config.LogKeyError, err,
		)
	}
}

// cronLogger routes cron's own messages (skipped ticks, panics) to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug(msg, append([]any{config.LogKeyComponent, config.CompWorker}, keysAndValues...)...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error(msg, append([]any{config.LogKeyComponent, config.CompWorker, config.LogKeyError, err}, keysAndValues...)...)
}

// BeginSelection enters date choosing mode.
func (p *Planner) BeginSelection() (SelectionState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.synced {
		return SelectionState{}, ErrNotSynced
	}
	p.selection.Begin()
	return p.selectionState(), nil
}

// Toggle adds or removes day k. Rejections are not errors: they come back as
// a ToggleResult with a localized notice.
func (p *Planner) Toggle(k engine.DateKey, lang string) (ToggleOutcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.synced {
		return ToggleOutcome{}, ErrNotSynced
	}

	res := p.view(engine.ViewMulti).Click(k).Toggle
	out := ToggleOutcome{Date: k, Result: res, Selection: p.selectionState()}
	switch {
	case !res.Changed():
		out.Notice = p.opts.Translator.Notice(lang, res, k, p.event.Window.Duration)
	case res == engine.ToggleAdded && p.selection.IsComplete():
		out.Notice = p.opts.Translator.Complete(lang, p.event.Window.Duration)
	}

	slog.Debug(config.MsgToggle,
		config.LogKeyComponent, config.CompPlanner,
		config.LogKeyDate, k.String(),
		config.LogKeyResult, res.String(),
		config.LogKeySelected, p.selection.Len(),
	)
	return out, nil
}

// Cancel discards the selection and leaves choosing mode.
func (p *Planner) Cancel() SelectionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.selection != nil {
		p.selection.Reset()
	}
	return p.selectionState()
}

// Selection returns the current selection.
func (p *Planner) Selection() SelectionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selectionState()
}

// Confirm sends the confirm-event action. On success the selection is reset
// and the iCalendar feed is published; on failure the selection is kept.
//
// The lock is held during the remote call so that no toggle can slip in
// between building the request and resetting the selection.
func (p *Planner) Confirm(ctx context.Context, reminder engine.DateKey, lang string) (ConfirmOutcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.synced {
		return ConfirmOutcome{}, ErrNotSynced
	}

	req, err := p.selection.Confirm(p.opts.EventID, reminder)
	if err != nil {
		return ConfirmOutcome{}, err
	}
	if err := p.api.Confirm(ctx, req); err != nil {
		return ConfirmOutcome{}, fmt.Errorf("%s: %w", config.ErrConfirmFailed, err)
	}

	p.writes++
	p.selection.Reset()
	p.confirmed = &req
	slog.Info(config.MsgConfirmSent,
		config.LogKeyComponent, config.CompPlanner,
		config.LogKeyEvent, req.EventID,
		config.LogKeyDates, len(req.SelectedDates),
	)

	p.publish(req)
	return ConfirmOutcome{Request: req, Notice: p.opts.Translator.Confirmed(lang)}, nil
}

func (p *Planner) publish(req engine.ConfirmRequest) {
	if p.opts.Publisher == nil {
		return
	}
	x := &engine.Exporter{
		Clock:    p.opts.Clock,
		Location: p.opts.Location,
	}
	if p.opts.Translator != nil {
		x.FormatSummary = p.opts.Translator.SummaryFormatter(p.opts.Language)
		x.FormatAlarm = p.opts.Translator.AlarmFormatter(p.opts.Language)
	}
	data, err := x.Export(p.event.Title, req)
	if err != nil {
		slog.Error(config.ErrICalEncode,
			config.LogKeyComponent, config.CompPlanner,
			config.LogKeyError, err,
		)
		return
	}
	p.opts.Publisher.Update(data)
}

// ClickDay is the single-date interaction: it advances the user's own vote on
// day k through the no vote, available, not available, tentative cycle and
// stores it remotely. The local aggregation is updated once the store succeeds.
func (p *Planner) ClickDay(ctx context.Context, k engine.DateKey) (engine.Vote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.synced {
		return engine.NoVote, ErrNotSynced
	}

	var clicked bool
	view := p.view(engine.ViewSingle)
	view.OnSelect = func(engine.DateKey) { clicked = true }
	view.Click(k)
	if !clicked {
		return engine.NoVote, ErrOutOfWindow
	}

	next := engine.NextVote(p.agg.VoteOf(p.opts.UserID, k))
	if err := p.api.SetDayStatus(ctx, p.opts.EventID, p.opts.UserID, k, next); err != nil {
		return engine.NoVote, fmt.Errorf("%s: %w", config.ErrDayStatusFailed, err)
	}
	p.writes++
	p.agg = p.agg.WithVote(p.opts.UserID, k, next)

	slog.Info(config.MsgDayStatusSent,
		config.LogKeyComponent, config.CompPlanner,
		config.LogKeyDate, k.String(),
		config.LogKeyValue, next,
	)
	return next, nil
}

// Calendar lays out one month with per-day decorations.
func (p *Planner) Calendar(year int, month time.Month) (engine.MonthGrid, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.synced {
		return engine.MonthGrid{}, ErrNotSynced
	}
	return p.view(engine.ViewMulti).Month(year, month, p.opts.WeekStart), nil
}

// Day returns the detail of day k with status names in lang.
func (p *Planner) Day(k engine.DateKey, lang string) (DayDetail, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.synced {
		return DayDetail{}, ErrNotSynced
	}
	labels := make(map[engine.Status]string, 3)
	for _, s := range []engine.Status{engine.Available, engine.NotAvailable, engine.Tentative} {
		labels[s] = p.opts.Translator.StatusLabel(lang, s)
	}
	return DayDetail{
		State:   p.view(engine.ViewMulti).Decorate(k),
		Summary: p.agg.Day(k),
		MyVote:  p.agg.VoteOf(p.opts.UserID, k),
		Labels:  labels,
	}, nil
}

// Suggestions ranks candidate date ranges. limit is clamped to
// [1, config.MaxSuggestions]; zero or less means config.DefaultSuggestions.
func (p *Planner) Suggestions(limit int) ([]engine.RangeSuggestion, error) {
	if limit <= 0 {
		limit = config.DefaultSuggestions
	}
	limit = min(limit, config.MaxSuggestions)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.synced {
		return nil, ErrNotSynced
	}
	return engine.SuggestRanges(p.agg.Tallies, p.event.Window, limit), nil
}

// Snapshot returns a copy of the planner state.
func (p *Planner) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	tallies := make(map[engine.DateKey]engine.DateTally, len(p.agg.Tallies))
	for k, v := range p.agg.Tallies {
		tallies[k] = v
	}
	snap := Snapshot{
		EventID:   p.opts.EventID,
		Title:     p.event.Title,
		Synced:    p.synced,
		LastSync:  p.lastSync,
		Window:    p.event.Window,
		Selection: p.selectionState(),
		Tallies:   tallies,
	}
	if p.confirmed != nil {
		c := *p.confirmed
		snap.Confirmed = &c
	}
	return snap
}

// view must be called with mu held.
func (p *Planner) view(mode engine.ViewMode) engine.CalendarView {
	return engine.CalendarView{
		Window:    p.event.Window,
		Tallies:   p.agg.Tallies,
		Selection: p.selection,
		Mode:      mode,
		Palette:   p.opts.Palette,
		Clock:     p.opts.Clock,
	}
}

// selectionState must be called with mu held.
func (p *Planner) selectionState() SelectionState {
	if p.selection == nil {
		return SelectionState{Selected: []engine.DateKey{}}
	}
	return SelectionState{
		Mode:     p.selection.Mode(),
		Selected: p.selection.Selected(),
		Duration: p.selection.Window().Duration,
		Complete: p.selection.IsComplete(),
	}
}
