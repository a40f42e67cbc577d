package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/tartampluch/go-huddle/internal/config"
	"github.com/tartampluch/go-huddle/internal/engine"
	"github.com/tartampluch/go-huddle/internal/planner"
)

type toggleBody struct {
	Date engine.DateKey `json:"date"`
}

type confirmBody struct {
	ReminderDate engine.DateKey `json:"reminder_date"`
}

type errorBody struct {
	Error string `json:"error"`
}

type voteBody struct {
	Date engine.DateKey `json:"date"`
	Vote engine.Vote    `json:"vote"`
}

func (s *CalendarServer) routes(r *mux.Router) {
	r.HandleFunc(config.RouteEvent, s.handleEvent).Methods(http.MethodGet)
	r.HandleFunc(config.RouteCalendar, s.handleCalendar).Methods(http.MethodGet)
	r.HandleFunc(config.RouteDay, s.handleDay).Methods(http.MethodGet)
	r.HandleFunc(config.RouteDayClick, s.handleDayClick).Methods(http.MethodPost)
	r.HandleFunc(config.RouteSelection, s.handleSelection).Methods(http.MethodGet)
	r.HandleFunc(config.RouteSelectionBegin, s.handleBegin).Methods(http.MethodPost)
	r.HandleFunc(config.RouteSelectionToggle, s.handleToggle).Methods(http.MethodPost)
	r.HandleFunc(config.RouteSelectionCancel, s.handleCancel).Methods(http.MethodPost)
	r.HandleFunc(config.RouteSelectionConfirm, s.handleConfirm).Methods(http.MethodPost)
	r.HandleFunc(config.RouteSuggestions, s.handleSuggestions).Methods(http.MethodGet)
}

func (s *CalendarServer) handleEvent(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Planner.Snapshot())
}

// handleCalendar serves ?month=YYYY-MM, defaulting to the month the event starts in.
func (s *CalendarServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	var month time.Time
	if raw := r.URL.Query().Get(config.QueryMonth); raw != "" {
		m, err := time.Parse(config.DateFormatMonth, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, config.ErrBadMonth)
			return
		}
		month = m
	} else if snap := s.Planner.Snapshot(); snap.Window.Earliest.Valid() {
		month = snap.Window.Earliest.Time(time.UTC)
	} else {
		month = s.now()
	}

	grid, err := s.Planner.Calendar(month.Year(), month.Month())
	if err != nil {
		writePlannerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grid)
}

func (s *CalendarServer) handleDay(w http.ResponseWriter, r *http.Request) {
	k, ok := dateVar(w, r)
	if !ok {
		return
	}
	detail, err := s.Planner.Day(k, s.language(r))
	if err != nil {
		writePlannerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *CalendarServer) handleDayClick(w http.ResponseWriter, r *http.Request) {
	k, ok := dateVar(w, r)
	if !ok {
		return
	}
	vote, err := s.Planner.ClickDay(r.Context(), k)
	if err != nil {
		writePlannerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, voteBody{Date: k, Vote: vote})
}

func (s *CalendarServer) handleSelection(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Planner.Selection())
}

func (s *CalendarServer) handleBegin(w http.ResponseWriter, _ *http.Request) {
	state, err := s.Planner.BeginSelection()
	if err != nil {
		writePlannerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *CalendarServer) handleToggle(w http.ResponseWriter, r *http.Request) {
	var body toggleBody
	if !decodeBody(w, r, &body) {
		return
	}
	out, err := s.Planner.Toggle(body.Date, s.language(r))
	if err != nil {
		writePlannerError(w, err)
		return
	}
	// Rejections are normal outcomes and keep a 200 status.
	writeJSON(w, http.StatusOK, out)
}

func (s *CalendarServer) handleCancel(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Planner.Cancel())
}

func (s *CalendarServer) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var body confirmBody
	if !decodeBody(w, r, &body) {
		return
	}
	out, err := s.Planner.Confirm(r.Context(), body.ReminderDate, s.language(r))
	if err != nil {
		writePlannerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *CalendarServer) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get(config.QueryLimit); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, config.ErrBadBody)
			return
		}
		limit = n
	}
	out, err := s.Planner.Suggestions(limit)
	if err != nil {
		writePlannerError(w, err)
		return
	}
	if out == nil {
		out = []engine.RangeSuggestion{}
	}
	writeJSON(w, http.StatusOK, out)
}

// language picks ?lang=, then Accept-Language, then the server default.
func (s *CalendarServer) language(r *http.Request) string {
	if lang := r.URL.Query().Get(config.QueryLang); lang != "" {
		return lang
	}
	if lang := r.Header.Get(config.HeaderAcceptLanguage); lang != "" {
		return lang
	}
	return s.Language
}

func dateVar(w http.ResponseWriter, r *http.Request) (engine.DateKey, bool) {
	k := engine.ParseKey(mux.Vars(r)[config.RouteVarDate])
	if !k.Valid() {
		writeError(w, http.StatusBadRequest, config.ErrBadDate)
		return engine.InvalidKey, false
	}
	return k, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, config.ErrBadBody+": "+err.Error())
		return false
	}
	return true
}

// writePlannerError maps planner and engine errors to HTTP statuses.
func writePlannerError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, planner.ErrNotSynced):
		status = http.StatusServiceUnavailable
	case errors.Is(err, planner.ErrOutOfWindow), errors.Is(err, engine.ErrInvalidReminder):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrSelectionIncomplete):
		status = http.StatusConflict
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HeaderContentType, config.MimeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(config.ErrWriteResp,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
	}
}
