package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/tartampluch/go-huddle/internal/config"
	"github.com/tartampluch/go-huddle/internal/engine"
	"github.com/tartampluch/go-huddle/internal/planner"
)

// Planner is the subset of *planner.Planner the HTTP layer drives.
type Planner interface {
	Snapshot() planner.Snapshot
	Selection() planner.SelectionState
	BeginSelection() (planner.SelectionState, error)
	Toggle(k engine.DateKey, lang string) (planner.ToggleOutcome, error)
	Cancel() planner.SelectionState
	Confirm(ctx context.Context, reminder engine.DateKey, lang string) (planner.ConfirmOutcome, error)
	ClickDay(ctx context.Context, k engine.DateKey) (engine.Vote, error)
	Calendar(year int, month time.Month) (engine.MonthGrid, error)
	Day(k engine.DateKey, lang string) (planner.DayDetail, error)
	Suggestions(limit int) ([]engine.RangeSuggestion, error)
}

// cacheItem stores the rendered calendar and its metadata for HTTP caching.
type cacheItem struct {
	data         []byte
	etag         string
	lastModified string // RFC1123 format required by HTTP headers
}

// CalendarServer serves the planner JSON API and the confirmed event feed.
type CalendarServer struct {
	// cache uses atomic.Pointer for lock-free reads.
	// The feed is read often by calendar clients but only replaced on confirmation.
	cache atomic.Pointer[cacheItem]

	Addr           string
	Planner        Planner
	AllowedOrigins []string
	// Language is used when a request names none.
	Language string
	Clock    engine.Clock
}

// NewCalendarServer creates a new instance of the server.
func NewCalendarServer(addr string, p Planner, origins []string) *CalendarServer {
	return &CalendarServer{
		Addr:           addr,
		Planner:        p,
		AllowedOrigins: origins,
		Language:       config.DefaultLanguage,
		Clock:          engine.RealClock{},
	}
}

// Handler builds the router with its middleware chain:
// request id, access log, panic recovery, CORS.
func (s *CalendarServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, config.HTTPMsgNotFound)
	})

	r.HandleFunc(config.RouteHealth, s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(config.RouteCalendarICS, s.handleCalendarRequest)

	if s.Planner != nil {
		s.routes(r)
	}

	cors := handlers.CORS(
		handlers.AllowedOrigins(s.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{config.HeaderContentType, config.HeaderRequestID, config.HeaderAcceptLanguage}),
		handlers.ExposedHeaders([]string{config.HeaderRequestID, config.HeaderETag}),
	)

	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(slogRecoveryLogger{}),
		handlers.PrintRecoveryStack(false),
	)

	return requestID(handlers.CustomLoggingHandler(io.Discard, recovery(cors(r)), logRequest))
}

// Start initializes the HTTP server and blocks until the context is cancelled.
func (s *CalendarServer) Start(ctx context.Context) error {
	if s.Addr == "" {
		return errors.New(config.ErrPortRequired)
	}

	srv := &http.Server{
		Addr:         s.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyPort, s.Addr,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// Update atomically replaces the served calendar feed.
func (s *CalendarServer) Update(data []byte) {
	hash := sha256.Sum256(data)
	etag := fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:]))

	lastMod := s.now().UTC().Format(http.TimeFormat)

	item := &cacheItem{
		data:         data,
		etag:         etag,
		lastModified: lastMod,
	}

	// Readers see either the old or the new complete item, never a partial state.
	s.cache.Store(item)

	slog.Debug(config.MsgCacheUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeySizeBytes, len(data),
		config.LogKeyETag, etag,
	)
}

func (s *CalendarServer) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *CalendarServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set(config.HeaderContentType, config.MimeTextPlain)
	_, _ = io.WriteString(w, config.HTTPMsgHealthy)
}

// handleCalendarRequest serves the ICS content with HTTP caching support.
func (s *CalendarServer) handleCalendarRequest(w http.ResponseWriter, r *http.Request) {
	// 1. Method Validation
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}

	// 2. Load Data (Atomic / Lock-Free)
	item := s.cache.Load()

	// 3. Readiness Check: nothing is served before the first confirmation.
	if item == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	// 4. Set Response Headers
	w.Header().Set(config.HeaderContentType, config.MimeTextCalendar)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	w.Header().Set(config.HeaderETag, item.etag)
	w.Header().Set(config.HeaderLastModified, item.lastModified)

	// 5. Check Conditional Headers
	if match := r.Header.Get(config.HeaderIfNoneMatch); match == item.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if since := r.Header.Get(config.HeaderIfModifiedSince); since != "" {
		if clientTime, err := time.Parse(http.TimeFormat, since); err == nil {
			if serverTime, err := time.Parse(http.TimeFormat, item.lastModified); err == nil {
				if !serverTime.After(clientTime) {
					w.WriteHeader(http.StatusNotModified)
					return
				}
			}
		}
	}

	// 6. Serve Content
	if r.Method == http.MethodGet {
		if _, err := io.Copy(w, bytes.NewReader(item.data)); err != nil {
			slog.Error(config.ErrWriteResp,
				config.LogKeyComponent, config.CompServer,
				config.LogKeyError, err,
			)
		}
	}
}
