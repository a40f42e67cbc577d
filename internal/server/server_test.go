package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-huddle/internal/config"
)

// fixedClock controls the Last-Modified stamp.
type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newFeedServer() *CalendarServer {
	srv := NewCalendarServer("127.0.0.1:0", nil, []string{config.DefaultAllowOrigin})
	srv.Clock = fixedClock{time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return srv
}

func getFeed(srv *CalendarServer, hdr map[string]string) *http.Response {
	req := httptest.NewRequest(http.MethodGet, config.RouteCalendarICS, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w.Result()
}

// -----------------------------------------------------------------------------
// Calendar Feed
// -----------------------------------------------------------------------------

// TestFeed_ServingContent verifies headers and body once an event is confirmed.
func TestFeed_ServingContent(t *testing.T) {
	srv := newFeedServer()
	expectedICS := []byte("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nEND:VCALENDAR")
	srv.Update(expectedICS)

	resp := getFeed(srv, nil)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeTextCalendar, resp.Header.Get(config.HeaderContentType))
	assert.Equal(t, config.MimeNoSniff, resp.Header.Get(config.HeaderXContentType))
	assert.Contains(t, resp.Header.Get(config.HeaderCacheControl), "no-cache")
	assert.NotEmpty(t, resp.Header.Get(config.HeaderETag))
	assert.Equal(t, "Sun, 01 Jun 2025 12:00:00 GMT", resp.Header.Get(config.HeaderLastModified))

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, expectedICS, body)
}

// TestFeed_Caching verifies If-None-Match and If-Modified-Since produce 304.
func TestFeed_Caching(t *testing.T) {
	srv := newFeedServer()
	srv.Update([]byte("DATA_VERSION_1"))

	first := getFeed(srv, nil)
	etag := first.Header.Get(config.HeaderETag)
	require.NotEmpty(t, etag, "Server must provide an ETag")

	resp := getFeed(srv, map[string]string{config.HeaderIfNoneMatch: etag})
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Empty(t, body, "Body must be empty on 304 Not Modified")

	resp = getFeed(srv, map[string]string{config.HeaderIfModifiedSince: "Sun, 01 Jun 2025 13:00:00 GMT"})
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)

	resp = getFeed(srv, map[string]string{config.HeaderIfModifiedSince: "Sat, 31 May 2025 08:00:00 GMT"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	srv.Update([]byte("DATA_VERSION_2"))
	resp = getFeed(srv, map[string]string{config.HeaderIfNoneMatch: etag})
	assert.Equal(t, http.StatusOK, resp.StatusCode, "a new feed invalidates the old ETag")
}

// TestFeed_MethodNotAllowed ensures strictly GET and HEAD are accepted.
func TestFeed_MethodNotAllowed(t *testing.T) {
	srv := newFeedServer()

	req := httptest.NewRequest(http.MethodPost, config.RouteCalendarICS, nil)
	w := httptest.NewRecorder()
	srv.handleCalendarRequest(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(config.HeaderAllow))
}

// TestFeed_NotConfirmed verifies the 503 behavior before any confirmation.
func TestFeed_NotConfirmed(t *testing.T) {
	resp := getFeed(newFeedServer(), nil)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, config.RetryAfterSeconds, resp.Header.Get(config.HeaderRetryAfter))
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func TestMiddleware_RequestID(t *testing.T) {
	srv := newFeedServer()

	req := httptest.NewRequest(http.MethodGet, config.RouteHealth, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, config.HTTPMsgHealthy, w.Body.String())
	_, err := uuid.Parse(w.Header().Get(config.HeaderRequestID))
	assert.NoError(t, err, "a request id is generated")

	known := uuid.NewString()
	req = httptest.NewRequest(http.MethodGet, config.RouteHealth, nil)
	req.Header.Set(config.HeaderRequestID, known)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, known, w.Header().Get(config.HeaderRequestID), "a caller id is propagated")
}

func TestMiddleware_CORS(t *testing.T) {
	srv := newFeedServer()

	req := httptest.NewRequest(http.MethodGet, config.RouteHealth, nil)
	req.Header.Set("Origin", config.DefaultAllowOrigin)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, config.DefaultAllowOrigin, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, config.RouteHealth, nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMiddleware_NotFound(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	newFeedServer().Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not found"}`, w.Body.String())
}

// -----------------------------------------------------------------------------
// Concurrency Tests (Race Detection)
// -----------------------------------------------------------------------------

// TestServer_RaceCondition validates the thread-safety of atomic.Pointer usage.
// Run this with `go test -race`.
func TestServer_RaceCondition(t *testing.T) {
	srv := newFeedServer()
	var wg sync.WaitGroup

	end := time.Now().Add(300 * time.Millisecond)

	for w := 0; w < 5; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; time.Now().Before(end); i++ {
				srv.Update([]byte(fmt.Sprintf("VERSION:%d-%d", id, i)))
				time.Sleep(1 * time.Microsecond)
			}
		}(w)
	}

	for r := 0; r < 20; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) {
				req := httptest.NewRequest(http.MethodGet, config.RouteCalendarICS, nil)
				w := httptest.NewRecorder()
				srv.handleCalendarRequest(w, req)

				if code := w.Code; code != http.StatusOK && code != http.StatusServiceUnavailable {
					t.Errorf("Unexpected status code during race test: %d", code)
				}
			}
		}()
	}

	wg.Wait()
}

// -----------------------------------------------------------------------------
// Integration Tests (Real TCP Lifecycle)
// -----------------------------------------------------------------------------

// TestServer_Lifecycle spins up the actual TCP listener to verify network binding
// and graceful shutdown logic.
func TestServer_Lifecycle(t *testing.T) {
	const addr = "127.0.0.1:18099"

	srv := NewCalendarServer(addr, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)

	go func() {
		errChan <- srv.Start(ctx)
	}()

	url := "http://" + addr + config.RouteCalendarICS

	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return true
	}, 2*time.Second, 50*time.Millisecond, "Server failed to bind/listen in time")

	resp, err := http.Get(url)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	_ = resp.Body.Close()

	srv.Update([]byte("BEGIN:VCALENDAR\nEND:VCALENDAR"))

	resp, err = http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "BEGIN:VCALENDAR")

	cancel()

	select {
	case err := <-errChan:
		assert.NoError(t, err, "Server should shutdown gracefully without error")
	case <-time.After(5 * time.Second):
		t.Fatal("Server shutdown timed out")
	}
}

func TestServer_StartRequiresAddr(t *testing.T) {
	srv := NewCalendarServer("", nil, nil)
	assert.EqualError(t, srv.Start(context.Background()), config.ErrPortRequired)
}
