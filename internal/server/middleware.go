package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/tartampluch/go-huddle/internal/config"
)

// requestID tags every request with an X-Request-ID, reusing the caller's when present.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(config.HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			r.Header.Set(config.HeaderRequestID, id)
		}
		w.Header().Set(config.HeaderRequestID, id)
		next.ServeHTTP(w, r)
	})
}

// logRequest is a handlers.LogFormatter that writes the access log through slog.
func logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	slog.Info(config.MsgRequest,
		config.LogKeyComponent, config.CompServer,
		config.LogKeyMethod, p.Request.Method,
		config.LogKeyPath, p.URL.Path,
		config.LogKeyStatus, p.StatusCode,
		config.LogKeySizeBytes, p.Size,
		config.LogKeyRequestID, p.Request.Header.Get(config.HeaderRequestID),
		config.LogKeyElapsed, time.Since(p.TimeStamp).Milliseconds(),
	)
}

// slogRecoveryLogger adapts slog to handlers.RecoveryHandlerLogger.
type slogRecoveryLogger struct{}

func (slogRecoveryLogger) Println(v ...any) {
	slog.Error(config.MsgPanic,
		config.LogKeyComponent, config.CompServer,
		config.LogKeyError, fmt.Sprint(v...),
	)
}
