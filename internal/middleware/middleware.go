// Package middleware provides HTTP middleware for the sync service.
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"shopsync/internal/model"
	"shopsync/internal/session"
	"shopsync/internal/transport"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = transport.RequestIDHeader

// RequestID returns middleware that tags each request with an id.
// An incoming X-Request-ID is kept; otherwise a UUID is generated.
// The id is echoed in the response and stored in the request context, where
// the store client picks it up for outbound calls.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(transport.WithRequestID(r.Context(), id)))
	})
}

// GetRequestID returns the id stored by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	return transport.RequestIDFrom(ctx)
}

// Logging emits one record per request once the handler returns: method,
// path, status, duration, the request id and, when the session middleware
// accepted a header, the shopper's user id. 5xx responses log at WARN.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// The session middleware runs further in; it reports back through holder.
			holder := &session.Holder{}
			r = r.WithContext(session.WithHolder(r.Context(), holder))
			rec := track(w)

			next.ServeHTTP(rec, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote", r.RemoteAddr),
			}
			if id := GetRequestID(r.Context()); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}
			if s, ok := holder.Get(); ok {
				attrs = append(attrs, slog.String("user_id", s.UserID.String()))
			}
			logger.LogAttrs(r.Context(), levelFor(rec.status), "request", attrs...)
		})
	}
}

func levelFor(status int) slog.Level {
	if status >= http.StatusInternalServerError {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

// Recovery turns a handler panic into a logged stack trace and, if nothing
// has been sent yet, a 500 in the usual error envelope.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := track(w)
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				logger.Error("panic recovered",
					slog.Any("error", v),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("stack", string(debug.Stack())),
				)
				if !rec.wroteHeader {
					writeInternalError(rec)
				}
			}()

			next.ServeHTTP(rec, r)
		})
	}
}

func writeInternalError(w http.ResponseWriter) {
	body := struct {
		Error *model.APIError `json:"error"`
	}{model.NewInternalError(nil)}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(body.Error.StatusCode)
	json.NewEncoder(w).Encode(body)
}

// statusRecorder remembers the first status written through it.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

// track wraps w once; nested middleware share the same recorder.
func track(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rec *statusRecorder) WriteHeader(status int) {
	if rec.wroteHeader {
		return
	}
	rec.status, rec.wroteHeader = status, true
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	rec.WriteHeader(http.StatusOK)
	return rec.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the connection; the MCP
// streaming transport flushes through it.
func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

func (rec *statusRecorder) Flush() {
	f, ok := rec.ResponseWriter.(http.Flusher)
	if !ok {
		return
	}
	rec.WriteHeader(http.StatusOK)
	f.Flush()
}

// Chain composes middleware so the first argument is the outermost layer.
func Chain(mws ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}
