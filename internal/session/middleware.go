package session

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// SessionRequired is the error code when the Shopper-Session header is missing or invalid
const SessionRequired = "session_required"

// Middleware creates HTTP middleware that resolves the shopper session.
// Parses the Shopper-Session header and stores the Session in the request
// context for handlers.
//
// Requests without a usable session are rejected with 401 before any
// backend call is made.
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(HeaderName)
			if header == "" {
				writeSessionError(w, http.StatusUnauthorized, SessionRequired,
					"Shopper-Session header is required")
				return
			}

			s, err := ParseHeader(header)
			if err != nil {
				logger.Warn("invalid Shopper-Session header",
					slog.String("error", err.Error()))
				writeSessionError(w, http.StatusUnauthorized, SessionRequired,
					"Invalid Shopper-Session header: "+err.Error())
				return
			}

			if err := s.Validate(); err != nil {
				writeSessionError(w, http.StatusUnauthorized, SessionRequired, err.Error())
				return
			}

			if h := holderFrom(r.Context()); h != nil {
				h.Set(s)
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// writeSessionError writes the standard error envelope.
func writeSessionError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}{}
	resp.Error.Code = code
	resp.Error.Message = message

	json.NewEncoder(w).Encode(resp)
}
