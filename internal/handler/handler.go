// Package handler exposes the per-user cart and wishlist controllers over
// REST and MCP.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"shopsync/internal/controller"
	"shopsync/internal/model"
	"shopsync/internal/session"
	"shopsync/internal/version"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	registry *controller.Registry
	logger   *slog.Logger
	metrics  http.Handler
}

// New creates a Handler serving controllers from registry.
// metrics may be nil to leave /metrics unmounted.
func New(registry *controller.Registry, logger *slog.Logger, metrics http.Handler) *Handler {
	return &Handler{
		registry: registry,
		logger:   logger,
		metrics:  metrics,
	}
}

// Routes builds the router. Everything except health, metrics and /mcp
// requires a Shopper-Session header.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.handleHealth)
	r.Get("/healthz", h.handleHealth)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	// MCP carries the session in each tool call's meta instead of a header.
	r.Handle("/mcp", h.NewMCPHandler())

	r.Group(func(r chi.Router) {
		r.Use(session.Middleware(h.logger))

		r.Get("/catalog", h.handleGetCatalog)
		r.Post("/catalog/refresh", h.handleRefreshCatalog)

		r.Get("/cart", h.handleGetCart)
		r.Post("/cart/refresh", h.handleRefreshCart)
		r.Post("/cart/items/{productID}/increment", h.handleIncrement)
		r.Post("/cart/items/{productID}/decrement", h.handleDecrement)
		r.Delete("/cart/items/{productID}", h.handleRemove)

		r.Get("/wishlist", h.handleGetWishlist)
		r.Post("/wishlist/refresh", h.handleRefreshWishlist)
		r.Post("/wishlist/toggle", h.handleToggleWishlist)

		r.Delete("/session", h.handleEndSession)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: version.Version,
		Users:   h.registry.Len(),
	})
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Users   int    `json:"users"`
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from APIError if present.
// Uses errors.As() to unwrap error chains (e.g., fmt.Errorf wrapping).
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		apiErr = model.NewInternalError(err)
		h.logger.Error("internal error", slog.String("error", err.Error()))
	}

	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
		},
	})
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

var validate = newValidator()

// newValidator reports fields by their JSON name so errors match the request body.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// decodeJSON reads JSON from request body into v and validates it.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
// Returns an APIError if decoding or validation fails.
func decodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}

	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return model.NewValidationError(verrs[0].Field(), "failed "+verrs[0].Tag())
		}
		return model.NewValidationError("body", err.Error())
	}
	return nil
}
