package model

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure kinds the controller and its callers branch on with errors.Is.
var (
	ErrTransport      = errors.New("transport failure")
	ErrPrecondition   = errors.New("precondition failure")
	ErrMutationFailed = errors.New("mutation failed")
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrConflict       = errors.New("conflict")
	ErrRateLimited    = errors.New("rate limited")
)

// Error codes as they appear in the REST envelope and MCP tool errors.
const (
	CodeTransport    = "TRANSPORT_FAILURE"
	CodePrecondition = "PRECONDITION_FAILED"
	CodeMutation     = "MUTATION_FAILED"
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeConflict     = "CONFLICT"
	CodeRateLimited  = "RATE_LIMITED"
	CodeInternal     = "INTERNAL_ERROR"
)

// APIError is a failure with a stable code and the HTTP status it maps to.
// Err keeps the sentinel (and any cause) reachable through errors.Is.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func newAPIError(status int, code, message string, err error) *APIError {
	return &APIError{Code: code, Message: message, StatusCode: status, Err: err}
}

func (e *APIError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewTransportError reports a store call that failed on the network or came
// back with an unusable response.
func NewTransportError(service string, err error) *APIError {
	return newAPIError(http.StatusBadGateway, CodeTransport,
		service+" request failed", fmt.Errorf("%w: %v", ErrTransport, err))
}

// NewPreconditionError reports a call refused before reaching the store,
// such as a missing credential or a mutation on an item not held locally.
func NewPreconditionError(reason string) *APIError {
	return newAPIError(http.StatusPreconditionFailed, CodePrecondition, reason, ErrPrecondition)
}

// NewMutationError reports a quantity update the store answered with a
// non-success status. Local state must stay untouched.
func NewMutationError(op string, statusCode int) *APIError {
	return newAPIError(http.StatusBadGateway, CodeMutation,
		fmt.Sprintf("%s rejected with status %d", op, statusCode), ErrMutationFailed)
}

func NewNotFoundError(resource string) *APIError {
	return newAPIError(http.StatusNotFound, CodeNotFound, resource+" not found", ErrNotFound)
}

func NewValidationError(field, reason string) *APIError {
	return newAPIError(http.StatusBadRequest, CodeValidation,
		fmt.Sprintf("invalid %s: %s", field, reason), ErrInvalidRequest)
}

// NewUnauthorizedError is returned when the store rejects the shopper's token.
func NewUnauthorizedError(reason string) *APIError {
	return newAPIError(http.StatusUnauthorized, CodeUnauthorized, reason, ErrUnauthorized)
}

// NewConflictError reports a create the store refused because the record exists.
func NewConflictError(resource string) *APIError {
	return newAPIError(http.StatusConflict, CodeConflict, resource+" already exists", ErrConflict)
}

// NewInternalError hides err from clients; the cause stays on the chain for logs.
func NewInternalError(err error) *APIError {
	return newAPIError(http.StatusInternalServerError, CodeInternal, "an internal error occurred", err)
}

func NewRateLimitError(service string) *APIError {
	return newAPIError(http.StatusTooManyRequests, CodeRateLimited,
		service+" rate limit exceeded, please retry later", ErrRateLimited)
}
