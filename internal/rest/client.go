// Package rest implements backend.Backend against the store's JSON HTTP API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shopsync/internal/backend"
	"shopsync/internal/model"
	"shopsync/internal/session"
	"shopsync/internal/transport"
)

// serviceName labels transport errors raised by this client.
const serviceName = "store"

// userAgent identifies this client to the store.
const userAgent = "shopsync/1.0"

// DefaultAuthScheme is the Authorization scheme Django REST Framework's
// TokenAuthentication expects.
const DefaultAuthScheme = "Token"

// Config holds store client configuration.
type Config struct {
	BaseURL    string
	AuthScheme string // Default: Token
	Paths      Paths  // Default: RESTPaths
	Transport  transport.Kind
	Timeout    time.Duration // Default: 30s
}

// Client talks to the store over HTTP.
// It holds no per-user state; every authenticated call takes the session.
type Client struct {
	httpClient *http.Client
	baseURL    string
	authScheme string
	paths      Paths
}

// New creates a store client with the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rt, err := transport.New(cfg.Transport, timeout)
	if err != nil {
		return nil, err
	}

	scheme := cfg.AuthScheme
	if scheme == "" {
		scheme = DefaultAuthScheme
	}
	paths := cfg.Paths
	if paths == (Paths{}) {
		paths = RESTPaths
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout, Transport: rt},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		authScheme: scheme,
		paths:      paths,
	}, nil
}

// ListProducts fetches the catalog. The catalog is public.
func (c *Client) ListProducts(ctx context.Context) ([]model.Product, error) {
	body, err := c.call(ctx, http.MethodGet, c.paths.Products, nil, nil, nil, "products")
	if err != nil {
		return nil, err
	}
	return decodeList[model.Product](body)
}

// ListCartItems fetches the cart collection visible to the session.
func (c *Client) ListCartItems(ctx context.Context, s session.Session) ([]model.CartMembership, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	body, err := c.call(ctx, http.MethodGet, c.paths.CartItems, nil, &s, nil, "cart items")
	if err != nil {
		return nil, err
	}
	return decodeList[model.CartMembership](body)
}

// DeleteCartItem removes one cart membership.
func (c *Client) DeleteCartItem(ctx context.Context, s session.Session, id model.ID) error {
	if err := s.Validate(); err != nil {
		return err
	}
	_, err := c.call(ctx, http.MethodDelete, expand(c.paths.CartItem, id), nil, &s, nil, "cart item")
	return err
}

// IncrementCartItem PATCHes the increment endpoint with the target quantity.
func (c *Client) IncrementCartItem(ctx context.Context, s session.Session, id model.ID, quantity int) error {
	return c.patchQuantity(ctx, s, "increment", expand(c.paths.CartIncrement, id), quantity)
}

// DecrementCartItem PATCHes the decrement endpoint with the target quantity.
func (c *Client) DecrementCartItem(ctx context.Context, s session.Session, id model.ID, quantity int) error {
	return c.patchQuantity(ctx, s, "decrement", expand(c.paths.CartDecrement, id), quantity)
}

// patchQuantity maps any non-2xx answer to a mutation error carrying the
// status, so callers can tell "store refused" apart from "store unreachable".
func (c *Client) patchQuantity(ctx context.Context, s session.Session, op, path string, quantity int) error {
	if err := s.Validate(); err != nil {
		return err
	}
	status, _, err := c.send(ctx, http.MethodPatch, path, nil, &s, model.QuantityRequest{Quantity: quantity})
	if err != nil {
		return err
	}
	if !success(status) {
		return model.NewMutationError(op, status)
	}
	return nil
}

// ListWishlistItems fetches the wishlist collection visible to the session.
func (c *Client) ListWishlistItems(ctx context.Context, s session.Session) ([]model.WishlistMembership, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	body, err := c.call(ctx, http.MethodGet, c.paths.WishlistItems, nil, &s, nil, "wishlist items")
	if err != nil {
		return nil, err
	}
	return decodeList[model.WishlistMembership](body)
}

// FindWishlistItems queries the wishlist by user and product.
func (c *Client) FindWishlistItems(ctx context.Context, s session.Session, productID model.ID) ([]model.WishlistMembership, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	query := url.Values{}
	query.Set("user", s.UserID.String())
	query.Set("product", productID.String())

	body, err := c.call(ctx, http.MethodGet, c.paths.WishlistItems, query, &s, nil, "wishlist items")
	if err != nil {
		return nil, err
	}
	return decodeList[model.WishlistMembership](body)
}

// CreateWishlistItem posts a new (user, product) wishlist row.
// Django reports a duplicate pair as 400 with a unique-constraint message;
// that is surfaced as a conflict, same as a 409.
func (c *Client) CreateWishlistItem(ctx context.Context, s session.Session, productID model.ID) error {
	if err := s.Validate(); err != nil {
		return err
	}
	req := model.WishlistCreateRequest{Product: productID, User: s.UserID}
	status, body, err := c.send(ctx, http.MethodPost, c.paths.WishlistItems, nil, &s, req)
	if err != nil {
		return err
	}
	if status == http.StatusBadRequest && strings.Contains(strings.ToLower(string(body)), "unique") {
		return model.NewConflictError("wishlist item")
	}
	if !success(status) {
		return parseErrorResponse("wishlist item", status, body)
	}
	return nil
}

// DeleteWishlistItem removes one wishlist membership.
func (c *Client) DeleteWishlistItem(ctx context.Context, s session.Session, id model.ID) error {
	if err := s.Validate(); err != nil {
		return err
	}
	_, err := c.call(ctx, http.MethodDelete, expand(c.paths.WishlistItem, id), nil, &s, nil, "wishlist item")
	return err
}

// call sends a request and converts non-2xx statuses to APIErrors.
// resource names the target in not-found messages.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, s *session.Session, payload any, resource string) ([]byte, error) {
	status, body, err := c.send(ctx, method, path, query, s, payload)
	if err != nil {
		return nil, err
	}
	if !success(status) {
		return nil, parseErrorResponse(resource, status, body)
	}
	return body, nil
}

// send performs one round trip. Only transport failures are returned as errors;
// HTTP statuses are left to the caller.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, s *session.Session, payload any) (int, []byte, error) {
	req, err := c.newRequest(ctx, method, path, query, payload)
	if err != nil {
		return 0, nil, err
	}
	c.setHeaders(req, s)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, model.NewTransportError(serviceName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, model.NewTransportError(serviceName, fmt.Errorf("reading response: %w", err))
	}
	return resp.StatusCode, body, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, payload any) (*http.Request, error) {
	var bodyReader io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return req, nil
}

// setHeaders sets JSON headers and, for authenticated calls, the token.
func (c *Client) setHeaders(req *http.Request, s *session.Session) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	if s != nil {
		req.Header.Set("Authorization", c.authScheme+" "+s.Token)
	}
}

// errorResponse covers the shapes DRF and most JSON APIs use for errors.
type errorResponse struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

// parseErrorResponse converts a store error status to an APIError.
func parseErrorResponse(resource string, statusCode int, body []byte) error {
	var errResp errorResponse
	json.Unmarshal(body, &errResp) // Best effort parse

	msg := errResp.Detail
	if msg == "" {
		msg = errResp.Message
	}

	switch statusCode {
	case 404:
		return model.NewNotFoundError(resource)
	case 401, 403:
		if msg == "" {
			msg = "store authentication failed"
		}
		return model.NewUnauthorizedError(msg)
	case 400:
		if msg == "" {
			msg = "invalid request"
		}
		return model.NewValidationError(resource, msg)
	case 409:
		return model.NewConflictError(resource)
	case 429:
		return model.NewRateLimitError(serviceName)
	default:
		return model.NewTransportError(serviceName,
			fmt.Errorf("status %d: %s", statusCode, msg))
	}
}

func success(status int) bool {
	return status >= 200 && status < 300
}

// decodeList accepts a bare JSON array or a paginated {"results": [...]} page.
// An empty body decodes as no rows.
func decodeList[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '{' {
		var page struct {
			Results []T `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return nil, fmt.Errorf("parsing response: %w", err)
		}
		return page.Results, nil
	}

	var items []T
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return items, nil
}

// Verify Client implements Backend interface at compile time.
var _ backend.Backend = (*Client)(nil)
