// Package controller keeps one shopper's cart and wishlist in step with the
// store.
//
// The store holds the membership records and is the source of truth. The
// controller caches the raw records, joins them against the catalog into
// enriched views, patches those views optimistically after quantity changes,
// and re-fetches when Policy says a write cannot be trusted locally.
//
// Failed operations return an error and leave every cached list as it was.
// Operations are not serialized against each other: the mutex only protects
// memory, so two racing writes land in whichever order the store answers.
package controller

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"shopsync/internal/backend"
	"shopsync/internal/metrics"
	"shopsync/internal/model"
	"shopsync/internal/reconcile"
	"shopsync/internal/session"
)

// Operation names used for logging and metric labels.
const (
	OpBootstrap      = "bootstrap"
	OpFetchCatalog   = "fetch_catalog"
	OpFetchCart      = "fetch_cart"
	OpFetchWishlist  = "fetch_wishlist"
	OpIncrement      = "increment"
	OpDecrement      = "decrement"
	OpRemove         = "remove"
	OpToggleWishlist = "toggle_wishlist"
)

// Options configures a Controller.
type Options struct {
	Backend backend.Backend
	Logger  *slog.Logger
	Metrics *metrics.Operations // Optional
	Policy  Policy
}

// Controller owns the cached state for a single user.
type Controller struct {
	userID  model.ID
	backend backend.Backend
	logger  *slog.Logger
	metrics *metrics.Operations
	policy  Policy

	mu            sync.RWMutex
	catalogLoaded bool
	bootstrapped  bool
	token         string // credential the store accepted at bootstrap
	products      []model.Product
	catalog       reconcile.Catalog
	cartRows      []model.CartMembership
	cart          []model.EnrichedCartItem
	wishlistRows  []model.WishlistMembership
	wishlist      []model.EnrichedWishlistItem
}

// New creates a controller for userID. No request is made until Bootstrap.
func New(userID model.ID, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		userID:   userID,
		backend:  opts.Backend,
		logger:   logger.With(slog.String("user_id", userID.String())),
		metrics:  opts.Metrics,
		policy:   opts.Policy,
		catalog:  reconcile.Catalog{},
		cart:     []model.EnrichedCartItem{},
		wishlist: []model.EnrichedWishlistItem{},
	}
}

// UserID returns the user this controller serves.
func (c *Controller) UserID() model.ID {
	return c.userID
}

// Policy returns the active refetch policy.
func (c *Controller) Policy() Policy {
	return c.policy
}

// Bootstrap loads the catalog, then fetches cart and wishlist memberships
// concurrently so both joins see the new catalog.
// Both membership fetches run to completion even if one fails.
func (c *Controller) Bootstrap(ctx context.Context, s session.Session) (err error) {
	defer c.observe(OpBootstrap, time.Now(), &err)

	if err := c.authorize(s); err != nil {
		return err
	}
	if err := c.FetchCatalog(ctx); err != nil {
		return err
	}

	var g errgroup.Group
	g.Go(func() error { return c.FetchCart(ctx, s) })
	g.Go(func() error { return c.FetchWishlist(ctx, s) })
	if err := g.Wait(); err != nil {
		return err
	}

	c.mu.Lock()
	c.bootstrapped = true
	c.token = s.Token
	c.mu.Unlock()
	return nil
}

// AcceptedToken reports whether the store accepted token for this
// controller's last successful Bootstrap. Cached views may only be served
// to sessions carrying that token.
func (c *Controller) AcceptedToken(token string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.bootstrapped {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.token), []byte(token)) == 1
}

// Bootstrapped reports whether a Bootstrap has completed.
func (c *Controller) Bootstrapped() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bootstrapped
}

// FetchCatalog replaces the cached catalog and re-joins both views against it,
// so no enriched item refers to a product the new catalog lacks.
// On failure the previous catalog stays in place.
func (c *Controller) FetchCatalog(ctx context.Context) (err error) {
	defer c.observe(OpFetchCatalog, time.Now(), &err)

	products, err := c.backend.ListProducts(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "catalog fetch failed", slog.String("error", err.Error()))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = slices.Clone(products)
	c.catalog = reconcile.IndexProducts(products)
	c.catalogLoaded = true
	c.cart = reconcile.JoinCart(c.catalog, c.cartRows, c.userID)
	c.wishlist = reconcile.JoinWishlist(c.catalog, c.wishlistRows, c.userID)

	c.logger.DebugContext(ctx, "catalog loaded", slog.Int("products", len(products)))
	return nil
}

// CatalogReady reports whether a catalog fetch has succeeded.
// Before that, an empty product list means "not yet available".
func (c *Controller) CatalogReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.catalogLoaded
}

// Products returns a copy of the cached catalog.
func (c *Controller) Products() []model.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.products)
}

// Product looks up one product in the cached catalog.
func (c *Controller) Product(id model.ID) (model.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.catalog[id]
	return p, ok
}

// FetchCart re-reads cart memberships and rebuilds the enriched cart.
// On failure the previous raw and enriched lists are kept.
func (c *Controller) FetchCart(ctx context.Context, s session.Session) (err error) {
	defer c.observe(OpFetchCart, time.Now(), &err)
	return c.refetchCart(ctx, s, OpFetchCart)
}

// refetchCart reloads the cart and records drift from the view it replaces
// under the operation that triggered it.
func (c *Controller) refetchCart(ctx context.Context, s session.Session, trigger string) error {
	if err := c.authorize(s); err != nil {
		return err
	}
	if !c.CatalogReady() {
		c.logger.WarnContext(ctx, "cart fetch before catalog", slog.String("trigger", trigger))
		return model.NewPreconditionError("catalog not loaded")
	}

	rows, err := c.backend.ListCartItems(ctx, s)
	if err != nil {
		c.logger.ErrorContext(ctx, "cart fetch failed",
			slog.String("trigger", trigger),
			slog.String("error", err.Error()))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fresh := reconcile.JoinCart(c.catalog, rows, c.userID)
	if drift := reconcile.DiffCart(c.cart, fresh); trigger != OpFetchCart && !drift.IsEmpty() {
		c.logger.InfoContext(ctx, "cart drift corrected",
			slog.String("trigger", trigger),
			slog.Int("appeared", len(drift.Appeared)),
			slog.Int("disappeared", len(drift.Disappeared)),
			slog.Int("changed", len(drift.Changed)))
		c.metrics.IncDrift(trigger)
	}
	c.cartRows = slices.Clone(rows)
	c.cart = fresh
	return nil
}

// FetchWishlist re-reads wishlist memberships and rebuilds the enriched wishlist.
// On failure the previous raw and enriched lists are kept.
func (c *Controller) FetchWishlist(ctx context.Context, s session.Session) (err error) {
	defer c.observe(OpFetchWishlist, time.Now(), &err)

	if err := c.authorize(s); err != nil {
		return err
	}
	if !c.CatalogReady() {
		c.logger.WarnContext(ctx, "wishlist fetch before catalog")
		return model.NewPreconditionError("catalog not loaded")
	}

	rows, err := c.backend.ListWishlistItems(ctx, s)
	if err != nil {
		c.logger.ErrorContext(ctx, "wishlist fetch failed", slog.String("error", err.Error()))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.wishlistRows = slices.Clone(rows)
	c.wishlist = reconcile.JoinWishlist(c.catalog, rows, c.userID)
	return nil
}

// CartView is a point-in-time copy of the enriched cart.
type CartView struct {
	Items      []model.EnrichedCartItem `json:"items"`
	Count      int                      `json:"count"`
	Total      decimal.Decimal          `json:"total"`
	TotalCents int64                    `json:"total_cents"`
}

// WishlistView is a point-in-time copy of the enriched wishlist.
type WishlistView struct {
	Items []model.EnrichedWishlistItem `json:"items"`
	Count int                          `json:"count"`
}

// Cart returns a copy of the enriched cart. The total is computed on every
// call from the items it is returned with.
func (c *Controller) Cart() CartView {
	c.mu.RLock()
	items := slices.Clone(c.cart)
	c.mu.RUnlock()

	total := reconcile.CartTotal(items)
	return CartView{
		Items:      items,
		Count:      len(items),
		Total:      total,
		TotalCents: model.Cents(total),
	}
}

// Wishlist returns a copy of the enriched wishlist.
func (c *Controller) Wishlist() WishlistView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items := slices.Clone(c.wishlist)
	return WishlistView{Items: items, Count: len(items)}
}

// authorize rejects sessions that cannot authenticate or that belong to a
// different user than this controller serves.
func (c *Controller) authorize(s session.Session) error {
	if err := s.Validate(); err != nil {
		c.logger.Warn("rejected session", slog.String("error", err.Error()))
		return err
	}
	if s.UserID != c.userID {
		c.logger.Warn("rejected session",
			slog.String("session_user_id", s.UserID.String()),
			slog.String("error", "session user does not match controller"))
		return model.NewPreconditionError("session user does not match controller")
	}
	return nil
}

// observe records the outcome of an operation. errp is read when the
// deferred call runs so it sees the named return value.
func (c *Controller) observe(op string, start time.Time, errp *error) {
	c.metrics.Observe(op, start, *errp)
}
