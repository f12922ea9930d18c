package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"shopsync/internal/controller"
	"shopsync/internal/model"
	"shopsync/internal/session"
)

// controllerFor resolves the session set by session.Middleware to its
// bootstrapped controller. Writes the error response and returns false on
// failure.
func (h *Handler) controllerFor(w http.ResponseWriter, r *http.Request) (*controller.Controller, session.Session, bool) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		h.writeError(w, model.NewUnauthorizedError("session required"))
		return nil, session.Session{}, false
	}

	c, err := h.registry.Get(r.Context(), s)
	if err != nil {
		h.writeError(w, err)
		return nil, s, false
	}
	return c, s, true
}

// productIDParam reads {productID} from the route.
func productIDParam(r *http.Request) (model.ID, error) {
	id := chi.URLParam(r, "productID")
	if id == "" {
		return "", model.NewValidationError("productID", "product ID required")
	}
	return model.ID(id), nil
}

type catalogResponse struct {
	Products []model.Product `json:"products"`
	Count    int             `json:"count"`
}

func newCatalogResponse(products []model.Product) catalogResponse {
	if products == nil {
		products = []model.Product{}
	}
	return catalogResponse{Products: products, Count: len(products)}
}

// handleGetCatalog returns the cached catalog.
// GET /catalog
func (h *Handler) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	c, _, ok := h.controllerFor(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, newCatalogResponse(c.Products()))
}

// handleRefreshCatalog re-fetches the catalog and re-joins both views.
// POST /catalog/refresh
func (h *Handler) handleRefreshCatalog(w http.ResponseWriter, r *http.Request) {
	c, _, ok := h.controllerFor(w, r)
	if !ok {
		return
	}
	if err := c.FetchCatalog(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newCatalogResponse(c.Products()))
}

// handleGetCart returns the enriched cart with its total.
// GET /cart
func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	c, _, ok := h.controllerFor(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, c.Cart())
}

// handleRefreshCart re-reads cart memberships from the store.
// POST /cart/refresh
func (h *Handler) handleRefreshCart(w http.ResponseWriter, r *http.Request) {
	c, s, ok := h.controllerFor(w, r)
	if !ok {
		return
	}
	if err := c.FetchCart(r.Context(), s); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c.Cart())
}

// cartMutation is the shape shared by Increment, Decrement and RemoveFromCart.
type cartMutation func(c *controller.Controller, r *http.Request, s session.Session, productID model.ID) error

func (h *Handler) mutateCart(w http.ResponseWriter, r *http.Request, op string, mutate cartMutation) {
	productID, err := productIDParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	c, s, ok := h.controllerFor(w, r)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "cart mutation",
		slog.String("operation", op),
		slog.String("user_id", s.UserID.String()),
		slog.String("product_id", productID.String()),
	)

	if err := mutate(c, r, s, productID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c.Cart())
}

// handleIncrement adds one to a cart item's quantity.
// POST /cart/items/{productID}/increment
func (h *Handler) handleIncrement(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, controller.OpIncrement, func(c *controller.Controller, r *http.Request, s session.Session, id model.ID) error {
		return c.Increment(r.Context(), s, id)
	})
}

// handleDecrement removes one from a cart item's quantity; at one it removes the item.
// POST /cart/items/{productID}/decrement
func (h *Handler) handleDecrement(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, controller.OpDecrement, func(c *controller.Controller, r *http.Request, s session.Session, id model.ID) error {
		return c.Decrement(r.Context(), s, id)
	})
}

// handleRemove deletes a cart item.
// DELETE /cart/items/{productID}
func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, controller.OpRemove, func(c *controller.Controller, r *http.Request, s session.Session, id model.ID) error {
		return c.RemoveFromCart(r.Context(), s, id)
	})
}

// handleGetWishlist returns the enriched wishlist.
// GET /wishlist
func (h *Handler) handleGetWishlist(w http.ResponseWriter, r *http.Request) {
	c, _, ok := h.controllerFor(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, c.Wishlist())
}

// handleRefreshWishlist re-reads wishlist memberships from the store.
// POST /wishlist/refresh
func (h *Handler) handleRefreshWishlist(w http.ResponseWriter, r *http.Request) {
	c, s, ok := h.controllerFor(w, r)
	if !ok {
		return
	}
	if err := c.FetchWishlist(r.Context(), s); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c.Wishlist())
}

// toggleRequest is the body of POST /wishlist/toggle.
type toggleRequest struct {
	Product model.ID `json:"product" validate:"required"`
}

// toggleResponse reports the branch taken. The wishlist is the local view,
// which only reflects the toggle once it has been re-fetched.
type toggleResponse struct {
	Result   controller.ToggleResult `json:"result"`
	Wishlist controller.WishlistView `json:"wishlist"`
}

// handleToggleWishlist adds the product to the wishlist or removes it.
// POST /wishlist/toggle
func (h *Handler) handleToggleWishlist(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	c, s, ok := h.controllerFor(w, r)
	if !ok {
		return
	}

	result, err := toggleProduct(r.Context(), c, s, req.Product)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toggleResponse{Result: result, Wishlist: c.Wishlist()})
}

// toggleProduct resolves productID against the cached catalog before toggling.
func toggleProduct(ctx context.Context, c *controller.Controller, s session.Session, productID model.ID) (controller.ToggleResult, error) {
	product, ok := c.Product(productID)
	if !ok {
		return "", model.NewNotFoundError("product " + productID.String())
	}
	return c.ToggleWishlist(ctx, s, product)
}

// handleEndSession drops the shopper's cached controller. Only the token the
// controller is bound to can end it.
// DELETE /session
func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		h.writeError(w, model.NewUnauthorizedError("session required"))
		return
	}
	if h.registry.Forget(s) {
		h.logger.InfoContext(r.Context(), "session ended", slog.String("user_id", s.UserID.String()))
	}
	w.WriteHeader(http.StatusNoContent)
}
