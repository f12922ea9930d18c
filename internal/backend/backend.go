// Package backend defines the contract the controller needs from the store.
// The store owns products and membership records; its storage, validation and
// authorization are assumed correct.
package backend

import (
	"context"

	"shopsync/internal/model"
	"shopsync/internal/session"
)

// Backend abstracts the store's REST surface.
// The rest package provides the HTTP implementation; Mock serves tests.
//
// Every method taking a Session must return a precondition error without
// issuing a request when the session cannot authenticate.
type Backend interface {
	// ListProducts returns the full catalog. Unauthenticated.
	ListProducts(ctx context.Context) ([]model.Product, error)

	// ListCartItems returns the cart collection as the store scopes it.
	// Callers still filter by user; the store may return other users' rows.
	ListCartItems(ctx context.Context, s session.Session) ([]model.CartMembership, error)

	// DeleteCartItem removes a cart membership by its server id.
	DeleteCartItem(ctx context.Context, s session.Session, membershipID model.ID) error

	// IncrementCartItem and DecrementCartItem send the target quantity to the
	// dedicated endpoints. Non-success maps to a mutation error.
	IncrementCartItem(ctx context.Context, s session.Session, membershipID model.ID, quantity int) error
	DecrementCartItem(ctx context.Context, s session.Session, membershipID model.ID, quantity int) error

	// ListWishlistItems returns the wishlist collection as the store scopes it.
	ListWishlistItems(ctx context.Context, s session.Session) ([]model.WishlistMembership, error)

	// FindWishlistItems queries memberships for the session user and product.
	// Zero rows is a valid answer, not an error.
	FindWishlistItems(ctx context.Context, s session.Session, productID model.ID) ([]model.WishlistMembership, error)

	// CreateWishlistItem binds the session user to productID.
	// Returns a conflict error when the store already holds the pair.
	CreateWishlistItem(ctx context.Context, s session.Session, productID model.ID) error

	// DeleteWishlistItem removes a wishlist membership by its server id.
	DeleteWishlistItem(ctx context.Context, s session.Session, membershipID model.ID) error
}
