// Package model holds the records exchanged with the store backend and the
// enriched views derived from them.
package model

import "github.com/shopspring/decimal"

// Product is a catalog entry. Owned by the catalog service; never mutated here.
type Product struct {
	ID          ID              `json:"id"`
	Price       decimal.Decimal `json:"price"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
}

// CartMembership links a user to a product in the cart.
// The backend keeps one record per (user, product); nothing here deduplicates.
type CartMembership struct {
	ID       ID  `json:"id"`
	User     ID  `json:"user"`
	Product  ID  `json:"product"`
	Quantity int `json:"quantity"`
}

// WishlistMembership links a user to a product in the wishlist.
// Presence of the record is the whole payload.
type WishlistMembership struct {
	ID      ID `json:"id"`
	User    ID `json:"user"`
	Product ID `json:"product"`
}

// EnrichedCartItem is a product merged with the quantity of its cart membership.
type EnrichedCartItem struct {
	Product
	Quantity int `json:"quantity"`
}

// LineTotal returns price × quantity.
func (i EnrichedCartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// EnrichedWishlistItem is a product present in the wishlist.
type EnrichedWishlistItem struct {
	Product
}

// QuantityRequest is the body of the increment/decrement endpoints.
type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

// WishlistCreateRequest is the body of the wishlist create endpoint.
type WishlistCreateRequest struct {
	Product ID `json:"product"`
	User    ID `json:"user"`
}
