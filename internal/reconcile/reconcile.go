// Package reconcile joins membership records against the product catalog and
// measures drift between an optimistically patched view and server truth.
// Everything here is pure: inputs are never modified and results are fresh slices.
package reconcile

import (
	"slices"

	"github.com/shopspring/decimal"

	"shopsync/internal/model"
)

// Catalog indexes products by identifier for O(1) joins.
type Catalog map[model.ID]model.Product

// IndexProducts builds a Catalog. Later duplicates win.
func IndexProducts(products []model.Product) Catalog {
	c := make(Catalog, len(products))
	for _, p := range products {
		c[p.ID] = p
	}
	return c
}

// OwnCart returns the rows owned by userID, in server order.
func OwnCart(rows []model.CartMembership, userID model.ID) []model.CartMembership {
	var out []model.CartMembership
	for _, r := range rows {
		if r.User == userID {
			out = append(out, r)
		}
	}
	return out
}

// OwnWishlist returns the rows owned by userID, in server order.
func OwnWishlist(rows []model.WishlistMembership, userID model.ID) []model.WishlistMembership {
	var out []model.WishlistMembership
	for _, r := range rows {
		if r.User == userID {
			out = append(out, r)
		}
	}
	return out
}

// JoinCart produces the enriched cart for userID.
//
// Algorithm:
//  1. Drop rows owned by anyone else
//  2. Look up each remaining row's product in the catalog
//  3. Emit product fields plus the row's quantity; drop rows whose product is missing
//
// The result is never nil so an empty cart encodes as [].
func JoinCart(catalog Catalog, rows []model.CartMembership, userID model.ID) []model.EnrichedCartItem {
	items := make([]model.EnrichedCartItem, 0, len(rows))
	for _, r := range OwnCart(rows, userID) {
		p, ok := catalog[r.Product]
		if !ok {
			continue
		}
		items = append(items, model.EnrichedCartItem{Product: p, Quantity: r.Quantity})
	}
	return items
}

// JoinWishlist produces the enriched wishlist for userID.
// Same filtering as JoinCart; membership contributes only existence.
func JoinWishlist(catalog Catalog, rows []model.WishlistMembership, userID model.ID) []model.EnrichedWishlistItem {
	items := make([]model.EnrichedWishlistItem, 0, len(rows))
	for _, r := range OwnWishlist(rows, userID) {
		p, ok := catalog[r.Product]
		if !ok {
			continue
		}
		items = append(items, model.EnrichedWishlistItem{Product: p})
	}
	return items
}

// FindCart returns userID's cart row for productID.
func FindCart(rows []model.CartMembership, userID, productID model.ID) (model.CartMembership, bool) {
	i := slices.IndexFunc(rows, func(r model.CartMembership) bool {
		return r.User == userID && r.Product == productID
	})
	if i < 0 {
		return model.CartMembership{}, false
	}
	return rows[i], true
}

// FindWishlist returns userID's wishlist row for productID. Rows belonging to
// other users or products are skipped, so a store that ignores lookup
// filters cannot point a delete at someone else's record.
func FindWishlist(rows []model.WishlistMembership, userID, productID model.ID) (model.WishlistMembership, bool) {
	i := slices.IndexFunc(rows, func(r model.WishlistMembership) bool {
		return r.User == userID && r.Product == productID
	})
	if i < 0 {
		return model.WishlistMembership{}, false
	}
	return rows[i], true
}

// CartTotal returns Σ(price × quantity). An empty cart totals zero.
func CartTotal(items []model.EnrichedCartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Drift describes how a re-fetched cart differs from the local view it replaces.
type Drift struct {
	Appeared    []model.ID       // Products on the server but not shown locally
	Disappeared []model.ID       // Products shown locally but gone from the server
	Changed     []QuantityChange // Products whose quantity disagrees
}

// QuantityChange records one quantity disagreement.
type QuantityChange struct {
	ProductID model.ID
	Local     int
	Server    int
}

// IsEmpty returns true if the local view matched the server.
func (d *Drift) IsEmpty() bool {
	return len(d.Appeared) == 0 && len(d.Disappeared) == 0 && len(d.Changed) == 0
}

// DiffCart compares the local enriched cart with a freshly joined one.
// Matching is by product id. Output order follows the input order.
func DiffCart(local, server []model.EnrichedCartItem) *Drift {
	drift := &Drift{}

	localByID := make(map[model.ID]int, len(local))
	for _, item := range local {
		localByID[item.ID] = item.Quantity
	}
	serverByID := make(map[model.ID]int, len(server))
	for _, item := range server {
		serverByID[item.ID] = item.Quantity
	}

	for _, item := range server {
		q, ok := localByID[item.ID]
		switch {
		case !ok:
			drift.Appeared = append(drift.Appeared, item.ID)
		case q != item.Quantity:
			drift.Changed = append(drift.Changed, QuantityChange{
				ProductID: item.ID,
				Local:     q,
				Server:    item.Quantity,
			})
		}
	}
	for _, item := range local {
		if _, ok := serverByID[item.ID]; !ok {
			drift.Disappeared = append(drift.Disappeared, item.ID)
		}
	}

	return drift
}
