package rest

import (
	"fmt"
	"strings"

	"shopsync/internal/model"
)

// Paths holds the endpoint templates for one store layout.
// Templates containing "{id}" are expanded with the membership id.
type Paths struct {
	Products      string
	CartItems     string
	CartItem      string
	CartIncrement string
	CartDecrement string
	WishlistItems string
	WishlistItem  string
}

// RESTPaths is the resource-style layout.
var RESTPaths = Paths{
	Products:      "/products",
	CartItems:     "/cart-items",
	CartItem:      "/cart-items/{id}",
	CartIncrement: "/cart-items/{id}/increment",
	CartDecrement: "/cart-items/{id}/decrement",
	WishlistItems: "/wishlist-items",
	WishlistItem:  "/wishlist-items/{id}",
}

// DjangoPaths matches the Django REST Framework store: one app per resource,
// trailing slashes, and a dedicated delete route for wishlist rows.
var DjangoPaths = Paths{
	Products:      "/productsApi/products/",
	CartItems:     "/cartApi/cart-items/",
	CartItem:      "/cartApi/cart-items/{id}/",
	CartIncrement: "/cartApi/cart-items/{id}/increment/",
	CartDecrement: "/cartApi/cart-items/{id}/decrement/",
	WishlistItems: "/wishlistApi/wishlist-items/",
	WishlistItem:  "/wishlistApi/wishlist-items/delete/{id}/",
}

// PathsFor returns the preset registered under name.
func PathsFor(name string) (Paths, error) {
	switch strings.ToLower(name) {
	case "", "rest":
		return RESTPaths, nil
	case "django":
		return DjangoPaths, nil
	default:
		return Paths{}, fmt.Errorf("unknown path preset %q", name)
	}
}

func expand(template string, id model.ID) string {
	return strings.ReplaceAll(template, "{id}", id.String())
}
