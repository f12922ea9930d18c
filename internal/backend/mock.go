package backend

import (
	"context"

	"shopsync/internal/model"
	"shopsync/internal/session"
)

// Mock implements Backend for testing.
// Each method can be configured via function fields; unset reads return
// empty results and unset writes succeed.
type Mock struct {
	ListProductsFunc       func(ctx context.Context) ([]model.Product, error)
	ListCartItemsFunc      func(ctx context.Context, s session.Session) ([]model.CartMembership, error)
	DeleteCartItemFunc     func(ctx context.Context, s session.Session, id model.ID) error
	IncrementCartItemFunc  func(ctx context.Context, s session.Session, id model.ID, quantity int) error
	DecrementCartItemFunc  func(ctx context.Context, s session.Session, id model.ID, quantity int) error
	ListWishlistItemsFunc  func(ctx context.Context, s session.Session) ([]model.WishlistMembership, error)
	FindWishlistItemsFunc  func(ctx context.Context, s session.Session, productID model.ID) ([]model.WishlistMembership, error)
	CreateWishlistItemFunc func(ctx context.Context, s session.Session, productID model.ID) error
	DeleteWishlistItemFunc func(ctx context.Context, s session.Session, id model.ID) error
}

// ListProducts calls the configured ListProductsFunc or returns no products.
func (m *Mock) ListProducts(ctx context.Context) ([]model.Product, error) {
	if m.ListProductsFunc != nil {
		return m.ListProductsFunc(ctx)
	}
	return nil, nil
}

// ListCartItems calls the configured ListCartItemsFunc or returns no rows.
func (m *Mock) ListCartItems(ctx context.Context, s session.Session) ([]model.CartMembership, error) {
	if m.ListCartItemsFunc != nil {
		return m.ListCartItemsFunc(ctx, s)
	}
	return nil, nil
}

// DeleteCartItem calls the configured DeleteCartItemFunc or succeeds.
func (m *Mock) DeleteCartItem(ctx context.Context, s session.Session, id model.ID) error {
	if m.DeleteCartItemFunc != nil {
		return m.DeleteCartItemFunc(ctx, s, id)
	}
	return nil
}

// IncrementCartItem calls the configured IncrementCartItemFunc or succeeds.
func (m *Mock) IncrementCartItem(ctx context.Context, s session.Session, id model.ID, quantity int) error {
	if m.IncrementCartItemFunc != nil {
		return m.IncrementCartItemFunc(ctx, s, id, quantity)
	}
	return nil
}

// DecrementCartItem calls the configured DecrementCartItemFunc or succeeds.
func (m *Mock) DecrementCartItem(ctx context.Context, s session.Session, id model.ID, quantity int) error {
	if m.DecrementCartItemFunc != nil {
		return m.DecrementCartItemFunc(ctx, s, id, quantity)
	}
	return nil
}

// ListWishlistItems calls the configured ListWishlistItemsFunc or returns no rows.
func (m *Mock) ListWishlistItems(ctx context.Context, s session.Session) ([]model.WishlistMembership, error) {
	if m.ListWishlistItemsFunc != nil {
		return m.ListWishlistItemsFunc(ctx, s)
	}
	return nil, nil
}

// FindWishlistItems calls the configured FindWishlistItemsFunc or returns no rows.
func (m *Mock) FindWishlistItems(ctx context.Context, s session.Session, productID model.ID) ([]model.WishlistMembership, error) {
	if m.FindWishlistItemsFunc != nil {
		return m.FindWishlistItemsFunc(ctx, s, productID)
	}
	return nil, nil
}

// CreateWishlistItem calls the configured CreateWishlistItemFunc or succeeds.
func (m *Mock) CreateWishlistItem(ctx context.Context, s session.Session, productID model.ID) error {
	if m.CreateWishlistItemFunc != nil {
		return m.CreateWishlistItemFunc(ctx, s, productID)
	}
	return nil
}

// DeleteWishlistItem calls the configured DeleteWishlistItemFunc or succeeds.
func (m *Mock) DeleteWishlistItem(ctx context.Context, s session.Session, id model.ID) error {
	if m.DeleteWishlistItemFunc != nil {
		return m.DeleteWishlistItemFunc(ctx, s, id)
	}
	return nil
}

// Verify Mock implements Backend interface at compile time.
var _ Backend = (*Mock)(nil)
