package backend

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"shopsync/internal/model"
	"shopsync/internal/session"
)

// Memory is an in-process Backend holding products and membership rows.
// Collection reads return every user's rows, like a store that does not
// scope by caller, so user filtering upstream is exercised.
type Memory struct {
	mu       sync.Mutex
	products []model.Product
	cart     []model.CartMembership
	wishlist []model.WishlistMembership
	nextID   int
	calls    []string
}

// NewMemory creates a Memory backend serving products.
func NewMemory(products ...model.Product) *Memory {
	return &Memory{products: slices.Clone(products), nextID: 1000}
}

// SeedCart inserts cart rows as-is.
func (m *Memory) SeedCart(rows ...model.CartMembership) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cart = append(m.cart, rows...)
}

// SeedWishlist inserts wishlist rows as-is.
func (m *Memory) SeedWishlist(rows ...model.WishlistMembership) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wishlist = append(m.wishlist, rows...)
}

// SetProducts replaces the catalog.
func (m *Memory) SetProducts(products ...model.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = slices.Clone(products)
}

// CartRows returns a copy of the stored cart rows.
func (m *Memory) CartRows() []model.CartMembership {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.cart)
}

// WishlistRows returns a copy of the stored wishlist rows.
func (m *Memory) WishlistRows() []model.WishlistMembership {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.wishlist)
}

// Calls returns the names of the methods invoked so far, in order.
func (m *Memory) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

func (m *Memory) record(name string) {
	m.calls = append(m.calls, name)
}

func (m *Memory) newID() model.ID {
	m.nextID++
	return model.ID(strconv.Itoa(m.nextID))
}

func (m *Memory) ListProducts(ctx context.Context) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListProducts")
	return slices.Clone(m.products), nil
}

func (m *Memory) ListCartItems(ctx context.Context, s session.Session) ([]model.CartMembership, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListCartItems")
	return slices.Clone(m.cart), nil
}

func (m *Memory) DeleteCartItem(ctx context.Context, s session.Session, id model.ID) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DeleteCartItem")

	i := slices.IndexFunc(m.cart, func(r model.CartMembership) bool { return r.ID == id })
	if i < 0 {
		return model.NewNotFoundError("cart item")
	}
	m.cart = slices.Delete(m.cart, i, i+1)
	return nil
}

func (m *Memory) IncrementCartItem(ctx context.Context, s session.Session, id model.ID, quantity int) error {
	return m.setQuantity(s, "IncrementCartItem", "increment", id, quantity)
}

func (m *Memory) DecrementCartItem(ctx context.Context, s session.Session, id model.ID, quantity int) error {
	return m.setQuantity(s, "DecrementCartItem", "decrement", id, quantity)
}

func (m *Memory) setQuantity(s session.Session, call, op string, id model.ID, quantity int) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(call)

	i := slices.IndexFunc(m.cart, func(r model.CartMembership) bool { return r.ID == id })
	if i < 0 {
		return model.NewMutationError(op, 404)
	}
	if quantity < 1 {
		return model.NewMutationError(op, 400)
	}
	m.cart[i].Quantity = quantity
	return nil
}

func (m *Memory) ListWishlistItems(ctx context.Context, s session.Session) ([]model.WishlistMembership, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListWishlistItems")
	return slices.Clone(m.wishlist), nil
}

func (m *Memory) FindWishlistItems(ctx context.Context, s session.Session, productID model.ID) ([]model.WishlistMembership, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("FindWishlistItems")

	var out []model.WishlistMembership
	for _, r := range m.wishlist {
		if r.User == s.UserID && r.Product == productID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) CreateWishlistItem(ctx context.Context, s session.Session, productID model.ID) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CreateWishlistItem")

	exists := slices.ContainsFunc(m.wishlist, func(r model.WishlistMembership) bool {
		return r.User == s.UserID && r.Product == productID
	})
	if exists {
		return model.NewConflictError("wishlist item")
	}
	m.wishlist = append(m.wishlist, model.WishlistMembership{
		ID:      m.newID(),
		User:    s.UserID,
		Product: productID,
	})
	return nil
}

func (m *Memory) DeleteWishlistItem(ctx context.Context, s session.Session, id model.ID) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DeleteWishlistItem")

	i := slices.IndexFunc(m.wishlist, func(r model.WishlistMembership) bool { return r.ID == id })
	if i < 0 {
		return model.NewNotFoundError("wishlist item")
	}
	m.wishlist = slices.Delete(m.wishlist, i, i+1)
	return nil
}

var _ Backend = (*Memory)(nil)
