package controller

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"shopsync/internal/model"
	"shopsync/internal/reconcile"
	"shopsync/internal/session"
)

// Increment raises the quantity of productID by one.
//
// The store receives the target quantity; on success both the raw row and
// the enriched item are patched by +1 in place. A non-success status comes
// back as a mutation error and nothing local changes.
func (c *Controller) Increment(ctx context.Context, s session.Session, productID model.ID) (err error) {
	defer c.observe(OpIncrement, time.Now(), &err)

	row, err := c.lookupCart(s, productID)
	if err != nil {
		return err
	}

	if err := c.backend.IncrementCartItem(ctx, s, row.ID, row.Quantity+1); err != nil {
		c.logMutationFailure(ctx, OpIncrement, productID, row.ID, err)
		return err
	}

	c.patchQuantity(productID, row.ID, +1)

	if c.policy.RefetchAfterIncrement {
		c.reconcileCart(ctx, s, OpIncrement)
	}
	return nil
}

// Decrement lowers the quantity of productID by one.
// At quantity 1 the line is removed instead, so no zero-quantity row is ever
// requested or shown.
func (c *Controller) Decrement(ctx context.Context, s session.Session, productID model.ID) (err error) {
	defer c.observe(OpDecrement, time.Now(), &err)

	row, err := c.lookupCart(s, productID)
	if err != nil {
		return err
	}

	if row.Quantity <= 1 {
		c.logger.DebugContext(ctx, "decrement at quantity 1, removing line",
			slog.String("product_id", productID.String()))
		return c.RemoveFromCart(ctx, s, productID)
	}

	if err := c.backend.DecrementCartItem(ctx, s, row.ID, row.Quantity-1); err != nil {
		c.logMutationFailure(ctx, OpDecrement, productID, row.ID, err)
		return err
	}

	c.patchQuantity(productID, row.ID, -1)

	if c.policy.RefetchAfterDecrement {
		c.reconcileCart(ctx, s, OpDecrement)
	}
	return nil
}

// RemoveFromCart deletes the cart row holding productID.
// A stale row the store no longer has fails with the store's error; the
// local view is then left alone until the next fetch.
func (c *Controller) RemoveFromCart(ctx context.Context, s session.Session, productID model.ID) (err error) {
	defer c.observe(OpRemove, time.Now(), &err)

	row, err := c.lookupCart(s, productID)
	if err != nil {
		return err
	}

	if err := c.backend.DeleteCartItem(ctx, s, row.ID); err != nil {
		c.logMutationFailure(ctx, OpRemove, productID, row.ID, err)
		return err
	}

	c.mu.Lock()
	c.cart = slices.DeleteFunc(slices.Clone(c.cart), func(item model.EnrichedCartItem) bool {
		return item.ID == productID
	})
	c.cartRows = slices.DeleteFunc(slices.Clone(c.cartRows), func(r model.CartMembership) bool {
		return r.ID == row.ID
	})
	c.mu.Unlock()

	if c.policy.RefetchAfterRemove {
		c.reconcileCart(ctx, s, OpRemove)
	}
	return nil
}

// lookupCart finds this user's cached row for productID.
// Mutating a product the user does not hold is a precondition failure.
func (c *Controller) lookupCart(s session.Session, productID model.ID) (model.CartMembership, error) {
	if err := c.authorize(s); err != nil {
		return model.CartMembership{}, err
	}

	c.mu.RLock()
	row, ok := reconcile.FindCart(c.cartRows, c.userID, productID)
	c.mu.RUnlock()

	if !ok {
		c.logger.Warn("product not in cart", slog.String("product_id", productID.String()))
		return model.CartMembership{}, model.NewPreconditionError("product " + productID.String() + " is not in the cart")
	}
	return row, nil
}

// patchQuantity applies delta to the enriched item and the raw row.
// Quantities never drop below 1 locally; reaching zero goes through removal.
func (c *Controller) patchQuantity(productID, membershipID model.ID, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cart := slices.Clone(c.cart)
	for i := range cart {
		if cart[i].ID == productID {
			cart[i].Quantity = max(cart[i].Quantity+delta, 1)
		}
	}
	rows := slices.Clone(c.cartRows)
	for i := range rows {
		if rows[i].ID == membershipID {
			rows[i].Quantity = max(rows[i].Quantity+delta, 1)
		}
	}
	c.cart = cart
	c.cartRows = rows
}

// reconcileCart re-fetches after a successful write. The write already
// happened, so a failed re-fetch is logged and the optimistic state kept.
func (c *Controller) reconcileCart(ctx context.Context, s session.Session, trigger string) {
	start := time.Now()
	err := c.refetchCart(ctx, s, trigger)
	c.metrics.Observe(OpFetchCart, start, err)
}

func (c *Controller) logMutationFailure(ctx context.Context, op string, productID, membershipID model.ID, err error) {
	c.logger.ErrorContext(ctx, "cart mutation failed",
		slog.String("operation", op),
		slog.String("product_id", productID.String()),
		slog.String("membership_id", membershipID.String()),
		slog.String("error", err.Error()))
}
