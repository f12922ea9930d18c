package controller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"shopsync/internal/model"
	"shopsync/internal/reconcile"
	"shopsync/internal/session"
)

// ToggleResult says which branch a wishlist toggle took.
type ToggleResult string

const (
	ToggleAdded   ToggleResult = "added"
	ToggleRemoved ToggleResult = "removed"
)

// ToggleWishlist flips the wishlist membership of product.
//
// The store is queried for the (user, product) row first: a row found is
// deleted, no row means one is created. The query and the write are not
// atomic, so another client can flip the row in between. With
// TolerateToggleRace the resulting conflict or not-found is reported as the
// intended outcome.
//
// The local wishlist is not patched; call FetchWishlist to observe the change
// unless Policy.RefetchAfterToggle is set.
func (c *Controller) ToggleWishlist(ctx context.Context, s session.Session, product model.Product) (result ToggleResult, err error) {
	defer c.observe(OpToggleWishlist, time.Now(), &err)

	if err := c.authorize(s); err != nil {
		return "", err
	}

	rows, err := c.backend.FindWishlistItems(ctx, s, product.ID)
	if err != nil {
		c.logger.ErrorContext(ctx, "wishlist lookup failed",
			slog.String("product_id", product.ID.String()),
			slog.String("error", err.Error()))
		return "", err
	}

	row, owned := reconcile.FindWishlist(rows, c.userID, product.ID)
	if !owned && len(rows) > 0 {
		c.logger.WarnContext(ctx, "wishlist lookup returned unrelated rows",
			slog.String("product_id", product.ID.String()),
			slog.Int("rows", len(rows)))
	}

	if owned {
		result = ToggleRemoved
		err = c.backend.DeleteWishlistItem(ctx, s, row.ID)
		if err != nil && c.policy.TolerateToggleRace && errors.Is(err, model.ErrNotFound) {
			c.logger.WarnContext(ctx, "wishlist row already gone",
				slog.String("product_id", product.ID.String()),
				slog.String("membership_id", row.ID.String()))
			err = nil
		}
	} else {
		result = ToggleAdded
		err = c.backend.CreateWishlistItem(ctx, s, product.ID)
		if err != nil && c.policy.TolerateToggleRace && errors.Is(err, model.ErrConflict) {
			c.logger.WarnContext(ctx, "wishlist row already exists",
				slog.String("product_id", product.ID.String()))
			err = nil
		}
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "wishlist toggle failed",
			slog.String("product_id", product.ID.String()),
			slog.String("branch", string(result)),
			slog.String("error", err.Error()))
		return "", err
	}

	c.logger.InfoContext(ctx, "wishlist toggled",
		slog.String("product_id", product.ID.String()),
		slog.String("result", string(result)))

	if c.policy.RefetchAfterToggle {
		// The toggle itself succeeded; a failed refresh only leaves the view stale.
		if ferr := c.FetchWishlist(ctx, s); ferr != nil {
			c.logger.WarnContext(ctx, "wishlist refresh after toggle failed",
				slog.String("error", ferr.Error()))
		}
	}
	return result, nil
}
