package controller

// Policy decides which writes are followed by a reconciling re-fetch and how
// the wishlist toggle treats check-then-act races.
//
// Increment is patched locally and trusted; decrement and remove re-fetch
// because they can change the structure of the cart, not just one quantity.
type Policy struct {
	RefetchAfterIncrement bool `json:"refetch_after_increment"`
	RefetchAfterDecrement bool `json:"refetch_after_decrement"`
	RefetchAfterRemove    bool `json:"refetch_after_remove"`
	RefetchAfterToggle    bool `json:"refetch_after_toggle"`

	// TolerateToggleRace reports a create that hit an existing row, or a
	// delete that found the row already gone, as a successful toggle.
	TolerateToggleRace bool `json:"tolerate_toggle_race"`
}

// DefaultPolicy returns the policy the storefront shipped with.
func DefaultPolicy() Policy {
	return Policy{
		RefetchAfterIncrement: false,
		RefetchAfterDecrement: true,
		RefetchAfterRemove:    true,
		RefetchAfterToggle:    false,
		TolerateToggleRace:    true,
	}
}
