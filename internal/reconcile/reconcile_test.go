package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"

	"shopsync/internal/model"
)

func product(id string, price int64) model.Product {
	return model.Product{ID: model.ID(id), Price: decimal.NewFromInt(price), Name: "p" + id}
}

func TestJoinCart_Example(t *testing.T) {
	// catalog [{1, 10}], one row for u1 with quantity 2 → [{1, 10, 2}], total 20
	catalog := IndexProducts([]model.Product{product("1", 10)})
	rows := []model.CartMembership{{ID: "5", User: "u1", Product: "1", Quantity: 2}}

	items := JoinCart(catalog, rows, "u1")

	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	if items[0].ID != "1" || items[0].Quantity != 2 {
		t.Errorf("item = %+v, want product 1 quantity 2", items[0])
	}
	if got := CartTotal(items); !got.Equal(decimal.NewFromInt(20)) {
		t.Errorf("CartTotal = %s, want 20", got)
	}
}

func TestJoinCart_DropsOrphans(t *testing.T) {
	catalog := IndexProducts([]model.Product{product("1", 10), product("2", 4)})
	rows := []model.CartMembership{
		{ID: "5", User: "u1", Product: "1", Quantity: 1},
		{ID: "6", User: "u1", Product: "99", Quantity: 3}, // product delisted
		{ID: "7", User: "u1", Product: "2", Quantity: 2},
	}

	items := JoinCart(catalog, rows, "u1")

	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].ID != "1" || items[1].ID != "2" {
		t.Errorf("order = [%s %s], want [1 2]", items[0].ID, items[1].ID)
	}
	if items[1].Name != "p2" || !items[1].Price.Equal(decimal.NewFromInt(4)) {
		t.Errorf("merged fields = %+v, want catalog fields of product 2", items[1])
	}
}

func TestJoinCart_UserIsolation(t *testing.T) {
	catalog := IndexProducts([]model.Product{product("1", 10), product("2", 4)})
	rows := []model.CartMembership{
		{ID: "5", User: "u1", Product: "1", Quantity: 1},
		{ID: "6", User: "u2", Product: "2", Quantity: 8},
	}

	items := JoinCart(catalog, rows, "u1")
	for _, item := range items {
		if item.ID == "2" {
			t.Fatal("another user's membership leaked into the view")
		}
	}
	if len(items) != 1 {
		t.Errorf("len(items) = %d, want 1", len(items))
	}
}

func TestJoinCart_EmptyIsNotNil(t *testing.T) {
	items := JoinCart(IndexProducts(nil), nil, "u1")
	if items == nil {
		t.Error("JoinCart returned nil, want empty slice")
	}
	if !CartTotal(items).IsZero() {
		t.Error("empty cart must total zero")
	}
}

func TestJoinWishlist(t *testing.T) {
	catalog := IndexProducts([]model.Product{product("1", 10), product("2", 4)})
	rows := []model.WishlistMembership{
		{ID: "1", User: "u1", Product: "2"},
		{ID: "2", User: "u2", Product: "1"},
		{ID: "3", User: "u1", Product: "404"},
	}

	items := JoinWishlist(catalog, rows, "u1")

	if len(items) != 1 || items[0].ID != "2" {
		t.Errorf("items = %+v, want only product 2", items)
	}
}

func TestFindCart(t *testing.T) {
	rows := []model.CartMembership{
		{ID: "5", User: "u2", Product: "1", Quantity: 1},
		{ID: "6", User: "u1", Product: "1", Quantity: 3},
	}

	row, ok := FindCart(rows, "u1", "1")
	if !ok || row.ID != "6" {
		t.Errorf("FindCart = %+v, %v; want row 6", row, ok)
	}

	if _, ok := FindCart(rows, "u1", "2"); ok {
		t.Error("FindCart found a product the user does not hold")
	}
}

func TestFindWishlist(t *testing.T) {
	rows := []model.WishlistMembership{
		{ID: "77", User: "u2", Product: "9"},
		{ID: "78", User: "u2", Product: "1"},
		{ID: "79", User: "u1", Product: "1"},
	}

	row, ok := FindWishlist(rows, "u1", "1")
	if !ok || row.ID != "79" {
		t.Errorf("FindWishlist = %+v, %v; want row 79", row, ok)
	}

	if _, ok := FindWishlist(rows[:2], "u1", "1"); ok {
		t.Error("FindWishlist matched another user's row")
	}
}

func TestCartTotal(t *testing.T) {
	items := []model.EnrichedCartItem{
		{Product: model.Product{ID: "1", Price: decimal.RequireFromString("19.99")}, Quantity: 3},
		{Product: model.Product{ID: "2", Price: decimal.RequireFromString("0.10")}, Quantity: 1},
	}

	want := decimal.RequireFromString("60.07")
	if got := CartTotal(items); !got.Equal(want) {
		t.Errorf("CartTotal = %s, want %s", got, want)
	}
}

func TestDiffCart(t *testing.T) {
	local := []model.EnrichedCartItem{
		{Product: model.Product{ID: "1"}, Quantity: 3},
		{Product: model.Product{ID: "2"}, Quantity: 1},
		{Product: model.Product{ID: "3"}, Quantity: 1},
	}
	server := []model.EnrichedCartItem{
		{Product: model.Product{ID: "1"}, Quantity: 2},
		{Product: model.Product{ID: "3"}, Quantity: 1},
		{Product: model.Product{ID: "4"}, Quantity: 5},
	}

	drift := DiffCart(local, server)

	if drift.IsEmpty() {
		t.Fatal("drift should not be empty")
	}
	if len(drift.Appeared) != 1 || drift.Appeared[0] != "4" {
		t.Errorf("Appeared = %v, want [4]", drift.Appeared)
	}
	if len(drift.Disappeared) != 1 || drift.Disappeared[0] != "2" {
		t.Errorf("Disappeared = %v, want [2]", drift.Disappeared)
	}
	want := QuantityChange{ProductID: "1", Local: 3, Server: 2}
	if len(drift.Changed) != 1 || drift.Changed[0] != want {
		t.Errorf("Changed = %+v, want [%+v]", drift.Changed, want)
	}
}

func TestDiffCart_NoDrift(t *testing.T) {
	items := []model.EnrichedCartItem{{Product: model.Product{ID: "1"}, Quantity: 2}}
	if drift := DiffCart(items, items); !drift.IsEmpty() {
		t.Errorf("drift = %+v, want empty", drift)
	}
}
