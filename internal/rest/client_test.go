package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopsync/internal/model"
	"shopsync/internal/session"
)

var testSession = session.Session{UserID: "7", Token: "abc123"}

func newTestClient(t *testing.T, paths Paths, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/", Paths: paths})
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "http://store", Transport: "netscape"})
	assert.Error(t, err)

	c, err := New(Config{BaseURL: "http://store/"})
	require.NoError(t, err)
	assert.Equal(t, "http://store", c.baseURL)
	assert.Equal(t, DefaultAuthScheme, c.authScheme)
	assert.Equal(t, RESTPaths, c.paths)
}

func TestPathsFor(t *testing.T) {
	p, err := PathsFor("django")
	require.NoError(t, err)
	assert.Equal(t, "/wishlistApi/wishlist-items/delete/{id}/", p.WishlistItem)

	p, err = PathsFor("")
	require.NoError(t, err)
	assert.Equal(t, RESTPaths, p)

	_, err = PathsFor("graphql")
	assert.Error(t, err)
}

func TestListProducts_Unauthenticated(t *testing.T) {
	c := newTestClient(t, RESTPaths, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`[{"id":1,"price":"10.00","name":"A"},{"id":"2","price":5.5,"name":"B"}]`))
	})

	products, err := c.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, model.ID("1"), products[0].ID)
	assert.True(t, products[0].Price.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, model.ID("2"), products[1].ID)
	assert.True(t, products[1].Price.Equal(decimal.RequireFromString("5.5")))
}

func TestListCartItems_SendsToken(t *testing.T) {
	c := newTestClient(t, DjangoPaths, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cartApi/cart-items/", r.URL.Path)
		assert.Equal(t, "Token abc123", r.Header.Get("Authorization"))
		w.Write([]byte(`{"count":1,"results":[{"id":10,"user":7,"product":1,"quantity":2}]}`))
	})

	rows, err := c.ListCartItems(context.Background(), testSession)
	require.NoError(t, err)
	assert.Equal(t, []model.CartMembership{{ID: "10", User: "7", Product: "1", Quantity: 2}}, rows)
}

func TestAuthenticatedCalls_RequireToken(t *testing.T) {
	var hits int
	c := newTestClient(t, RESTPaths, func(w http.ResponseWriter, r *http.Request) {
		hits++
	})
	ctx := context.Background()
	noToken := session.Session{UserID: "7"}

	calls := map[string]func() error{
		"ListCartItems":      func() error { _, err := c.ListCartItems(ctx, noToken); return err },
		"DeleteCartItem":     func() error { return c.DeleteCartItem(ctx, noToken, "1") },
		"IncrementCartItem":  func() error { return c.IncrementCartItem(ctx, noToken, "1", 2) },
		"DecrementCartItem":  func() error { return c.DecrementCartItem(ctx, noToken, "1", 1) },
		"ListWishlistItems":  func() error { _, err := c.ListWishlistItems(ctx, noToken); return err },
		"FindWishlistItems":  func() error { _, err := c.FindWishlistItems(ctx, noToken, "1"); return err },
		"CreateWishlistItem": func() error { return c.CreateWishlistItem(ctx, noToken, "1") },
		"DeleteWishlistItem": func() error { return c.DeleteWishlistItem(ctx, noToken, "1") },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, call(), model.ErrPrecondition)
		})
	}
	assert.Zero(t, hits, "no request may leave without a token")
}

func TestIncrementCartItem(t *testing.T) {
	c := newTestClient(t, DjangoPaths, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/cartApi/cart-items/10/increment/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req model.QuantityRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 3, req.Quantity)
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.IncrementCartItem(context.Background(), testSession, "10", 3))
}

func TestDecrementCartItem_Rejected(t *testing.T) {
	c := newTestClient(t, RESTPaths, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cart-items/10/decrement", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
	})

	err := c.DecrementCartItem(context.Background(), testSession, "10", 1)
	require.ErrorIs(t, err, model.ErrMutationFailed)

	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Message, "400")
}

func TestFindWishlistItems_Query(t *testing.T) {
	c := newTestClient(t, DjangoPaths, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wishlistApi/wishlist-items/", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("user"))
		assert.Equal(t, "3", r.URL.Query().Get("product"))
		w.Write([]byte(`[]`))
	})

	rows, err := c.FindWishlistItems(context.Background(), testSession, "3")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCreateWishlistItem(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"created", http.StatusCreated, `{"id":5,"user":7,"product":3}`, nil},
		{"conflict", http.StatusConflict, ``, model.ErrConflict},
		{"django unique", http.StatusBadRequest, `{"non_field_errors":["The fields user, product must make a unique set."]}`, model.ErrConflict},
		{"other validation", http.StatusBadRequest, `{"detail":"bad product"}`, model.ErrInvalidRequest},
		{"server error", http.StatusInternalServerError, ``, model.ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, RESTPaths, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				body, _ := io.ReadAll(r.Body)
				assert.JSONEq(t, `{"product":3,"user":7}`, string(body))
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			err := c.CreateWishlistItem(context.Background(), testSession, "3")
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDeleteWishlistItem_DjangoPath(t *testing.T) {
	c := newTestClient(t, DjangoPaths, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/wishlistApi/wishlist-items/delete/5/", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.DeleteWishlistItem(context.Background(), testSession, "5"))
}

func TestParseErrorResponse(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{404, model.ErrNotFound},
		{401, model.ErrUnauthorized},
		{403, model.ErrUnauthorized},
		{400, model.ErrInvalidRequest},
		{409, model.ErrConflict},
		{429, model.ErrRateLimited},
		{503, model.ErrTransport},
	}

	for _, tt := range tests {
		err := parseErrorResponse("cart item", tt.status, []byte(`{"detail":"x"}`))
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
	}
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url})
	require.NoError(t, err)

	_, err = c.ListProducts(context.Background())
	assert.ErrorIs(t, err, model.ErrTransport)
}
