// MCP transport for the sync service using the official MCP Go SDK.
// Exposes the cart and wishlist operations as MCP tools.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"shopsync/internal/controller"
	"shopsync/internal/model"
	"shopsync/internal/session"
	"shopsync/internal/version"
)

// === MCP Meta Types ===
// meta carries what REST sends in headers: the Shopper-Session header
// becomes meta.session.

// MCPMeta represents request metadata in MCP requests.
type MCPMeta struct {
	Session *SessionMeta `json:"session"`
}

// SessionMeta identifies the shopper and the token used against the store.
type SessionMeta struct {
	UserID string `json:"user_id" jsonschema:"shopper user id"`
	Token  string `json:"token" jsonschema:"store auth token"`
}

// === MCP Tool Input/Output Types ===

// SessionInput is the input schema for tools that only need a session.
type SessionInput struct {
	Meta MCPMeta `json:"meta" jsonschema:"request metadata"`
}

// ProductInput is the input schema for tools acting on one product.
type ProductInput struct {
	Meta      MCPMeta `json:"meta" jsonschema:"request metadata"`
	ProductID string  `json:"product_id" jsonschema:"catalog product id"`
}

// CartItemOutput is one enriched cart line.
type CartItemOutput struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

// CartOutput is the enriched cart with its total.
type CartOutput struct {
	Items      []CartItemOutput `json:"items"`
	Count      int              `json:"count"`
	Total      string           `json:"total"`
	TotalCents int64            `json:"total_cents"`
}

// WishlistItemOutput is one enriched wishlist entry.
type WishlistItemOutput struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
}

// WishlistOutput is the enriched wishlist.
type WishlistOutput struct {
	Items []WishlistItemOutput `json:"items"`
	Count int                  `json:"count"`
}

// ToggleOutput reports which branch a toggle took and the wishlist after it.
type ToggleOutput struct {
	Result   string         `json:"result"`
	Wishlist WishlistOutput `json:"wishlist"`
}

func newCartOutput(view controller.CartView) *CartOutput {
	out := &CartOutput{
		Items:      make([]CartItemOutput, 0, len(view.Items)),
		Count:      view.Count,
		Total:      model.FormatAmount(view.Total),
		TotalCents: view.TotalCents,
	}
	for _, item := range view.Items {
		out.Items = append(out.Items, CartItemOutput{
			ProductID: item.ID.String(),
			Name:      item.Name,
			Price:     model.FormatAmount(item.Price),
			Quantity:  item.Quantity,
			LineTotal: model.FormatAmount(item.LineTotal()),
		})
	}
	return out
}

func newWishlistOutput(view controller.WishlistView) WishlistOutput {
	out := WishlistOutput{
		Items: make([]WishlistItemOutput, 0, len(view.Items)),
		Count: view.Count,
	}
	for _, item := range view.Items {
		out.Items = append(out.Items, WishlistItemOutput{
			ProductID: item.ID.String(),
			Name:      item.Name,
			Price:     model.FormatAmount(item.Price),
		})
	}
	return out
}

// NewMCPServer creates an MCP server with the cart and wishlist tools registered.
// The server exposes the same operations as the REST API but via MCP protocol.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "shopsync",
			Version: version.Version,
		},
		&mcp.ServerOptions{
			Instructions: "Shopsync keeps a shopper's cart and wishlist in step with the store. " +
				"Every tool needs meta.session with the shopper's user_id and token.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_cart",
		Description: "Get the shopper's cart: items joined with the catalog, item count and total.",
	}, h.mcpGetCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "increment_cart_item",
		Description: "Increase the quantity of a product already in the cart by one.",
	}, h.mcpIncrement)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "decrement_cart_item",
		Description: "Decrease the quantity of a cart product by one. At quantity one the product is removed.",
	}, h.mcpDecrement)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_cart_item",
		Description: "Remove a product from the cart.",
	}, h.mcpRemove)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_wishlist",
		Description: "Get the shopper's wishlist joined with the catalog.",
	}, h.mcpGetWishlist)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "toggle_wishlist",
		Description: "Add a product to the wishlist, or remove it if the store already has it listed.",
	}, h.mcpToggleWishlist)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your router.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpGetCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, *CartOutput, error) {
	c, _, err := h.mcpController(ctx, input.Meta)
	if err != nil {
		return nil, nil, err
	}
	return nil, newCartOutput(c.Cart()), nil
}

func (h *Handler) mcpIncrement(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProductInput,
) (*mcp.CallToolResult, *CartOutput, error) {
	return h.mcpMutateCart(ctx, input, (*controller.Controller).Increment)
}

func (h *Handler) mcpDecrement(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProductInput,
) (*mcp.CallToolResult, *CartOutput, error) {
	return h.mcpMutateCart(ctx, input, (*controller.Controller).Decrement)
}

func (h *Handler) mcpRemove(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProductInput,
) (*mcp.CallToolResult, *CartOutput, error) {
	return h.mcpMutateCart(ctx, input, (*controller.Controller).RemoveFromCart)
}

func (h *Handler) mcpMutateCart(
	ctx context.Context,
	input ProductInput,
	mutate func(*controller.Controller, context.Context, session.Session, model.ID) error,
) (*mcp.CallToolResult, *CartOutput, error) {
	if input.ProductID == "" {
		return nil, nil, h.mcpError(model.NewValidationError("product_id", "product ID required"))
	}
	c, s, err := h.mcpController(ctx, input.Meta)
	if err != nil {
		return nil, nil, err
	}
	if err := mutate(c, ctx, s, model.ID(input.ProductID)); err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, newCartOutput(c.Cart()), nil
}

func (h *Handler) mcpGetWishlist(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, *WishlistOutput, error) {
	c, _, err := h.mcpController(ctx, input.Meta)
	if err != nil {
		return nil, nil, err
	}
	out := newWishlistOutput(c.Wishlist())
	return nil, &out, nil
}

func (h *Handler) mcpToggleWishlist(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProductInput,
) (*mcp.CallToolResult, *ToggleOutput, error) {
	if input.ProductID == "" {
		return nil, nil, h.mcpError(model.NewValidationError("product_id", "product ID required"))
	}
	c, s, err := h.mcpController(ctx, input.Meta)
	if err != nil {
		return nil, nil, err
	}
	result, err := toggleProduct(ctx, c, s, model.ID(input.ProductID))
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, &ToggleOutput{
		Result:   string(result),
		Wishlist: newWishlistOutput(c.Wishlist()),
	}, nil
}

// mcpController resolves meta.session to a bootstrapped controller.
func (h *Handler) mcpController(ctx context.Context, meta MCPMeta) (*controller.Controller, session.Session, error) {
	if meta.Session == nil {
		return nil, session.Session{}, fmt.Errorf("%s: meta.session is required in MCP requests", session.SessionRequired)
	}
	s := session.Session{UserID: model.ID(meta.Session.UserID), Token: meta.Session.Token}
	if err := s.Validate(); err != nil {
		return nil, s, fmt.Errorf("%s: %v", session.SessionRequired, err)
	}

	c, err := h.registry.Get(ctx, s)
	if err != nil {
		return nil, s, h.mcpError(err)
	}
	h.logger.DebugContext(ctx, "mcp session resolved", slog.String("user_id", s.UserID.String()))
	return c, s, nil
}

// mcpError converts controller errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", slog.String("error", err.Error()))
	return errors.New("internal error")
}
