// shopctl drives a running shopsyncd from the command line.
// Each command performs a single operation, making it composable for scripts.
//
// Commands:
//
//	shopctl catalog  [-refresh]
//	shopctl cart     [-refresh]
//	shopctl inc      -product ID
//	shopctl dec      -product ID
//	shopctl rm       -product ID
//	shopctl wishlist [-refresh]
//	shopctl toggle   -product ID
//	shopctl version
//
// Every command takes -server, -user and -token (or SHOPSYNC_USER and
// SHOPSYNC_TOKEN).
//
// Examples:
//
//	shopctl cart -user 42 -token abc123
//	TOTAL=$(shopctl inc -user 42 -token abc123 -product 7 -q)
//	shopctl toggle -user 42 -token abc123 -product 7
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"shopsync/internal/controller"
	"shopsync/internal/model"
	"shopsync/internal/session"
	"shopsync/internal/version"
)

var client = &http.Client{Timeout: 30 * time.Second}

// Global flags (apply to all commands)
var (
	serverURL string
	userID    string
	token     string
	quiet     bool
	noColor   bool
	verbose   bool
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorCyan, colorGray, colorBold = "", "", ""
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "catalog":
		runCatalog(args)
	case "cart":
		runCart(args)
	case "inc":
		runCartMutation("inc", http.MethodPost, "/increment", args)
	case "dec":
		runCartMutation("dec", http.MethodPost, "/decrement", args)
	case "rm":
		runCartMutation("rm", http.MethodDelete, "", args)
	case "wishlist":
		runWishlist(args)
	case "toggle":
		runToggle(args)
	case "version":
		runVersion(args)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `shopctl - cart and wishlist tool for shopsyncd

Usage:
  shopctl <command> [options]

Commands:
  catalog   List the product catalog
  cart      Show the cart with its total
  inc       Add one to a cart item's quantity
  dec       Remove one from a cart item's quantity (removes it at one)
  rm        Remove an item from the cart
  wishlist  Show the wishlist
  toggle    Add a product to the wishlist, or remove it
  version   Show client and server versions and check they match

Examples:
  # Show the cart
  shopctl cart -user 42 -token abc123

  # Increment and capture the new total
  TOTAL=$(shopctl inc -user 42 -token abc123 -product 7 -q)

  # Flip wishlist membership
  shopctl toggle -user 42 -token abc123 -product 7

Run 'shopctl <command> -h' for command-specific options.
`)
}

// newFlagSet registers the flags every command shares.
func newFlagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&serverURL, "server", "http://localhost:8080", "shopsyncd base URL")
	fs.StringVar(&userID, "user", os.Getenv("SHOPSYNC_USER"), "Shopper user ID")
	fs.StringVar(&token, "token", os.Getenv("SHOPSYNC_TOKEN"), "Store auth token")
	fs.BoolVar(&quiet, "q", false, "Quiet mode - only output the key value")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&verbose, "v", false, "Verbose - show full request/response")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: shopctl %s\n\nOptions:\n", usage)
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags parses args and checks the session flags.
func parseFlags(fs *flag.FlagSet, args []string) {
	fs.Parse(args)
	if noColor {
		disableColors()
	}
	if userID == "" || token == "" {
		fmt.Fprintf(os.Stderr, "-user and -token are required\n\n")
		fs.Usage()
		os.Exit(1)
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

type catalogResponse struct {
	Products []model.Product `json:"products"`
	Count    int             `json:"count"`
}

func runCatalog(args []string) {
	fs := newFlagSet("catalog", "catalog [-refresh] [options]")
	var refresh bool
	fs.BoolVar(&refresh, "refresh", false, "Re-fetch the catalog from the store first")
	parseFlags(fs, args)

	method, path := http.MethodGet, "/catalog"
	if refresh {
		method, path = http.MethodPost, "/catalog/refresh"
	}

	var resp catalogResponse
	if err := doRequest(method, path, nil, &resp); err != nil {
		fatal("Failed to get catalog: %v", err)
	}

	if quiet {
		fmt.Println(resp.Count)
		return
	}
	printSuccess("%d products", resp.Count)
	for _, p := range resp.Products {
		fmt.Printf("  %s%-6s%s %-32s %s%s%s\n",
			colorBold, p.ID, colorReset, p.Name, colorGreen, model.FormatAmount(p.Price), colorReset)
	}
}

func runCart(args []string) {
	fs := newFlagSet("cart", "cart [-refresh] [options]")
	var refresh bool
	fs.BoolVar(&refresh, "refresh", false, "Re-fetch cart memberships from the store first")
	parseFlags(fs, args)

	method, path := http.MethodGet, "/cart"
	if refresh {
		method, path = http.MethodPost, "/cart/refresh"
	}

	var view controller.CartView
	if err := doRequest(method, path, nil, &view); err != nil {
		fatal("Failed to get cart: %v", err)
	}
	printCart(view, "Cart retrieved")
}

func runCartMutation(name, method, suffix string, args []string) {
	fs := newFlagSet(name, name+" -product ID [options]")
	var productID string
	fs.StringVar(&productID, "product", "", "Product ID (required)")
	parseFlags(fs, args)

	if productID == "" {
		fs.Usage()
		os.Exit(1)
	}

	path := "/cart/items/" + url.PathEscape(productID) + suffix
	var view controller.CartView
	if err := doRequest(method, path, nil, &view); err != nil {
		fatal("Failed to update cart: %v", err)
	}
	printCart(view, "Cart updated")
}

func runWishlist(args []string) {
	fs := newFlagSet("wishlist", "wishlist [-refresh] [options]")
	var refresh bool
	fs.BoolVar(&refresh, "refresh", false, "Re-fetch wishlist memberships from the store first")
	parseFlags(fs, args)

	method, path := http.MethodGet, "/wishlist"
	if refresh {
		method, path = http.MethodPost, "/wishlist/refresh"
	}

	var view controller.WishlistView
	if err := doRequest(method, path, nil, &view); err != nil {
		fatal("Failed to get wishlist: %v", err)
	}
	printWishlist(view, "Wishlist retrieved")
}

type toggleResponse struct {
	Result   controller.ToggleResult `json:"result"`
	Wishlist controller.WishlistView `json:"wishlist"`
}

func runToggle(args []string) {
	fs := newFlagSet("toggle", "toggle -product ID [options]")
	var productID string
	fs.StringVar(&productID, "product", "", "Product ID (required)")
	parseFlags(fs, args)

	if productID == "" {
		fs.Usage()
		os.Exit(1)
	}

	var resp toggleResponse
	body := map[string]string{"product": productID}
	if err := doRequest(http.MethodPost, "/wishlist/toggle", body, &resp); err != nil {
		fatal("Failed to toggle wishlist: %v", err)
	}

	if quiet {
		fmt.Println(resp.Result)
		return
	}
	printSuccess("Product %s %s", productID, resp.Result)
	printInfo("the local wishlist reflects this after 'shopctl wishlist -refresh'")
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// runVersion needs no session: /health is public.
func runVersion(args []string) {
	fs := flag.NewFlagSet("version", flag.ExitOnError)
	fs.StringVar(&serverURL, "server", "http://localhost:8080", "shopsyncd base URL")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.Parse(args)
	if noColor {
		disableColors()
	}

	fmt.Printf("client: %s\n", version.Version)

	resp, err := client.Get(strings.TrimRight(serverURL, "/") + "/health")
	if err != nil {
		fatal("Failed to reach server: %v", err)
	}
	defer resp.Body.Close()

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		fatal("Failed to parse health response: %v", err)
	}
	fmt.Printf("server: %s (%s)\n", health.Version, health.Status)

	if err := version.Check(version.Version, health.Version); err != nil {
		fatal("%v", err)
	}
	printSuccess("versions compatible")
}

// =============================================================================
// OUTPUT
// =============================================================================

func printCart(view controller.CartView, title string) {
	if quiet {
		fmt.Println(model.FormatAmount(view.Total))
		return
	}
	printSuccess("%s (%d items)", title, view.Count)
	for _, item := range view.Items {
		fmt.Printf("  %s%-6s%s %-32s %3d × %-10s %s\n",
			colorBold, item.ID, colorReset, item.Name, item.Quantity,
			model.FormatAmount(item.Price), model.FormatAmount(item.LineTotal()))
	}
	fmt.Printf("  Total: %s%s%s\n", colorGreen, model.FormatAmount(view.Total), colorReset)
}

func printWishlist(view controller.WishlistView, title string) {
	if quiet {
		fmt.Println(view.Count)
		return
	}
	printSuccess("%s (%d items)", title, view.Count)
	for _, item := range view.Items {
		fmt.Printf("  %s%-6s%s %-32s %s\n",
			colorBold, item.ID, colorReset, item.Name, model.FormatAmount(item.Price))
	}
}

// =============================================================================
// HTTP
// =============================================================================

// doRequest sends one request with the Shopper-Session header and decodes
// the JSON response into out.
func doRequest(method, path string, body any, out any) error {
	var reqBody io.Reader
	var reqJSON []byte

	if body != nil {
		var err error
		reqJSON, err = json.MarshalIndent(body, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(reqJSON)
	}

	header, err := session.FormatHeader(session.Session{UserID: model.ID(userID), Token: token})
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	req, err := http.NewRequest(method, strings.TrimRight(serverURL, "/")+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(session.HeaderName, header)

	if verbose {
		printRequest(method, path, reqJSON)
	}

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if verbose {
		printResponse(resp.StatusCode, respBody, duration)
	}

	if resp.StatusCode >= 400 {
		return responseError(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// responseError reads the service's {"error": {...}} envelope.
func responseError(status int, body []byte) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Code != "" {
		return fmt.Errorf("HTTP %d %s: %s", status, envelope.Error.Code, envelope.Error.Message)
	}
	return fmt.Errorf("HTTP %d: %s", status, string(body))
}

func printRequest(method, path string, body []byte) {
	fmt.Printf("\n%s▶ REQUEST%s %s%s %s%s\n", colorYellow, colorReset, colorBold, method, path, colorReset)
	if body != nil {
		printJSON(body, "  ")
	}
}

func printResponse(status int, body []byte, duration time.Duration) {
	statusColor := colorGreen
	if status >= 400 {
		statusColor = colorRed
	}
	fmt.Printf("\n%s◀ RESPONSE%s %s%d%s (%v)\n", colorCyan, colorReset, statusColor, status, colorReset, duration)
	printJSON(body, "  ")
}

func printJSON(data []byte, prefix string) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, prefix, "  "); err != nil {
		fmt.Printf("%s%s\n", prefix, string(data))
		return
	}
	fmt.Println(pretty.String())
}

func printSuccess(format string, args ...any) {
	if !quiet {
		fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Printf("%s→ %s%s\n", colorGray, fmt.Sprintf(format, args...), colorReset)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
