// Package transport provides the HTTP round trippers used to reach the store backend.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// Kind selects the round tripper the store client dials with.
type Kind string

const (
	// KindStandard is net/http's default transport.
	KindStandard Kind = "standard"

	// KindChrome presents Chrome's TLS fingerprint. Use it for storefronts
	// behind CDNs that rate limit Go's default ClientHello.
	KindChrome Kind = "chrome"
)

// RequestIDHeader is set on every outbound request that lacks one.
const RequestIDHeader = "X-Request-ID"

// New returns the round tripper for kind wrapped with request id tagging.
// Unknown kinds are rejected so a config typo fails at startup.
func New(kind Kind, timeout time.Duration) (http.RoundTripper, error) {
	var base http.RoundTripper
	switch kind {
	case KindStandard, "":
		base = http.DefaultTransport
	case KindChrome:
		base = NewChromeTransport(timeout)
	default:
		return nil, fmt.Errorf("unsupported transport %q", kind)
	}
	return RequestID(base), nil
}

type requestIDKey struct{}

// WithRequestID returns a copy of ctx whose outbound requests carry id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the id stored by WithRequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID wraps next so each request carries an X-Request-ID.
// Lets backend logs be correlated with ours. An existing header wins, then
// the id in the request context, then a fresh UUID.
func RequestID(next http.RoundTripper) http.RoundTripper {
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.Header.Get(RequestIDHeader) != "" {
			return next.RoundTrip(req)
		}
		id := RequestIDFrom(req.Context())
		if id == "" {
			id = uuid.NewString()
		}
		// RoundTrippers must not modify the caller's request.
		clone := req.Clone(req.Context())
		clone.Header.Set(RequestIDHeader, id)
		return next.RoundTrip(clone)
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// NewChromeTransport creates an http.RoundTripper that presents Chrome's TLS
// fingerprint to upstream servers. Supports both HTTP/2 and HTTP/1.1 based on
// ALPN negotiation. Plain http:// URLs go straight to the HTTP/1.1 transport.
func NewChromeTransport(timeout time.Duration) http.RoundTripper {
	dialer := &net.Dialer{Timeout: timeout}

	h2Transport := &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			return dialChromeTLS(ctx, dialer, network, addr)
		},
	}

	h1Transport := &http.Transport{
		DialContext: dialer.DialContext,
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialChromeTLS(ctx, dialer, network, addr)
		},
		ForceAttemptHTTP2: false,
	}

	return &chromeTransport{
		h2: h2Transport,
		h1: h1Transport,
	}
}

// chromeTransport wraps HTTP/2 and HTTP/1.1 transports with Chrome TLS fingerprint.
type chromeTransport struct {
	h2 *http2.Transport
	h1 *http.Transport
}

// RoundTrip implements http.RoundTripper.
// Tries HTTP/2 first for https, falls back to HTTP/1.1 if the server doesn't speak h2.
func (t *chromeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.h1.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}
	return t.h1.RoundTrip(req)
}

// dialChromeTLS establishes a TLS connection with Chrome's fingerprint.
func dialChromeTLS(ctx context.Context, dialer *net.Dialer, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloChrome_Auto)
	if err := tlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}
