package fingerprint

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// Profile names the TLS client hello the transport presents.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go"     // standard go TLS
	ProfileRandom  Profile = "random" // randomized uTLS profile
)

var helloIDs = map[Profile]utls.ClientHelloID{
	ProfileChrome:  utls.HelloChrome_Auto,
	ProfileFirefox: utls.HelloFirefox_Auto,
	ProfileSafari:  utls.HelloIOS_Auto,
	ProfileRandom:  utls.HelloRandomizedALPN,
}

var errProtocolChanged = errors.New("server switched to h2 on an http/1.1 connection")

// ParseProfile maps a configuration value to a Profile. Empty means chrome.
func ParseProfile(s string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return ProfileChrome, nil
	}
	if p == ProfileGo {
		return p, nil
	}
	if _, ok := helloIDs[p]; !ok {
		return "", fmt.Errorf("unknown tls profile %q", s)
	}
	return p, nil
}

// Transport returns an http.RoundTripper presenting the client hello of
// profile p. ProfileGo returns a plain clone of http.DefaultTransport.
// proxyFunc, if non-nil, becomes the transport's Proxy.
//
// Browser hellos advertise h2 through ALPN, so the uTLS transport speaks
// whichever protocol the server picks. Proxied and plain-text requests go
// through the standard transport.
func Transport(p Profile, proxyFunc func(*http.Request) (*url.URL, error)) (http.RoundTripper, error) {
	return newTransport(p, proxyFunc, nil)
}

func newTransport(p Profile, proxyFunc func(*http.Request) (*url.URL, error), roots *x509.CertPool) (http.RoundTripper, error) {
	h1 := http.DefaultTransport.(*http.Transport).Clone()
	if proxyFunc != nil {
		h1.Proxy = proxyFunc
	}
	if p == ProfileGo {
		return h1, nil
	}

	helloID, ok := helloIDs[p]
	if !ok {
		return nil, fmt.Errorf("unknown tls profile %q", p)
	}

	rt := &roundTripper{
		helloID: helloID,
		roots:   roots,
		h1:      h1,
		h2:      &http2.Transport{},
		dial:    h1.DialContext,
		conns:   make(map[string]*http2.ClientConn),
		h1Hosts: make(map[string]bool),
		pending: make(map[string]net.Conn),
	}
	h1.DialTLSContext = rt.dialH1
	return rt, nil
}

// roundTripper dispatches https requests over HTTP/2 or HTTP/1.1 depending
// on the protocol each server negotiated during the uTLS handshake.
type roundTripper struct {
	helloID utls.ClientHelloID
	roots   *x509.CertPool
	h1      *http.Transport
	h2      *http2.Transport
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)

	mu      sync.Mutex
	conns   map[string]*http2.ClientConn
	h1Hosts map[string]bool
	// pending holds an http/1.1 connection dialed while discovering the
	// protocol, handed to h1 on its next dial for the same address.
	pending map[string]net.Conn
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return rt.h1.RoundTrip(req)
	}
	if rt.h1.Proxy != nil {
		proxyURL, err := rt.h1.Proxy(req)
		if err != nil {
			return nil, err
		}
		if proxyURL != nil {
			return rt.h1.RoundTrip(req)
		}
	}

	addr := canonicalAddr(req.URL)

	rt.mu.Lock()
	if rt.h1Hosts[addr] {
		rt.mu.Unlock()
		return rt.h1.RoundTrip(req)
	}
	if cc := rt.conns[addr]; cc != nil && cc.CanTakeNewRequest() {
		rt.mu.Unlock()
		return cc.RoundTrip(req)
	}
	rt.mu.Unlock()

	conn, err := rt.handshake(req.Context(), "tcp", addr)
	if err != nil {
		return nil, err
	}

	if conn.ConnectionState().NegotiatedProtocol != http2.NextProtoTLS {
		rt.mu.Lock()
		rt.h1Hosts[addr] = true
		if old := rt.pending[addr]; old != nil {
			_ = old.Close()
		}
		rt.pending[addr] = conn
		rt.mu.Unlock()
		return rt.h1.RoundTrip(req)
	}

	cc, err := rt.h2.NewClientConn(conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("h2 connection to %s: %w", addr, err)
	}
	rt.mu.Lock()
	if existing := rt.conns[addr]; existing != nil && existing.CanTakeNewRequest() {
		// Lost a race with a concurrent request to the same host.
		rt.mu.Unlock()
		_ = cc.Close()
		return existing.RoundTrip(req)
	}
	rt.conns[addr] = cc
	rt.mu.Unlock()
	return cc.RoundTrip(req)
}

// CloseIdleConnections closes idle connections of both protocols.
func (rt *roundTripper) CloseIdleConnections() {
	rt.h1.CloseIdleConnections()

	rt.mu.Lock()
	defer rt.mu.Unlock()
	for addr, cc := range rt.conns {
		st := cc.State()
		if st.Closed || st.StreamsActive == 0 {
			_ = cc.Close()
			delete(rt.conns, addr)
		}
	}
	for addr, conn := range rt.pending {
		_ = conn.Close()
		delete(rt.pending, addr)
	}
}

func (rt *roundTripper) dialH1(ctx context.Context, network, addr string) (net.Conn, error) {
	rt.mu.Lock()
	if conn := rt.pending[addr]; conn != nil {
		delete(rt.pending, addr)
		rt.mu.Unlock()
		return conn, nil
	}
	rt.mu.Unlock()

	conn, err := rt.handshake(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	if conn.ConnectionState().NegotiatedProtocol == http2.NextProtoTLS {
		_ = conn.Close()
		rt.mu.Lock()
		delete(rt.h1Hosts, addr)
		rt.mu.Unlock()
		return nil, errProtocolChanged
	}
	return conn, nil
}

func (rt *roundTripper) handshake(ctx context.Context, network, addr string) (*utls.UConn, error) {
	tcpConn, err := rt.dial(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	uConn := utls.UClient(tcpConn, &utls.Config{ServerName: host, RootCAs: rt.roots}, rt.helloID)
	if err := uConn.HandshakeContext(ctx); err != nil {
		_ = tcpConn.Close()
		return nil, fmt.Errorf("utls handshake with %s failed: %w", host, err)
	}
	return uConn, nil
}

func canonicalAddr(u *url.URL) string {
	port := u.Port()
	if port == "" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port)
}
