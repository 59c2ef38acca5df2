// Package fetch provides the single-request HTTP downloader used by every
// region driver and by the pipeline's Download stage: one construct per
// request, with retry classification, optional ranged reads, streaming to
// disk, and browser-class header spoofing for CDNs that challenge
// non-browser clients.
package fetch

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/net/http2"
)

const (
	dialTimeout           = 30 * time.Second
	dialKeepAlive         = 30 * time.Second
	idleConnTimeout       = 90 * time.Second
	tlsHandshakeTimeout   = 60 * time.Second
	expectContinueTimeout = 1 * time.Second
)

// NewClient builds an HTTP client tuned for many concurrent range/streamed
// downloads against a small set of CDN hosts: a large per-host connection
// pool, HTTP/2 (toggle with DISABLE_HTTP2=true), and an optional proxy.
func NewClient(proxyURL string) (*http.Client, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: dialKeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:          512,
		MaxIdleConnsPerHost:   100,
		MaxConnsPerHost:       100,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ExpectContinueTimeout: expectContinueTimeout,
		ForceAttemptHTTP2:     true,
	}

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(parsed)
	}

	_ = http2.ConfigureTransport(transport)

	if os.Getenv("DISABLE_HTTP2") == "true" {
		transport.ForceAttemptHTTP2 = false
		transport.TLSNextProto = make(map[string]func(string, *tls.Conn) http.RoundTripper)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   0,
	}, nil
}
