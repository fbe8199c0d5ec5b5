// Package transport maps a proxy specification string onto an HTTP transport.
//
// The mapping is pure: http:// and https:// specs produce a CONNECT-proxied
// transport, socks4:// and socks5:// produce a SOCKS-dialing transport, and
// anything else yields no transport at all so the caller proceeds with a
// direct connection. No retries, no state.
package transport

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"h12.io/socks"
)

// Select returns a transport for the given proxy spec, or ok=false when the
// spec is empty or its scheme is unsupported. Callers treat ok=false as
// "connect direct"; it is never fatal.
func Select(spec string) (*http.Transport, bool) {
	switch {
	case spec == "":
		return nil, false
	case strings.HasPrefix(spec, "http://"), strings.HasPrefix(spec, "https://"):
		proxyURL, err := url.Parse(spec)
		if err != nil {
			return nil, false
		}
		return &http.Transport{
			Proxy:             http.ProxyURL(proxyURL),
			DialContext:       defaultDialer().DialContext,
			ForceAttemptHTTP2: true,
		}, true
	case strings.HasPrefix(spec, "socks4://"),
		strings.HasPrefix(spec, "socks4a://"),
		strings.HasPrefix(spec, "socks5://"):
		return &http.Transport{
			Dial: socks.Dial(spec),
		}, true
	default:
		return nil, false
	}
}

func defaultDialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
}
