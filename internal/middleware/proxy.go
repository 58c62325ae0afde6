package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// DefaultTrustedProxies covers loopback, Docker bridge networks and private
// LAN ranges, which is where a reverse proxy in front of the API lives.
var DefaultTrustedProxies = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"fd00::/8",
}

// TrustedProxies configures Echo to honor X-Real-IP / X-Forwarded-For only
// when the direct peer is inside one of trustedCIDRs.
//
// Without this config c.RealIP() would return the proxy's address behind a
// reverse proxy, and the per-IP vote rate limit would throttle everyone at
// once. Invalid CIDRs are logged and skipped.
func TrustedProxies(e *echo.Echo, trustedCIDRs []string) {
	var trusted []*net.IPNet
	for _, cidr := range trustedCIDRs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			slog.Warn("ignoring invalid trusted proxy CIDR", slog.String("cidr", cidr))
			continue
		}
		trusted = append(trusted, network)
	}
	e.IPExtractor = ipExtractor(trusted)
}

// ipExtractor returns an Echo IPExtractor over the parsed trusted networks.
func ipExtractor(trusted []*net.IPNet) echo.IPExtractor {
	return func(req *http.Request) string {
		directIP := peerIP(req.RemoteAddr)
		if !inNetworks(directIP, trusted) {
			return directIP
		}

		if realIP := strings.TrimSpace(req.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}

		// Leftmost X-Forwarded-For entry is the original client.
		if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
			client, _, _ := strings.Cut(xff, ",")
			if client = strings.TrimSpace(client); client != "" {
				return client
			}
		}

		return directIP
	}
}

// peerIP extracts the IP from a "host:port" RemoteAddr string.
func peerIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func inNetworks(ipStr string, networks []*net.IPNet) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, n := range networks {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
