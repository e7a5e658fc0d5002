// Package ipchecker extracts and validates client IP addresses from HTTP
// requests. The router uses it to restrict the internal stats endpoint to a
// trusted subnet.
package ipchecker

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// IPChecker validates whether a request originates from the configured
// trusted subnet. With an empty subnet the checker is disabled and rejects
// every request.
type IPChecker struct {
	trustedSubnet *net.IPNet
}

// New creates an IPChecker for the given subnet in CIDR notation
// (e.g. "192.168.1.0/24"). An empty string yields a disabled checker.
func New(trustedSubnet string) (*IPChecker, error) {
	if trustedSubnet == "" {
		return &IPChecker{}, nil
	}

	_, allowedNet, err := net.ParseCIDR(trustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("cannot parse trusted subnet: %w", err)
	}

	return &IPChecker{trustedSubnet: allowedNet}, nil
}

// Check reports whether the given IP belongs to the trusted subnet.
// A disabled checker always returns false.
func (checker *IPChecker) Check(clientIP net.IP) bool {
	return checker.trustedSubnet != nil && checker.trustedSubnet.Contains(clientIP)
}

// GetClientIP extracts the client's IP address from an HTTP request,
// checking in order: the "X-Real-IP" header, the "X-Forwarded-For" header,
// and finally the request's RemoteAddr field.
func (checker *IPChecker) GetClientIP(request *http.Request) (net.IP, error) {
	if ip := net.ParseIP(request.Header.Get("X-Real-IP")); ip != nil {
		return ip, nil
	}

	if xff := request.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip, nil
		}
	}

	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		host = request.RemoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return nil, fmt.Errorf("cannot determine client IP from %q", request.RemoteAddr)
	}

	return ip, nil
}
