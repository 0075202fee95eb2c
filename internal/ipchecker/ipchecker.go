// Package ipchecker restricts internal endpoints to clients from a trusted
// subnet.
//
// By default the client address is the connection's remote address. With
// WithProxyHeaders(true) X-Real-IP and then the first X-Forwarded-For entry
// take precedence; enable it only behind a reverse proxy that overwrites
// both headers, since clients can set them freely.
package ipchecker

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/contactbook/internal/logger"
	"github.com/patric-chuzhbe/contactbook/internal/response"
)

// ForbiddenMessage is the envelope message returned to untrusted clients.
const ForbiddenMessage = "Forbidden"

var errNoClientIP = errors.New("client IP address is not available")

// IPChecker decides whether a request comes from the trusted subnet.
type IPChecker struct {
	trustedSubnet     *net.IPNet
	trustProxyHeaders bool
}

type initOptions struct {
	trustProxyHeaders bool
}

type InitOption func(*initOptions)

// WithProxyHeaders makes GetClientIP honour X-Real-IP and X-Forwarded-For.
func WithProxyHeaders(value bool) InitOption {
	return func(options *initOptions) {
		options.trustProxyHeaders = value
	}
}

// New creates an IPChecker for a subnet in CIDR notation (e.g. "192.168.1.0/24").
// An empty string yields a checker that trusts nobody.
func New(trustedSubnet string, optionsProto ...InitOption) (*IPChecker, error) {
	options := &initOptions{
		trustProxyHeaders: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	checker := &IPChecker{
		trustedSubnet:     nil,
		trustProxyHeaders: options.trustProxyHeaders,
	}
	if trustedSubnet == "" {
		return checker, nil
	}

	_, allowedNet, err := net.ParseCIDR(trustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/New(): error while `net.ParseCIDR()` calling: %w", err)
	}
	checker.trustedSubnet = allowedNet

	return checker, nil
}

// Check reports whether clientIP belongs to the trusted subnet.
func (checker *IPChecker) Check(clientIP net.IP) bool {
	return checker.trustedSubnet != nil && clientIP != nil && checker.trustedSubnet.Contains(clientIP)
}

// GetClientIP extracts the client's IP address from an HTTP request.
func (checker *IPChecker) GetClientIP(request *http.Request) (net.IP, error) {
	if checker.trustProxyHeaders {
		if ip := net.ParseIP(strings.TrimSpace(request.Header.Get("X-Real-IP"))); ip != nil {
			return ip, nil
		}
		if xff := request.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip, nil
			}
			return nil, errNoClientIP
		}
	}
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/GetClientIP(): error while `net.SplitHostPort()` calling: %w", err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return nil, errNoClientIP
	}
	return ip, nil
}

// IsTrustedSubnetEmpty returns true if the IPChecker was initialized
// without a trusted subnet.
func (checker *IPChecker) IsTrustedSubnetEmpty() bool {
	return checker.trustedSubnet == nil
}

// TrustedSubnetOnly is an HTTP middleware answering 403 to every client
// outside the trusted subnet.
func (checker *IPChecker) TrustedSubnetOnly(h http.Handler) http.Handler {
	middleware := func(w http.ResponseWriter, r *http.Request) {
		if checker.IsTrustedSubnetEmpty() {
			response.Error(w, http.StatusForbidden, ForbiddenMessage)
			return
		}

		clientIP, err := checker.GetClientIP(r)
		if err != nil {
			logger.Log.Debugln("Error calling the `checker.GetClientIP()`: ", zap.Error(err))
			response.Error(w, http.StatusForbidden, ForbiddenMessage)
			return
		}

		if !checker.Check(clientIP) {
			response.Error(w, http.StatusForbidden, ForbiddenMessage)
			return
		}

		h.ServeHTTP(w, r)
	}

	return http.HandlerFunc(middleware)
}
