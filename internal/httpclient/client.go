// Package httpclient builds the HTTP client used for asset downloads. By default
// it refuses to reach loopback, private and other special-use addresses, both in
// request URLs and after DNS resolution, and it can pace requests with a limiter.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/teranos/assetstage/errors"
)

const defaultMaxRedirects = 10

// Options configures New.
type Options struct {
	// Timeout bounds a whole request including the body. Zero disables it,
	// which suits large archive downloads.
	Timeout time.Duration

	// AllowPrivateNetworks permits loopback and private addresses, e.g. for an
	// asset mirror on the local network.
	AllowPrivateNetworks bool

	// MaxRedirects defaults to 10.
	MaxRedirects int

	// Limiter paces outgoing requests when set.
	Limiter *rate.Limiter
}

// New returns an *http.Client enforcing opts.
func New(opts Options) *http.Client {
	maxRedirects := opts.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = defaultMaxRedirects
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if !opts.AllowPrivateNetworks {
		base.Proxy = nil
		base.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, _, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, errors.Wrap(err, "invalid address")
			}
			ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to resolve host %q", host)
			}
			for _, ip := range ips {
				if isPrivateIP(ip) {
					return nil, errors.Newf("private IP address blocked: %s", ip)
				}
			}
			return dialer.DialContext(ctx, network, addr)
		}
	}

	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &guardedTransport{
			base:         base,
			limiter:      opts.Limiter,
			allowPrivate: opts.AllowPrivateNetworks,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errors.Newf("stopped after %d redirects", maxRedirects)
			}
			if err := validateURL(req.URL, opts.AllowPrivateNetworks); err != nil {
				return errors.Wrap(err, "redirect blocked")
			}
			return nil
		},
	}
}

type guardedTransport struct {
	base         http.RoundTripper
	limiter      *rate.Limiter
	allowPrivate bool
}

func (t *guardedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := validateURL(req.URL, t.allowPrivate); err != nil {
		return nil, errors.Wrap(err, "request blocked")
	}
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, errors.Wrap(err, "rate limit wait")
		}
	}
	return t.base.RoundTrip(req)
}

// ValidateURL parses raw and checks it against the download policy.
func ValidateURL(raw string, allowPrivate bool) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "invalid URL")
	}
	if err := validateURL(u, allowPrivate); err != nil {
		return nil, err
	}
	return u, nil
}

func validateURL(u *url.URL, allowPrivate bool) error {
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return errors.Newf("scheme %q not allowed (allowed: http, https)", scheme)
	}
	if u.User != nil {
		return errors.New("URL contains credentials")
	}

	hostname := u.Hostname()
	if hostname == "" {
		return errors.New("URL missing hostname")
	}
	if allowPrivate {
		return nil
	}

	if isLocalhost(hostname) {
		return errors.New("localhost access blocked")
	}
	if ip := net.ParseIP(hostname); ip != nil && isPrivateIP(ip) {
		return errors.Newf("private IP address blocked: %s", hostname)
	}
	return nil
}

var specialIPv4 = []net.IPNet{
	{IP: net.IPv4(0, 0, 0, 0), Mask: net.CIDRMask(8, 32)},
	{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}, // carrier-grade NAT
	{IP: net.IPv4(240, 0, 0, 0), Mask: net.CIDRMask(4, 32)},
}

// isPrivateIP reports loopback, private, link-local, multicast, unspecified and
// reserved addresses.
func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsMulticast() || ip.IsUnspecified() {
		return true
	}

	if ip4 := ip.To4(); ip4 != nil {
		for _, block := range specialIPv4 {
			if block.Contains(ip4) {
				return true
			}
		}
		return false
	}

	// fec0::/10 site-local and 2001:db8::/32 documentation
	if ip[0] == 0xfe && ip[1]&0xc0 == 0xc0 {
		return true
	}
	return ip[0] == 0x20 && ip[1] == 0x01 && ip[2] == 0x0d && ip[3] == 0xb8
}

func isLocalhost(hostname string) bool {
	hostname = strings.ToLower(hostname)
	return hostname == "localhost" ||
		hostname == "localhost.localdomain" ||
		strings.HasSuffix(hostname, ".localhost")
}
