package validation

import (
	"context"
	"net"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"video-generation-api/internal/domain"
)

const maxURLLen = 2000

// Address ranges a fetched URL must never resolve into. The check runs on
// the RESOLVED address, not the hostname string: hostname denylisting alone
// is bypassable via DNS rebinding or alternate loopback literals.
var blockedNetworks = mustParseCIDRs(
	"127.0.0.0/8",    // loopback
	"10.0.0.0/8",     // RFC1918
	"172.16.0.0/12",  // RFC1918
	"192.168.0.0/16", // RFC1918
	"169.254.0.0/16", // link-local (cloud metadata)
	"::1/128",        // v6 loopback
	"fc00::/7",       // v6 unique-local
	"fe80::/10",      // v6 link-local
)

var blockedHostnames = map[string]struct{}{
	"localhost":                {},
	"0.0.0.0":                  {},
	"metadata.google.internal": {},
	"metadata":                 {},
}

var suspiciousSchemes = []string{"file://", "ftp://", "gopher://", "dict://"}

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}

// IsPrivateIP reports whether ip falls in any blocked range.
func IsPrivateIP(ip net.IP) bool {
	for _, n := range blockedNetworks {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// lookupFunc mirrors net.Resolver.LookupIPAddr; injected in tests to
// simulate rebinding without real DNS.
type lookupFunc func(ctx context.Context, host string) ([]net.IPAddr, error)

// URLValidator performs SSRF-safe URL validation. DNS resolution is the
// only I/O and is bounded by its own timeout so a slow resolver cannot
// stall unrelated requests.
type URLValidator struct {
	lookup  lookupFunc
	timeout time.Duration
}

func NewURLValidator() *URLValidator {
	var r net.Resolver
	return &URLValidator{lookup: r.LookupIPAddr, timeout: 5 * time.Second}
}

// NewURLValidatorWithLookup substitutes the resolver, for callers that
// must not touch real DNS.
func NewURLValidatorWithLookup(lookup func(ctx context.Context, host string) ([]net.IPAddr, error)) *URLValidator {
	return &URLValidator{lookup: lookup, timeout: 5 * time.Second}
}

// ValidateImageSource returns the URL unchanged when it is safe to fetch.
func (v *URLValidator) ValidateImageSource(ctx context.Context, raw string) (string, error) {
	return v.validate(ctx, raw, "image URL")
}

// ValidateWebhookURL applies the same scheme and SSRF checks; webhooks are
// outbound requests too.
func (v *URLValidator) ValidateWebhookURL(ctx context.Context, raw string) (string, error) {
	return v.validate(ctx, raw, "webhook URL")
}

func (v *URLValidator) validate(ctx context.Context, raw, what string) (string, error) {
	if raw == "" {
		return "", domain.Validationf("%s is required", what)
	}
	if utf8.RuneCountInString(raw) > maxURLLen {
		return "", domain.Validationf("%s too long (max %d characters)", what, maxURLLen)
	}

	lower := strings.ToLower(raw)
	for _, scheme := range suspiciousSchemes {
		if strings.Contains(lower, scheme) {
			return "", domain.Validationf("suspicious pattern detected in %s", what)
		}
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", domain.Validationf("invalid %s format", what)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", domain.Validationf("invalid URL scheme %q: only http/https allowed", parsed.Scheme)
	}
	host := parsed.Hostname()
	if host == "" {
		return "", domain.Validationf("%s must have a hostname", what)
	}
	if parsed.User != nil || strings.Contains(raw, "@") {
		return "", domain.Validationf("suspicious pattern detected in %s", what)
	}
	if _, blocked := blockedHostnames[strings.ToLower(host)]; blocked {
		return "", domain.Validationf("blocked hostname")
	}

	lctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	addrs, err := v.lookup(lctx, host)
	if err != nil || len(addrs) == 0 {
		return "", domain.Validationf("could not resolve hostname")
	}
	for _, a := range addrs {
		if IsPrivateIP(a.IP) {
			return "", domain.Validationf("private or internal addresses are not allowed")
		}
	}
	return raw, nil
}
