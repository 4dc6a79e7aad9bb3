package domain

import (
	"net"
	"regexp"
	"strings"
)

// labelRegex validates a single DNS label.
// Rules: 1-63 characters, lowercase letters, numbers and hyphens.
// Must start and end with letter or number.
var labelRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// maxDomainLength is the longest host name DNS allows.
const maxDomainLength = 253

// NormalizeHost lower-cases a Host header value and strips the port and
// any trailing dot, so "Kitty.CATS.:8080" becomes "kitty.cats".
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	return strings.ToLower(host)
}

// TenantRules describes which host names belong to tenant space.
type TenantRules struct {
	// Suffix marks a host as tenant space, including the leading dot (".cats").
	Suffix string

	// RegisterHost is the operator host serving the registration portal.
	RegisterHost string

	// DashboardHost is the operator host serving the dashboard portal.
	DashboardHost string
}

// IsTenantHost reports whether the normalized host lies in tenant space.
func (r TenantRules) IsTenantHost(host string) bool {
	return len(host) > len(r.Suffix) && strings.HasSuffix(host, r.Suffix)
}

// IsReserved reports whether the host is one of the operator portals.
func (r TenantRules) IsReserved(host string) bool {
	return host == r.RegisterHost || host == r.DashboardHost
}

// ValidateDomain normalizes a requested domain and checks that it can be
// claimed by a tenant. It returns the normalized domain.
func (r TenantRules) ValidateDomain(name string) (string, error) {
	domain := NormalizeHost(name)

	if domain == "" || len(domain) > maxDomainLength {
		return "", NewDomainError(ErrInvalidDomain, "domain length must be between 1 and 253 characters", name)
	}

	if !r.IsTenantHost(domain) {
		return "", NewDomainError(ErrInvalidDomain, "domain must end with "+r.Suffix, name)
	}

	if r.IsReserved(domain) {
		return "", NewDomainError(ErrInvalidDomain, "domain is reserved", name)
	}

	for _, label := range strings.Split(domain, ".") {
		if !labelRegex.MatchString(label) {
			return "", NewDomainError(ErrInvalidDomain, "domain labels must contain only lowercase letters, numbers, and hyphens", name)
		}
	}

	return domain, nil
}
