package domain

import (
	"strings"
)

const (
	MinSubdomainLength = 3
	MaxSubdomainLength = 63
)

var reservedSubdomains = map[string]struct{}{
	"www":       {},
	"app":       {},
	"api":       {},
	"admin":     {},
	"dashboard": {},
	"auth":      {},
}

// NormalizeSubdomain lowercases raw and drops every character outside
// [a-z0-9-]. The result is validated for length and reserved names.
func NormalizeSubdomain(raw string) (string, error) {
	lowered := strings.ToLower(raw)
	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	normalized := b.String()

	if len(normalized) < MinSubdomainLength {
		return "", ErrSubdomainTooShort
	}
	if len(normalized) > MaxSubdomainLength {
		return "", ErrSubdomainTooLong
	}
	if IsReservedSubdomain(normalized) {
		return "", ErrSubdomainReserved
	}
	return normalized, nil
}

func IsReservedSubdomain(label string) bool {
	_, ok := reservedSubdomains[label]
	return ok
}

// NormalizeDomain lowercases a hostname and strips a trailing dot and port.
func NormalizeDomain(raw string) string {
	host := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.LastIndex(host, ":"); i != -1 && !strings.Contains(host[i:], "]") {
		host = host[:i]
	}
	return strings.TrimSuffix(host, ".")
}
