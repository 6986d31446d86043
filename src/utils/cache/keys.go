package cache

import (
	"fmt"
	"sort"
	"strings"
)

// Cache key domains. Keys are built as "domain:k=v|k=v" with
// parameters sorted by name, so the same query always maps to the
// same key and a write can invalidate a whole domain by prefix.
const (
	DomainProfile              = "profile"
	DomainStats                = "stats"
	DomainItems                = "items"
	DomainNearbyItems          = "nearby-items"
	DomainClaims               = "claims"
	DomainCollaborations       = "collaborations"
	DomainCollaborationDetails = "collaboration-details"
	DomainStories              = "stories"
)

// Key builds a deterministic cache key from query parameters.
func Key(domain string, params map[string]any) string {
	if len(params) == 0 {
		return domain + ":"
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(domain)
	b.WriteByte(':')
	for i, name := range names {
		if i > 0 {
			b.WriteByte('|')
		}
		fmt.Fprintf(&b, "%s=%v", name, params[name])
	}
	return b.String()
}

// Prefix returns the invalidation prefix covering every key of the domain.
func Prefix(domain string) string {
	return domain + ":"
}

// UserKey builds a key scoped to one user, so a write affecting that
// user can invalidate just their listings.
func UserKey(domain, userId string, params map[string]any) string {
	return UserPrefix(domain, userId) + "|" + strings.TrimPrefix(Key(domain, params), domain+":")
}

// UserPrefix covers every key of the domain belonging to one user.
func UserPrefix(domain, userId string) string {
	return fmt.Sprintf("%s:u=%s", domain, userId)
}
