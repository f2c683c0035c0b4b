package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every key written by swrangler.
const KeyPrefix = "swrangler"

// Key identifies one cached listing page.
type Key struct {
	// Scope separates tenants sharing one Redis (usually the site domain).
	Scope string

	// Endpoint is the API path, e.g. "/wiki/rest/api/space".
	Endpoint string

	// Query holds the request parameters.
	Query url.Values
}

// String generates a deterministic key.
// Format: swrangler:scope:endpoint:param1=val1:param2=val2
//
// Example:
//
//	swrangler:acme.atlassian.net:wiki/rest/api/space:limit=100:start=0
func (k Key) String() string {
	parts := []string{KeyPrefix}

	if k.Scope != "" {
		parts = append(parts, k.Scope)
	}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.Query) > 0 {
		keys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.Query[key], ",")))
		}
	}

	return strings.Join(parts, ":")
}
