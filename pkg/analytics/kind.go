package analytics

import (
	"fmt"
	"net/url"
	"strings"
)

// MetricKind selects which analytics counter is requested for a page.
type MetricKind string

const (
	// KindViewers counts distinct users who viewed the page.
	KindViewers MetricKind = "viewers"

	// KindViews counts total page views.
	KindViews MetricKind = "views"
)

// ParseMetricKind validates a kind name.
func ParseMetricKind(s string) (MetricKind, error) {
	switch k := MetricKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindViewers, KindViews:
		return k, nil
	default:
		return "", fmt.Errorf("unknown analytics kind %q (want %q or %q)", s, KindViewers, KindViews)
	}
}

// Valid reports whether k is a known kind.
func (k MetricKind) Valid() bool {
	return k == KindViewers || k == KindViews
}

// Path returns the analytics endpoint for a content id.
func (k MetricKind) Path(contentID string) string {
	return "/wiki/rest/api/analytics/content/" + url.PathEscape(contentID) + "/" + string(k)
}
