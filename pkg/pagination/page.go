package pagination

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Item is a single listing result. Its content is opaque to the fetcher.
type Item map[string]any

// ID returns the item's "id" field as a string.
func (i Item) ID() string {
	switch v := i["id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Path walks a dotted path ("history.ownedBy.displayName") through nested
// objects.
func (i Item) Path(path string) (any, bool) {
	var cur any = map[string]any(i)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the string at path, or "" when missing or not a string.
func (i Item) String(path string) string {
	v, ok := i.Path(path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Items returns the slice at path converted to Items.
func (i Item) Items(path string) []Item {
	v, ok := i.Path(path)
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Item, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]any); ok {
			out = append(out, Item(m))
		}
	}
	return out
}

// Links carries the navigation block of a listing response.
type Links struct {
	Next    string `json:"next,omitempty"`
	Base    string `json:"base,omitempty"`
	Context string `json:"context,omitempty"`
	Self    string `json:"self,omitempty"`
}

// Page is one response of a listing endpoint.
type Page struct {
	Results []Item `json:"results"`
	Start   int    `json:"start"`
	Limit   int    `json:"limit"`
	Size    int    `json:"size"`
	Links   Links  `json:"_links"`
}

// HasNext reports whether the server announced another page.
func (p *Page) HasNext() bool {
	return p.Links.Next != ""
}

// Lister performs one listing call for endpoint with the given parameters.
type Lister interface {
	List(ctx context.Context, endpoint string, params *Params) (*Page, error)
}
