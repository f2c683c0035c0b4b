package pagination

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Params is an ordered set of listing query parameters.
// Keys keep their insertion order when encoded.
type Params struct {
	keys   []string
	values map[string]string
}

// NewParams returns an empty parameter set.
func NewParams() *Params {
	return &Params{values: make(map[string]string)}
}

// Set stores value under key, replacing any previous value.
func (p *Params) Set(key, value string) *Params {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
	return p
}

// SetInt stores an integer value under key.
func (p *Params) SetInt(key string, value int) *Params {
	return p.Set(key, strconv.Itoa(value))
}

// Get returns the value stored under key.
func (p *Params) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Keys returns the parameter names in insertion order.
func (p *Params) Keys() []string {
	return slices.Clone(p.keys)
}

// Len returns the number of parameters.
func (p *Params) Len() int {
	return len(p.keys)
}

// Clone returns an independent copy.
func (p *Params) Clone() *Params {
	c := &Params{
		keys:   slices.Clone(p.keys),
		values: make(map[string]string, len(p.values)),
	}
	for k, v := range p.values {
		c.values[k] = v
	}
	return c
}

// Map returns the parameters as a plain map.
func (p *Params) Map() map[string]string {
	m := make(map[string]string, len(p.values))
	for k, v := range p.values {
		m[k] = v
	}
	return m
}

// Values converts the parameters to url.Values.
func (p *Params) Values() url.Values {
	v := make(url.Values, len(p.values))
	for _, k := range p.keys {
		v.Set(k, p.values[k])
	}
	return v
}

// Encode renders the parameters as a query string in insertion order.
func (p *Params) Encode() string {
	var b strings.Builder
	for i, k := range p.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.values[k]))
	}
	return b.String()
}

// MergeContinuation folds the query of a continuation link into params.
//
// Every key in the continuation that is not listed in ignore replaces the
// current value of params: a single occurrence is taken as is, repeated
// occurrences are joined with ",". Keys without a non-blank value are skipped.
// Keys absent from the continuation keep their current value.
func MergeContinuation(next string, params *Params, ignore ...string) error {
	u, err := url.Parse(next)
	if err != nil {
		return fmt.Errorf("parse continuation %q: %w", next, err)
	}

	keys, values, err := parseQuery(u.RawQuery)
	if err != nil {
		return fmt.Errorf("parse continuation query %q: %w", u.RawQuery, err)
	}

	for _, k := range keys {
		if slices.Contains(ignore, k) {
			continue
		}
		vs := values[k]
		if len(vs) == 1 {
			params.Set(k, vs[0])
		} else {
			params.Set(k, strings.Join(vs, ","))
		}
	}
	return nil
}

// parseQuery decodes a raw query keeping first-appearance key order.
// Pairs with an empty value or without "=" are dropped.
func parseQuery(raw string) ([]string, map[string][]string, error) {
	var keys []string
	values := make(map[string][]string)

	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok || v == "" {
			continue
		}
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, nil, err
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			return nil, nil, err
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = append(values[key], val)
	}
	return keys, values, nil
}
