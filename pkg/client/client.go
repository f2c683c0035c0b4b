// Package client provides the authenticated HTTP client for the Confluence
// Cloud REST API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/swrangler/pkg/cache"
	"github.com/Sternrassler/swrangler/pkg/pagination"
	"github.com/Sternrassler/swrangler/pkg/ratelimit"
	"github.com/Sternrassler/swrangler/pkg/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for API requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swrangler_requests_total",
		Help: "Total Confluence API requests by route and status",
	}, []string{"route", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swrangler_request_duration_seconds",
		Help:    "Confluence API request duration in seconds by route",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 75},
	}, []string{"route"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swrangler_errors_total",
		Help: "Total Confluence API errors by class",
	}, []string{"class"})
)

// Client is an authenticated Confluence API client. It is safe for
// concurrent use.
type Client struct {
	httpClient *http.Client
	domain     string
	cache      *cache.Manager
	limits     *ratelimit.Tracker
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Domain is the site root, e.g. "https://acme.atlassian.net".
	// A missing scheme defaults to https.
	Domain string

	// User and Token are the Basic auth credentials (account email and
	// API token).
	User  string
	Token string

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// Cache, when set, stores listing pages.
	Cache *cache.Manager
}

// DefaultConfig returns a configuration with default timeout and user agent.
func DefaultConfig(domain, user, token string) Config {
	return Config{
		Domain:    domain,
		User:      user,
		Token:     token,
		Timeout:   75 * time.Second,
		UserAgent: "swrangler",
	}
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// New creates a client. Missing credentials yield a *ConfigurationError
// naming every unset variable.
func New(cfg Config) (*Client, error) {
	var missing []string
	if strings.TrimSpace(cfg.User) == "" {
		missing = append(missing, EnvUser)
	}
	if strings.TrimSpace(cfg.Token) == "" {
		missing = append(missing, EnvToken)
	}
	if strings.TrimSpace(cfg.Domain) == "" {
		missing = append(missing, EnvDomain)
	}
	if len(missing) > 0 {
		return nil, &ConfigurationError{Missing: missing}
	}

	domain, err := normalizeDomain(cfg.Domain)
	if err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 75 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "swrangler"
	}

	logger := log.With().Str("component", "confluence-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		domain: domain,
		cache:  cfg.Cache,
		limits: ratelimit.NewTracker(logger),
		config: cfg,
		logger: logger,
	}, nil
}

func normalizeDomain(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", EnvDomain, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%s has no host: %q", EnvDomain, raw)
	}
	return u.Scheme + "://" + u.Host, nil
}

// Domain returns the normalized site root without a trailing slash.
func (c *Client) Domain() string {
	return c.domain
}

// CacheScope returns the cache key scope of this site (its host).
func (c *Client) CacheScope() string {
	return hostOf(c.domain)
}

// BaseURL returns the wiki root used to build page and profile links.
func (c *Client) BaseURL() string {
	return c.domain + "/wiki"
}

// RateLimit returns the latest rate limit state seen on any response.
func (c *Client) RateLimit() ratelimit.State {
	return c.limits.State()
}

// Get performs an authenticated GET of path (relative to the domain) with
// an already encoded query. Any received response is returned regardless of
// status; only transport failures produce an error, as *TransportError.
func (c *Client) Get(ctx context.Context, path, rawQuery string) (*Response, error) {
	route := routeLabel(path)
	ctx, span := tracing.StartSpan(ctx, "confluence.Get")
	defer span.End()

	target := c.domain + path
	if rawQuery != "" {
		target += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.config.User, c.config.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(route, "network_error").Inc()
		tracing.AddRequestAttributes(span, path, 0)
		tracing.RecordError(span, err)
		c.logger.Debug().Err(err).Str("endpoint", path).Msg("HTTP request failed")
		return nil, &TransportError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(route, "network_error").Inc()
		tracing.RecordError(span, err)
		return nil, &TransportError{Endpoint: path, Err: fmt.Errorf("read body: %w", err)}
	}

	c.limits.Observe(resp.Header)
	requestsTotal.WithLabelValues(route, strconv.Itoa(resp.StatusCode)).Inc()
	tracing.AddRequestAttributes(span, path, resp.StatusCode)
	if class := ClassifyStatus(resp.StatusCode); class != "" {
		errorsTotal.WithLabelValues(string(class)).Inc()
	}

	c.logger.Debug().
		Str("endpoint", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Request complete")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// List performs one listing call and decodes the page. Non-2xx responses
// become *APIError. When a cache is configured, pages are served from and
// stored to it.
func (c *Client) List(ctx context.Context, endpoint string, params *pagination.Params) (*pagination.Page, error) {
	rawQuery := ""
	var key cache.Key
	if params != nil {
		rawQuery = params.Encode()
		key = cache.Key{Scope: c.CacheScope(), Endpoint: endpoint, Query: params.Values()}
	} else {
		key = cache.Key{Scope: c.CacheScope(), Endpoint: endpoint}
	}

	if c.cache != nil {
		entry, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			page, decErr := decodePage(entry.Data)
			if decErr == nil {
				c.logger.Debug().Str("endpoint", endpoint).Dur("age", entry.Age()).Msg("Listing served from cache")
				return page, nil
			}
			c.logger.Warn().Err(decErr).Str("endpoint", endpoint).Msg("Discarding undecodable cache entry")
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	resp, err := c.Get(ctx, endpoint, rawQuery)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ClassifyStatus(resp.StatusCode),
			Endpoint:   endpoint,
			Message:    errorMessage(resp.Body),
		}
	}

	page, err := decodePage(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", endpoint, err)
	}

	if c.cache != nil {
		if err := c.cache.Store(ctx, key, resp.Body); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to cache listing page")
		}
	}

	return page, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

func decodePage(data []byte) (*pagination.Page, error) {
	var page pagination.Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// errorMessage extracts "message" from an error body, else a short prefix.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

func hostOf(domain string) string {
	if u, err := url.Parse(domain); err == nil {
		return u.Host
	}
	return domain
}

var (
	numericSegment = regexp.MustCompile(`/\d+(/|$)`)
	spaceSegment   = regexp.MustCompile(`/space/[^/]+/`)
)

// routeLabel collapses ids and space keys so metric labels stay bounded.
func routeLabel(path string) string {
	r := spaceSegment.ReplaceAllString(path, "/space/{key}/")
	for numericSegment.MatchString(r) {
		r = numericSegment.ReplaceAllString(r, "/{id}$1")
	}
	return r
}
