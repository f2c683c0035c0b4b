// Package confluence composes the listing fetcher and analytics collector
// into the space-level operations used by the exporters.
package confluence

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Sternrassler/swrangler/pkg/analytics"
	"github.com/Sternrassler/swrangler/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultPageLimit is the listing page size.
const DefaultPageLimit = 100

// PageExpand selects the page fields the exporters read.
const PageExpand = "body.storage,ancestors,history.ownedBy,history.lastUpdated,version"

// SpacesEndpoint lists all spaces.
const SpacesEndpoint = "/wiki/rest/api/space"

// SpaceContentEndpoint returns the page listing endpoint of a space.
func SpaceContentEndpoint(spaceKey string) string {
	return "/wiki/rest/api/space/" + url.PathEscape(spaceKey) + "/content/page"
}

// API is the Confluence surface the service needs. *client.Client
// implements it.
type API interface {
	pagination.Lister
	analytics.Getter
	BaseURL() string
}

// Config holds service configuration.
type Config struct {
	// PageLimit is the listing page size.
	PageLimit int

	// Analytics configures the collector.
	Analytics analytics.Config
}

// DefaultConfig returns page size 100 and the default collector config.
func DefaultConfig() Config {
	return Config{
		PageLimit: DefaultPageLimit,
		Analytics: analytics.DefaultConfig(),
	}
}

// Service runs space-level listing and analytics operations.
type Service struct {
	api       API
	pages     *pagination.Fetcher
	spaces    *pagination.Fetcher
	collector *analytics.Collector
	config    Config
	logger    zerolog.Logger
}

// NewService creates a service on top of api.
func NewService(api API, config Config) (*Service, error) {
	if config.PageLimit < 1 {
		config.PageLimit = DefaultPageLimit
	}

	collector, err := analytics.NewCollector(api, config.Analytics)
	if err != nil {
		return nil, err
	}

	return &Service{
		api:   api,
		pages: pagination.NewFetcher(api, pagination.DefaultConfig()),
		spaces: pagination.NewFetcher(api, pagination.Config{
			IgnoreKeys: []string{"next", "type", "status"},
		}),
		collector: collector,
		config:    config,
		logger:    log.With().Str("component", "confluence").Logger(),
	}, nil
}

// BaseURL returns the wiki root used for report links.
func (s *Service) BaseURL() string {
	return s.api.BaseURL()
}

// Collector returns the analytics collector.
func (s *Service) Collector() *analytics.Collector {
	return s.collector
}

// SpacePages returns every page of a space in server order.
func (s *Service) SpacePages(ctx context.Context, spaceKey string) ([]pagination.Item, error) {
	s.logger.Info().
		Str("space_key", spaceKey).
		Int("limit", s.config.PageLimit).
		Msg("Fetching space pages")

	params := pagination.NewParams().
		Set("depth", "all").
		SetInt("start", 0).
		SetInt("limit", s.config.PageLimit).
		Set("expand", PageExpand)

	pages, err := s.pages.FetchAll(ctx, SpaceContentEndpoint(spaceKey), params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pages for %s: %w", spaceKey, err)
	}
	return pages, nil
}

// AllSpaces returns every current space.
func (s *Service) AllSpaces(ctx context.Context) ([]pagination.Item, error) {
	s.logger.Info().Int("limit", s.config.PageLimit).Msg("Fetching spaces")

	params := pagination.NewParams().
		SetInt("start", 0).
		SetInt("limit", s.config.PageLimit).
		Set("status", "current").
		Set("expand", "history")

	spaces, err := s.spaces.FetchAll(ctx, SpacesEndpoint, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch spaces: %w", err)
	}
	return spaces, nil
}

// PageAnalytics holds both counters of a set of pages.
type PageAnalytics struct {
	Viewers analytics.Result
	Views   analytics.Result
}

// PageAnalytics collects viewers, then views, for ids. On cancellation it
// returns what was collected with ctx's error.
func (s *Service) PageAnalytics(ctx context.Context, ids []string) (PageAnalytics, error) {
	var out PageAnalytics

	viewers, err := s.collector.Collect(ctx, ids, analytics.KindViewers)
	out.Viewers = viewers
	if err != nil {
		return out, err
	}

	views, err := s.collector.Collect(ctx, ids, analytics.KindViews)
	out.Views = views
	return out, err
}

// IDs returns the ids of items in order.
func IDs(items []pagination.Item) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID())
	}
	return ids
}
