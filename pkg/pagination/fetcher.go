package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/swrangler/pkg/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swrangler_listing_pages_total",
		Help: "Listing pages fetched by endpoint",
	}, []string{"endpoint"})

	itemsFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swrangler_listing_items_total",
		Help: "Listing items accumulated by endpoint",
	}, []string{"endpoint"})
)

// Config holds fetcher configuration.
type Config struct {
	// IgnoreKeys are continuation parameters never copied into the
	// request parameters (e.g. "next" or a fixed "status" filter).
	IgnoreKeys []string
}

// DefaultConfig ignores only the "next" marker.
func DefaultConfig() Config {
	return Config{IgnoreKeys: []string{"next"}}
}

// Fetcher walks a paginated listing endpoint to completion.
// It is sequential; one listing call is in flight at a time.
type Fetcher struct {
	lister Lister
	config Config
	logger zerolog.Logger
}

// NewFetcher creates a fetcher on top of lister.
func NewFetcher(lister Lister, config Config) *Fetcher {
	return &Fetcher{
		lister: lister,
		config: config,
		logger: log.With().Str("component", "pagination").Logger(),
	}
}

// FetchAll requests endpoint with initial, then follows continuation links
// until a page without one. Results are returned in server order.
//
// initial is not modified. Any listing error aborts the walk; nothing is
// retried here.
func (f *Fetcher) FetchAll(ctx context.Context, endpoint string, initial *Params) ([]Item, error) {
	ctx, span := tracing.StartSpan(ctx, "pagination.FetchAll")
	defer span.End()
	span.SetAttributes(attribute.String("confluence.endpoint", endpoint))

	start := time.Now()
	params := NewParams()
	if initial != nil {
		params = initial.Clone()
	}

	var items []Item
	pages := 0
	for {
		page, err := f.lister.List(ctx, endpoint, params)
		if err != nil {
			tracing.RecordError(span, err)
			f.logger.Error().
				Err(err).
				Str("endpoint", endpoint).
				Int("page", pages+1).
				Int("items", len(items)).
				Msg("Listing request failed")
			return nil, fmt.Errorf("fetch %s page %d: %w", endpoint, pages+1, err)
		}
		pages++
		pagesFetchedTotal.WithLabelValues(endpoint).Inc()
		itemsFetchedTotal.WithLabelValues(endpoint).Add(float64(len(page.Results)))
		items = append(items, page.Results...)

		if !page.HasNext() {
			break
		}

		if err := MergeContinuation(page.Links.Next, params, f.config.IgnoreKeys...); err != nil {
			tracing.RecordError(span, err)
			return nil, fmt.Errorf("fetch %s: %w", endpoint, err)
		}

		f.logger.Debug().
			Str("endpoint", endpoint).
			Int("page", pages).
			Str("next", page.Links.Next).
			Msg("Following continuation link")
	}

	span.SetAttributes(attribute.Int("pagination.pages", pages), attribute.Int("pagination.items", len(items)))
	f.logger.Info().
		Str("endpoint", endpoint).
		Int("pages", pages).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return items, nil
}
