package events

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	"spot/internal/metrics"
	"spot/models"
	"spot/services/ticketmaster"
)

// SegmentEverything lists events of every segment.
const SegmentEverything = "everything"

// ErrNotConfigured is returned before any network call when the search
// provider has no API key.
var ErrNotConfigured = errors.New("event search is not configured")

// Searcher runs one provider search.
type Searcher interface {
	IsConfigured() bool
	SearchEvents(ctx context.Context, q ticketmaster.Query) ([]ticketmaster.Event, error)
}

var _ Searcher = (*ticketmaster.Client)(nil)

// Options configures an Aggregator. Zero values get defaults.
type Options struct {
	PageSize       int
	MaxConcurrency int
	DefaultCountry string
	Countries      *CountryCodes

	// CacheFS enables the sub-query cache when set together with a positive CacheTTL.
	CacheFS  afero.Fs
	CacheDir string
	CacheTTL time.Duration
}

// Aggregator merges category-scoped searches into one deduplicated, date-sorted list.
type Aggregator struct {
	searcher       Searcher
	countries      CountryCodes
	defaultCountry string
	pageSize       int
	maxConcurrency int
	cache          *responseCache
}

func NewAggregator(searcher Searcher, opts Options) *Aggregator {
	countries := DefaultCountryCodes()
	if opts.Countries != nil {
		countries = *opts.Countries
	}
	if opts.DefaultCountry == "" {
		opts.DefaultCountry = "US"
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 4
	}
	return &Aggregator{
		searcher:       searcher,
		countries:      countries,
		defaultCountry: strings.ToUpper(opts.DefaultCountry),
		pageSize:       opts.PageSize,
		maxConcurrency: opts.MaxConcurrency,
		cache:          newResponseCache(opts.CacheFS, opts.CacheDir, opts.CacheTTL),
	}
}

// ResolveCountry maps a country name to its code, falling back to the default.
func (a *Aggregator) ResolveCountry(name string) string {
	return a.countries.Resolve(name, a.defaultCountry)
}

// AggregateRequest is the input of one aggregation run.
type AggregateRequest struct {
	City        string
	CountryCode string
	Categories  []string
}

// SubQueryResult is the outcome of one sub-query. Exactly one of Events or Err
// is meaningful.
type SubQueryResult struct {
	Query  ticketmaster.Query
	Events []models.Event
	Err    error
	Cached bool
}

// OK reports whether the sub-query succeeded.
func (r SubQueryResult) OK() bool {
	return r.Err == nil
}

// AggregateResult holds the merged events and every sub-query outcome.
type AggregateResult struct {
	Events     []models.Event
	SubQueries []SubQueryResult
}

// Failed returns the number of failed sub-queries.
func (r AggregateResult) Failed() int {
	n := 0
	for _, sq := range r.SubQueries {
		if !sq.OK() {
			n++
		}
	}
	return n
}

// Queries returns the base query followed by one query per non-empty category.
func (a *Aggregator) Queries(req AggregateRequest) []ticketmaster.Query {
	base := ticketmaster.Query{
		City:        strings.TrimSpace(req.City),
		CountryCode: strings.TrimSpace(req.CountryCode),
		Size:        a.pageSize,
	}
	queries := []ticketmaster.Query{base}
	for _, category := range req.Categories {
		category = strings.TrimSpace(category)
		if category == "" {
			continue
		}
		q := base
		q.SegmentName = category
		queries = append(queries, q)
	}
	return queries
}

// Aggregate runs every sub-query and merges the results. Failed sub-queries are
// logged and left out; only a missing API key or a cancelled context is
// returned as an error.
func (a *Aggregator) Aggregate(ctx context.Context, req AggregateRequest) (AggregateResult, error) {
	if !a.searcher.IsConfigured() {
		return AggregateResult{}, ErrNotConfigured
	}

	queries := a.Queries(req)
	results := make([]SubQueryResult, len(queries))

	p := pool.New().WithMaxGoroutines(a.maxConcurrency)
	for i, q := range queries {
		p.Go(func() {
			results[i] = a.runQuery(ctx, q)
		})
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		return AggregateResult{SubQueries: results}, err
	}

	merged := Merge(results)
	SortByStart(merged)

	log.Printf("[events] aggregated %d events from %d sub-queries (%d failed)", len(merged), len(results), AggregateResult{SubQueries: results}.Failed())
	return AggregateResult{Events: merged, SubQueries: results}, nil
}

// ListSegment runs a single search, optionally scoped to one segment.
// Unlike Aggregate, a failed search is returned to the caller.
func (a *Aggregator) ListSegment(ctx context.Context, segment, city, countryCode string) ([]models.Event, error) {
	if !a.searcher.IsConfigured() {
		return nil, ErrNotConfigured
	}
	q := ticketmaster.Query{
		City:        strings.TrimSpace(city),
		CountryCode: strings.TrimSpace(countryCode),
		Size:        a.pageSize,
	}
	if seg := strings.TrimSpace(segment); seg != "" && !strings.EqualFold(seg, SegmentEverything) {
		q.SegmentName = seg
	}
	res := a.runQuery(ctx, q)
	if res.Err != nil {
		return nil, res.Err
	}
	events := Merge([]SubQueryResult{res})
	SortByStart(events)
	return events, nil
}

func (a *Aggregator) runQuery(ctx context.Context, q ticketmaster.Query) SubQueryResult {
	key := cacheKey("tm", q.Key())
	var cached []models.Event
	if ok, _ := a.cache.get(key, &cached); ok {
		metrics.SubQueries.WithLabelValues("cached").Inc()
		return SubQueryResult{Query: q, Events: cached, Cached: true}
	}

	raw, err := a.searcher.SearchEvents(ctx, q)
	if err != nil {
		metrics.SubQueries.WithLabelValues("error").Inc()
		log.Printf("[events] sub-query %s failed: %v", describeQuery(q), err)
		return SubQueryResult{Query: q, Err: fmt.Errorf("sub-query %s: %w", describeQuery(q), err)}
	}
	metrics.SubQueries.WithLabelValues("ok").Inc()

	mapped := make([]models.Event, 0, len(raw))
	for _, e := range raw {
		mapped = append(mapped, ticketmaster.MapEvent(e))
	}
	if err := a.cache.set(key, mapped); err != nil {
		log.Printf("[events] cache write failed for %s: %v", describeQuery(q), err)
	}
	return SubQueryResult{Query: q, Events: mapped}
}

// ClearCache drops every cached sub-query page.
func (a *Aggregator) ClearCache() error {
	return a.cache.clear()
}

func describeQuery(q ticketmaster.Query) string {
	segment := q.SegmentName
	if segment == "" {
		segment = "base"
	}
	return fmt.Sprintf("%s (city=%q country=%s)", segment, q.City, q.CountryCode)
}

// Merge concatenates successful results in order, keeping the first record
// seen for each id. Records without an id are dropped.
func Merge(results []SubQueryResult) []models.Event {
	seen := make(map[string]struct{})
	merged := make([]models.Event, 0)
	for _, r := range results {
		if !r.OK() {
			continue
		}
		for _, e := range r.Events {
			if e.ID == "" {
				continue
			}
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			merged = append(merged, e)
		}
	}
	return merged
}

// SortByStart orders events by start timestamp, ascending. Events without a
// timestamp keep their relative order and go last.
func SortByStart(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].StartsAt, events[j].StartsAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}
