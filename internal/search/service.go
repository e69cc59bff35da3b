package search

import (
	"context"
	"errors"

	"github.com/Cyclone1070/gearsearch/internal/product"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Store persists live results and the query log. *catalog.Catalog is one.
type Store interface {
	Upsert(ctx context.Context, products []product.Product) error
	RecordQuery(ctx context.Context, text string) error
}

type ServiceOptions struct {
	Router         *Router
	Cache          *Cache
	Store          Store
	Logger         zerolog.Logger
	Metrics        *Metrics
	MaxConcurrency int
}

// Service answers a set of queries with one merged, ranked product list.
type Service struct {
	router         *Router
	cache          *Cache
	store          Store
	logger         zerolog.Logger
	metrics        *Metrics
	maxConcurrency int
}

func NewService(opts ServiceOptions) *Service {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	return &Service{
		router:         opts.Router,
		cache:          opts.Cache,
		store:          opts.Store,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
		maxConcurrency: opts.MaxConcurrency,
	}
}

// Dedupe normalizes queries and drops repeats. Order is kept. A query with
// no text is an unfiltered search and stays.
func Dedupe(queries []product.Query) []product.Query {
	seen := make(map[string]bool, len(queries))
	out := make([]product.Query, 0, len(queries))
	for _, q := range queries {
		q = q.Normalize()
		key := q.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
	}
	return out
}

// Search runs every distinct query, at most maxConcurrency at a time, and
// merges the answers in query order. Products repeating an earlier link are
// dropped, and the list is cut to the largest query limit and re-ranked.
// A query that fails contributes nothing; only when all fail is the first
// error returned.
func (s *Service) Search(ctx context.Context, queries []product.Query) ([]product.Product, error) {
	queries = Dedupe(queries)
	if len(queries) == 0 {
		return nil, ErrEmptyQuery
	}
	if s.router == nil {
		return nil, ErrNoProviders
	}

	answers := make([][]product.Product, len(queries))
	errs := make([]error, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)
	for i, q := range queries {
		g.Go(func() error {
			answers[i], errs[i] = s.searchOne(gctx, q)
			return nil
		})
	}
	g.Wait()

	limit := 0
	failed := 0
	for i, q := range queries {
		limit = max(limit, q.Limit)
		if errs[i] != nil {
			failed++
		}
	}
	if failed == len(queries) {
		return nil, errors.Join(errs...)
	}

	seenLinks := make(map[string]bool)
	merged := []product.Product{}
	for i, q := range queries {
		for _, p := range answers[i] {
			if q.MaxPrice > 0 && p.Price > q.MaxPrice {
				continue
			}
			if p.Link != "" {
				if seenLinks[p.Link] {
					continue
				}
				seenLinks[p.Link] = true
			}
			merged = append(merged, p)
		}
	}
	return product.Finalize(merged, product.Query{Limit: limit}), nil
}

func (s *Service) searchOne(ctx context.Context, q product.Query) ([]product.Product, error) {
	s.metrics.observeQuery()
	logger := s.logger.With().Str("query", q.Text).Logger()
	key := q.Key()

	if cached, ok := s.cache.Get(key); ok {
		s.metrics.observeCache(true)
		logger.Debug().Int("count", len(cached)).Msg("Cache hit")
		return cached, nil
	}
	s.metrics.observeCache(false)

	res, err := s.router.SearchWith(ctx, q)
	if err != nil {
		logger.Warn().Err(err).Msg("All search providers failed")
		return nil, err
	}
	logger.Debug().Str("provider", res.Provider).Int("count", len(res.Products)).Msg("Search answered")

	// mock listings are drawn fresh every time
	if len(res.Products) > 0 && res.Provider != ProviderMock {
		s.cache.Add(key, res.Products)
	}
	s.persist(ctx, q, res)
	return res.Products, nil
}

// persist stores live results and logs the query. Mock data and catalog hits
// are not written back.
func (s *Service) persist(ctx context.Context, q product.Query, res Result) {
	if s.store == nil {
		return
	}
	if res.Provider != ProviderMock && res.Provider != ProviderCatalog && len(res.Products) > 0 {
		if err := s.store.Upsert(ctx, res.Products); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to store search results")
		}
	}
	if q.Text != "" {
		if err := s.store.RecordQuery(ctx, q.Text); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to record query")
		}
	}
}
