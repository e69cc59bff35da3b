package search

import (
	"context"
	"time"

	"github.com/Cyclone1070/gearsearch/internal/product"
	"github.com/rs/zerolog"
)

// Result is a provider's answer to one query.
type Result struct {
	Provider string
	Products []product.Product
}

// Router tries providers in order. The first non-empty answer wins. If every
// provider fails the last error is returned; if at least one answered, even
// with nothing, the result is empty rather than an error.
type Router struct {
	providers []Provider
	logger    zerolog.Logger
	metrics   *Metrics
}

func NewRouter(providers []Provider, logger zerolog.Logger, metrics *Metrics) *Router {
	return &Router{providers: providers, logger: logger, metrics: metrics}
}

func (r *Router) Name() string { return "router" }

func (r *Router) Search(ctx context.Context, q product.Query) ([]product.Product, error) {
	res, err := r.SearchWith(ctx, q)
	return res.Products, err
}

// SearchWith is Search that also reports which provider answered.
func (r *Router) SearchWith(ctx context.Context, q product.Query) (Result, error) {
	if len(r.providers) == 0 {
		return Result{}, ErrNoProviders
	}

	var lastErr error
	answered := false
	for _, p := range r.providers {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		start := time.Now()
		products, err := p.Search(ctx, q)
		r.metrics.observeProvider(p.Name(), time.Since(start), len(products), err)

		if err != nil {
			lastErr = err
			r.logger.Warn().Err(err).Str("provider", p.Name()).Str("query", q.Text).Msg("Search provider failed")
			continue
		}
		answered = true
		if len(products) > 0 {
			return Result{Provider: p.Name(), Products: products}, nil
		}
		r.logger.Debug().Str("provider", p.Name()).Str("query", q.Text).Msg("Search provider returned no results")
	}

	if !answered {
		return Result{}, lastErr
	}
	return Result{Products: []product.Product{}}, nil
}
