package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/Cyclone1070/gearsearch/internal/product"
	"github.com/Cyclone1070/gearsearch/internal/search"
	"github.com/rs/zerolog"
)

// CatalogStore is the part of *catalog.Catalog the refresh needs.
type CatalogStore interface {
	TopQueries(ctx context.Context, n int) ([]string, error)
	Upsert(ctx context.Context, products []product.Product) error
}

// RefreshCatalog re-runs the n most frequent logged queries through provider
// and stores what comes back. It returns the number of products stored. A
// failing query is logged and skipped; the error is returned only when every
// query failed.
func RefreshCatalog(ctx context.Context, store CatalogStore, provider search.Provider, n int, logger zerolog.Logger) (int, error) {
	queries, err := store.TopQueries(ctx, n)
	if err != nil {
		return 0, fmt.Errorf("load top queries: %w", err)
	}

	stored := 0
	var errs []error
	for _, text := range queries {
		if err := ctx.Err(); err != nil {
			return stored, err
		}
		products, err := provider.Search(ctx, product.NewQuery(text, "", "", 0, product.MaxResults))
		if err == nil && len(products) > 0 {
			err = store.Upsert(ctx, products)
		}
		if err != nil {
			logger.Warn().Err(err).Str("query", text).Msg("Catalog refresh failed for query")
			errs = append(errs, fmt.Errorf("%q: %w", text, err))
			continue
		}
		stored += len(products)
	}
	if len(queries) > 0 && len(errs) == len(queries) {
		return 0, errors.Join(errs...)
	}

	logger.Info().Int("queries", len(queries)).Int("products", stored).Msg("Catalog refreshed")
	return stored, nil
}
