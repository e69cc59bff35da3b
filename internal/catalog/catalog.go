// Package catalog keeps scraped products and the query log in SQLite so that
// searches can be answered without hitting vendor sites.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Cyclone1070/gearsearch/internal/product"
	_ "modernc.org/sqlite"
)

const providerName = "catalog"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		snippet TEXT NOT NULL DEFAULT '',
		link TEXT NOT NULL UNIQUE,
		image TEXT NOT NULL DEFAULT '',
		price REAL NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS queries (
		text TEXT PRIMARY KEY,
		hits INTEGER NOT NULL DEFAULT 0,
		last_seen INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_updated_at ON products(updated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_queries_hits ON queries(hits)`,
}

// Catalog is a SQLite-backed product store. It is safe for concurrent use.
type Catalog struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("catalog path is empty")
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection serializes writers
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &Catalog{db: db, now: time.Now}, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// Name makes the catalog usable as a search provider.
func (c *Catalog) Name() string { return providerName }

// Upsert inserts products or refreshes the stored row with the same link.
// Products without a link are skipped.
func (c *Catalog) Upsert(ctx context.Context, products []product.Product) error {
	if len(products) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO products (id, title, snippet, link, image, price, currency, source, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(link) DO UPDATE SET
			title = excluded.title,
			snippet = excluded.snippet,
			image = excluded.image,
			price = excluded.price,
			currency = excluded.currency,
			source = excluded.source,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := c.now().UnixNano()
	for _, p := range products {
		link := strings.TrimSpace(p.Link)
		if link == "" {
			continue
		}
		currency := p.Currency
		if currency == "" {
			currency = product.DefaultCurrency
		}
		if _, err := stmt.ExecContext(ctx, product.IDForLink(link), p.Title, p.Snippet, link, p.Image, p.Price, currency, p.Source, now); err != nil {
			return fmt.Errorf("upsert %s: %w", link, err)
		}
	}
	return tx.Commit()
}

// Search matches every word of the query against title, snippet and source.
// Titles starting with the query rank first, then the most recently updated.
func (c *Catalog) Search(ctx context.Context, q product.Query) ([]product.Product, error) {
	q = q.Normalize()
	words := strings.Fields(q.Text)
	if len(words) == 0 {
		return []product.Product{}, nil
	}

	var whereParts []string
	var args []any
	for _, word := range words {
		pattern := "%" + escapeLikePattern(word) + "%"
		whereParts = append(whereParts, `(title LIKE ? ESCAPE '\' OR snippet LIKE ? ESCAPE '\' OR source LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	if q.Brand != "" {
		whereParts = append(whereParts, `title LIKE ? ESCAPE '\'`)
		args = append(args, escapeLikePattern(q.Brand)+"%")
	}
	if q.MaxPrice > 0 {
		whereParts = append(whereParts, `price <= ?`)
		args = append(args, q.MaxPrice)
	}
	args = append(args, escapeLikePattern(q.Text)+"%", q.Limit)

	query := `SELECT id, title, snippet, link, image, price, currency, source FROM products
		WHERE ` + strings.Join(whereParts, " AND ") + `
		ORDER BY CASE WHEN title LIKE ? ESCAPE '\' THEN 0 ELSE 1 END, updated_at DESC, title
		LIMIT ?`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search catalog: %w", err)
	}
	defer rows.Close()

	products := []product.Product{}
	for rows.Next() {
		var p product.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Snippet, &p.Link, &p.Image, &p.Price, &p.Currency, &p.Source); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search catalog: %w", err)
	}
	return product.Rank(products), nil
}

// RecordQuery counts one more hit for the normalized query text.
func (c *Catalog) RecordQuery(ctx context.Context, text string) error {
	text = strings.ToLower(strings.Join(strings.Fields(text), " "))
	if text == "" {
		return nil
	}
	_, err := c.db.ExecContext(ctx, `INSERT INTO queries (text, hits, last_seen) VALUES (?, 1, ?)
		ON CONFLICT(text) DO UPDATE SET hits = hits + 1, last_seen = excluded.last_seen`,
		text, c.now().UnixNano())
	if err != nil {
		return fmt.Errorf("record query: %w", err)
	}
	return nil
}

// TopQueries returns up to n logged queries, most frequent first.
func (c *Catalog) TopQueries(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}
	rows, err := c.db.QueryContext(ctx, `SELECT text FROM queries ORDER BY hits DESC, last_seen DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("top queries: %w", err)
	}
	defer rows.Close()

	queries := []string{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan query: %w", err)
		}
		queries = append(queries, text)
	}
	return queries, rows.Err()
}

// Count returns the number of stored products.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func escapeLikePattern(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
