package product

import (
	"strings"

	"github.com/google/uuid"
)

// IDForLink returns a stable ID for a product link so the same listing keeps
// its ID across requests and in the catalog. An empty link gets a random ID.
func IDForLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return uuid.NewString()
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(link)).String()
}

// Rank assigns consecutive 1-based ranks in slice order.
func Rank(products []Product) []Product {
	for i := range products {
		products[i].Rank = i + 1
	}
	return products
}

// Finalize fills missing IDs and currencies, drops products over the price
// limit, truncates to limit and ranks what is left.
func Finalize(products []Product, q Query) []Product {
	q = q.Normalize()
	out := make([]Product, 0, min(len(products), q.Limit))
	for _, p := range products {
		if q.MaxPrice > 0 && p.Price > q.MaxPrice {
			continue
		}
		if p.ID == "" {
			p.ID = IDForLink(p.Link)
		}
		if p.Currency == "" {
			p.Currency = DefaultCurrency
		}
		out = append(out, p)
		if len(out) == q.Limit {
			break
		}
	}
	return Rank(out)
}
