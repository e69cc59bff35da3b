package product

import (
	"math"
	"strconv"
	"strings"
)

// NewQuery trims and collapses the free-text fields and clamps the limit.
func NewQuery(text, category, brand string, maxPrice float64, limit int) Query {
	q := Query{
		Text:     collapseSpaces(text),
		Category: strings.ToLower(collapseSpaces(category)),
		Brand:    collapseSpaces(brand),
		MaxPrice: maxPrice,
		Limit:    limit,
	}
	return q.Normalize()
}

// Normalize clamps Limit into [1, MaxResults] and drops a non-positive MaxPrice.
func (q Query) Normalize() Query {
	q.Text = collapseSpaces(q.Text)
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxResults {
		q.Limit = MaxResults
	}
	if q.MaxPrice < 0 {
		q.MaxPrice = 0
	}
	return q
}

// Key identifies equivalent queries, e.g. for caching.
func (q Query) Key() string {
	q = q.Normalize()
	return strings.Join([]string{
		strings.ToLower(q.Text),
		strings.ToLower(q.Category),
		strings.ToLower(q.Brand),
		strconv.FormatFloat(q.MaxPrice, 'f', -1, 64),
		strconv.Itoa(q.Limit),
	}, "\x1f")
}

// ParseMaxPrice reads an optional price filter. Anything that is not a positive
// number yields 0, so an invalid filter is ignored rather than rejected.
func ParseMaxPrice(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0
	}
	return price
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
