// Package product holds the records returned by every search provider and the
// normalized query they are produced from.
package product

// MaxResults is the hard cap on the number of products in one response.
const MaxResults = 20

// DefaultLimit matches the size of the widget's result grid.
const DefaultLimit = 15

// DefaultCurrency is used when a source does not state a currency.
const DefaultCurrency = "RUB"

// Product is a single listing shown in the search widget.
type Product struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Snippet  string  `json:"snippet"`
	Link     string  `json:"link"`
	Image    string  `json:"image,omitempty"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Source   string  `json:"source"`
	Rank     int     `json:"rank"`
}

// Query is a normalized search request. A zero MaxPrice means no price filter.
type Query struct {
	Text     string
	Category string
	Brand    string
	MaxPrice float64
	Limit    int
}
