package cardscraper

import "github.com/Cyclone1070/gearsearch/internal/linkscraper"

// CardContent is the data extracted from a single result card on a search
// results page.
type CardContent struct {
	// Title is the text of the card's first link.
	Title string
	// URL is the absolute destination of that link.
	URL string
	// Image is the absolute source of the card's first image, if any.
	Image string
	// OtherText holds every other non-empty leaf text in the card, in
	// document order. Prices and short descriptions end up here.
	OtherText []string
}

// Source is a vendor ready to be scraped: where to search and what a result
// card looks like. It is the element type of sources.json.
type Source struct {
	linkscraper.SearchLink
	CardSelector string `json:"card_selector"`
}
