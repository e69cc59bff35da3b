package linkscraper

// Site is a vendor homepage found in a directory page or listed by hand.
type Site struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Category string `json:"category"`
	Starred  bool   `json:"starred,omitempty"`
}

// SearchLink is a Site whose GET search URL template is known.
type SearchLink struct {
	Site
	// SearchURL is a template with a single %s for the escaped query,
	// e.g. "https://shop.example/search?q=%s".
	SearchURL string `json:"search_url"`
}

// SearchInput describes a search box found by a rendered (browser) visit.
type SearchInput struct {
	Site
	InputSelector string `json:"input_selector"`
	Method        string `json:"method"`
}

// Category maps a directory section to the CSS selector of its header(s).
type Category struct {
	Name     string
	Selector string
}
