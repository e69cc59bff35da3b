package search

import (
	"strings"
	"time"
)

const (
	ProviderScrape  = "scrape"
	ProviderCatalog = "catalog"
	ProviderMock    = "mock"

	DefaultSearchURL      = "https://html.duckduckgo.com/html/?q=%s"
	DefaultCardSelector   = "div.result"
	DefaultMaxConcurrency = 4
	DefaultMaxPages       = 5
	DefaultCacheSize      = 256
	DefaultCacheTTL       = 10 * time.Minute
	DefaultScrapeTimeout  = 10 * time.Second
)

var DefaultFallbackOrder = []string{ProviderCatalog, ProviderScrape, ProviderMock}

// Config controls provider order, fan-out and the scrape provider.
type Config struct {
	Providers      []string     `yaml:"providers"`
	MaxConcurrency int          `yaml:"max_concurrency"`
	Cache          CacheConfig  `yaml:"cache"`
	Scrape         ScrapeConfig `yaml:"scrape"`
}

type CacheConfig struct {
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

type ScrapeConfig struct {
	// SearchURL is a template with one %s for the escaped query.
	SearchURL    string `yaml:"search_url"`
	CardSelector string `yaml:"card_selector"`
	// SourcesFile, when set, replaces SearchURL with every vendor in a
	// sources.json file.
	SourcesFile string        `yaml:"sources_file"`
	FollowLinks bool          `yaml:"follow_links"`
	MaxPages    int           `yaml:"max_pages"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	UserAgent   string        `yaml:"user_agent"`
}

// WithDefaults fills zero values. A negative cache size stays as is and
// disables the cache.
func (c Config) WithDefaults() Config {
	providers := c.Providers
	if len(providers) == 0 {
		providers = DefaultFallbackOrder
	}
	c.Providers = make([]string, 0, len(providers))
	for _, name := range providers {
		c.Providers = append(c.Providers, strings.ToLower(strings.TrimSpace(name)))
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.Cache.Size == 0 {
		c.Cache.Size = DefaultCacheSize
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	c.Scrape = c.Scrape.withDefaults()
	return c
}

func (c ScrapeConfig) withDefaults() ScrapeConfig {
	if c.SearchURL == "" {
		c.SearchURL = DefaultSearchURL
	}
	if c.CardSelector == "" && c.SearchURL == DefaultSearchURL {
		c.CardSelector = DefaultCardSelector
	}
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultScrapeTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}
