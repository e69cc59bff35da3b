// Package utils provide utilities functions
package utils

import (
	"context"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"
)

// CollectorOptions tunes the collectors used for outbound scraping.
type CollectorOptions struct {
	Timeout     time.Duration
	RandomDelay time.Duration
	Parallelism int
	MaxRetries  int
	// UserAgent pins the User-Agent header. Empty means a random one per request.
	UserAgent string
	// Context aborts in-flight requests when done.
	Context context.Context
}

// DefaultCollectorOptions mirrors the settings used against live vendor sites.
func DefaultCollectorOptions() CollectorOptions {
	return CollectorOptions{
		Timeout:     10 * time.Second,
		RandomDelay: 2 * time.Second,
		Parallelism: 2,
		MaxRetries:  2,
	}
}

// WithContext returns a copy of the options bound to ctx.
func (o CollectorOptions) WithContext(ctx context.Context) CollectorOptions {
	o.Context = ctx
	return o
}

func ConfiguredCollector(opts CollectorOptions) *colly.Collector {
	var collectorOpts []colly.CollectorOption
	if opts.Context != nil {
		collectorOpts = append(collectorOpts, colly.StdlibContext(opts.Context))
	}
	collector := colly.NewCollector(collectorOpts...)

	// Set a generous timeout. Some sites can be slow.
	if opts.Timeout > 0 {
		collector.SetRequestTimeout(opts.Timeout)
	}

	// Wait a random time between requests to the same domain.
	collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		RandomDelay: opts.RandomDelay,
		Parallelism: opts.Parallelism,
	})

	collector.WithTransport(newRetryTransport(nil, opts.MaxRetries))

	if opts.UserAgent != "" {
		collector.UserAgent = opts.UserAgent
	} else {
		extensions.RandomUserAgent(collector)
	}
	extensions.Referer(collector)

	// The order of headers can matter to some anti-bot systems.
	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9,ru;q=0.8")

		// NOTE: compression stays off, colly hands the raw body to goquery.

		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
		r.Headers.Set("Sec-Ch-Ua", `"Not/A)Brand";v="99", "Google Chrome";v="123", "Chromium";v="123"`)
		r.Headers.Set("Sec-Ch-Ua-Mobile", "?0")
		r.Headers.Set("Sec-Ch-Ua-Platform", `"macOS"`)
		r.Headers.Set("Sec-Fetch-Dest", "document")
		r.Headers.Set("Sec-Fetch-Mode", "navigate")
		r.Headers.Set("Sec-Fetch-Site", "same-origin")
		r.Headers.Set("Sec-Fetch-User", "?1")
		r.Headers.Set("Upgrade-Insecure-Requests", "1")
	})

	return collector
}
