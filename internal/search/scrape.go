package search

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Cyclone1070/gearsearch/internal/cardscraper"
	"github.com/Cyclone1070/gearsearch/internal/linkscraper"
	"github.com/Cyclone1070/gearsearch/internal/product"
	"github.com/Cyclone1070/gearsearch/internal/scraper"
	"github.com/Cyclone1070/gearsearch/internal/utils"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ScrapeProvider is the live two-stage search. Stage 1 reads result cards
// from each source's search page; stage 2, when enabled, opens the first
// product pages for their own title, description, image and price.
type ScrapeProvider struct {
	cfg     ScrapeConfig
	sources []cardscraper.Source
	logger  zerolog.Logger
}

func NewScrapeProvider(cfg ScrapeConfig, logger zerolog.Logger) (*ScrapeProvider, error) {
	cfg = cfg.withDefaults()

	var sources []cardscraper.Source
	if cfg.SourcesFile != "" {
		loaded, err := cardscraper.LoadSources(cfg.SourcesFile)
		if err != nil {
			return nil, err
		}
		for _, s := range loaded {
			if strings.Contains(s.SearchURL, "%s") {
				sources = append(sources, s)
			}
		}
		if len(sources) == 0 {
			return nil, fmt.Errorf("no usable sources in %s", cfg.SourcesFile)
		}
	} else {
		if !strings.Contains(cfg.SearchURL, "%s") {
			return nil, fmt.Errorf("search url %q has no %%s placeholder", cfg.SearchURL)
		}
		sources = []cardscraper.Source{{
			SearchLink: linkscraper.SearchLink{
				Site:      linkscraper.Site{Title: hostOf(cfg.SearchURL), URL: cfg.SearchURL},
				SearchURL: cfg.SearchURL,
			},
			CardSelector: cfg.CardSelector,
		}}
	}
	return &ScrapeProvider{cfg: cfg, sources: sources, logger: logger}, nil
}

func (p *ScrapeProvider) Name() string { return ProviderScrape }

func (p *ScrapeProvider) collectorOptions(ctx context.Context) utils.CollectorOptions {
	opts := utils.DefaultCollectorOptions()
	opts.Timeout = p.cfg.Timeout
	opts.MaxRetries = p.cfg.MaxRetries
	opts.UserAgent = p.cfg.UserAgent
	// no politeness delay on the interactive path
	opts.RandomDelay = 0
	return opts.WithContext(ctx)
}

func (p *ScrapeProvider) Search(ctx context.Context, q product.Query) ([]product.Product, error) {
	q = q.Normalize()
	text := q.Text
	if q.Brand != "" && !strings.Contains(strings.ToLower(text), strings.ToLower(q.Brand)) {
		text = strings.TrimSpace(q.Brand + " " + text)
	}
	if text == "" {
		return []product.Product{}, nil
	}
	opts := p.collectorOptions(ctx)

	perSource := make([][]product.Product, len(p.sources))
	errs := make([]error, len(p.sources))
	var g errgroup.Group
	g.SetLimit(DefaultMaxConcurrency)
	for i, source := range p.sources {
		g.Go(func() error {
			cards, err := cardscraper.FetchCardContent(linkscraper.SearchURL(source.SearchURL, text), source.CardSelector, opts)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", source.Title, err)
				return nil
			}
			perSource[i] = productsFromCards(cards)
			return nil
		})
	}
	g.Wait()

	failed := 0
	products := []product.Product{}
	for i := range p.sources {
		if errs[i] != nil {
			failed++
			p.logger.Debug().Err(errs[i]).Msg("Source search failed")
			continue
		}
		products = append(products, perSource[i]...)
	}
	if failed == len(p.sources) {
		return nil, errors.Join(errs...)
	}
	if len(products) > q.Limit {
		products = products[:q.Limit]
	}

	if p.cfg.FollowLinks {
		p.enrich(products, opts)
	}
	return products, nil
}

// enrich runs stage 2 over the first MaxPages products. A page that fails to
// load leaves its product as stage 1 produced it.
func (p *ScrapeProvider) enrich(products []product.Product, opts utils.CollectorOptions) {
	n := min(len(products), p.cfg.MaxPages)
	var g errgroup.Group
	g.SetLimit(DefaultMaxConcurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			page, err := scraper.FetchProductPage(products[i].Link, opts)
			if err != nil {
				p.logger.Debug().Err(err).Str("link", products[i].Link).Msg("Product page fetch failed")
				return nil
			}
			applyPage(&products[i], page)
			return nil
		})
	}
	g.Wait()
}

func applyPage(p *product.Product, page scraper.ProductPage) {
	if p.Title == "" {
		p.Title = page.Title
	}
	if page.Description != "" {
		p.Snippet = page.Description
	}
	if p.Image == "" {
		p.Image = page.Image
	}
	if page.Price > 0 {
		p.Price = page.Price
		p.Currency = page.Currency
	}
}

func productsFromCards(cards []cardscraper.CardContent) []product.Product {
	products := make([]product.Product, 0, len(cards))
	for _, card := range cards {
		link := unwrapRedirect(card.URL)
		if card.Title == "" || !strings.HasPrefix(link, "http") {
			continue
		}
		p := product.Product{
			Title:   card.Title,
			Snippet: longestText(card.OtherText),
			Link:    link,
			Image:   card.Image,
			Source:  hostOf(link),
		}
		if price, currency, ok := product.FindPrice(card.OtherText); ok {
			p.Price = price
			p.Currency = currency
		}
		products = append(products, p)
	}
	return products
}

// unwrapRedirect returns the target of a search engine click-tracking link
// such as https://duckduckgo.com/l/?uddg=<target>.
func unwrapRedirect(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return link
	}
	if strings.HasPrefix(parsed.Path, "/l/") {
		if target := parsed.Query().Get("uddg"); target != "" {
			return target
		}
	}
	return link
}

func longestText(texts []string) string {
	longest := ""
	for _, text := range texts {
		if len(text) > len(longest) {
			longest = text
		}
	}
	return longest
}

func hostOf(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}
