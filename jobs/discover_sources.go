package jobs

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/Cyclone1070/gearsearch/internal/linkscraper"
	"github.com/Cyclone1070/gearsearch/internal/utils"
)

type DiscoverOptions struct {
	Concurrency int
	Categories  []linkscraper.Category
	Collector   utils.CollectorOptions
	// Progress receives a running counter. Nil discards it.
	Progress io.Writer
}

type DiscoverResult struct {
	Links []linkscraper.SearchLink
	// Unresolved are sites where no GET search form was found; they are
	// candidates for the headless browser.
	Unresolved []linkscraper.Site
	Tally      Tally
}

// DiscoverSources reads every directory page, then looks for a search URL
// template on each vendor it lists. Directory pages that fail are skipped;
// it is an error only when all of them fail.
func DiscoverSources(directoryURLs []string, opts DiscoverOptions) (DiscoverResult, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	pool := make(chan struct{}, opts.Concurrency)

	sites := []linkscraper.Site{}
	var firstErr error
	failed := 0
	for _, directoryURL := range directoryURLs {
		wg.Add(1)
		pool <- struct{}{}
		go func() {
			defer func() { <-pool }()
			defer wg.Done()
			found, err := linkscraper.FindWebsiteLinks(directoryURL, opts.Categories, opts.Collector)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			sites = append(sites, found...)
		}()
	}
	wg.Wait()
	if len(directoryURLs) > 0 && failed == len(directoryURLs) {
		return DiscoverResult{}, fmt.Errorf("no directory page could be read: %w", firstErr)
	}
	sites = dedupeSites(sites)

	result := DiscoverResult{Links: []linkscraper.SearchLink{}, Unresolved: []linkscraper.Site{}, Tally: newTally()}
	processed := 0
	for _, site := range sites {
		wg.Add(1)
		pool <- struct{}{}
		go func() {
			defer func() { <-pool }()
			defer wg.Done()

			searchLink, err := linkscraper.FindSearchLink(site, opts.Collector)
			mu.Lock()
			defer mu.Unlock()
			processed++
			result.Tally.record(site.Category, err == nil)
			if err != nil {
				result.Unresolved = append(result.Unresolved, site)
			} else {
				result.Links = append(result.Links, searchLink)
			}
			fmt.Fprintf(opts.Progress, "\rProcessed %d/%d links", processed, len(sites))
		}()
	}
	wg.Wait()
	if len(sites) > 0 {
		fmt.Fprintln(opts.Progress)
	}

	sort.Slice(result.Links, func(i, j int) bool { return result.Links[i].URL < result.Links[j].URL })
	sort.Slice(result.Unresolved, func(i, j int) bool { return result.Unresolved[i].URL < result.Unresolved[j].URL })
	return result, nil
}

// dedupeSites keeps the first listing of each URL, preferring a starred one.
func dedupeSites(sites []linkscraper.Site) []linkscraper.Site {
	index := make(map[string]int, len(sites))
	out := make([]linkscraper.Site, 0, len(sites))
	for _, site := range sites {
		if i, ok := index[site.URL]; ok {
			if site.Starred && !out[i].Starred {
				out[i].Starred = true
			}
			continue
		}
		index[site.URL] = len(out)
		out = append(out, site)
	}
	return out
}
