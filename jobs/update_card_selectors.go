package jobs

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/Cyclone1070/gearsearch/internal/cardscraper"
	"github.com/Cyclone1070/gearsearch/internal/linkscraper"
	"github.com/Cyclone1070/gearsearch/internal/utils"
)

type UpdateOptions struct {
	Concurrency int
	Collector   utils.CollectorOptions
	Progress    io.Writer
	// Errors receives one line per vendor that failed. Nil discards them.
	Errors io.Writer
}

type UpdateResult struct {
	Sources []cardscraper.Source
	Tally   Tally
}

// UpdateCardSelectors finds the result card selector of every search link.
// Vendors where no selector can be found are left out of the result.
func UpdateCardSelectors(links []linkscraper.SearchLink, opts UpdateOptions) UpdateResult {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	if opts.Errors == nil {
		opts.Errors = io.Discard
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	pool := make(chan struct{}, opts.Concurrency)

	result := UpdateResult{Sources: []cardscraper.Source{}, Tally: newTally()}
	processed := 0
	for _, link := range links {
		wg.Add(1)
		pool <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-pool }()

			source, err := cardscraper.FindResultCardSelector(link, opts.Collector)
			mu.Lock()
			defer mu.Unlock()
			processed++
			result.Tally.record(link.Category, err == nil)
			if err != nil {
				fmt.Fprintf(opts.Errors, "Error processing %s: %s\n", link.SearchURL, err)
			} else {
				result.Sources = append(result.Sources, source)
			}
			fmt.Fprintf(opts.Progress, "\rProcessed %d/%d links", processed, len(links))
		}()
	}
	wg.Wait()
	if len(links) > 0 {
		fmt.Fprintln(opts.Progress)
	}

	sort.Slice(result.Sources, func(i, j int) bool { return result.Sources[i].URL < result.Sources[j].URL })
	return result
}
