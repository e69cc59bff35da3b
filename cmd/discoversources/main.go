package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/Cyclone1070/gearsearch/internal/cardscraper"
	"github.com/Cyclone1070/gearsearch/internal/linkscraper"
	"github.com/Cyclone1070/gearsearch/internal/utils"
	"github.com/Cyclone1070/gearsearch/jobs"
	"github.com/chromedp/chromedp"
)

func main() {
	// high level settings
	directories := flag.String("directories", "", "Comma-separated directory pages listing vendor sites (required)")
	output := flag.String("out", "sources.json", "Where to write the discovered sources")
	inputsOutput := flag.String("inputs-out", "searchInputs.json", "Where to write browser-found search inputs")
	concurrency := flag.Int("concurrency", 50, "Sites processed at once")
	useBrowser := flag.Bool("browser", false, "Retry sites without a plain search form in headless Chrome")
	flag.Parse()

	var directoryURLs []string
	for _, u := range strings.Split(*directories, ",") {
		if u = strings.TrimSpace(u); u != "" {
			directoryURLs = append(directoryURLs, u)
		}
	}

	if len(directoryURLs) == 0 {
		println("No directory pages given, use -directories")
		os.Exit(2)
	}

	println("Processing links...")
	result, err := jobs.DiscoverSources(directoryURLs, jobs.DiscoverOptions{
		Concurrency: *concurrency,
		Collector:   utils.DefaultCollectorOptions(),
		Progress:    os.Stdout,
	})
	if err != nil {
		println("Error discovering sources:", err.Error())
		os.Exit(1)
	}

	// selectors are filled in later by updateresultselectors
	sources := make([]cardscraper.Source, 0, len(result.Links))
	for _, link := range result.Links {
		sources = append(sources, cardscraper.Source{SearchLink: link})
	}
	if err := cardscraper.SaveSources(*output, sources); err != nil {
		println("Error writing sources:", err.Error())
		os.Exit(1)
	}
	fmt.Printf("Discovery completed. %d sources saved to %s\n", len(sources), *output)
	println("\nLink Status by Category:")
	result.Tally.WriteSummary(os.Stdout)

	if *useBrowser && len(result.Unresolved) > 0 {
		inputs := findSearchInputs(result.Unresolved, *concurrency)
		if err := writeJSON(*inputsOutput, inputs); err != nil {
			println("Error writing search inputs:", err.Error())
			os.Exit(1)
		}
		fmt.Printf("Headless browser found %d/%d search inputs, saved to %s\n", len(inputs), len(result.Unresolved), *inputsOutput)
	}
}

// findSearchInputs shares one browser between all tabs.
func findSearchInputs(sites []linkscraper.Site, concurrency int) []linkscraper.SearchInput {
	allocatorCtx, cancel := chromedp.NewExecAllocator(context.Background(), chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	pool := make(chan struct{}, min(concurrency, 4))
	inputs := []linkscraper.SearchInput{}
	processed := 0

	for _, site := range sites {
		wg.Add(1)
		pool <- struct{}{}
		go func() {
			defer func() { <-pool }()
			defer wg.Done()
			input, err := linkscraper.FindSearchInput(allocatorCtx, site)
			mu.Lock()
			defer mu.Unlock()
			processed++
			if err == nil {
				inputs = append(inputs, input)
			}
			fmt.Printf("\rRendered %d/%d sites", processed, len(sites))
		}()
	}
	wg.Wait()
	fmt.Println()
	return inputs
}

func writeJSON(path string, v any) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "    ")
	return encoder.Encode(v)
}
