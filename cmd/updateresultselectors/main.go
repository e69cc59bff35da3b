package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Cyclone1070/gearsearch/internal/cardscraper"
	"github.com/Cyclone1070/gearsearch/internal/linkscraper"
	"github.com/Cyclone1070/gearsearch/internal/utils"
	"github.com/Cyclone1070/gearsearch/jobs"
)

func main() {
	// high level settings
	input := flag.String("in", "sources.json", "Sources to find card selectors for")
	output := flag.String("out", "sources.json", "Where to write sources with their card selectors")
	concurrency := flag.Int("concurrency", 50, "Sites processed at once")
	flag.Parse()

	sources, err := cardscraper.LoadSources(*input)
	if err != nil {
		println("Error reading sources:", err.Error())
		os.Exit(1)
	}
	links := make([]linkscraper.SearchLink, 0, len(sources))
	for _, source := range sources {
		links = append(links, source.SearchLink)
	}

	println("Processing links...")
	result := jobs.UpdateCardSelectors(links, jobs.UpdateOptions{
		Concurrency: *concurrency,
		Collector:   utils.DefaultCollectorOptions(),
		Progress:    os.Stdout,
		Errors:      os.Stdout,
	})

	if err := cardscraper.SaveSources(*output, result.Sources); err != nil {
		println("Error writing sources:", err.Error())
		os.Exit(1)
	}

	println("\n--- Processing Complete ---")
	result.Tally.WriteSummary(os.Stdout)
	fmt.Printf("Sources with a card selector saved to %s\n", *output)
}
