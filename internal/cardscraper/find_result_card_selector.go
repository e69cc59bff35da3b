// Package cardscraper discovers the CSS selector of the repeating result
// "cards" on a vendor's search page and extracts their content.
//
// Discovery runs in two tiers. Tier 1 is a differential scrape: a page with no
// results is compared with a page with results, and the container that only
// exists on the latter holds the cards. Tier 2 is a frequency analysis of a
// single results page, used when the diff fails, for example on SPAs that
// render the same skeleton for both pages.
package cardscraper

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Cyclone1070/gearsearch/internal/linkscraper"
	"github.com/Cyclone1070/gearsearch/internal/utils"
	"github.com/PuerkitoBio/goquery"
)

var (
	// commonQuery returns results on nearly every music equipment store.
	commonQuery = "audio"
	// dumbQuery is a nonsensical string guaranteed to return no results.
	dumbQuery = "asdfghjklqwerty12345"
	// specialisedQueries are used when commonQuery fails on a site, e.g. a
	// headphone-only shop that does not match "audio" in product titles.
	specialisedQueries = map[string]string{
		"microphones":  "shure",
		"headphones":   "sennheiser",
		"interfaces":   "focusrite",
		"monitors":     "yamaha",
		"controllers":  "akai",
		"synthesizers": "korg",
		"dj":           "pioneer",
	}
)

// FindResultCardSelector tries the differential scrape first and falls back to
// frequency analysis. The returned Source carries the discovered selector.
func FindResultCardSelector(searchLink linkscraper.SearchLink, opts utils.CollectorOptions) (Source, error) {
	selector, err := runDifferentialScrape(searchLink, opts)
	if err == nil {
		return Source{SearchLink: searchLink, CardSelector: selector}, nil
	}

	selector, err = runFrequencyAnalysisScrape(searchLink, opts)
	if err == nil {
		return Source{SearchLink: searchLink, CardSelector: selector}, nil
	}

	return Source{}, fmt.Errorf("all scraping tiers failed for %s: %w", searchLink.URL, err)
}

func runDifferentialScrape(searchLink linkscraper.SearchLink, opts utils.CollectorOptions) (string, error) {
	noResultsURL := linkscraper.SearchURL(searchLink.SearchURL, dumbQuery)
	noResultsBlacklist, err := getElementSignatureSet(noResultsURL, opts)
	if err != nil {
		return "", fmt.Errorf("failed to scrape 'no results' page: %w", err)
	}

	withResultsDoc, err := FetchDocument(linkscraper.SearchURL(searchLink.SearchURL, commonQuery), opts)
	if err == nil {
		if selector, analysisErr := diffAnalysis(withResultsDoc, noResultsBlacklist); analysisErr == nil {
			return selector, nil
		}
	}

	if specialisedQuery, ok := specialisedQueries[searchLink.Category]; ok {
		withResultsDoc, err = FetchDocument(linkscraper.SearchURL(searchLink.SearchURL, specialisedQuery), opts)
		if err != nil {
			return "", fmt.Errorf("failed to scrape 'with results' page on both common and specialised queries: %w", err)
		}
		return diffAnalysis(withResultsDoc, noResultsBlacklist)
	}

	return "", errors.New("primary diff failed and no specialised query was available")
}

// diffAnalysis picks the shallowest container that is absent from the
// blacklist and has repeating children.
func diffAnalysis(withResultsDoc *goquery.Document, noResultsBlacklist map[string]struct{}) (string, error) {
	type candidate struct {
		selection *goquery.Selection
		depth     int
	}
	var candidates []candidate
	withResultsDoc.Find("body *").Each(func(i int, el *goquery.Selection) {
		if el.Children().Length() < 2 {
			return
		}
		if _, exists := noResultsBlacklist[getElementSignature(el)]; exists {
			return
		}
		if findRepeatingChildSignature(el) != "" {
			candidates = append(candidates, candidate{el, el.Parents().Length()})
		}
	})

	if len(candidates) == 0 {
		return "", errors.New("diff failed: could not find any unique container with repeating children")
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].depth < candidates[j].depth })
	bestContainer := candidates[0].selection

	return getElementSignature(bestContainer) + " > " + findRepeatingChildSignature(bestContainer), nil
}

func runFrequencyAnalysisScrape(searchLink linkscraper.SearchLink, opts utils.CollectorOptions) (string, error) {
	doc, err := FetchDocument(linkscraper.SearchURL(searchLink.SearchURL, commonQuery), opts)
	if err == nil {
		if selector, analysisErr := DetectCardSelector(doc); analysisErr == nil {
			return selector, nil
		}
	}

	if specialisedQuery, ok := specialisedQueries[searchLink.Category]; ok {
		doc, err = FetchDocument(linkscraper.SearchURL(searchLink.SearchURL, specialisedQuery), opts)
		if err != nil {
			return "", fmt.Errorf("failed to scrape on both common and specialised queries: %w", err)
		}
		return DetectCardSelector(doc)
	}

	if err != nil {
		return "", err
	}
	return "", errors.New("primary frequency analysis failed and no specialised query available")
}

func getElementSignatureSet(url string, opts utils.CollectorOptions) (map[string]struct{}, error) {
	doc, err := FetchDocument(url, opts)
	if err != nil {
		return nil, err
	}
	signatureSet := make(map[string]struct{})
	doc.Find("body *").Each(func(i int, el *goquery.Selection) {
		if signature := getElementSignature(el); signature != "" {
			signatureSet[signature] = struct{}{}
		}
	})
	return signatureSet, nil
}
