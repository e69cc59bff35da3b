package linkscraper

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Cyclone1070/gearsearch/internal/utils"
	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const queryPlaceholder = "QUERY_PLACEHOLDER"

// FindSearchLink discovers the direct GET request URL for a website's search
// functionality from a single page load.
func FindSearchLink(site Site, opts utils.CollectorOptions) (SearchLink, error) {
	c := utils.ConfiguredCollector(opts)

	var result SearchLink
	var scrapeErr error

	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("request to %s failed with status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	c.OnHTML("html", func(e *colly.HTMLElement) {
		searchForms := e.DOM.Find("form").FilterFunction(isLikelySearchForm)

		// An absent method attribute defaults to GET.
		getForms := searchForms.FilterFunction(func(i int, s *goquery.Selection) bool {
			method, _ := s.Attr("method")
			return method == "" || strings.EqualFold(method, "get")
		})
		if getForms.Length() == 0 {
			scrapeErr = errors.New("no likely search forms with method=GET were found")
			return
		}

		selection, err := chooseBestSearchInput(singleInputs(getForms), site.URL)
		if err != nil {
			scrapeErr = err
			return
		}

		inputName, nameExists := selection.Attr("name")
		if !nameExists || inputName == "" {
			scrapeErr = errors.New("winning search input has no 'name' attribute")
			return
		}
		actionURL, _ := selection.Closest("form").Attr("action")

		absoluteActionURL, err := e.Request.URL.Parse(actionURL)
		if err != nil {
			scrapeErr = fmt.Errorf("could not parse form action URL '%s': %w", actionURL, err)
			return
		}

		template, err := buildSearchTemplate(absoluteActionURL, inputName)
		if err != nil {
			scrapeErr = err
			return
		}
		result = SearchLink{Site: site, SearchURL: template}
	})

	c.Visit(site.URL)

	if scrapeErr != nil {
		return SearchLink{}, scrapeErr
	}
	if result.SearchURL == "" {
		return SearchLink{}, errors.New("discovery complete, but no valid search URL was found")
	}
	return result, nil
}

// buildSearchTemplate keeps the action's own query parameters and puts a %s
// where the search input's value goes.
func buildSearchTemplate(action *url.URL, inputName string) (string, error) {
	queryValues, err := url.ParseQuery(action.RawQuery)
	if err != nil {
		return "", fmt.Errorf("could not parse query from action URL: %w", err)
	}
	queryValues.Set(inputName, queryPlaceholder)

	// %s is swapped in after encoding so the encoder does not escape it.
	encodedQuery := strings.Replace(queryValues.Encode(), queryPlaceholder, "%s", 1)

	baseURL := action.Scheme + "://" + action.Host + action.Path
	return baseURL + "?" + encodedQuery, nil
}

// SearchURL fills a search template with an escaped query.
func SearchURL(template string, query string) string {
	return strings.Replace(template, "%s", url.QueryEscape(query), 1)
}
