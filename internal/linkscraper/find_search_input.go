package linkscraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// RenderTimeout bounds one headless browser visit.
var RenderTimeout = 30 * time.Second

// FindSearchInput loads a page in a headless browser and locates its search
// box. It is the fallback for storefronts that build their search form with
// JavaScript, where FindSearchLink sees no form at all.
func FindSearchInput(allocatorCtx context.Context, site Site) (SearchInput, error) {
	newTab, cancel := chromedp.NewContext(allocatorCtx)
	defer cancel()

	tab, cancel := context.WithTimeout(newTab, RenderTimeout)
	defer cancel()

	var htmlContent string
	err := chromedp.Run(tab,
		chromedp.Navigate(site.URL),
		chromedp.WaitVisible("html", chromedp.ByQuery),
		chromedp.OuterHTML("html", &htmlContent),
	)
	if err != nil {
		return SearchInput{}, fmt.Errorf("failed to navigate to %s: %w", site.URL, err)
	}

	return searchInputFromHTML(site, htmlContent)
}

func searchInputFromHTML(site Site, htmlContent string) (SearchInput, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return SearchInput{}, fmt.Errorf("failed to parse HTML from %s: %w", site.URL, err)
	}

	searchForms := doc.Find("form").FilterFunction(isLikelySearchForm)
	if searchForms.Length() == 0 {
		return SearchInput{}, errors.New("no likely search forms found on page: " + site.URL)
	}

	selection, err := chooseBestSearchInput(singleInputs(searchForms), site.URL)
	if err != nil {
		return SearchInput{}, err
	}

	method, _ := selection.Closest("form").Attr("method")
	method = strings.ToLower(method)
	if method != "post" {
		method = "get"
	}

	return SearchInput{Site: site, InputSelector: selectorPath(selection), Method: method}, nil
}

// selectorPath builds a CSS path from <html> down to the element. An id ends
// the climb for that step since it is already unique.
func selectorPath(selection *goquery.Selection) string {
	var pathParts []string

	for selection.Length() > 0 && goquery.NodeName(selection) != "html" {
		var builder strings.Builder
		builder.WriteString(goquery.NodeName(selection))

		if id, ok := selection.Attr("id"); ok && id != "" {
			builder.WriteString("#")
			builder.WriteString(id)
			pathParts = append([]string{builder.String()}, pathParts...)
			selection = selection.Parent()
			continue
		}

		if action, ok := selection.Attr("action"); ok {
			fmt.Fprintf(&builder, `[action="%s"]`, action)
		} else if name, ok := selection.Attr("name"); ok {
			fmt.Fprintf(&builder, `[name="%s"]`, name)
		}

		for _, class := range strings.Fields(selection.AttrOr("class", "")) {
			builder.WriteString(".")
			builder.WriteString(class)
		}

		pathParts = append([]string{builder.String()}, pathParts...)
		selection = selection.Parent()
	}

	return "html > " + strings.Join(pathParts, " > ")
}
