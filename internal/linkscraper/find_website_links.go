// Package linkscraper finds vendor sites and the search URL of each site.
package linkscraper

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Cyclone1070/gearsearch/internal/utils"
	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

var SkipKeywords = []string{"wiki", "forum", "reddit", "youtube", "facebook", "instagram", "t.me", "discord", "telegram", "manual", "support", "guide"}

// DefaultCategories match the section ids of the curated gear directory.
var DefaultCategories = []Category{
	{"interfaces", "#audio-interfaces, #interfaces"},
	{"microphones", "#microphones, #mics"},
	{"monitors", "#studio-monitors, #monitors"},
	{"headphones", "#headphones"},
	{"controllers", "#midi-controllers, #controllers"},
	{"synthesizers", "#synthesizers, #synths"},
	{"dj", "#dj-equipment, #dj"},
	{"general", "#music-stores, #marketplaces"},
}

// FindWebsiteLinks scrapes a directory page and returns the vendor links listed
// under each category header. Each header is followed by a <ul> of links.
func FindWebsiteLinks(url string, categories []Category, opts utils.CollectorOptions) ([]Site, error) {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	c := utils.ConfiguredCollector(opts)

	allLinks := []Site{}
	var scrapeErr error

	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("request to %s failed with status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	c.OnHTML("html", func(e *colly.HTMLElement) {
		for _, category := range categories {
			e.DOM.Find(category.Selector).Each(func(i int, headerSelection *goquery.Selection) {
				for _, site := range scrapeCategoryLinks(headerSelection, category.Name) {
					site.URL = e.Request.AbsoluteURL(site.URL)
					if site.URL != "" {
						allLinks = append(allLinks, site)
					}
				}
			})
		}
	})

	c.Visit(url)

	if scrapeErr != nil {
		return nil, scrapeErr
	}
	return allLinks, nil
}

func scrapeCategoryLinks(headerSelection *goquery.Selection, categoryName string) []Site {
	var links []Site

	listSelection := headerSelection.NextAllFiltered("ul").First()
	listSelection.Find("li a").Each(func(_ int, linkSelection *goquery.Selection) {
		linkText := strings.TrimSpace(linkSelection.Text())
		// mirrors are listed as "2", "3"
		if linkText == "" || isInteger(linkText) {
			return
		}
		parentLi := linkSelection.Closest("li")
		if parentLi.Find(".i-twemoji-globe-with-meridians").Length() > 0 {
			return
		}
		starred := parentLi.HasClass("starred")
		if linkURL, exists := linkSelection.Attr("href"); exists {
			parentLiText := strings.ToLower(parentLi.Text())
			lowerURL := strings.ToLower(linkURL)
			for _, keyword := range SkipKeywords {
				if strings.Contains(lowerURL, keyword) || strings.Contains(parentLiText, keyword) {
					return
				}
			}
			links = append(links, Site{Title: linkText, URL: linkURL, Category: categoryName, Starred: starred})
		}
	})
	return links
}

func isInteger(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
