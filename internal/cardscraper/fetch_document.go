package cardscraper

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Cyclone1070/gearsearch/internal/utils"
	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// FetchDocument fetches a URL through a configured collector and returns the
// parsed page. The document's Url is the final (post-redirect) request URL.
func FetchDocument(url string, opts utils.CollectorOptions) (*goquery.Document, error) {
	c := utils.ConfiguredCollector(opts)
	var doc *goquery.Document
	var finalErr error
	var onHTMLFired bool

	c.OnHTML("html", func(e *colly.HTMLElement) {
		onHTMLFired = true
		doc, finalErr = goquery.NewDocumentFromReader(bytes.NewReader(e.Response.Body))
		if doc != nil {
			doc.Url = e.Request.URL
		}
	})
	c.OnError(func(r *colly.Response, e error) {
		if finalErr == nil {
			finalErr = fmt.Errorf("request to %s failed with status %d: %w", r.Request.URL, r.StatusCode, e)
		}
	})

	if err := c.Visit(url); err != nil && finalErr == nil {
		finalErr = fmt.Errorf("visit %s: %w", url, err)
	}
	if finalErr != nil {
		return nil, finalErr
	}
	if !onHTMLFired {
		return nil, errors.New("request succeeded, but response was not HTML")
	}
	if doc == nil {
		return nil, errors.New("HTML callback ran but failed to produce a document")
	}
	return doc, nil
}
