// Package scraper reads the details of a single product page: the second
// stage of a search, after result cards gave us the links.
package scraper

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/Cyclone1070/gearsearch/internal/product"
	"github.com/Cyclone1070/gearsearch/internal/utils"
	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
	"github.com/gocolly/colly/v2"
)

// ProductPage is what a product page says about itself.
type ProductPage struct {
	URL         string
	Title       string
	Description string
	Image       string
	SiteName    string
	Price       float64
	Currency    string
}

var priceSelectors = []string{
	`meta[property="product:price:amount"]`,
	`meta[property="og:price:amount"]`,
	`[itemprop="price"]`,
}

var currencySelectors = []string{
	`meta[property="product:price:currency"]`,
	`meta[property="og:price:currency"]`,
	`[itemprop="priceCurrency"]`,
}

// FetchProductPage fetches a product page and reads OpenGraph metadata,
// falling back to <title>, the meta description and schema.org price markup.
func FetchProductPage(pageURL string, opts utils.CollectorOptions) (ProductPage, error) {
	c := utils.ConfiguredCollector(opts)

	var page ProductPage
	var scrapeErr error
	var onHTMLFired bool

	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("request to %s failed with status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	c.OnHTML("html", func(e *colly.HTMLElement) {
		onHTMLFired = true
		page, scrapeErr = parseProductPage(e.Response.Body, e.DOM, e.Request.AbsoluteURL)
		page.URL = e.Request.URL.String()
	})

	if err := c.Visit(pageURL); err != nil && scrapeErr == nil {
		scrapeErr = fmt.Errorf("visit %s: %w", pageURL, err)
	}
	if scrapeErr != nil {
		return ProductPage{}, scrapeErr
	}
	if !onHTMLFired {
		return ProductPage{}, errors.New("request succeeded, but response was not HTML")
	}
	return page, nil
}

func parseProductPage(body []byte, dom *goquery.Selection, absoluteURL func(string) string) (ProductPage, error) {
	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(bytes.NewReader(body)); err != nil {
		return ProductPage{}, fmt.Errorf("failed to parse OpenGraph: %w", err)
	}

	page := ProductPage{
		Title:       strings.TrimSpace(og.Title),
		Description: strings.TrimSpace(og.Description),
		SiteName:    strings.TrimSpace(og.SiteName),
	}
	if len(og.Images) > 0 && og.Images[0].URL != "" {
		page.Image = absoluteURL(og.Images[0].URL)
	}

	if page.Title == "" {
		page.Title = strings.TrimSpace(dom.Find("title").First().Text())
	}
	if page.Description == "" {
		page.Description = strings.TrimSpace(dom.Find(`meta[name="description"]`).AttrOr("content", ""))
	}

	if raw := firstValue(dom, priceSelectors); raw != "" {
		if price, err := product.ParsePrice(raw); err == nil {
			page.Price = price
			page.Currency = product.DetectCurrency(raw)
		}
	}
	if currency := firstValue(dom, currencySelectors); currency != "" {
		page.Currency = strings.ToUpper(currency)
	}
	return page, nil
}

// firstValue returns the content attribute, or the text, of the first element
// matching any of the selectors in order.
func firstValue(dom *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		el := dom.Find(selector).First()
		if el.Length() == 0 {
			continue
		}
		if content, ok := el.Attr("content"); ok && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content)
		}
		if text := strings.TrimSpace(el.Text()); text != "" {
			return text
		}
	}
	return ""
}
