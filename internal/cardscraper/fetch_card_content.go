package cardscraper

import (
	"net/url"
	"strings"

	"github.com/Cyclone1070/gearsearch/internal/utils"
	"github.com/PuerkitoBio/goquery"
)

// FetchCardContent scrapes a results page and extracts every element matching
// cardSelector. An empty selector, or one that matches nothing, is re-detected
// from the page itself.
func FetchCardContent(pageURL string, cardSelector string, opts utils.CollectorOptions) ([]CardContent, error) {
	doc, err := FetchDocument(pageURL, opts)
	if err != nil {
		return nil, err
	}

	if cardSelector == "" || doc.Find(cardSelector).Length() == 0 {
		detected, detectErr := DetectCardSelector(doc)
		if detectErr != nil {
			return []CardContent{}, nil
		}
		cardSelector = detected
	}
	return ExtractCards(doc, cardSelector), nil
}

// ExtractCards reads the cards matching selector out of a parsed page. Cards
// without a link are skipped. Relative links resolve against doc.Url.
func ExtractCards(doc *goquery.Document, selector string) []CardContent {
	cardContents := []CardContent{}
	doc.Find(selector).Each(func(_ int, card *goquery.Selection) {
		anchor := card.Find("a[href]").First()
		href, ok := anchor.Attr("href")
		if !ok {
			return
		}

		content := CardContent{
			Title:     collapse(anchor.Text()),
			URL:       absolute(doc.Url, href),
			OtherText: []string{},
		}
		img := card.Find("img").First()
		if src := img.AttrOr("src", img.AttrOr("data-src", "")); src != "" {
			content.Image = absolute(doc.Url, src)
		}

		// leaf nodes, minus the title itself
		card.Find("*:not(:has(*))").Each(func(_ int, leafNode *goquery.Selection) {
			text := collapse(leafNode.Text())
			if text != "" && text != content.Title {
				content.OtherText = append(content.OtherText, text)
			}
		})
		cardContents = append(cardContents, content)
	})
	return cardContents
}

func absolute(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	u, err := base.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	u.Fragment = ""
	return u.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
