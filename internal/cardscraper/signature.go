package cardscraper

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DetectCardSelector runs a child frequency analysis over an already fetched
// page. Signatures score by how often they repeat under one parent and by the
// depth of that parent. A tie for the top score is an error.
func DetectCardSelector(doc *goquery.Document) (string, error) {
	candidateScores := make(map[string]int)
	doc.Find("body *").Each(func(i int, parent *goquery.Selection) {
		childSignatures := make(map[string]int)
		parent.Children().Each(func(_ int, child *goquery.Selection) {
			if sig := getElementSignature(child); sig != "" {
				childSignatures[sig]++
			}
		})
		for sig, count := range childSignatures {
			if count > 1 {
				candidateScores[sig] += (count * 5) + parent.Parents().Length()
			}
		}
	})
	if len(candidateScores) == 0 {
		return "", errors.New("frequency analysis failed: no elements with repeating signatures found")
	}

	var bestSig string
	maxScore := 0
	for sig, score := range candidateScores {
		if score > maxScore {
			maxScore = score
			bestSig = sig
		}
	}
	tieCount := 0
	for _, score := range candidateScores {
		if score == maxScore {
			tieCount++
		}
	}
	if tieCount > 1 {
		return "", fmt.Errorf("frequency analysis failed: found %d candidates with same top score", tieCount)
	}
	return bestSig, nil
}

// findRepeatingChildSignature returns the most common direct child signature.
// Interstitial children such as ads do not break the pattern.
func findRepeatingChildSignature(container *goquery.Selection) string {
	childSignatures := make(map[string]int)
	container.Children().Each(func(i int, child *goquery.Selection) {
		if sig := getElementSignature(child); sig != "" {
			childSignatures[sig]++
		}
	})
	var bestSig string
	maxScore := 1 // must appear more than once
	for sig, score := range childSignatures {
		if score > maxScore || (score == maxScore && bestSig != "" && sig < bestSig) {
			maxScore = score
			bestSig = sig
		}
	}
	return bestSig
}

// getElementSignature is tag#id, or tag followed by its sorted classes.
func getElementSignature(element *goquery.Selection) string {
	if element.Length() == 0 {
		return ""
	}
	tag := goquery.NodeName(element)
	if tag == "" {
		return ""
	}
	if id, ok := element.Attr("id"); ok && id != "" {
		return tag + "#" + id
	}
	var builder strings.Builder
	builder.WriteString(tag)
	if classes := strings.Fields(element.AttrOr("class", "")); len(classes) > 0 {
		sort.Strings(classes)
		builder.WriteString(".")
		builder.WriteString(strings.Join(classes, "."))
	}
	return builder.String()
}
