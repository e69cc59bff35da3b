package linkscraper

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var nonSearchKeywords = regexp.MustCompile(
	`login|log in|sign ?in|username|password|register|sign ?up|subscribe|newsletter|contact|comment|forgot|e-mail|email|войти|подпис`,
)

var searchIconRegex = regexp.MustCompile(`search|magnify|loupe`)

// isLikelySearchForm is a gatekeeper filter. It returns false if a form is
// clearly for a purpose other than search.
func isLikelySearchForm(i int, s *goquery.Selection) bool {
	if s.Find(`input[type="password"], textarea`).Length() > 0 {
		return false
	}
	var formTextBuilder strings.Builder
	s.Find("h1, h2, h3, button, a[role='button'], input[type='submit']").Each(func(_ int, el *goquery.Selection) {
		formTextBuilder.WriteString(el.Text())
		if value, ok := el.Attr("value"); ok {
			formTextBuilder.WriteString(" ")
			formTextBuilder.WriteString(value)
		}
		formTextBuilder.WriteString(" ")
	})
	return !nonSearchKeywords.MatchString(strings.ToLower(formTextBuilder.String()))
}

// singleInputs returns the text/search input of every form that has exactly one.
func singleInputs(forms *goquery.Selection) []*goquery.Selection {
	var validSingleInputs []*goquery.Selection
	forms.Each(func(i int, formSelection *goquery.Selection) {
		inputsInThisForm := formSelection.Find("input[type='search'], input[type='text'], input:not([type])")
		if inputsInThisForm.Length() == 1 {
			validSingleInputs = append(validSingleInputs, inputsInThisForm)
		}
	})
	return validSingleInputs
}

type searchCandidate struct {
	score     int
	selection *goquery.Selection
	reasoning string
}

// chooseBestSearchInput is a scoring engine that takes a pre-vetted list of
// candidates and uses heuristics to determine the single best one.
func chooseBestSearchInput(candidates []*goquery.Selection, sourceURL string) (*goquery.Selection, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no valid form with a single search input was found on: %s", sourceURL)
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	scoredCandidates := make([]searchCandidate, len(candidates))
	for i, sel := range candidates {
		scoredCandidates[i] = scoreSearchInput(sel)
	}

	var viableCandidates []searchCandidate
	for _, c := range scoredCandidates {
		if c.score > 0 {
			viableCandidates = append(viableCandidates, c)
		}
	}
	if len(viableCandidates) == 0 {
		return nil, fmt.Errorf("multiple inputs found, but none could be confidently identified on: %s", sourceURL)
	}
	if len(viableCandidates) == 1 {
		return viableCandidates[0].selection, nil
	}

	sort.SliceStable(viableCandidates, func(i, j int) bool {
		return viableCandidates[i].score > viableCandidates[j].score
	})

	if (viableCandidates[0].score - viableCandidates[1].score) < 20 {
		return nil, fmt.Errorf("multiple inputs have very close scores (Top: %d, Next: %d), unable to resolve ambiguity on: %s", viableCandidates[0].score, viableCandidates[1].score, sourceURL)
	}
	return viableCandidates[0].selection, nil
}

func scoreSearchInput(sel *goquery.Selection) searchCandidate {
	candidate := searchCandidate{selection: sel}
	form := sel.Closest("form")
	var reasons []string
	var positiveSignals int

	add := func(points int, reason string, positive bool) {
		candidate.score += points
		reasons = append(reasons, fmt.Sprintf("%+d (%s)", points, reason))
		if positive {
			positiveSignals++
		}
	}

	// HTML5 search inputs are heavily favored.
	if inputType, _ := sel.Attr("type"); inputType == "search" {
		add(100, "type=search", false)
	} else {
		add(10, "type=text", false)
	}

	if sel.Closest(`[role="search"]`).Length() > 0 {
		add(75, "in role=search", true)
	}
	if sel.Closest("header").Length() > 0 {
		add(50, "in <header>", true)
	} else if sel.Closest("nav").Length() > 0 {
		add(40, "in <nav>", true)
	}
	for _, attr := range []string{"id", "name", "aria-label", "data-testid"} {
		if val, ok := sel.Attr(attr); ok {
			val = strings.ToLower(val)
			if strings.Contains(val, "search") || val == "q" || val == "s" || val == "query" || strings.Contains(val, "поиск") {
				add(35, "attr "+attr, true)
			}
		}
	}
	if placeholder, ok := sel.Attr("placeholder"); ok {
		placeholder = strings.ToLower(placeholder)
		if strings.Contains(placeholder, "search") || strings.Contains(placeholder, "поиск") {
			add(20, "placeholder", false)
		}
	}
	form.Find("button, a[role='button']").EachWithBreak(func(_ int, btn *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(btn.Text()), "search") {
			add(50, "adj. btn text", true)
			return false
		}
		if class, ok := btn.Attr("class"); ok && searchIconRegex.MatchString(class) {
			add(50, "adj. btn icon", true)
			return false
		}
		return true
	})

	if sel.Closest("footer").Length() > 0 {
		add(-200, "in <footer>", false)
	}
	if sel.Closest("aside, .sidebar").Length() > 0 {
		add(-100, "in sidebar", false)
	}

	if positiveSignals >= 3 {
		add(50, "certainty bonus", false)
	}
	candidate.reasoning = strings.Join(reasons, ", ")
	return candidate
}
