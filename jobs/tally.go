// Package jobs holds the long-running maintenance tasks: discovering vendor
// sources, refreshing their card selectors and keeping the catalog warm.
package jobs

import (
	"fmt"
	"io"
	"sort"
)

// Tally counts successes and failures per category.
type Tally struct {
	Valid   map[string]int
	Invalid map[string]int
}

func newTally() Tally {
	return Tally{Valid: make(map[string]int), Invalid: make(map[string]int)}
}

func (t Tally) record(category string, ok bool) {
	if ok {
		t.Valid[category]++
	} else {
		t.Invalid[category]++
	}
}

// WriteSummary prints per-category counts and the totals.
func (t Tally) WriteSummary(w io.Writer) {
	categories := make(map[string]struct{})
	for category := range t.Valid {
		categories[category] = struct{}{}
	}
	for category := range t.Invalid {
		categories[category] = struct{}{}
	}
	names := make([]string, 0, len(categories))
	for category := range categories {
		names = append(names, category)
	}
	sort.Strings(names)

	totalValid, totalInvalid := 0, 0
	for _, category := range names {
		valid, invalid := t.Valid[category], t.Invalid[category]
		totalValid += valid
		totalInvalid += invalid
		fmt.Fprintf(w, "Category: %s\n", category)
		fmt.Fprintf(w, "  Valid: %d\n", valid)
		fmt.Fprintf(w, "  Invalid: %d\n", invalid)
	}
	fmt.Fprintf(w, "Total: %d valid, %d invalid\n", totalValid, totalInvalid)
}
