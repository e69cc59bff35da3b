// Package mock generates placeholder listings for the widget while no real
// source answers. Prices and snippets are random on every call.
package mock

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"
	"sync"

	"github.com/Cyclone1070/gearsearch/internal/product"
)

const (
	Source   = "mock"
	minPrice = 10000
	maxPrice = 990000
)

type item struct {
	name     string
	category string
}

var catalog = []item{
	{"Focusrite Scarlett 2i2 4th Gen", "interfaces"},
	{"Neumann TLM 103 Studio Set", "microphones"},
	{"Pioneer DJ XDJ-RX3 All-in-One", "dj"},
	{"Shure SM7B Vocal Microphone", "microphones"},
	{"Yamaha HS8 Powered Studio Monitor", "monitors"},
	{"Ableton Live 12 Standard License", "software"},
	{"Novation Launchpad Pro MK3", "controllers"},
	{"Sennheiser HD 25 On-Ear DJ Headphones", "headphones"},
	{"M-Audio Oxygen Pro 49 Keyboard", "controllers"},
	{"Universal Audio Apollo Twin X Duo", "interfaces"},
	{"Rode NT1 Signature Series", "microphones"},
	{"Akai Professional MPC One", "controllers"},
	{"Korg Minilogue XD", "synthesizers"},
	{"Native Instruments Komplete Kontrol S88", "controllers"},
	{"Arturia MicroFreak Hybrid Synthesizer", "synthesizers"},
	{"Midas M32R LIVE Digital Mixer", "mixers"},
	{"Dynaudio LYD 5 Studio Monitors", "monitors"},
	{"Electro-Voice EV ELX200-10P Speaker", "speakers"},
	{"Boss Katana-50 MkII Guitar Amp", "amplifiers"},
	{"Beyerdynamic DT 770 PRO 250 Ohm", "headphones"},
}

// Generator builds random listings. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a Generator drawing from rnd, or from a randomly seeded source
// when rnd is nil.
func New(rnd *rand.Rand) *Generator {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{rnd: rnd}
}

func (g *Generator) Name() string {
	return Source
}

// Search implements the provider contract. It never fails.
func (g *Generator) Search(_ context.Context, q product.Query) ([]product.Product, error) {
	return g.Generate(q), nil
}

// Generate draws q.Limit candidates from the names matching the brand and
// category filters. Candidates over q.MaxPrice are dropped, not redrawn, so
// the result can be shorter than the limit.
func (g *Generator) Generate(q product.Query) []product.Product {
	q = q.Normalize()
	pool := filterCatalog(q.Brand, q.Category)
	results := []product.Product{}
	if len(pool) == 0 {
		return results
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for range q.Limit {
		picked := pool[g.rnd.IntN(len(pool))]
		price := float64(minPrice + g.rnd.IntN(maxPrice-minPrice+1))
		brand := brandOf(picked.name)
		model := 100 + g.rnd.IntN(900)
		// listings from different queries are merged by link
		link := fmt.Sprintf("https://example.com/product/%s-%d-%08x", strings.ToLower(brand), model, g.rnd.Uint32())

		snippet := fmt.Sprintf("High quality gear. Great for the studio. Model: %s-%d.", brand, model)
		if q.Text != "" && g.rnd.Float64() > 0.5 {
			snippet = fmt.Sprintf("For '%s': %s", strings.ToUpper(q.Text), snippet)
		}

		if q.MaxPrice > 0 && price > q.MaxPrice {
			continue
		}

		results = append(results, product.Product{
			ID:       product.IDForLink(link),
			Title:    picked.name,
			Snippet:  snippet,
			Link:     link,
			Image:    "https://placehold.co/128x128/3b82f6/ffffff?text=" + url.QueryEscape(brand),
			Price:    price,
			Currency: product.DefaultCurrency,
			Source:   Source,
		})
	}
	return product.Rank(results)
}

func filterCatalog(brand, category string) []item {
	pool := make([]item, 0, len(catalog))
	for _, it := range catalog {
		if brand != "" && !strings.EqualFold(brandOf(it.name), brand) {
			continue
		}
		if category != "" && !strings.EqualFold(it.category, category) {
			continue
		}
		pool = append(pool, it)
	}
	return pool
}

func brandOf(name string) string {
	brand, _, _ := strings.Cut(name, " ")
	return brand
}
