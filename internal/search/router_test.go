package search_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Cyclone1070/gearsearch/internal/product"
	"github.com/Cyclone1070/gearsearch/internal/search"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

// stubProvider answers every query with the same products or error.
type stubProvider struct {
	name     string
	products []product.Product
	err      error

	mu    sync.Mutex
	calls []string
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Search(_ context.Context, q product.Query) ([]product.Product, error) {
	s.mu.Lock()
	s.calls = append(s.calls, q.Text)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]product.Product, len(s.products))
	copy(out, s.products)
	return out, nil
}

func (s *stubProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func products(links ...string) []product.Product {
	out := make([]product.Product, 0, len(links))
	for _, link := range links {
		out = append(out, product.Product{Title: "Item " + link, Link: "https://shop.example/" + link, Price: 1000})
	}
	return out
}

func TestRouter(t *testing.T) {
	errBoom := errors.New("boom")
	errLast := errors.New("last")

	testCases := []struct {
		description  string
		providers    []*stubProvider
		wantProvider string
		wantCount    int
		wantErr      error
		wantCalls    []int
	}{
		{
			description:  "first non-empty answer wins",
			providers:    []*stubProvider{{name: "a", products: products("1")}, {name: "b", products: products("2", "3")}},
			wantProvider: "a",
			wantCount:    1,
			wantCalls:    []int{1, 0},
		},
		{
			description:  "fall through errors and empty answers",
			providers:    []*stubProvider{{name: "a", err: errBoom}, {name: "b"}, {name: "c", products: products("1", "2")}},
			wantProvider: "c",
			wantCount:    2,
			wantCalls:    []int{1, 1, 1},
		},
		{
			description: "all failing returns the last error",
			providers:   []*stubProvider{{name: "a", err: errBoom}, {name: "b", err: errLast}},
			wantErr:     errLast,
			wantCalls:   []int{1, 1},
		},
		{
			description: "empty and failing is an empty result",
			providers:   []*stubProvider{{name: "a", err: errBoom}, {name: "b"}},
			wantCount:   0,
			wantCalls:   []int{1, 1},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			chain := make([]search.Provider, len(testCase.providers))
			for i, p := range testCase.providers {
				chain[i] = p
			}
			router := search.NewRouter(chain, zerolog.Nop(), nil)

			got, err := router.SearchWith(context.Background(), product.NewQuery("mic", "", "", 0, 0))
			if !errors.Is(err, testCase.wantErr) {
				t.Fatalf("got error %v, want %v", err, testCase.wantErr)
			}
			if got.Provider != testCase.wantProvider || len(got.Products) != testCase.wantCount {
				t.Errorf("got provider %q with %d products, want %q with %d", got.Provider, len(got.Products), testCase.wantProvider, testCase.wantCount)
			}
			if err == nil && got.Products == nil {
				t.Error("products must be non-nil on success")
			}

			calls := make([]int, len(testCase.providers))
			for i, p := range testCase.providers {
				calls[i] = p.callCount()
			}
			if diff := cmp.Diff(testCase.wantCalls, calls); diff != "" {
				t.Errorf("provider calls mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("no providers", func(t *testing.T) {
		_, err := search.NewRouter(nil, zerolog.Nop(), nil).Search(context.Background(), product.Query{Text: "mic"})
		if !errors.Is(err, search.ErrNoProviders) {
			t.Errorf("got %v, want ErrNoProviders", err)
		}
	})

	t.Run("canceled context stops the chain", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := &stubProvider{name: "a", products: products("1")}
		_, err := search.NewRouter([]search.Provider{p}, zerolog.Nop(), nil).Search(ctx, product.Query{Text: "mic"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("got %v, want context.Canceled", err)
		}
		if p.callCount() != 0 {
			t.Errorf("provider called %d times after cancel", p.callCount())
		}
	})
}

func TestRegistryChain(t *testing.T) {
	registry := search.NewRegistry()
	registry.Register(&stubProvider{name: "mock"})
	registry.Register(&stubProvider{name: "catalog"})
	registry.Register(nil)

	if diff := cmp.Diff([]string{"catalog", "mock"}, registry.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}

	chain, err := registry.Chain([]string{"catalog", "mock", "catalog"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chain) != 2 || chain[0].Name() != "catalog" || chain[1].Name() != "mock" {
		t.Errorf("got chain %v", chain)
	}

	if _, err := registry.Chain([]string{"mock", "bing"}); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := registry.Chain(nil); !errors.Is(err, search.ErrNoProviders) {
		t.Errorf("got %v, want ErrNoProviders", err)
	}
}
