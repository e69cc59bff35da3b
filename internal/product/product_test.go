package product_test

import (
	"errors"
	"testing"

	"github.com/Cyclone1070/gearsearch/internal/product"
	"github.com/google/go-cmp/cmp"
)

func TestParsePrice(t *testing.T) {
	testCases := []struct {
		description string
		raw         string
		want        float64
	}{
		{"plain integer", "33999", 33999},
		{"rupee sign and comma thousands", "₹33,999", 33999},
		{"space thousands and ruble sign", "33 999 ₽", 33999},
		{"dollar with decimals", "$1,299.00", 1299},
		{"decimal comma", "12,50 €", 12.5},
		{"dot thousands with decimal", "1.299.50", 1299.5},
		{"european thousands and decimal comma", "1.299,00 €", 1299},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			got, err := product.ParsePrice(testCase.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != testCase.want {
				t.Errorf("got %v, want %v", got, testCase.want)
			}
		})
	}

	for _, raw := range []string{"", "free", "—"} {
		t.Run("invalid "+raw, func(t *testing.T) {
			_, err := product.ParsePrice(raw)
			if !errors.Is(err, product.ErrInvalidPrice) {
				t.Errorf("got %v, want ErrInvalidPrice", err)
			}
		})
	}
}

func TestParseMaxPrice(t *testing.T) {
	testCases := map[string]float64{
		"":       0,
		"abc":    0,
		"-5":     0,
		"1500.5": 1500.5,
		"0":      0,
		"150000": 150000,
	}
	for raw, want := range testCases {
		if got := product.ParseMaxPrice(raw); got != want {
			t.Errorf("ParseMaxPrice(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestNewQuery(t *testing.T) {
	got := product.NewQuery("  shure   sm7b ", " Microphones ", " Shure ", 0, 50)
	want := product.Query{Text: "shure sm7b", Category: "microphones", Brand: "Shure", Limit: product.MaxResults}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NewQuery() mismatch (-want +got):\n%s", diff)
	}

	if got := product.NewQuery("x", "", "", 0, 0).Limit; got != product.DefaultLimit {
		t.Errorf("default limit: got %d, want %d", got, product.DefaultLimit)
	}
}

func TestQueryKey(t *testing.T) {
	a := product.NewQuery("Shure  SM7B", "", "", 0, 0)
	b := product.NewQuery("shure sm7b", "", "", 0, 15)
	if a.Key() != b.Key() {
		t.Errorf("equivalent queries have different keys: %q vs %q", a.Key(), b.Key())
	}
	c := product.NewQuery("shure sm7b", "", "", 1000, 15)
	if a.Key() == c.Key() {
		t.Error("price filter does not change the key")
	}
}

func TestIDForLink(t *testing.T) {
	first := product.IDForLink("https://example.com/product/1")
	second := product.IDForLink("https://example.com/product/1")
	if first != second {
		t.Errorf("got different IDs for the same link: %q, %q", first, second)
	}
	if first == product.IDForLink("https://example.com/product/2") {
		t.Error("got the same ID for different links")
	}
	if product.IDForLink("") == product.IDForLink("") {
		t.Error("empty links should get random IDs")
	}
}

func TestFinalize(t *testing.T) {
	products := []product.Product{
		{Title: "a", Link: "https://a.com", Price: 100},
		{Title: "b", Link: "https://b.com", Price: 500},
		{Title: "c", Link: "https://c.com", Price: 200, Currency: "USD"},
		{Title: "d", Link: "https://d.com", Price: 50},
	}
	got := product.Finalize(products, product.Query{Text: "x", MaxPrice: 300, Limit: 2})

	want := []product.Product{
		{ID: product.IDForLink("https://a.com"), Title: "a", Link: "https://a.com", Price: 100, Currency: "RUB", Rank: 1},
		{ID: product.IDForLink("https://c.com"), Title: "c", Link: "https://c.com", Price: 200, Currency: "USD", Rank: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Finalize() mismatch (-want +got):\n%s", diff)
	}
}

func TestFindPrice(t *testing.T) {
	testCases := []struct {
		description  string
		texts        []string
		wantPrice    float64
		wantCurrency string
		wantOK       bool
	}{
		{"ruble price after model text", []string{"Model SM7B", "In stock", "39 990 ₽"}, 39990, "RUB", true},
		{"cyrillic suffix", []string{"24 500 руб."}, 24500, "RUB", true},
		{"dollar price", []string{"4.8 (120 reviews)", "$399.00"}, 399, "USD", true},
		{"currency code", []string{"EUR 1.299,00"}, 1299, "EUR", true},
		{"no currency marker", []string{"SM7B", "2024"}, 0, "", false},
		{"marker without amount", []string{"Price in €"}, 0, "", false},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			price, currency, ok := product.FindPrice(testCase.texts)
			if price != testCase.wantPrice || currency != testCase.wantCurrency || ok != testCase.wantOK {
				t.Errorf("got (%v, %q, %v), want (%v, %q, %v)", price, currency, ok, testCase.wantPrice, testCase.wantCurrency, testCase.wantOK)
			}
		})
	}
}
