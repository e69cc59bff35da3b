package cardscraper_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Cyclone1070/gearsearch/internal/cardscraper"
	"github.com/Cyclone1070/gearsearch/internal/utils"
	"github.com/google/go-cmp/cmp"
)

var testOptions = utils.CollectorOptions{Timeout: 5 * time.Second, UserAgent: "gearsearch-test"}

func TestFetchCardContent(t *testing.T) {
	type TestCase struct {
		description string
		top         string
		bottom      string
		cardPath    string
		otherText   []string
		want        []cardscraper.CardContent
	}
	testCases := []TestCase{
		{
			description: "return links based on cardPath",
			top:         "<div class='card'>",
			bottom:      "</div>",
			cardPath:    "html > body > div.container > div.card",
			want: []cardscraper.CardContent{
				{Title: "Shure SM7B", URL: "https://example.com", OtherText: []string{}},
				{Title: "Rode NT1", URL: "https://example.com/2", OtherText: []string{}},
				{Title: "Focusrite Scarlett", URL: "https://test.com", OtherText: []string{}},
			},
		},
		{
			description: "return other text based on cardPath",
			top:         "<div class='card'>",
			bottom:      "</div>",
			cardPath:    "html > body > div.container > div.card",
			otherText: []string{
				"<p>39 990 ₽</p>",
				"<p>In stock</p><p>  24 500   ₽ </p>",
				"<p>Other Text Test</p>",
			},
			want: []cardscraper.CardContent{
				{Title: "Shure SM7B", URL: "https://example.com", OtherText: []string{"39 990 ₽"}},
				{Title: "Rode NT1", URL: "https://example.com/2", OtherText: []string{"In stock", "24 500 ₽"}},
				{Title: "Focusrite Scarlett", URL: "https://test.com", OtherText: []string{"Other Text Test"}},
			},
		},
		{
			description: "detect the card selector when the configured one matches nothing",
			top:         "<div class='card'>",
			bottom:      "</div>",
			cardPath:    "div.product-tile-old",
			want: []cardscraper.CardContent{
				{Title: "Shure SM7B", URL: "https://example.com", OtherText: []string{}},
				{Title: "Rode NT1", URL: "https://example.com/2", OtherText: []string{}},
				{Title: "Focusrite Scarlett", URL: "https://test.com", OtherText: []string{}},
			},
		},
	}
	links := []string{
		"<a href='https://example.com'>Shure SM7B</a>",
		"<a href='https://example.com/2'>Rode NT1</a>",
		"<a href='https://test.com'>Focusrite Scarlett</a>",
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, "<html><body>")
				io.WriteString(w, "<div class='container'>")
				for i, link := range links {
					io.WriteString(w, testCase.top)
					if len(testCase.otherText) > i {
						io.WriteString(w, testCase.otherText[i])
					}
					io.WriteString(w, link)
					io.WriteString(w, testCase.bottom)
				}
				io.WriteString(w, "</div>")
				io.WriteString(w, "</body></html>")
			}))
			defer testServer.Close()

			got, err := cardscraper.FetchCardContent(testServer.URL, testCase.cardPath, testOptions)

			if err != nil {
				t.Errorf("unexpected error: %v", err)
			} else if diff := cmp.Diff(testCase.want, got); diff != "" {
				t.Errorf("FetchCardContent() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("resolve relative links and images", func(t *testing.T) {
		testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `<html><body><ul>
				<li class="item"><img src="/img/1.png"><a href="/p/1#reviews"><span>Mic</span></a><b>100</b></li>
				<li class="item"><img data-src="/img/2.png"><a href="p/2">Cable</a></li>
				<li class="item"><span>Sponsored</span></li>
			</ul></body></html>`)
		}))
		defer testServer.Close()

		got, err := cardscraper.FetchCardContent(testServer.URL+"/search", "li.item", testOptions)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []cardscraper.CardContent{
			{Title: "Mic", URL: testServer.URL + "/p/1", Image: testServer.URL + "/img/1.png", OtherText: []string{"100"}},
			{Title: "Cable", URL: testServer.URL + "/p/2", Image: testServer.URL + "/img/2.png", OtherText: []string{}},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("FetchCardContent() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("return error on failed request", func(t *testing.T) {
		testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusGone)
		}))
		defer testServer.Close()

		if _, err := cardscraper.FetchCardContent(testServer.URL, "div.card", testOptions); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}
