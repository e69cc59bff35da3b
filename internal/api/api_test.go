package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Cyclone1070/gearsearch/internal/api"
	"github.com/Cyclone1070/gearsearch/internal/mock"
	"github.com/Cyclone1070/gearsearch/internal/product"
	"github.com/Cyclone1070/gearsearch/internal/search"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// fakeSearcher records the queries it gets and returns n products.
type fakeSearcher struct {
	n     int
	err   error
	panic bool

	mu      sync.Mutex
	queries []product.Query
}

func (f *fakeSearcher) Search(_ context.Context, queries []product.Query) ([]product.Product, error) {
	if f.panic {
		panic("boom")
	}
	f.mu.Lock()
	f.queries = append(f.queries, queries...)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]product.Product, f.n)
	for i := range out {
		out[i] = product.Product{Title: fmt.Sprintf("Item %d", i), Link: fmt.Sprintf("https://shop.example/%d", i), Rank: i + 1}
	}
	return out, nil
}

func newHandler(searcher api.Searcher, opts api.Options) http.Handler {
	reg := prometheus.NewRegistry()
	opts.Registerer = reg
	opts.Gatherer = reg
	return api.New(searcher, opts, zerolog.Nop()).Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type searchBody struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Query   string            `json:"query"`
	Queries []string          `json:"queries"`
	Count   int               `json:"count"`
	Results []product.Product `json:"results"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) searchBody {
	t.Helper()
	var body searchBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return body
}

func TestSearchPost(t *testing.T) {
	t.Run("single query", func(t *testing.T) {
		searcher := &fakeSearcher{n: 3}
		h := newHandler(searcher, api.Options{})

		rec := do(t, h, http.MethodPost, "/api/search", `{"query":"  shure  sm7b "}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
		}
		body := decode(t, rec)
		if body.Status != "success" || body.Query != "shure sm7b" || body.Count != 3 || len(body.Results) != 3 {
			t.Errorf("unexpected body %+v", body)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Error("response has no request id")
		}
	})

	t.Run("query list with filters", func(t *testing.T) {
		searcher := &fakeSearcher{n: 1}
		h := newHandler(searcher, api.Options{})

		rec := do(t, h, http.MethodPost, "/api/search",
			`{"queries":["sm7b","","scarlett"],"category":"Microphones","brand":"Shure","max_price":"50000","limit":5}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
		}
		want := []product.Query{
			{Text: "sm7b", Category: "microphones", Brand: "Shure", MaxPrice: 50000, Limit: 5},
			{Text: "scarlett", Category: "microphones", Brand: "Shure", MaxPrice: 50000, Limit: 5},
		}
		if diff := cmp.Diff(want, searcher.queries); diff != "" {
			t.Errorf("queries mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"sm7b", "scarlett"}, decode(t, rec).Queries); diff != "" {
			t.Errorf("echoed queries mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("brand alone is a search", func(t *testing.T) {
		searcher := &fakeSearcher{n: 1}
		h := newHandler(searcher, api.Options{})

		rec := do(t, h, http.MethodPost, "/api/search", `{"brand":"Rode","max_price":-1}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
		}
		if len(searcher.queries) != 1 || searcher.queries[0].Brand != "Rode" || searcher.queries[0].MaxPrice != 0 {
			t.Errorf("unexpected queries %+v", searcher.queries)
		}
	})

	t.Run("blank query is an unfiltered search", func(t *testing.T) {
		searcher := &fakeSearcher{n: 2}
		h := newHandler(searcher, api.Options{})

		rec := do(t, h, http.MethodPost, "/api/search", `{"query":"   "}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
		}
		want := []product.Query{{Limit: product.DefaultLimit}}
		if diff := cmp.Diff(want, searcher.queries); diff != "" {
			t.Errorf("queries mismatch (-want +got):\n%s", diff)
		}
		if body := decode(t, rec); body.Status != "success" || body.Count != 2 {
			t.Errorf("unexpected body %+v", body)
		}
	})

	t.Run("results are capped", func(t *testing.T) {
		h := newHandler(&fakeSearcher{n: 30}, api.Options{MaxResults: 10})

		body := decode(t, do(t, h, http.MethodPost, "/api/search", `{"query":"mic","limit":100}`))
		if body.Count != 10 || len(body.Results) != 10 || body.Results[9].Rank != 10 {
			t.Errorf("got %d results, want 10", len(body.Results))
		}
	})

	errorCases := []struct {
		description string
		searcher    *fakeSearcher
		body        string
		wantStatus  int
	}{
		{"malformed JSON", &fakeSearcher{}, `{"query":`, http.StatusBadRequest},
		{"wrong field type", &fakeSearcher{}, `{"queries":"mic"}`, http.StatusBadRequest},
		{"empty body", &fakeSearcher{}, "", http.StatusBadRequest},
		{"too many queries", &fakeSearcher{}, `{"queries":["1","2","3","4","5","6","7","8","9","10","11"]}`, http.StatusBadRequest},
		{"body too large", &fakeSearcher{}, `{"query":"` + strings.Repeat("a", 70<<10) + `"}`, http.StatusRequestEntityTooLarge},
		{"nothing left to search", &fakeSearcher{err: search.ErrEmptyQuery}, `{"query":"mic"}`, http.StatusBadRequest},
		{"providers failed", &fakeSearcher{err: errors.New("upstream down")}, `{"query":"mic"}`, http.StatusInternalServerError},
		{"search timed out", &fakeSearcher{err: context.DeadlineExceeded}, `{"query":"mic"}`, http.StatusGatewayTimeout},
		{"handler panic", &fakeSearcher{panic: true}, `{"query":"mic"}`, http.StatusInternalServerError},
	}
	for _, testCase := range errorCases {
		t.Run(testCase.description, func(t *testing.T) {
			rec := do(t, newHandler(testCase.searcher, api.Options{}), http.MethodPost, "/api/search", testCase.body)
			if rec.Code != testCase.wantStatus {
				t.Fatalf("got status %d, want %d: %s", rec.Code, testCase.wantStatus, rec.Body.String())
			}
			body := decode(t, rec)
			if body.Status != "error" || body.Message == "" {
				t.Errorf("unexpected error body %+v", body)
			}
			if strings.Contains(body.Message, "upstream down") {
				t.Error("internal error detail leaked to the client")
			}
		})
	}
}

func TestSearchGet(t *testing.T) {
	for _, path := range []string{"/search", "/api/search"} {
		t.Run(path, func(t *testing.T) {
			searcher := &fakeSearcher{n: 2}
			h := newHandler(searcher, api.Options{})

			rec := do(t, h, http.MethodGet, path+"?query=sm7b&query=nt1&brand=Shure&max_price=abc&limit=4", "")
			if rec.Code != http.StatusOK {
				t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
			}
			want := []product.Query{
				{Text: "sm7b", Brand: "Shure", Limit: 4},
				{Text: "nt1", Brand: "Shure", Limit: 4},
			}
			if diff := cmp.Diff(want, searcher.queries); diff != "" {
				t.Errorf("queries mismatch (-want +got):\n%s", diff)
			}
		})
	}

	for _, target := range []string{"/search", "/search?query=", "/api/search?query=+&category=Monitors"} {
		t.Run("empty query "+target, func(t *testing.T) {
			searcher := &fakeSearcher{n: 3}
			h := newHandler(searcher, api.Options{})

			rec := do(t, h, http.MethodGet, target, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
			}
			body := decode(t, rec)
			if body.Status != "success" || body.Query != "" || len(body.Results) != 3 {
				t.Errorf("unexpected body %+v", body)
			}
			if len(searcher.queries) != 1 || searcher.queries[0].Text != "" {
				t.Errorf("unexpected queries %+v", searcher.queries)
			}
		})
	}
}

func TestMockSearchEndToEnd(t *testing.T) {
	router := search.NewRouter([]search.Provider{mock.New(rand.New(rand.NewPCG(1, 2)))}, zerolog.Nop(), nil)
	service := search.NewService(search.ServiceOptions{Router: router, Logger: zerolog.Nop()})
	h := newHandler(service, api.Options{})

	body := decode(t, do(t, h, http.MethodPost, "/api/search", `{"queries":["mic","synth","mic"],"limit":20}`))
	if body.Status != "success" || len(body.Results) == 0 || len(body.Results) > product.MaxResults {
		t.Fatalf("unexpected body %+v", body)
	}
	for i, p := range body.Results {
		if p.Rank != i+1 || p.Title == "" || p.Link == "" || p.Source != "mock" {
			t.Errorf("result %d malformed: %+v", i, p)
		}
	}

	rec := do(t, h, http.MethodGet, "/search?query=", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("empty query: got status %d: %s", rec.Code, rec.Body.String())
	}
	if body := decode(t, rec); body.Query != "" || len(body.Results) != product.DefaultLimit {
		t.Errorf("empty query: got %d results, want %d", len(body.Results), product.DefaultLimit)
	}
}

func TestIndexAndProbes(t *testing.T) {
	h := newHandler(&fakeSearcher{}, api.Options{Frontend: true})

	rec := do(t, h, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") || !strings.Contains(rec.Body.String(), "/api/search") {
		t.Errorf("index page not served: %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}

	rec = do(t, h, http.MethodGet, "/", "", "Accept", "application/json")
	if body := decode(t, rec); body.Status != "ok" {
		t.Errorf("got %+v, want health document", body)
	}

	rec = do(t, newHandler(&fakeSearcher{}, api.Options{Frontend: false}), http.MethodGet, "/", "")
	if body := decode(t, rec); body.Status != "ok" {
		t.Errorf("got %+v, want health document when the page is disabled", body)
	}

	rec = do(t, h, http.MethodGet, "/api/health", "")
	if body := decode(t, rec); rec.Code != http.StatusOK || body.Status != "ok" {
		t.Errorf("health: %d %+v", rec.Code, body)
	}

	rec = do(t, h, http.MethodGet, "/version", "")
	var info map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil || info["version"] == "" || info["go_version"] == "" {
		t.Errorf("version: %v %v", info, err)
	}

	if rec := do(t, h, http.MethodGet, "/nope", ""); rec.Code != http.StatusNotFound || decode(t, rec).Status != "error" {
		t.Errorf("unknown path: got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPut, "/api/search", `{}`); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("wrong method: got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHandler(&fakeSearcher{n: 1}, api.Options{})
	do(t, h, http.MethodPost, "/api/search", `{"query":"mic"}`)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d", rec.Code)
	}
	want := `gearsearch_http_requests_total{code="200",method="POST",route="/api/search"} 1`
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("metrics output lacks %q:\n%s", want, rec.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	h := newHandler(&fakeSearcher{n: 1}, api.Options{RateLimitRPS: 0.001, RateBurst: 2})

	for i := 0; i < 2; i++ {
		if rec := do(t, h, http.MethodGet, "/api/health", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: got status %d", i, rec.Code)
		}
	}
	rec := do(t, h, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Errorf("got status %d, want 429 with Retry-After", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	other := httptest.NewRecorder()
	h.ServeHTTP(other, req)
	if other.Code != http.StatusOK {
		t.Errorf("another client was limited: %d", other.Code)
	}
}

func TestCORS(t *testing.T) {
	h := newHandler(&fakeSearcher{n: 1}, api.Options{CORSOrigins: []string{"https://shop.tilda.ws"}})

	rec := do(t, h, http.MethodOptions, "/api/search", "",
		"Origin", "https://shop.tilda.ws",
		"Access-Control-Request-Method", http.MethodPost,
		"Access-Control-Request-Headers", "Content-Type",
	)
	if rec.Code >= 300 || rec.Header().Get("Access-Control-Allow-Origin") != "https://shop.tilda.ws" {
		t.Errorf("preflight: got %d, allow-origin %q", rec.Code, rec.Header().Get("Access-Control-Allow-Origin"))
	}

	rec = do(t, h, http.MethodPost, "/api/search", `{"query":"mic"}`, "Origin", "https://evil.example")
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unknown origin was allowed")
	}
}
