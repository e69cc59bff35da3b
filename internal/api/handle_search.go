package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/Cyclone1070/gearsearch/internal/product"
	"github.com/Cyclone1070/gearsearch/internal/search"
	"github.com/rs/zerolog/hlog"
)

type searchRequest struct {
	Query    string    `json:"query"`
	Queries  []string  `json:"queries"`
	Category string    `json:"category"`
	Brand    string    `json:"brand"`
	MaxPrice flexPrice `json:"max_price"`
	Limit    int       `json:"limit"`
}

type searchResponse struct {
	Status  string            `json:"status"`
	Query   string            `json:"query"`
	Queries []string          `json:"queries"`
	Count   int               `json:"count"`
	Results []product.Product `json:"results"`
}

// flexPrice accepts a number or a numeric string. Anything else reads as no
// price filter.
type flexPrice float64

func (p *flexPrice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	} else {
		raw = string(data)
	}
	*p = flexPrice(product.ParseMaxPrice(raw))
	return nil
}

func (s *Server) handleSearchPost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req searchRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", maxBodyBytes))
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "request body is empty")
		default:
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		}
		return
	}

	texts := req.Queries
	if req.Query != "" {
		texts = append([]string{req.Query}, texts...)
	}
	s.search(w, r, texts, req.Category, req.Brand, float64(req.MaxPrice), req.Limit)
}

// handleSearchGet serves the widget's query-string form. "query" may repeat.
func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	limit, _ := strconv.Atoi(values.Get("limit"))
	s.search(w, r,
		values["query"],
		values.Get("category"),
		values.Get("brand"),
		product.ParseMaxPrice(values.Get("max_price")),
		limit,
	)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, texts []string, category, brand string, maxPrice float64, limit int) {
	logger := hlog.FromRequest(r)

	if limit <= 0 {
		limit = product.DefaultLimit
	}
	limit = min(limit, s.opts.MaxResults)

	queries := make([]product.Query, 0, len(texts)+1)
	cleaned := make([]string, 0, len(texts))
	for _, text := range texts {
		q := product.NewQuery(text, category, brand, maxPrice, limit)
		if q.Text == "" {
			continue
		}
		queries = append(queries, q)
		cleaned = append(cleaned, q.Text)
	}
	// no text at all is an unfiltered search over brand and category
	if len(queries) == 0 {
		queries = append(queries, product.NewQuery("", category, brand, maxPrice, limit))
	}
	if len(queries) > maxQueriesPerRequest {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d queries per request", maxQueriesPerRequest))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.SearchTimeout)
	defer cancel()

	results, err := s.searcher.Search(ctx, queries)
	switch {
	case errors.Is(err, search.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "nothing to search for")
		return
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn().Err(err).Strs("queries", cleaned).Msg("Search timed out")
		writeError(w, http.StatusGatewayTimeout, "search timed out")
		return
	case err != nil:
		logger.Error().Err(err).Strs("queries", cleaned).Msg("Search failed")
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if len(results) > s.opts.MaxResults {
		results = product.Rank(results[:s.opts.MaxResults])
	}

	logger.Debug().Strs("queries", cleaned).Int("count", len(results)).Msg("Search served")
	resp := searchResponse{
		Status:  "success",
		Queries: cleaned,
		Count:   len(results),
		Results: results,
	}
	if len(cleaned) > 0 {
		resp.Query = cleaned[0]
	}
	writeJSON(w, http.StatusOK, resp)
}
