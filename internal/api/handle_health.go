package api

import (
	_ "embed"
	"net/http"
	"strings"
	"time"

	"github.com/Cyclone1070/gearsearch/pkg/version"
)

//go:embed web/index.html
var indexHTML []byte

type healthResponse struct {
	Status  string    `json:"status"`
	Time    time.Time `json:"time"`
	Version string    `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Time:    time.Now().UTC(),
		Version: version.Version,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, version.Get())
}

// handleIndex serves the demo page, or the health document when the page is
// disabled or the client asks for JSON.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if !s.opts.Frontend || strings.Contains(r.Header.Get("Accept"), "application/json") {
		s.handleHealth(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(indexHTML)
}
