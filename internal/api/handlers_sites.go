package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dgallion1/doxnav/internal/codec"
	"github.com/dgallion1/doxnav/internal/navtree"
	"github.com/dgallion1/doxnav/internal/site"
)

func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sites": s.orchestrator.Catalog().Status()})
}

// handleNavtree serves the tree in any codec format. With expand=true part
// scripts are inlined.
func (s *Server) handleNavtree(w http.ResponseWriter, r *http.Request) {
	st := siteFrom(r)
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	c, err := codec.ForFormat(format)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	data := st.Data
	if r.URL.Query().Get("expand") == "true" {
		data = st.Expanded()
	}
	var buf bytes.Buffer
	if err := c.Encode(&buf, data); err != nil {
		jsonError(w, "encode navtree: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", c.ContentType())
	w.Header().Set("ETag", strconv.Quote(st.Fingerprint))
	w.Write(buf.Bytes())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st := siteFrom(r)
	scripts := make([]map[string]any, len(st.SubIndices))
	for i, sub := range st.SubIndices {
		entries := 0
		if sub != nil {
			entries = len(sub.Entries)
		}
		scripts[i] = map[string]any{
			"script":  fmt.Sprintf("navtreeindex%d.js", i),
			"first":   st.Data.Index[i],
			"present": sub != nil,
			"entries": entries,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"index":   st.Data.Index,
		"scripts": scripts,
	})
}

func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	st := siteFrom(r)
	url := r.URL.Query().Get("url")
	if url == "" {
		jsonError(w, "url query parameter is required", http.StatusBadRequest)
		return
	}
	url = navtree.NormalizeAnchor(url)
	chunk, fallback := navtree.Locate(st.Data.Index, url)
	writeJSON(w, http.StatusOK, map[string]any{
		"url":      url,
		"chunk":    chunk,
		"script":   fmt.Sprintf("navtreeindex%d.js", chunk),
		"fallback": fallback,
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	st := siteFrom(r)
	url := r.URL.Query().Get("url")
	if url == "" {
		jsonError(w, "url query parameter is required", http.StatusBadRequest)
		return
	}
	bc, err := st.Resolve(url)
	switch {
	case errors.Is(err, site.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, site.ErrMissingSubIndex):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, bc)
}

// handleQuery evaluates a JSONPath expression against the expanded tree.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	st := siteFrom(r)
	expr := r.URL.Query().Get("path")
	if expr == "" {
		jsonError(w, "path query parameter is required", http.StatusBadRequest)
		return
	}
	results, err := codec.Query(st.Expanded(), expr)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if results == nil {
		results = []any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"path":    expr,
		"results": results,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	st := siteFrom(r)
	q := r.URL.Query().Get("q")
	if q == "" {
		jsonError(w, "q query parameter is required", http.StatusBadRequest)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	idx := s.orchestrator.Catalog().Store()
	if idx == nil {
		jsonError(w, "search index unavailable", http.StatusServiceUnavailable)
		return
	}
	entries, err := idx.Search(r.Context(), st.Name, q, limit)
	if err != nil {
		jsonError(w, "search failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   q,
		"results": entries,
	})
}

func (s *Server) handleProblems(w http.ResponseWriter, r *http.Request) {
	problems := siteFrom(r).Problems()
	if problems == nil {
		problems = []navtree.Problem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":    !navtree.HasErrors(problems),
		"problems": problems,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
