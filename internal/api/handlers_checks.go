package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/doxnav/internal/codec"
	"github.com/dgallion1/doxnav/internal/navtree"
	"github.com/dgallion1/doxnav/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// handleCheck starts a link check, or returns the site's check that is
// already queued or running.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	st := siteFrom(r)
	job, existing, err := s.orchestrator.SubmitCheck(st.Name)
	if err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	code, status := http.StatusAccepted, pipeline.StatusQueued
	if existing {
		code, status = http.StatusOK, job.Snapshot().Status
	}
	writeJSON(w, code, map[string]any{
		"job_id":   job.ID,
		"site":     job.Site,
		"status":   status,
		"existing": existing,
		"poll_url": fmt.Sprintf("/api/checks/%s/status", job.ID),
	})
}

func (s *Server) handleCheckStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleValidate checks an uploaded navigation file. Script uploads also
// report whether rewriting them reproduces the input byte for byte.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	// extra 1MB for form overhead
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	c, err := codec.ForFile(filename)
	if err != nil {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	d, err := c.Decode(bytes.NewReader(data))
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"filename": filename,
			"valid":    false,
			"error":    err.Error(),
		})
		return
	}

	problems := navtree.Validate(d)
	if problems == nil {
		problems = []navtree.Problem{}
	}
	resp := map[string]any{
		"filename": filename,
		"valid":    !navtree.HasErrors(problems),
		"problems": problems,
		"nodes":    navtree.Count(d.Tree),
		"parts":    navtree.PartNames(d.Tree),
	}
	if _, ok := c.(codec.Script); ok {
		resp["round_trip"] = navtree.Format(d) == string(data)
	}
	writeJSON(w, http.StatusOK, resp)
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
