package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/doxnav/internal/navtree"
	"github.com/dgallion1/doxnav/internal/pipeline"
	"github.com/dgallion1/doxnav/internal/site"
	"github.com/dgallion1/doxnav/internal/store"
)

// ErrNotFound is returned when the server answers 404.
var ErrNotFound = errors.New("not found")

// Client communicates with the doxnav HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CheckRef is the response from POST /api/sites/{site}/check. Existing is
// set when the server handed back a check already in progress.
type CheckRef struct {
	JobID    string             `json:"job_id"`
	Site     string             `json:"site"`
	Status   pipeline.JobStatus `json:"status"`
	Existing bool               `json:"existing"`
	PollURL  string             `json:"poll_url"`
}

// Validation is the response from POST /api/validate.
type Validation struct {
	Filename  string            `json:"filename"`
	Valid     bool              `json:"valid"`
	Error     string            `json:"error,omitempty"`
	Problems  []navtree.Problem `json:"problems"`
	Nodes     int               `json:"nodes"`
	Parts     []string          `json:"parts"`
	RoundTrip *bool             `json:"round_trip,omitempty"`
}

// Sites lists the configured documentation sites and their load state.
func (c *Client) Sites(ctx context.Context) ([]pipeline.SiteStatus, error) {
	var result struct {
		Sites []pipeline.SiteStatus `json:"sites"`
	}
	if err := c.getJSON(ctx, "/api/sites", nil, &result); err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return result.Sites, nil
}

// Navtree fetches the raw tree of a site in the given codec format.
func (c *Client) Navtree(ctx context.Context, siteName, format string, expand bool) ([]byte, error) {
	q := url.Values{}
	if format != "" {
		q.Set("format", format)
	}
	if expand {
		q.Set("expand", "true")
	}
	resp, err := c.do(ctx, http.MethodGet, sitePath(siteName, "navtree"), q, nil, "")
	if err != nil {
		return nil, fmt.Errorf("navtree %s: %w", siteName, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, http.StatusOK); err != nil {
		return nil, fmt.Errorf("navtree %s: %w", siteName, err)
	}
	return io.ReadAll(resp.Body)
}

// Resolve returns the breadcrumb trail of url within a site.
func (c *Client) Resolve(ctx context.Context, siteName, target string) (*site.Breadcrumb, error) {
	var bc site.Breadcrumb
	if err := c.getJSON(ctx, sitePath(siteName, "resolve"), url.Values{"url": {target}}, &bc); err != nil {
		return nil, fmt.Errorf("resolve %s: %w", target, err)
	}
	return &bc, nil
}

// Search runs a title search. A limit of zero uses the server default.
func (c *Client) Search(ctx context.Context, siteName, query string, limit int) ([]store.Entry, error) {
	q := url.Values{"q": {query}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var result struct {
		Results []store.Entry `json:"results"`
	}
	if err := c.getJSON(ctx, sitePath(siteName, "search"), q, &result); err != nil {
		return nil, fmt.Errorf("search %s: %w", siteName, err)
	}
	return result.Results, nil
}

// Check submits a link check job for a site.
func (c *Client) Check(ctx context.Context, siteName string) (*CheckRef, error) {
	resp, err := c.do(ctx, http.MethodPost, sitePath(siteName, "check"), nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("submit check: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		if err := checkStatus(resp, http.StatusAccepted); err != nil {
			return nil, fmt.Errorf("submit check %s: %w", siteName, err)
		}
	}
	var ref CheckRef
	if err := json.NewDecoder(resp.Body).Decode(&ref); err != nil {
		return nil, fmt.Errorf("decode check: %w", err)
	}
	return &ref, nil
}

// CheckStatus fetches the current state of a check job.
func (c *Client) CheckStatus(ctx context.Context, jobID string) (*pipeline.JobSnapshot, error) {
	var snap pipeline.JobSnapshot
	if err := c.getJSON(ctx, "/api/checks/"+url.PathEscape(jobID)+"/status", nil, &snap); err != nil {
		return nil, fmt.Errorf("check status %s: %w", jobID, err)
	}
	return &snap, nil
}

// DefaultPollInterval is used by WaitCheck when no positive interval is given.
const DefaultPollInterval = time.Second

// WaitCheck polls a job until it leaves the queued and checking states.
func (c *Client) WaitCheck(ctx context.Context, jobID string, interval time.Duration) (*pipeline.JobSnapshot, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		snap, err := c.CheckStatus(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if snap.Status != pipeline.StatusQueued && snap.Status != pipeline.StatusChecking {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Validate uploads a navigation file for server-side validation. A file the
// server cannot decode is reported through Validation.Error, not err.
func (c *Client) Validate(ctx context.Context, filename string, data []byte) (*Validation, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/validate", nil, &body, mw.FormDataContentType())
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		if err := checkStatus(resp, http.StatusOK); err != nil {
			return nil, fmt.Errorf("validate %s: %w", filename, err)
		}
	}
	var v Validation
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, fmt.Errorf("decode validation: %w", err)
	}
	return &v, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, q, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, http.StatusOK); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body io.Reader, contentType string) (*http.Response, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.httpClient.Do(httpReq)
}

// checkStatus turns an unexpected status into an error carrying the
// server's message.
func checkStatus(resp *http.Response, want int) error {
	if resp.StatusCode == want {
		return nil
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	var e struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(respBody))
	if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
		msg = e.Error
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
}

func sitePath(siteName, endpoint string) string {
	return "/api/sites/" + url.PathEscape(siteName) + "/" + endpoint
}
