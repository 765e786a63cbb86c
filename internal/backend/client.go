package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go-sales-dashboard/internal/model"
	"go-sales-dashboard/internal/pipeline"
	"go-sales-dashboard/pkg/utils"

	"github.com/rs/zerolog/log"
)

const maxResponse = 64 << 20

// Client talks to the report backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for baseURL with the given request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

// NewWithHTTPClient returns a client that sends requests through hc.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// BaseURL is the backend root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// ReportRequest is one POST /generate-report submission.
type ReportRequest struct {
	TaskName    string
	Description string
	Sources     []model.Source
}

// FetchData loads the ad-hoc visualization feed from GET /api/data.
func (c *Client) FetchData(ctx context.Context) ([]model.RawRow, error) {
	body, err := c.get(ctx, "/api/data")
	if err != nil {
		return nil, err
	}
	return pipeline.Parse(string(body), model.FormatJSON)
}

// ListTasks returns the reports the backend knows about.
func (c *Client) ListTasks(ctx context.Context) ([]model.TaskSummary, error) {
	body, err := c.get(ctx, "/tasks")
	if err != nil {
		return nil, err
	}
	var resp struct {
		Tasks []model.TaskSummary `json:"tasks"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &model.ParseError{Format: model.FormatJSON, Reason: "malformed task list", Err: err}
	}
	return resp.Tasks, nil
}

// Analytics loads and validates a report's analytics.
func (c *Client) Analytics(ctx context.Context, taskName string) (model.Analytics, error) {
	body, err := c.get(ctx, "/tasks/"+url.PathEscape(taskName)+"/analytics")
	if err != nil {
		return model.Analytics{}, err
	}
	return pipeline.DecodeAnalytics(taskName, body)
}

// GenerateReport submits a report and returns the backend's response body.
func (c *Client) GenerateReport(ctx context.Context, req ReportRequest) (json.RawMessage, error) {
	var buf bytes.Buffer
	contentType, err := WriteReportForm(&buf, req)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/generate-report"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	log.Info().Str("task", req.TaskName).Int("sources", len(req.Sources)).Msg("🚀 Submitting report")
	body, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// WriteReportForm encodes req as the multipart form POST /generate-report
// expects and returns its content type. File sources become "sources" parts,
// URL sources are collected in "source_urls" and parsed filters are keyed by
// the source's index in "source_filters".
func WriteReportForm(w io.Writer, req ReportRequest) (string, error) {
	mw := multipart.NewWriter(w)
	if err := mw.WriteField("task_name", req.TaskName); err != nil {
		return "", err
	}
	if err := mw.WriteField("task_description", req.Description); err != nil {
		return "", err
	}

	urls := []string{}
	filters := map[string]model.SourceFilter{}
	for i, src := range req.Sources {
		if !src.Filter.IsZero() {
			filters[strconv.Itoa(i)] = src.Filter
		}
		switch src.Kind {
		case model.SourceURL:
			urls = append(urls, src.URL)
		case model.SourceFile:
			if err := writeFilePart(mw, src); err != nil {
				return "", err
			}
		default:
			return "", &model.ValidationError{Field: "sources", Message: fmt.Sprintf("source %q has unknown kind %q", src.Name, src.Kind)}
		}
	}

	if len(urls) > 0 {
		encoded, err := json.Marshal(urls)
		if err != nil {
			return "", err
		}
		if err := mw.WriteField("source_urls", string(encoded)); err != nil {
			return "", err
		}
	}
	if len(filters) > 0 {
		encoded, err := json.Marshal(filters)
		if err != nil {
			return "", err
		}
		if err := mw.WriteField("source_filters", string(encoded)); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	return mw.FormDataContentType(), nil
}

func writeFilePart(mw *multipart.Writer, src model.Source) error {
	f, err := os.Open(src.Path)
	if err != nil {
		return fmt.Errorf("failed to open source %s: %w", src.Name, err)
	}
	defer f.Close()

	part, err := mw.CreateFormFile("sources", filepath.Base(src.Path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to read source %s: %w", src.Name, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

// do sends req; transport failures and non-2xx answers are NetworkErrors.
func (c *Client) do(req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Error().Err(err).Str("method", req.Method).Str("url", req.URL.String()).Msg("❌ Backend unreachable")
		return nil, &model.NetworkError{Op: req.Method, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return nil, &model.NetworkError{Op: req.Method, URL: req.URL.String(), Err: err}
	}

	log.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("🌐 Backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := utils.Truncate(strings.TrimSpace(string(body)), 200)
		return nil, &model.NetworkError{Op: req.Method, URL: req.URL.String(), StatusCode: resp.StatusCode, Body: snippet}
	}
	return body, nil
}
