// Package backend is the HTTP client for the bottle analysis API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/resort-app/resort/pkg/types"
)

// Default rectangles, re-exported for callers of this package
var (
	DefaultROIMain  = types.DefaultROIMain
	DefaultROIRapid = types.DefaultROIRapid
)

const (
	analyzePath = "/api/v1/analyze"
	healthPath  = "/health"
)

// Config holds the client settings
type Config struct {
	BaseURL        string
	DefaultROI     types.NormalizedROI
	AnalyzeTimeout time.Duration
	HealthTimeout  time.Duration
	UserAgent      string
}

// Client talks to the analysis backend
type Client struct {
	config     Config
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for baseURL with the main app defaults
func NewClient(baseURL string) (*Client, error) {
	return NewClientWithConfig(Config{BaseURL: baseURL})
}

// NewClientWithConfig creates a client with custom settings
func NewClientWithConfig(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q: need http(s)://host", cfg.BaseURL)
	}

	if cfg.DefaultROI == (types.NormalizedROI{}) {
		cfg.DefaultROI = DefaultROIMain
	}
	if cfg.AnalyzeTimeout <= 0 {
		cfg.AnalyzeTimeout = 30 * time.Second
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ReSort/1.0"
	}

	return &Client{
		config:     cfg,
		baseURL:    strings.TrimRight(u.String(), "/"),
		httpClient: &http.Client{},
	}, nil
}

// BaseURL returns the normalized backend URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Analyze uploads the image with the ROI as query parameters
func (c *Client) Analyze(ctx context.Context, imageJPEG []byte, roi *types.NormalizedROI) (*types.AnalysisResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.AnalyzeTimeout)
	defer cancel()

	params := c.config.DefaultROI
	if roi != nil {
		params = *roi
	}

	body, contentType, err := multipartImage(imageJPEG)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + analyzePath + "?" + roiQuery(params).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	respBody, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var result types.AnalysisResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

// Health checks that the backend is reachable
func (c *Client) Health(ctx context.Context) (*types.HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	respBody, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var status types.HealthStatus
	if err := json.Unmarshal(respBody, &status); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}
	return &status, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if text := strings.TrimSpace(string(respBody)); text != "" {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, text)
		}
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return respBody, nil
}

func roiQuery(roi types.NormalizedROI) url.Values {
	q := url.Values{}
	q.Set("roi_x_percent", formatFloat(roi.XPercent))
	q.Set("roi_y_percent", formatFloat(roi.YPercent))
	q.Set("roi_width_percent", formatFloat(roi.WidthPercent))
	q.Set("roi_height_percent", formatFloat(roi.HeightPercent))
	return q
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func multipartImage(imageJPEG []byte) (io.Reader, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="bottle.jpg"`)
	h.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(imageJPEG); err != nil {
		return nil, "", fmt.Errorf("write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}
