// Package llamacpp classifies bottle photos through the OpenAI-compatible chat
// endpoint of a llama.cpp server running a multimodal model.
package llamacpp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resort-app/resort/pkg/processing"
	"github.com/resort-app/resort/pkg/types"
	"github.com/resort-app/resort/pkg/vlm"
)

// Config holds the adapter settings
type Config struct {
	URL           string
	Model         string
	MinConfidence float64
	DefaultROI    types.NormalizedROI
	Timeout       time.Duration
	MaxDim        int
	Quality       int
}

// DefaultConfig returns settings for a llama.cpp server on the default port
func DefaultConfig() Config {
	return Config{
		URL:           "http://localhost:8080",
		MinConfidence: 0.6,
		DefaultROI:    types.DefaultROIMain,
		Timeout:       5 * time.Minute,
		MaxDim:        1024,
		Quality:       85,
	}
}

type Client struct {
	baseURL    string
	config     Config
	httpClient *http.Client
	processor  *processing.Processor
}

// OpenAI-compatible message format
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string or []ContentPart
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// OpenAI-compatible chat completion request
type ChatCompletionRequest struct {
	Model          string          `json:"model,omitempty"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Stream         bool            `json:"stream"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

// OpenAI-compatible chat completion response
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// NewClient creates a client for serverURL with default settings
func NewClient(serverURL string) (*Client, error) {
	cfg := DefaultConfig()
	if serverURL != "" {
		cfg.URL = serverURL
	}
	return NewClientWithConfig(cfg)
}

// NewClientWithConfig creates a client with custom settings. Zero values
// fall back to DefaultConfig.
func NewClientWithConfig(cfg Config) (*Client, error) {
	def := DefaultConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = def.MinConfidence
	}
	if cfg.DefaultROI == (types.NormalizedROI{}) {
		cfg.DefaultROI = def.DefaultROI
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxDim <= 0 {
		cfg.MaxDim = def.MaxDim
	}
	if cfg.Quality <= 0 {
		cfg.Quality = def.Quality
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid llama.cpp URL %q", cfg.URL)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		processor:  processing.NewProcessor(),
	}, nil
}

// Analyze crops the ROI out of the photo and asks the model for its class
func (c *Client) Analyze(ctx context.Context, imageJPEG []byte, roi *types.NormalizedROI) (*types.AnalysisResult, error) {
	start := time.Now()

	r := c.config.DefaultROI
	if roi != nil {
		r = *roi
	}
	crop, err := vlm.CropForModel(c.processor, imageJPEG, r, c.config.MaxDim, c.config.Quality)
	if err != nil {
		return nil, err
	}

	req := ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []Message{
			{
				Role: "user",
				Content: []ContentPart{
					{Type: "text", Text: vlm.ClassifyPrompt},
					{Type: "image_url", ImageURL: &ImageURL{
						URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(crop),
					}},
				},
			},
		},
		Temperature:    0,
		MaxTokens:      256,
		Stream:         false,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}

	respBody, err := c.sendRequest(ctx, http.MethodPost, "/v1/chat/completions", req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	text := messageText(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, fmt.Errorf("empty response from llama.cpp server")
	}

	result := vlm.ParseResult(text, c.config.MinConfidence)
	result.ProcessingTimeMS = float64(time.Since(start).Microseconds()) / 1000
	return result, nil
}

// Health queries the server's /health endpoint
func (c *Client) Health(ctx context.Context) (*types.HealthStatus, error) {
	body, err := c.sendRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}

	return &types.HealthStatus{
		Status:        raw.Status,
		AnalysisReady: raw.Status == "ok",
	}, nil
}

// messageText extracts the text of a reply in string or content-part form
func messageText(content interface{}) string {
	switch content := content.(type) {
	case string:
		return content
	case []interface{}:
		for _, item := range content {
			if partMap, ok := item.(map[string]interface{}); ok {
				if text, ok := partMap["text"].(string); ok && text != "" {
					return text
				}
			}
		}
	}
	return ""
}

func (c *Client) sendRequest(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
