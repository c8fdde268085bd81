// Package ollama classifies bottle photos with a local Ollama vision model.
// It produces the same result shape as the REST backend.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

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

// DefaultConfig returns settings for a local Ollama on the default port
func DefaultConfig() Config {
	return Config{
		URL:           "http://localhost:11434",
		Model:         "llava",
		MinConfidence: 0.6,
		DefaultROI:    types.DefaultROIMain,
		Timeout:       300 * time.Second, // vision models on CPU are slow
		MaxDim:        1024,
		Quality:       85,
	}
}

// Client wraps the Ollama API client
type Client struct {
	client    *api.Client
	config    Config
	processor *processing.Processor
}

// NewClient creates a client for ollamaURL using model
func NewClient(ollamaURL, model string) (*Client, error) {
	cfg := DefaultConfig()
	cfg.URL = ollamaURL
	cfg.Model = model
	return NewClientWithConfig(cfg)
}

// NewClientWithConfig creates a client with custom settings. Zero values
// fall back to DefaultConfig.
func NewClientWithConfig(cfg Config) (*Client, error) {
	def := DefaultConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model name is required")
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

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid Ollama URL %q", cfg.URL)
	}

	// Drop any path like /api/chat, the SDK adds its own
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Client{
		client:    api.NewClient(baseURL, http.DefaultClient),
		config:    cfg,
		processor: processing.NewProcessor(),
	}, nil
}

// Analyze crops the ROI out of the photo and asks the model for its class
func (c *Client) Analyze(ctx context.Context, imageJPEG []byte, roi *types.NormalizedROI) (*types.AnalysisResult, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	start := time.Now()

	crop, err := c.crop(imageJPEG, roi)
	if err != nil {
		return nil, err
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: c.config.Model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: vlm.ClassifyPrompt,
				Images:  []api.ImageData{api.ImageData(crop)},
			},
		},
		Stream:  &streamFalse,
		Format:  json.RawMessage(`"json"`),
		Options: map[string]any{"temperature": 0},
	}

	var responseContent string
	err = c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent += resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat error: %w", err)
	}
	if strings.TrimSpace(responseContent) == "" {
		return nil, fmt.Errorf("empty response from ollama")
	}

	result := vlm.ParseResult(responseContent, c.config.MinConfidence)
	result.ProcessingTimeMS = float64(time.Since(start).Microseconds()) / 1000
	return result, nil
}

// Health checks that the Ollama server answers
func (c *Client) Health(ctx context.Context) (*types.HealthStatus, error) {
	if err := c.client.Heartbeat(ctx); err != nil {
		return nil, fmt.Errorf("ollama heartbeat failed: %w", err)
	}

	version, err := c.client.Version(ctx)
	if err != nil {
		version = ""
	}

	return &types.HealthStatus{
		Status:        "healthy",
		Version:       version,
		AnalysisReady: true,
	}, nil
}

func (c *Client) crop(imageJPEG []byte, roi *types.NormalizedROI) ([]byte, error) {
	r := c.config.DefaultROI
	if roi != nil {
		r = *roi
	}
	return vlm.CropForModel(c.processor, imageJPEG, r, c.config.MaxDim, c.config.Quality)
}
