// Package imagesource opens bottle photos from disk or http(s) URLs, probes
// their natural pixel size and decodes them.
package imagesource

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Source resolves image URIs
type Source struct {
	config     Config
	httpClient *http.Client
}

// Config holds configuration for the image source
type Config struct {
	SupportedFormats []string
	MinImageSize     int
	FetchTimeout     time.Duration
	UserAgent        string
}

// DefaultConfig returns the formats accepted by the analysis backend
func DefaultConfig() Config {
	return Config{
		SupportedFormats: []string{"jpg", "jpeg", "png", "webp"},
		MinImageSize:     32,
		FetchTimeout:     30 * time.Second,
		UserAgent:        "ReSort/1.0",
	}
}

// New creates a new Source with default configuration
func New() *Source {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a new Source with custom configuration
func NewWithConfig(config Config) *Source {
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = 30 * time.Second
	}
	return &Source{
		config:     config,
		httpClient: &http.Client{Timeout: config.FetchTimeout},
	}
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Format      string  `json:"format"`
	AspectRatio float64 `json:"aspect_ratio"`
}

// IsRemote reports whether uri is an http or https URL
func IsRemote(uri string) bool {
	return strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://")
}

// Open returns a reader for a local path or an http(s) URL
func (s *Source) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	if IsRemote(uri) {
		return s.fetch(ctx, uri)
	}

	f, err := os.Open(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	return f, nil
}

// Probe reads just enough of the image to learn its natural size
func (s *Source) Probe(ctx context.Context, uri string) (int, int, error) {
	info, err := s.Info(ctx, uri)
	if err != nil {
		return 0, 0, err
	}
	return info.Width, info.Height, nil
}

// Info decodes the image header and returns its size and format. Only the
// header is read, the rest of the body is left unread.
func (s *Source) Info(ctx context.Context, uri string) (ImageInfo, error) {
	rc, err := s.Open(ctx, uri)
	if err != nil {
		return ImageInfo{}, err
	}
	defer rc.Close()
	return s.readInfo(rc)
}

func (s *Source) readInfo(r io.Reader) (ImageInfo, error) {
	var head bytes.Buffer
	cfg, format, err := image.DecodeConfig(io.TeeReader(r, &head))
	if err != nil {
		// Some webp variants are only understood by libwebp
		if !isWebP(head.Bytes()) {
			return ImageInfo{}, fmt.Errorf("failed to decode image header: %w", err)
		}
		cfg, err = webp.DecodeConfig(io.MultiReader(&head, r))
		if err != nil {
			return ImageInfo{}, fmt.Errorf("failed to decode webp header: %w", err)
		}
		format = "webp"
	}

	if !s.isFormatSupported(format) {
		return ImageInfo{}, fmt.Errorf("unsupported image format: %s", format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, fmt.Errorf("invalid image dimensions: %dx%d", cfg.Width, cfg.Height)
	}

	return ImageInfo{
		Width:       cfg.Width,
		Height:      cfg.Height,
		Format:      format,
		AspectRatio: float64(cfg.Width) / float64(cfg.Height),
	}, nil
}

// Load fully decodes the image at uri
func (s *Source) Load(ctx context.Context, uri string) (image.Image, error) {
	data, err := s.read(ctx, uri)
	if err != nil {
		return nil, err
	}
	return s.Decode(data)
}

func (s *Source) read(ctx context.Context, uri string) ([]byte, error) {
	rc, err := s.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// Decode decodes image bytes, trying the registered decoders first and
// libwebp second.
func (s *Source) Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}
	if img, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
		return img, nil
	}
	return nil, fmt.Errorf("failed to decode image: %w", err)
}

// Validate checks if an image meets minimum requirements
func (s *Source) Validate(img image.Image) error {
	bounds := img.Bounds()
	if bounds.Dx() < s.config.MinImageSize || bounds.Dy() < s.config.MinImageSize {
		return fmt.Errorf("image too small: %dx%d (minimum: %d)",
			bounds.Dx(), bounds.Dy(), s.config.MinImageSize)
	}
	return nil
}

func (s *Source) fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if _, err := url.Parse(rawURL); err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		resp.Body.Close()
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	return resp.Body, nil
}

func (s *Source) isFormatSupported(format string) bool {
	for _, supported := range s.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
	}
	return false
}

// isWebP checks the RIFF/WEBP signature
func isWebP(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	return string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}
