// Package resort is a bottle glass-color sorting assistant.
//
// A photo of a bottle is opened in a preview session where the user marks a
// circular region of interest. The circle is projected onto the displayed
// image and sent, as normalized percentages, together with the photo to a
// classification backend. The detected glass category decides the container
// the bottle belongs in.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		"github.com/resort-app/resort"
//	)
//
//	func main() {
//		ctx := context.Background()
//		assistant, err := resort.New("https://api.example.com")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		// Open the preview and wait for the image layout
//		session, err := assistant.OpenPreview(ctx, "bottle.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer session.Close()
//		<-session.Ready()
//
//		// Move the circle a little to the right and confirm
//		session.BeginDrag()
//		session.Drag(20, 0)
//		session.EndGesture()
//		roi, err := session.Confirm()
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		outcome, err := assistant.Analyze(ctx, "bottle.jpg", &roi)
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Println(outcome.Kind, outcome.Glass.Container)
//	}
//
// The package consists of these components:
//
//  1. ROI (pkg/roi): layout resolution, selection clamping and projection
//  2. Preview (pkg/preview): the interactive session that owns the ROI engine
//  3. Image source (pkg/imagesource): file and URL loading, size probing
//  4. Processing (pkg/processing): upload encoding, ROI crops, debug overlays
//  5. Backends (pkg/backend, pkg/ollama, pkg/llamacpp): analysis clients
//  6. Detection (pkg/detection) and glass catalog (pkg/glass): result handling
package resort

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/resort-app/resort/internal/config"
	"github.com/resort-app/resort/internal/utils"
	"github.com/resort-app/resort/pkg/backend"
	"github.com/resort-app/resort/pkg/client"
	"github.com/resort-app/resort/pkg/detection"
	"github.com/resort-app/resort/pkg/imagesource"
	"github.com/resort-app/resort/pkg/llamacpp"
	"github.com/resort-app/resort/pkg/ollama"
	"github.com/resort-app/resort/pkg/preview"
	"github.com/resort-app/resort/pkg/processing"
	"github.com/resort-app/resort/pkg/roi"
	"github.com/resort-app/resort/pkg/types"
)

// Version of the resort library
const Version = "1.0.0"

// Assistant wires the image source, the ROI preview and the analysis backend
type Assistant struct {
	config    *config.Config
	source    *imagesource.Source
	processor *processing.Processor
	client    client.AnalysisClient
	detector  *detection.Detector
	logger    *slog.Logger
}

// New creates an Assistant for the REST backend at apiURL with default
// configuration.
func New(apiURL string) (*Assistant, error) {
	cfg := config.Default()
	cfg.Backend.URL = apiURL
	return NewWithConfig(cfg, nil)
}

// NewWithConfig creates an Assistant from a configuration. An empty backend
// URL falls back to config.DefaultAPIURL for the REST backend.
func NewWithConfig(cfg *config.Config, logger *slog.Logger) (*Assistant, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithClient(cfg, c, logger), nil
}

// NewWithClient creates an Assistant that uses a custom analysis client
func NewWithClient(cfg *config.Config, c client.AnalysisClient, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}

	srcConfig := imagesource.DefaultConfig()
	srcConfig.SupportedFormats = utils.UploadFormats

	return &Assistant{
		config:    cfg,
		source:    imagesource.NewWithConfig(srcConfig),
		processor: processing.NewProcessor(),
		client:    c,
		detector:  detection.NewDetector(c, logger.With("component", "detection")),
		logger:    logger,
	}
}

func newClient(cfg *config.Config) (client.AnalysisClient, error) {
	timeout := time.Duration(cfg.Backend.TimeoutSeconds) * time.Second

	switch cfg.Backend.Kind {
	case config.BackendOllama:
		oc := ollama.DefaultConfig()
		if cfg.Backend.URL != "" {
			oc.URL = cfg.Backend.URL
		}
		oc.Model = cfg.Backend.Model
		oc.MinConfidence = cfg.Backend.MinConfidence
		oc.DefaultROI = cfg.DefaultROI()
		oc.Timeout = timeout
		c, err := ollama.NewClientWithConfig(oc)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		return c, nil
	case config.BackendLlamaCpp:
		lc := llamacpp.DefaultConfig()
		lc.URL = cfg.Backend.URL
		lc.Model = cfg.Backend.Model
		lc.MinConfidence = cfg.Backend.MinConfidence
		lc.DefaultROI = cfg.DefaultROI()
		lc.Timeout = timeout
		c, err := llamacpp.NewClientWithConfig(lc)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		return c, nil
	default:
		url := cfg.Backend.URL
		if url == "" {
			url = config.DefaultAPIURL()
		}
		c, err := backend.NewClientWithConfig(backend.Config{
			BaseURL:        url,
			DefaultROI:     cfg.DefaultROI(),
			AnalyzeTimeout: timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create backend client: %w", err)
		}
		return c, nil
	}
}

// Config returns the active configuration
func (a *Assistant) Config() *config.Config {
	return a.config
}

// Client returns the analysis client
func (a *Assistant) Client() client.AnalysisClient {
	return a.client
}

// OpenPreview opens a preview session for uri using the configured viewport
func (a *Assistant) OpenPreview(ctx context.Context, uri string) (*preview.Session, error) {
	vp := roi.Viewport{Width: a.config.Preview.ViewportWidth, Height: a.config.Preview.ViewportHeight}
	return preview.Open(ctx, uri, vp, a.source, preview.Options{
		AllowDegradedConfirm: a.config.Preview.AllowDegradedConfirm,
		Logger:               a.logger,
	})
}

// LoadImage loads and validates the photo at uri
func (a *Assistant) LoadImage(ctx context.Context, uri string) (image.Image, error) {
	img, err := a.source.Load(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	if err := a.source.Validate(img); err != nil {
		return nil, fmt.Errorf("image validation failed: %w", err)
	}
	return img, nil
}

// PrepareUpload encodes a photo the way it is sent to the backend
func (a *Assistant) PrepareUpload(img image.Image) ([]byte, error) {
	data, err := a.processor.EncodeForUpload(img, a.config.Upload.MaxDim, a.config.Upload.Quality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode upload: %w", err)
	}
	return data, nil
}

// Analyze loads the photo at uri and classifies the bottle inside roi. A nil
// roi sends the configured default rectangle. Backend failures are reported
// through the outcome kind, not the error.
func (a *Assistant) Analyze(ctx context.Context, uri string, roi *types.NormalizedROI) (*detection.Outcome, error) {
	img, err := a.LoadImage(ctx, uri)
	if err != nil {
		return nil, err
	}

	data, err := a.PrepareUpload(img)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("prepared upload", "uri", uri, "size", utils.FormatFileSize(int64(len(data))))

	return a.detector.Detect(ctx, data, roi), nil
}

// SaveDebugOverlay draws roi onto img and writes it next to the configured
// output directory. It returns the written path.
func (a *Assistant) SaveDebugOverlay(img image.Image, roi types.NormalizedROI, uri string) (string, error) {
	out := a.config.Output
	if err := utils.EnsureDir(out.Dir); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := utils.GenerateOutputFilename(uri, out.Dir, out.Suffix, out.Format)
	overlay := a.processor.CreateDebugOverlay(img, roi)
	if err := a.processor.SaveImage(overlay, path, out.Format, 92, false); err != nil {
		return "", err
	}
	return path, nil
}

// Health checks the analysis backend
func (a *Assistant) Health(ctx context.Context) (*types.HealthStatus, error) {
	return a.client.Health(ctx)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
