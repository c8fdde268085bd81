package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/resort-app/resort/pkg/types"
)

// Backend kinds
const (
	BackendResort   = "resort"
	BackendOllama   = "ollama"
	BackendLlamaCpp = "llamacpp"
)

// App variants, each with its own default rectangle
const (
	VariantMain  = "main"
	VariantRapid = "rapid"
)

// Config holds the application configuration
type Config struct {
	Backend BackendConfig `json:"backend"`
	Preview PreviewConfig `json:"preview"`
	Upload  UploadConfig  `json:"upload"`
	Output  OutputConfig  `json:"output"`
}

// BackendConfig selects and configures the analysis backend
type BackendConfig struct {
	Kind           string  `json:"kind"`
	URL            string  `json:"url"`
	Model          string  `json:"model"`
	Variant        string  `json:"variant"`
	TimeoutSeconds int     `json:"timeout_seconds"`
	MinConfidence  float64 `json:"min_confidence"`
}

// PreviewConfig holds the ROI preview settings
type PreviewConfig struct {
	ViewportWidth        float64 `json:"viewport_width"`
	ViewportHeight       float64 `json:"viewport_height"`
	AllowDegradedConfirm bool    `json:"allow_degraded_confirm"`
}

// UploadConfig controls how photos are prepared before upload
type UploadConfig struct {
	MaxDim  int `json:"max_dim"`
	Quality int `json:"quality"`
}

// OutputConfig holds configuration for debug output
type OutputConfig struct {
	Dir          string `json:"dir"`
	DebugOverlay bool   `json:"debug_overlay"`
	Format       string `json:"format"`
	Suffix       string `json:"suffix"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Kind:           BackendResort,
			URL:            "",
			Model:          "llava",
			Variant:        VariantMain,
			TimeoutSeconds: 30,
			MinConfidence:  0.6,
		},
		Preview: PreviewConfig{
			ViewportWidth:        400,
			ViewportHeight:       800,
			AllowDegradedConfirm: false,
		},
		Upload: UploadConfig{
			MaxDim:  1600,
			Quality: 80,
		},
		Output: OutputConfig{
			Dir:          "./output",
			DebugOverlay: false,
			Format:       "jpg",
			Suffix:       "_roi",
		},
	}
}

// DefaultROI returns the rectangle sent when no ROI was confirmed
func (c *Config) DefaultROI() types.NormalizedROI {
	if c.Backend.Variant == VariantRapid {
		return types.DefaultROIRapid
	}
	return types.DefaultROIMain
}

// LoadFromFile loads configuration from a JSON file. Missing fields keep
// their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case BackendResort, BackendOllama, BackendLlamaCpp:
	default:
		return fmt.Errorf("backend.kind must be %q, %q or %q", BackendResort, BackendOllama, BackendLlamaCpp)
	}

	if c.Backend.Kind == BackendOllama && c.Backend.Model == "" {
		return fmt.Errorf("backend.model is required for the ollama backend")
	}

	if c.Backend.Variant != VariantMain && c.Backend.Variant != VariantRapid {
		return fmt.Errorf("backend.variant must be %q or %q", VariantMain, VariantRapid)
	}

	if c.Backend.TimeoutSeconds < 1 {
		return fmt.Errorf("backend.timeout_seconds must be positive")
	}

	if c.Backend.MinConfidence < 0 || c.Backend.MinConfidence > 1 {
		return fmt.Errorf("backend.min_confidence must be between 0 and 1")
	}

	if c.Preview.ViewportWidth <= 0 || c.Preview.ViewportHeight <= 0 {
		return fmt.Errorf("preview viewport must be positive")
	}

	if c.Upload.MaxDim < 0 {
		return fmt.Errorf("upload.max_dim cannot be negative")
	}

	if c.Upload.Quality < 1 || c.Upload.Quality > 100 {
		return fmt.Errorf("upload.quality must be between 1 and 100")
	}

	switch c.Output.Format {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("output.format must be jpg, png or webp")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "resort", "config.json")
}
