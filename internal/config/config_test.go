package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/resort-app/resort/pkg/types"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
	if cfg.Backend.Kind != BackendResort || cfg.Backend.Variant != VariantMain {
		t.Errorf("Unexpected backend defaults %+v", cfg.Backend)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"backend kind", func(c *Config) { c.Backend.Kind = "grpc" }, "backend.kind"},
		{"ollama model", func(c *Config) { c.Backend.Kind = BackendOllama; c.Backend.Model = "" }, "backend.model"},
		{"variant", func(c *Config) { c.Backend.Variant = "beta" }, "backend.variant"},
		{"timeout", func(c *Config) { c.Backend.TimeoutSeconds = 0 }, "backend.timeout_seconds"},
		{"min confidence", func(c *Config) { c.Backend.MinConfidence = 1.5 }, "backend.min_confidence"},
		{"viewport", func(c *Config) { c.Preview.ViewportHeight = 0 }, "viewport"},
		{"max dim", func(c *Config) { c.Upload.MaxDim = -1 }, "upload.max_dim"},
		{"quality", func(c *Config) { c.Upload.Quality = 101 }, "upload.quality"},
		{"format", func(c *Config) { c.Output.Format = "gif" }, "output.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("Error %q does not mention %s", err, tt.field)
			}
		})
	}
}

func TestDefaultROIByVariant(t *testing.T) {
	cfg := Default()
	if roi := cfg.DefaultROI(); roi.XPercent != 0.175 || roi.WidthPercent != 0.65 {
		t.Errorf("Unexpected main ROI %+v", roi)
	}

	cfg.Backend.Variant = VariantRapid
	if roi := cfg.DefaultROI(); roi.XPercent != 0.25 || roi.HeightPercent != 0.5 {
		t.Errorf("Unexpected rapid ROI %+v", roi)
	}
	if cfg.DefaultROI() != types.DefaultROIRapid {
		t.Errorf("Rapid ROI %+v differs from %+v", cfg.DefaultROI(), types.DefaultROIRapid)
	}

	cfg.Backend.Variant = VariantMain
	if cfg.DefaultROI() != types.DefaultROIMain {
		t.Errorf("Main ROI %+v differs from %+v", cfg.DefaultROI(), types.DefaultROIMain)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := Default()
	cfg.Backend.Kind = BackendOllama
	cfg.Backend.Model = "llava:13b"
	cfg.Preview.AllowDegradedConfirm = true
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.Backend.Model != "llava:13b" || !loaded.Preview.AllowDegradedConfirm {
		t.Errorf("Loaded config does not match: %+v", loaded)
	}
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"backend":{"variant":"rapid"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Backend.Variant != VariantRapid {
		t.Errorf("Expected rapid variant, got %s", cfg.Backend.Variant)
	}
	if cfg.Upload.Quality != 80 || cfg.Preview.ViewportWidth != 400 {
		t.Errorf("Expected defaults for missing sections, got %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Partial config should validate: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("{"), 0644)
	if _, err := LoadFromFile(path); err == nil {
		t.Error("Expected error for malformed file")
	}
}

func TestGetConfigPath(t *testing.T) {
	if !strings.HasSuffix(GetConfigPath(), filepath.Join("resort", "config.json")) &&
		GetConfigPath() != "./config.json" {
		t.Errorf("Unexpected config path %s", GetConfigPath())
	}
}
