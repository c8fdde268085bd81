package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/resort-app/resort"
	"github.com/resort-app/resort/internal/config"
	"github.com/resort-app/resort/internal/utils"
	"github.com/resort-app/resort/pkg/detection"
	"github.com/resort-app/resort/pkg/glass"
	"github.com/resort-app/resort/pkg/imagesource"
	"github.com/resort-app/resort/pkg/types"
)

// report is what the CLI prints on stdout
type report struct {
	Input     string               `json:"input"`
	ROI       *types.NormalizedROI `json:"roi,omitempty"`
	Outcome   *detection.Outcome   `json:"outcome"`
	Display   string               `json:"display,omitempty"`
	Container string               `json:"container,omitempty"`
	Warning   string               `json:"warning,omitempty"`
	Overlay   string               `json:"overlay,omitempty"`
}

func main() {
	var in, configPath, backendKind, url, model, variant, viewport string
	var drag, resize, setURL, logLevel, outDir, ext string
	var noROI, debug, health, degraded bool
	var probeTimeout time.Duration

	flag.StringVar(&in, "in", "", "input image path or URL (jpg/png/webp)")
	flag.StringVar(&configPath, "config", "", "config file (default "+config.GetConfigPath()+" if present)")
	flag.StringVar(&backendKind, "backend", "", "analysis backend: resort, ollama or llamacpp")
	flag.StringVar(&url, "url", "", "backend URL (default: saved setting, $"+config.EnvAPIURL+" or built-in)")
	flag.StringVar(&model, "model", "", "model name for the ollama and llamacpp backends")
	flag.StringVar(&variant, "variant", "", "default ROI variant: main or rapid")
	flag.StringVar(&viewport, "viewport", "", "preview viewport WxH, e.g. 400x800")
	flag.StringVar(&drag, "drag", "", "drag gesture deltas dx,dy;dx,dy;...")
	flag.StringVar(&resize, "resize", "", "resize gesture deltas dx,dy;dx,dy;...")
	flag.BoolVar(&noROI, "noroi", false, "skip the preview and send the default ROI")
	flag.BoolVar(&degraded, "degraded", false, "allow confirming an ROI when the image size is unknown")
	flag.DurationVar(&probeTimeout, "probe-timeout", 30*time.Second, "how long to wait for the image size")
	flag.BoolVar(&debug, "debug", false, "write a debug overlay with the ROI")
	flag.StringVar(&outDir, "out", "", "output directory for debug overlays")
	flag.StringVar(&ext, "ext", "", "debug overlay format: jpg|png|webp")
	flag.BoolVar(&health, "health", false, "check the backend and exit")
	flag.StringVar(&setURL, "set-url", "", "save the backend URL (must start with https://) and exit")
	flag.StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	flag.Parse()

	level, err := parseLevel(logLevel)
	if err != nil {
		log.Fatal(err)
	}
	logger := NewLogger(level)
	slog.SetDefault(logger)

	settings := config.NewSettingsStore(config.GetSettingsPath())
	if err := settings.LoadError(); err != nil {
		logger.Warn("using default backend URL", "error", err)
	}
	if setURL != "" {
		saved, err := settings.SetAPIURL(setURL)
		if err != nil {
			log.Fatalf("Failed to save backend URL: %v", err)
		}
		fmt.Println(saved)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}

	// Flags override the config file
	if backendKind != "" {
		cfg.Backend.Kind = backendKind
	}
	if url != "" {
		cfg.Backend.URL = url
	}
	if model != "" {
		cfg.Backend.Model = model
	}
	if variant != "" {
		cfg.Backend.Variant = variant
	}
	if viewport != "" {
		vp, err := parseViewport(viewport)
		if err != nil {
			log.Fatal(err)
		}
		cfg.Preview.ViewportWidth, cfg.Preview.ViewportHeight = vp.Width, vp.Height
	}
	if degraded {
		cfg.Preview.AllowDegradedConfirm = true
	}
	if outDir != "" {
		cfg.Output.Dir = outDir
	}
	if ext != "" {
		cfg.Output.Format = ext
	}
	if debug {
		cfg.Output.DebugOverlay = true
	}
	if cfg.Backend.Kind == config.BackendResort && cfg.Backend.URL == "" {
		cfg.Backend.URL = settings.APIURL()
	}

	assistant, err := resort.NewWithConfig(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	if health {
		status, err := assistant.Health(ctx)
		if err != nil {
			log.Fatalf("Backend not reachable: %v", err)
		}
		printJSON(status)
		return
	}

	if in == "" {
		log.Fatalf("usage: %s -in bottle.jpg|URL [-backend resort|ollama|llamacpp] [-url server_url] [-drag dx,dy;...] [-resize dx,dy;...] [-noroi] [-debug]", filepath.Base(os.Args[0]))
	}
	if !imagesource.IsRemote(in) {
		if !utils.FileExists(in) {
			log.Fatalf("Input file not found: %s", in)
		}
		if !utils.IsImageFile(in) {
			log.Fatalf("Unsupported image type: %s (use %v)", in, utils.UploadFormats)
		}
	}

	dragDeltas, err := parseDeltas(drag)
	if err != nil {
		log.Fatal(err)
	}
	resizeDeltas, err := parseDeltas(resize)
	if err != nil {
		log.Fatal(err)
	}

	var roi *types.NormalizedROI
	if !noROI {
		r, err := selectROI(ctx, assistant, in, dragDeltas, resizeDeltas, probeTimeout)
		if err != nil {
			log.Fatalf("ROI selection failed: %v", err)
		}
		roi = &r
		logger.Info("roi confirmed",
			"x", r.XPercent, "y", r.YPercent, "w", r.WidthPercent, "h", r.HeightPercent)
	}

	outcome, err := assistant.Analyze(ctx, in, roi)
	if err != nil {
		log.Fatal(err)
	}

	rep := report{Input: in, ROI: roi, Outcome: outcome}
	if outcome.Kind == detection.KindDetected {
		rep.Display = glass.DisplayName(outcome.Detection.ClassName)
		rep.Container = outcome.Glass.Container
		if outcome.Review {
			rep.Warning = "Niedrige Konfidenz, bitte Ergebnis prüfen"
		}
	}

	if cfg.Output.DebugOverlay {
		overlayROI := cfg.DefaultROI()
		if roi != nil {
			overlayROI = *roi
		}
		img, err := assistant.LoadImage(ctx, in)
		if err != nil {
			logger.Warn("debug overlay skipped", "error", err)
		} else if path, err := assistant.SaveDebugOverlay(img, overlayROI, in); err != nil {
			logger.Warn("debug overlay save failed", "error", err)
		} else {
			logger.Info("wrote debug overlay", "path", path)
			rep.Overlay = path
		}
	}

	printJSON(rep)
	if outcome.Kind == detection.KindNetworkError {
		os.Exit(2)
	}
}

// loadConfig reads an explicit config file, or the default one when it
// exists, or falls back to defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.GetConfigPath()
		if !utils.FileExists(path) {
			return config.Default(), nil
		}
	}
	return config.LoadFromFile(path)
}

// selectROI runs the preview session: wait for the layout, replay the
// gestures and confirm.
func selectROI(ctx context.Context, a *resort.Assistant, uri string, drag, resize []delta, timeout time.Duration) (types.NormalizedROI, error) {
	session, err := a.OpenPreview(ctx, uri)
	if err != nil {
		return types.NormalizedROI{}, err
	}
	defer session.Close()

	select {
	case <-session.Ready():
	case <-time.After(timeout):
		return types.NormalizedROI{}, fmt.Errorf("image size probe timed out after %v", timeout)
	}

	if err := replay(session, gestureDrag, drag); err != nil {
		return types.NormalizedROI{}, err
	}
	if err := replay(session, gestureResize, resize); err != nil {
		return types.NormalizedROI{}, err
	}

	return session.Confirm()
}

func printJSON(v any) {
	js, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(js))
}
