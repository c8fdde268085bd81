// Package detection runs an analysis and classifies its outcome the way the
// result screen presents it.
package detection

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/resort-app/resort/pkg/client"
	"github.com/resort-app/resort/pkg/glass"
	"github.com/resort-app/resort/pkg/types"
)

// Kind tells which result screen applies
type Kind string

const (
	KindDetected     Kind = "detected"
	KindNoDetection  Kind = "no_detection"
	KindNetworkError Kind = "network_error"
)

// Outcome is the classified result of one analysis
type Outcome struct {
	Kind      Kind                  `json:"kind"`
	Detection *types.Detection      `json:"detection,omitempty"`
	Glass     *glass.Info           `json:"glass,omitempty"`
	Level     glass.Level           `json:"level,omitempty"`
	Percent   int                   `json:"confidence_percent,omitempty"`
	Review    bool                  `json:"needs_review,omitempty"`
	Result    *types.AnalysisResult `json:"result,omitempty"`
	Err       error                 `json:"-"`
	ErrorText string                `json:"error,omitempty"`
	Elapsed   time.Duration         `json:"elapsed_ns"`
}

// Detector handles bottle detection through an analysis client
type Detector struct {
	client client.AnalysisClient
	logger *slog.Logger
}

// NewDetector creates a new detector. A nil logger uses slog.Default.
func NewDetector(client client.AnalysisClient, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{client: client, logger: logger}
}

// Detect sends the photo with its ROI and classifies the response. It never
// returns a nil Outcome; transport failures become KindNetworkError.
func (d *Detector) Detect(ctx context.Context, imageJPEG []byte, roi *types.NormalizedROI) *Outcome {
	start := time.Now()

	logArgs := []any{"bytes", len(imageJPEG)}
	if roi != nil {
		logArgs = append(logArgs,
			"roi_x", roi.XPercent, "roi_y", roi.YPercent,
			"roi_w", roi.WidthPercent, "roi_h", roi.HeightPercent)
	} else {
		logArgs = append(logArgs, "roi", "default")
	}
	d.logger.Info("sending image for analysis", logArgs...)

	result, err := d.client.Analyze(ctx, imageJPEG, roi)
	if err != nil {
		d.logger.Error("analysis failed", "error", err)
		return &Outcome{
			Kind:      KindNetworkError,
			Err:       err,
			ErrorText: err.Error(),
			Elapsed:   time.Since(start),
		}
	}

	out := classify(result)
	out.Elapsed = time.Since(start)

	if out.Kind == KindDetected {
		d.logger.Info("bottle detected",
			"class", out.Detection.ClassName,
			"confidence", out.Detection.Confidence,
			"category", out.Glass.Category)
	} else {
		d.logger.Info("no bottle detected", "message", result.Message)
	}
	return out
}

// classify picks the most confident detection of a successful result
func classify(result *types.AnalysisResult) *Outcome {
	if result == nil || !result.Success || len(result.Detections) == 0 {
		return &Outcome{Kind: KindNoDetection, Result: result}
	}

	best := normalizeDetection(result.Detections[0])
	for _, det := range result.Detections[1:] {
		det = normalizeDetection(det)
		if det.Confidence > best.Confidence {
			best = det
		}
	}

	info := glass.Lookup(best.ClassName)
	return &Outcome{
		Kind:      KindDetected,
		Detection: &best,
		Glass:     &info,
		Level:     glass.LevelOf(best.Confidence),
		Percent:   glass.Percent(best.Confidence),
		Review:    glass.NeedsReview(best.Confidence),
		Result:    result,
	}
}

func normalizeDetection(det types.Detection) types.Detection {
	det.ClassName = strings.TrimSpace(det.ClassName)
	det.Confidence = clamp(det.Confidence, 0, 1)
	return det
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
