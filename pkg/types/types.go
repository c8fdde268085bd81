package types

import "time"

// NormalizedROI is a rectangle expressed as fractions of the displayed image.
// Positions are in [0,1], sizes in [0.05,1].
type NormalizedROI struct {
	XPercent      float64 `json:"roi_x_percent"`
	YPercent      float64 `json:"roi_y_percent"`
	WidthPercent  float64 `json:"roi_width_percent"`
	HeightPercent float64 `json:"roi_height_percent"`
}

// Default rectangles used when the caller has no ROI. The two app variants
// shipped different values.
var (
	DefaultROIMain  = NormalizedROI{XPercent: 0.175, YPercent: 0.175, WidthPercent: 0.65, HeightPercent: 0.65}
	DefaultROIRapid = NormalizedROI{XPercent: 0.25, YPercent: 0.25, WidthPercent: 0.5, HeightPercent: 0.5}
)

// BoundingBox is a pixel box reported by the backend for a detection
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection represents a single classified bottle
type Detection struct {
	ClassName   string       `json:"class_name"`
	Confidence  float64      `json:"confidence"`
	BoundingBox *BoundingBox `json:"bounding_box,omitempty"`
}

// RecyclingInfo carries disposal instructions for a detected bottle type
type RecyclingInfo struct {
	Material            string   `json:"material"`
	RecyclingCategory   string   `json:"recycling_category"`
	Instructions        string   `json:"instructions"`
	Pfand               *float64 `json:"pfand,omitempty"`
	EnvironmentalImpact string   `json:"environmental_impact,omitempty"`
}

// AnalysisResult is the response of the analysis backend
type AnalysisResult struct {
	Success          bool           `json:"success"`
	Detections       []Detection    `json:"detections"`
	RecyclingInfo    *RecyclingInfo `json:"recycling_info,omitempty"`
	Message          string         `json:"message,omitempty"`
	ProcessingTimeMS float64        `json:"processing_time_ms,omitempty"`
	Timestamp        time.Time      `json:"timestamp"`
}

// HealthStatus is the response of the backend health endpoint
type HealthStatus struct {
	Status            string `json:"status"`
	Version           string `json:"version,omitempty"`
	AnalysisReady     bool   `json:"analysis_ready"`
	DatabaseConnected bool   `json:"database_connected"`
}
