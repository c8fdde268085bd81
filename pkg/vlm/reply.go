// Package vlm holds what the vision-language model backends share: the
// classification prompt, reply cleanup and the mapping of a reply onto the
// analysis result returned by the REST backend.
package vlm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/resort-app/resort/pkg/glass"
	"github.com/resort-app/resort/pkg/processing"
	"github.com/resort-app/resort/pkg/types"
)

// ClassifyPrompt asks the model for a single glass class
const ClassifyPrompt = `You sort glass bottles for recycling.

Look at the bottle in the image and return JSON only:
{"class_name": "string", "confidence": 0.0}

RULES
- class_name is one of: Glasflasche_Gruen, Glasflasche_Braun, Glasflasche_Weiss, Glasflasche_Andere, none.
- Use Glasflasche_Weiss for clear glass and Glasflasche_Andere for blue, red or other colors.
- Use none if there is no glass bottle.
- confidence is between 0 and 1.
- JSON only. No markdown, no code fences, no comments.`

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInline   = regexp.MustCompile(`(?m)//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// CropForModel decodes the uploaded photo, cuts out the ROI and re-encodes
// it as JPEG. Models see only the bottle, not the whole photo.
func CropForModel(p *processing.Processor, imageJPEG []byte, roi types.NormalizedROI, maxDim, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(imageJPEG), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	cropped, err := p.CropToROI(img, roi)
	if err != nil {
		return nil, err
	}
	return p.EncodeForUpload(cropped, maxDim, quality)
}

type reply struct {
	ClassName  string  `json:"class_name"`
	Confidence float64 `json:"confidence"`
}

// ParseResult turns a model reply into a backend-shaped result. Replies that
// cannot be parsed count as "no detection", not as errors.
func ParseResult(raw string, minConfidence float64) *types.AnalysisResult {
	result := &types.AnalysisResult{
		Detections: []types.Detection{},
		Timestamp:  time.Now().UTC(),
	}

	raw = SanitizeJSON(raw)

	var r reply
	if !strings.HasPrefix(raw, "{") || json.Unmarshal([]byte(raw), &r) != nil {
		result.Message = "Antwort des Modells konnte nicht gelesen werden"
		return result
	}

	category := glass.CategoryOf(r.ClassName)
	if category == glass.Unknown || r.Confidence < minConfidence {
		result.Message = "Keine Flasche erkannt"
		return result
	}

	info := glass.Lookup(r.ClassName)
	className := glass.ClassName(category)
	result.Success = true
	result.Detections = append(result.Detections, types.Detection{
		ClassName:  className,
		Confidence: r.Confidence,
	})
	result.RecyclingInfo = &types.RecyclingInfo{
		Material:          "Glas",
		RecyclingCategory: info.Container,
		Instructions:      "Flasche in den " + info.Container + " werfen",
	}
	result.Message = "Flasche erkannt: " + className
	return result
}

// SanitizeJSON removes code fences, comments and trailing commas
func SanitizeJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = reInline.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
