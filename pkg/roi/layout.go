// Package roi maps a circular on-screen selection over a letterboxed image
// to normalized rectangle parameters understood by the analysis backend.
//
// All coordinates handled here are device-independent screen units. The
// image is shown inside a fixed Viewport using "contain" semantics, which
// yields an ImageLayout: the sub-rectangle of the viewport the image really
// occupies. The Selection (center + diameter) lives in the same space and is
// kept fully inside the ImageLayout after every mutation.
package roi

import (
	"errors"
	"math"
)

// ErrLayoutUnavailable is returned when the natural image size is unknown or
// unusable (unreadable image, zero dimension, invalid viewport).
var ErrLayoutUnavailable = errors.New("roi: image layout unavailable")

// Viewport is the fixed area available for displaying the image
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether both viewport dimensions are positive finite numbers
func (v Viewport) Valid() bool {
	return positive(v.Width) && positive(v.Height)
}

// ImageLayout is the rectangle occupied by the image inside the viewport
type ImageLayout struct {
	DisplayWidth  float64 `json:"display_width"`
	DisplayHeight float64 `json:"display_height"`
	OffsetX       float64 `json:"offset_x"`
	OffsetY       float64 `json:"offset_y"`
}

// Center returns the center point of the layout rectangle
func (l ImageLayout) Center() (float64, float64) {
	return l.OffsetX + l.DisplayWidth/2, l.OffsetY + l.DisplayHeight/2
}

// MinSide returns the shorter of the two display dimensions
func (l ImageLayout) MinSide() float64 {
	return math.Min(l.DisplayWidth, l.DisplayHeight)
}

// MaxDiameter returns the largest diameter a selection may have on this layout
func (l ImageLayout) MaxDiameter() float64 {
	return l.MinSide() * MaxDiameterRatio
}

// Contains reports whether the circle described by s lies fully inside the
// layout rectangle, allowing eps of floating point slack.
func (l ImageLayout) Contains(s Selection, eps float64) bool {
	r := s.Diameter / 2
	return s.CenterX-r >= l.OffsetX-eps &&
		s.CenterX+r <= l.OffsetX+l.DisplayWidth+eps &&
		s.CenterY-r >= l.OffsetY-eps &&
		s.CenterY+r <= l.OffsetY+l.DisplayHeight+eps
}

// FallbackLayout treats the whole viewport as the image, with zero offsets.
// It is used when the natural image size could not be resolved.
func FallbackLayout(vp Viewport) ImageLayout {
	return ImageLayout{DisplayWidth: vp.Width, DisplayHeight: vp.Height}
}

// ResolveLayout fits an image of imgW x imgH pixels into the viewport while
// preserving its aspect ratio, centered on both axes.
func ResolveLayout(imgW, imgH int, vp Viewport) (ImageLayout, error) {
	if imgW <= 0 || imgH <= 0 || !vp.Valid() {
		return ImageLayout{}, ErrLayoutUnavailable
	}

	imageAspect := float64(imgW) / float64(imgH)
	areaAspect := vp.Width / vp.Height

	var displayWidth, displayHeight float64
	if imageAspect > areaAspect {
		// Relatively wider than the area: width-constrained
		displayWidth = vp.Width
		displayHeight = vp.Width / imageAspect
	} else {
		displayHeight = vp.Height
		displayWidth = vp.Height * imageAspect
	}

	return ImageLayout{
		DisplayWidth:  displayWidth,
		DisplayHeight: displayHeight,
		OffsetX:       (vp.Width - displayWidth) / 2,
		OffsetY:       (vp.Height - displayHeight) / 2,
	}, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
