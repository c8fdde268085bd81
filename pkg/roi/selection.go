package roi

import "math"

// Selection geometry constants, in screen units or fractions thereof.
const (
	MinDiameter            = 80.0
	MaxDiameterRatio       = 0.95
	DefaultDiameterRatio   = 0.65
	PreLayoutDiameterRatio = 0.55
	PreLayoutMaxRatio      = 0.9
	ResizeGain             = 0.8
	DragDeadzone           = 2.0
)

// Selection is the circular region of interest in screen space
type Selection struct {
	CenterX  float64 `json:"center_x"`
	CenterY  float64 `json:"center_y"`
	Diameter float64 `json:"diameter"`
}

// Radius returns half the diameter
func (s Selection) Radius() float64 {
	return s.Diameter / 2
}

// PreLayoutSelection is the transient default used before the image layout
// is known: centered in the viewport, 55% of the viewport width.
func PreLayoutSelection(vp Viewport) Selection {
	return Selection{
		CenterX:  vp.Width / 2,
		CenterY:  vp.Height / 2,
		Diameter: vp.Width * PreLayoutDiameterRatio,
	}
}

// DefaultSelection centers a circle of 65% of the shorter display side on
// the layout. Very small layouts still get a diameter within bounds.
func DefaultSelection(l ImageLayout) Selection {
	cx, cy := l.Center()
	return Selection{
		CenterX:  cx,
		CenterY:  cy,
		Diameter: clampDiameter(l.MinSide()*DefaultDiameterRatio, l.MaxDiameter()),
	}
}

// clampCenter keeps a circle of the given diameter inside the layout
func clampCenter(x, y, diameter float64, l ImageLayout) (float64, float64) {
	r := diameter / 2
	return clamp(x, l.OffsetX+r, l.OffsetX+l.DisplayWidth-r),
		clamp(y, l.OffsetY+r, l.OffsetY+l.DisplayHeight-r)
}

// clampDiameter bounds d to [MinDiameter, maxSize]. When the image is too
// small for MinDiameter the upper bound wins so the circle still fits.
func clampDiameter(d, maxSize float64) float64 {
	if maxSize < MinDiameter {
		return maxSize
	}
	return clamp(d, MinDiameter, maxSize)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
