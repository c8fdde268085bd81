package roi

import (
	"math"

	"github.com/resort-app/resort/pkg/types"
)

// MinSizePercent is the smallest width/height fraction sent to the backend
const MinSizePercent = 0.05

// Project converts a circular selection into the normalized bounding box of
// that circle relative to the displayed image. The backend treats it as a
// rectangle, not as a circular mask.
func Project(s Selection, l ImageLayout) types.NormalizedROI {
	roiLeft := s.CenterX - s.Diameter/2
	roiTop := s.CenterY - s.Diameter/2

	relLeft := roiLeft - l.OffsetX
	relTop := roiTop - l.OffsetY

	return types.NormalizedROI{
		XPercent:      round4(clamp(relLeft/l.DisplayWidth, 0, 1)),
		YPercent:      round4(clamp(relTop/l.DisplayHeight, 0, 1)),
		WidthPercent:  round4(clamp(s.Diameter/l.DisplayWidth, MinSizePercent, 1)),
		HeightPercent: round4(clamp(s.Diameter/l.DisplayHeight, MinSizePercent, 1)),
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
