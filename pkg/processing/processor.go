package processing

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/resort-app/resort/pkg/glass"
	"github.com/resort-app/resort/pkg/types"
)

// Processor handles image processing operations
type Processor struct{}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{}
}

// EncodeForUpload shrinks the image so its long side is at most maxDim
// (0 keeps the original size) and encodes it as JPEG.
func (p *Processor) EncodeForUpload(img image.Image, maxDim int, quality int) ([]byte, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	if quality < 1 || quality > 100 {
		quality = 80
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode upload: %w", err)
	}
	return buf.Bytes(), nil
}

// CropToROI crops an image to the normalized ROI rectangle
func (p *Processor) CropToROI(img image.Image, roi types.NormalizedROI) (image.Image, error) {
	bounds := img.Bounds()
	x0, y0, x1, y1 := roiToPixels(roi, bounds.Dx(), bounds.Dy())

	rect := image.Rect(x0, y0, x1, y1).Add(bounds.Min).Intersect(bounds)
	if rect.Empty() {
		return nil, fmt.Errorf("empty crop rectangle")
	}

	return imaging.Crop(img, rect), nil
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return webp.Encode(f, img, opts)
	case "png":
		return imaging.Save(img, path)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}

// CreateDebugOverlay draws the ROI rectangle sent to the backend, the circle
// the user selected and its center onto a copy of the image.
func (p *Processor) CreateDebugOverlay(img image.Image, roi types.NormalizedROI) image.Image {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	stroke := int(math.Max(2, 0.004*float64(min(w, h))))
	cross := int(math.Max(4, 0.01*float64(min(w, h))))

	x0, y0, x1, y1 := roiToPixels(roi, w, h)
	for s := 0; s < stroke; s++ {
		drawHLine(nrgba, y0+s, x0, x1, glass.Palette.Primary)
		drawHLine(nrgba, y1-1-s, x0, x1, glass.Palette.Primary)
		drawVLine(nrgba, x0+s, y0, y1, glass.Palette.Primary)
		drawVLine(nrgba, x1-1-s, y0, y1, glass.Palette.Primary)
	}

	// The selection was a circle; the backend only sees its bounding box
	drawEllipse(nrgba, x0, y0, x1, y1, glass.Palette.White)

	cx, cy := (x0+x1)/2, (y0+y1)/2
	drawHLine(nrgba, cy, cx-cross, cx+cross, glass.Palette.Danger)
	drawVLine(nrgba, cx, cy-cross, cy+cross, glass.Palette.Danger)

	return nrgba
}

// Helper functions
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roiToPixels(roi types.NormalizedROI, w, h int) (int, int, int, int) {
	x0 := int(clamp(roi.XPercent, 0, 1)*float64(w) + 0.5)
	y0 := int(clamp(roi.YPercent, 0, 1)*float64(h) + 0.5)
	x1 := int(clamp(roi.XPercent+roi.WidthPercent, 0, 1)*float64(w) + 0.5)
	y1 := int(clamp(roi.YPercent+roi.HeightPercent, 0, 1)*float64(h) + 0.5)
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	return x0, y0, x1, y1
}

func drawEllipse(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA) {
	rx := float64(x1-x0) / 2
	ry := float64(y1-y0) / 2
	if rx < 1 || ry < 1 {
		return
	}
	cx := float64(x0) + rx
	cy := float64(y0) + ry

	steps := int(2 * math.Pi * math.Max(rx, ry))
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		setPixel(img, int(cx+rx*math.Cos(a)), int(cy+ry*math.Sin(a)), c)
	}
}

func setPixel(img *image.NRGBA, x, y int, c color.NRGBA) {
	if x < 0 || y < 0 || x >= img.Bounds().Dx() || y >= img.Bounds().Dy() {
		return
	}
	i := y*img.Stride + x*4
	img.Pix[i+0] = c.R
	img.Pix[i+1] = c.G
	img.Pix[i+2] = c.B
	img.Pix[i+3] = c.A
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
