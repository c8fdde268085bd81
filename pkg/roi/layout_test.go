package roi

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

const eps = 1e-9

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestResolveLayoutWidthConstrained(t *testing.T) {
	layout, err := ResolveLayout(1200, 800, Viewport{Width: 400, Height: 800})
	if err != nil {
		t.Fatalf("ResolveLayout failed: %v", err)
	}

	if !approx(layout.DisplayWidth, 400) {
		t.Errorf("Expected display width 400, got %f", layout.DisplayWidth)
	}
	if !approx(layout.DisplayHeight, 800.0/3) {
		t.Errorf("Expected display height 266.67, got %f", layout.DisplayHeight)
	}
	if layout.OffsetX != 0 {
		t.Errorf("Expected offset X 0, got %f", layout.OffsetX)
	}
	if !approx(layout.OffsetY, 800.0/3) {
		t.Errorf("Expected offset Y 266.67, got %f", layout.OffsetY)
	}
}

func TestResolveLayoutHeightConstrained(t *testing.T) {
	layout, err := ResolveLayout(600, 1200, Viewport{Width: 400, Height: 400})
	if err != nil {
		t.Fatalf("ResolveLayout failed: %v", err)
	}

	if !approx(layout.DisplayHeight, 400) || !approx(layout.DisplayWidth, 200) {
		t.Errorf("Expected 200x400, got %fx%f", layout.DisplayWidth, layout.DisplayHeight)
	}
	if !approx(layout.OffsetX, 100) || layout.OffsetY != 0 {
		t.Errorf("Expected offsets (100, 0), got (%f, %f)", layout.OffsetX, layout.OffsetY)
	}
}

func TestResolveLayoutSameAspect(t *testing.T) {
	layout, err := ResolveLayout(800, 1600, Viewport{Width: 390, Height: 780})
	if err != nil {
		t.Fatalf("ResolveLayout failed: %v", err)
	}
	if !approx(layout.DisplayWidth, 390) || !approx(layout.DisplayHeight, 780) {
		t.Errorf("Expected image to fill the viewport, got %fx%f", layout.DisplayWidth, layout.DisplayHeight)
	}
}

func TestResolveLayoutUnavailable(t *testing.T) {
	cases := []struct {
		name string
		w, h int
		vp   Viewport
	}{
		{"zero height", 100, 0, Viewport{400, 800}},
		{"zero width", 0, 100, Viewport{400, 800}},
		{"negative", -5, 100, Viewport{400, 800}},
		{"empty viewport", 100, 100, Viewport{0, 800}},
		{"nan viewport", 100, 100, Viewport{math.NaN(), 800}},
		{"inf viewport", 100, 100, Viewport{400, math.Inf(1)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ResolveLayout(tc.w, tc.h, tc.vp)
			if !errors.Is(err, ErrLayoutUnavailable) {
				t.Errorf("Expected ErrLayoutUnavailable, got %v", err)
			}
		})
	}
}

func TestResolveLayoutContainment(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for i := 0; i < 2000; i++ {
		imgW := 1 + rng.IntN(8000)
		imgH := 1 + rng.IntN(8000)
		vp := Viewport{Width: 1 + rng.Float64()*2000, Height: 1 + rng.Float64()*2000}

		layout, err := ResolveLayout(imgW, imgH, vp)
		if err != nil {
			t.Fatalf("ResolveLayout(%d, %d, %+v) failed: %v", imgW, imgH, vp, err)
		}

		if layout.DisplayWidth > vp.Width+eps || layout.DisplayHeight > vp.Height+eps {
			t.Fatalf("Layout %+v exceeds viewport %+v", layout, vp)
		}
		if layout.OffsetX+layout.DisplayWidth > vp.Width+eps || layout.OffsetY+layout.DisplayHeight > vp.Height+eps {
			t.Fatalf("Layout %+v with offsets exceeds viewport %+v", layout, vp)
		}

		want := float64(imgW) / float64(imgH)
		got := layout.DisplayWidth / layout.DisplayHeight
		if math.Abs(got-want) > 1e-9*math.Max(1, want) {
			t.Fatalf("Aspect ratio not preserved: want %f, got %f", want, got)
		}
	}
}

func TestFallbackLayout(t *testing.T) {
	layout := FallbackLayout(Viewport{Width: 390, Height: 600})
	if layout.DisplayWidth != 390 || layout.DisplayHeight != 600 || layout.OffsetX != 0 || layout.OffsetY != 0 {
		t.Errorf("Unexpected fallback layout %+v", layout)
	}
}

func BenchmarkResolveLayout(b *testing.B) {
	vp := Viewport{Width: 390, Height: 654}
	for i := 0; i < b.N; i++ {
		ResolveLayout(4032, 3024, vp)
	}
}
