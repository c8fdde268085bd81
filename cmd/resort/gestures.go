package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/resort-app/resort/pkg/preview"
	"github.com/resort-app/resort/pkg/roi"
)

type gestureKind int

const (
	gestureDrag gestureKind = iota
	gestureResize
)

// delta is one pointer movement relative to the gesture start
type delta struct {
	dx, dy float64
}

// parseDeltas reads "dx,dy;dx,dy;..." into deltas
func parseDeltas(s string) ([]delta, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var out []delta
	for _, step := range strings.Split(s, ";") {
		parts := strings.Split(strings.TrimSpace(step), ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid delta %q: want dx,dy", step)
		}
		dx, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid dx in %q: %w", step, err)
		}
		dy, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid dy in %q: %w", step, err)
		}
		if math.IsNaN(dx) || math.IsInf(dx, 0) || math.IsNaN(dy) || math.IsInf(dy, 0) {
			return nil, fmt.Errorf("invalid delta %q: values must be finite", step)
		}
		out = append(out, delta{dx, dy})
	}
	return out, nil
}

// parseViewport reads "WxH"
func parseViewport(s string) (roi.Viewport, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return roi.Viewport{}, fmt.Errorf("invalid viewport %q: want WxH", s)
	}
	width, err := strconv.ParseFloat(w, 64)
	if err != nil {
		return roi.Viewport{}, fmt.Errorf("invalid viewport width: %w", err)
	}
	height, err := strconv.ParseFloat(h, 64)
	if err != nil {
		return roi.Viewport{}, fmt.Errorf("invalid viewport height: %w", err)
	}
	vp := roi.Viewport{Width: width, Height: height}
	if !vp.Valid() {
		return roi.Viewport{}, fmt.Errorf("viewport %q must be positive", s)
	}
	return vp, nil
}

// replay runs one gesture through the session. Deltas are cumulative, like
// the pointer positions of a real pan gesture.
func replay(s *preview.Session, kind gestureKind, deltas []delta) error {
	if len(deltas) == 0 {
		return nil
	}

	begin, move := s.BeginDrag, s.Drag
	if kind == gestureResize {
		begin, move = s.BeginResize, s.Resize
	}

	if err := begin(); err != nil {
		return err
	}
	for _, d := range deltas {
		if _, err := move(d.dx, d.dy); err != nil {
			return err
		}
	}
	return s.EndGesture()
}
