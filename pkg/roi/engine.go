package roi

import (
	"math"

	"github.com/resort-app/resort/pkg/types"
)

type gestureKind int

const (
	gestureNone gestureKind = iota
	gestureDrag
	gestureResize
)

// gesture holds the snapshot taken when a drag or resize starts
type gesture struct {
	kind          gestureKind
	startX        float64
	startY        float64
	startDiameter float64
	recognized    bool
}

// Engine owns the selection state of one preview screen. It is not safe for
// concurrent use; callers serialize events (see package preview).
type Engine struct {
	viewport    Viewport
	layout      ImageLayout
	hasLayout   bool
	unavailable bool
	sel         Selection
	gesture     gesture
	observers   []func(Selection)
}

// New creates an engine for the given viewport with the pre-layout default
// selection.
func New(vp Viewport) *Engine {
	return &Engine{
		viewport: vp,
		sel:      PreLayoutSelection(vp),
	}
}

// Viewport returns the viewport the engine was created with
func (e *Engine) Viewport() Viewport {
	return e.viewport
}

// Selection returns the current selection
func (e *Engine) Selection() Selection {
	return e.sel
}

// Layout returns the resolved image layout, if any
func (e *Engine) Layout() (ImageLayout, bool) {
	return e.layout, e.hasLayout
}

// LayoutUnavailable reports whether the size probe failed
func (e *Engine) LayoutUnavailable() bool {
	return e.unavailable
}

// OnChange registers fn to be called with the selection after every
// completed mutation.
func (e *Engine) OnChange(fn func(Selection)) {
	e.observers = append(e.observers, fn)
}

// SetLayout installs the image layout and resets the selection to the
// default for it. Any interaction that happened before is discarded,
// including a gesture in progress.
func (e *Engine) SetLayout(l ImageLayout) {
	e.layout = l
	e.hasLayout = true
	e.unavailable = false
	e.gesture = gesture{}
	e.publish(DefaultSelection(l))
}

// MarkLayoutUnavailable records that the layout will never arrive. The
// selection keeps working in raw viewport coordinates without clamping.
func (e *Engine) MarkLayoutUnavailable() {
	if e.hasLayout {
		return
	}
	e.unavailable = true
}

// BeginDrag snapshots the current center as the drag origin
func (e *Engine) BeginDrag() {
	e.gesture = gesture{
		kind:   gestureDrag,
		startX: e.sel.CenterX,
		startY: e.sel.CenterY,
	}
}

// DragMove moves the center by (dx, dy) relative to the drag origin. Moves
// inside the deadzone are ignored until the gesture is recognized. It
// reports whether the selection changed.
func (e *Engine) DragMove(dx, dy float64) bool {
	if e.gesture.kind != gestureDrag || !finite(dx, dy) {
		return false
	}
	if !e.gesture.recognized {
		if math.Abs(dx) <= DragDeadzone && math.Abs(dy) <= DragDeadzone {
			return false
		}
		e.gesture.recognized = true
	}

	next := e.sel
	next.CenterX = e.gesture.startX + dx
	next.CenterY = e.gesture.startY + dy
	if e.hasLayout {
		next.CenterX, next.CenterY = clampCenter(next.CenterX, next.CenterY, next.Diameter, e.layout)
	}
	e.publish(next)
	return true
}

// BeginResize snapshots the current diameter as the resize origin
func (e *Engine) BeginResize() {
	e.gesture = gesture{
		kind:          gestureResize,
		startDiameter: e.sel.Diameter,
		recognized:    true,
	}
}

// ResizeMove converts a diagonal pointer delta into a diameter change
// relative to the resize origin, then re-clamps the center against the new
// radius in the same step.
func (e *Engine) ResizeMove(dx, dy float64) bool {
	if e.gesture.kind != gestureResize || !finite(dx, dy) {
		return false
	}

	delta := (dx + dy) * ResizeGain
	next := e.sel
	next.Diameter = clampDiameter(e.gesture.startDiameter+delta, e.maxDiameter())
	if e.hasLayout {
		next.CenterX, next.CenterY = clampCenter(next.CenterX, next.CenterY, next.Diameter, e.layout)
	}
	e.publish(next)
	return true
}

// EndGesture releases the active drag or resize
func (e *Engine) EndGesture() {
	e.gesture = gesture{}
}

// Project returns the normalized ROI of the current selection. The second
// return value is false while no layout is known.
func (e *Engine) Project() (types.NormalizedROI, bool) {
	if !e.hasLayout {
		return types.NormalizedROI{}, false
	}
	return Project(e.sel, e.layout), true
}

// ProjectDegraded projects against the viewport when no layout is known.
// The result carries no clamping guarantees.
func (e *Engine) ProjectDegraded() types.NormalizedROI {
	if e.hasLayout {
		return Project(e.sel, e.layout)
	}
	return Project(e.sel, FallbackLayout(e.viewport))
}

func (e *Engine) maxDiameter() float64 {
	if e.hasLayout {
		return e.layout.MaxDiameter()
	}
	return e.viewport.Width * PreLayoutMaxRatio
}

func (e *Engine) publish(s Selection) {
	e.sel = s
	for _, fn := range e.observers {
		fn(s)
	}
}

// finite reports whether every value is a real number. NaN and Inf pass
// through math.Min/Max and would poison the selection.
func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
