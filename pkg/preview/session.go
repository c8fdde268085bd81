// Package preview runs the image-preview interaction: it probes the natural
// image size in the background, owns the ROI engine on a single goroutine and
// turns user confirmation into normalized ROI parameters.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/resort-app/resort/pkg/roi"
	"github.com/resort-app/resort/pkg/types"
)

var (
	// ErrLayoutPending is returned by Confirm while the size probe is running
	ErrLayoutPending = errors.New("preview: image layout not resolved yet")
	// ErrClosed is returned by every call after Close
	ErrClosed = errors.New("preview: session closed")
)

// SizeProber resolves the natural pixel size of an image
type SizeProber interface {
	Probe(ctx context.Context, uri string) (width, height int, err error)
}

// Options configures a session
type Options struct {
	// AllowDegradedConfirm lets Confirm project against the whole viewport
	// when the size probe failed.
	AllowDegradedConfirm bool
	Logger               *slog.Logger
}

// Session is one open preview screen. All engine access happens on the
// session goroutine; public methods block until their event is applied.
type Session struct {
	uri     string
	opts    Options
	logger  *slog.Logger
	engine  *roi.Engine
	events  chan func()
	done    chan struct{}
	ready   chan struct{}
	cancel  context.CancelFunc
	settled bool
}

// Open starts a session for uri inside the given viewport and launches the
// size probe.
func Open(ctx context.Context, uri string, vp roi.Viewport, prober SizeProber, opts Options) (*Session, error) {
	if !vp.Valid() {
		return nil, fmt.Errorf("invalid viewport %vx%v", vp.Width, vp.Height)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		uri:    uri,
		opts:   opts,
		logger: logger.With("component", "preview", "uri", uri),
		engine: roi.New(vp),
		events: make(chan func()),
		done:   make(chan struct{}),
		ready:  make(chan struct{}),
		cancel: cancel,
	}

	go s.loop(ctx)
	go s.probe(ctx, prober)
	return s, nil
}

// Ready is closed once the size probe has succeeded or failed
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// Close ends the session. A probe result arriving later is dropped.
func (s *Session) Close() {
	s.cancel()
	<-s.done
}

// OnChange registers an observer for selection updates. It runs on the
// session goroutine and must not call back into the session.
func (s *Session) OnChange(fn func(roi.Selection)) error {
	return s.do(func() { s.engine.OnChange(fn) })
}

// Selection returns the current selection
func (s *Session) Selection() (roi.Selection, error) {
	var sel roi.Selection
	err := s.do(func() { sel = s.engine.Selection() })
	return sel, err
}

// Layout returns the resolved layout and whether it is known
func (s *Session) Layout() (roi.ImageLayout, bool, error) {
	var (
		layout roi.ImageLayout
		ok     bool
	)
	err := s.do(func() { layout, ok = s.engine.Layout() })
	return layout, ok, err
}

// BeginDrag starts a move gesture
func (s *Session) BeginDrag() error {
	return s.do(s.engine.BeginDrag)
}

// Drag applies a pointer delta relative to the gesture start. It reports
// whether the selection moved.
func (s *Session) Drag(dx, dy float64) (bool, error) {
	var moved bool
	err := s.do(func() { moved = s.engine.DragMove(dx, dy) })
	return moved, err
}

// BeginResize starts a resize gesture on the handle
func (s *Session) BeginResize() error {
	return s.do(s.engine.BeginResize)
}

// Resize applies a pointer delta relative to the gesture start
func (s *Session) Resize(dx, dy float64) (bool, error) {
	var resized bool
	err := s.do(func() { resized = s.engine.ResizeMove(dx, dy) })
	return resized, err
}

// EndGesture releases the active gesture
func (s *Session) EndGesture() error {
	return s.do(s.engine.EndGesture)
}

// Confirm returns the normalized ROI for the current selection
func (s *Session) Confirm() (types.NormalizedROI, error) {
	var (
		out  types.NormalizedROI
		cerr error
	)
	err := s.do(func() {
		if r, ok := s.engine.Project(); ok {
			out = r
			return
		}
		switch {
		case !s.settled:
			cerr = ErrLayoutPending
		case s.opts.AllowDegradedConfirm:
			s.logger.Warn("confirming without image layout, ROI is unclamped")
			out = s.engine.ProjectDegraded()
		default:
			cerr = roi.ErrLayoutUnavailable
		}
	})
	if err != nil {
		return types.NormalizedROI{}, err
	}
	return out, cerr
}

func (s *Session) loop(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-s.events:
			fn()
		}
	}
}

func (s *Session) probe(ctx context.Context, prober SizeProber) {
	w, h, err := prober.Probe(ctx, s.uri)

	var layout roi.ImageLayout
	if err == nil {
		layout, err = roi.ResolveLayout(w, h, s.engine.Viewport())
	}

	// Delivered once; dropped when the session is already gone. The loop may
	// still pick this up after Close cancelled ctx.
	s.do(func() {
		if ctx.Err() != nil {
			return
		}
		s.settled = true
		defer close(s.ready)

		if err != nil {
			s.logger.Warn("image size unavailable, selection is unclamped", "error", err)
			s.engine.MarkLayoutUnavailable()
			return
		}
		s.logger.Debug("image layout resolved",
			"natural_width", w, "natural_height", h,
			"display_width", layout.DisplayWidth, "display_height", layout.DisplayHeight,
			"offset_x", layout.OffsetX, "offset_y", layout.OffsetY)
		s.engine.SetLayout(layout)
	})
}

// do runs fn on the session goroutine and waits for it to finish
func (s *Session) do(fn func()) error {
	finished := make(chan struct{})
	select {
	case s.events <- func() { fn(); close(finished) }:
	case <-s.done:
		return ErrClosed
	}
	<-finished
	return nil
}
