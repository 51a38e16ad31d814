// Package display shows a composited image in a topmost window and hands the
// user's first click back to whatever lies underneath.
//
// A window moves through Created, AwaitingClick, Replaying and Closed. On the
// click the window rectangle is sampled before the window is minimized, so
// the caller always receives the geometry the user saw.
package display

import (
	"context"
	"errors"
	"image"
	"log"
	"sync/atomic"
	"time"

	"screen-translate/src/screenshot"
)

// ErrUnsupported is returned on platforms without a display implementation.
var ErrUnsupported = errors.New("interactive display not implemented for this platform")

type State int32

const (
	Created State = iota
	AwaitingClick
	Replaying
	Closed
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case AwaitingClick:
		return "AwaitingClick"
	case Replaying:
		return "Replaying"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Interaction is the outcome of one Show call. Without a click, Clicked is
// false and Window is the null region.
type Interaction struct {
	Click   image.Point
	Clicked bool
	Window  screenshot.Region
}

// Displayer shows img with the top-left corner of the window's client area
// at anchor and blocks until the user clicks or ctx is cancelled.
type Displayer interface {
	Show(ctx context.Context, img image.Image, anchor image.Point) (Interaction, error)
}

// Clicker synthesizes a primary-button click at absolute screen coordinates.
type Clicker interface {
	Click(p image.Point) error
}

type Options struct {
	Title string
	// Settle is how long to wait after minimizing before the click is
	// replayed, so the window manager has finished hiding the window.
	Settle  time.Duration
	Clicker Clicker
	// ChromeOffset, when non-zero, replaces the measured frame: the outer
	// window goes to anchor minus this offset.
	ChromeOffset image.Point
}

// OuterOrigin returns where the outer window must be placed so that its
// client area starts at anchor. frame is the client origin relative to the
// outer window as reported by the window system, usually negative.
func OuterOrigin(anchor, frame, override image.Point) image.Point {
	if override != (image.Point{}) {
		return anchor.Sub(override)
	}
	return anchor.Add(frame)
}

func DefaultOptions() Options {
	return Options{
		Title:   "screen-translate",
		Settle:  time.Second,
		Clicker: RobotClicker{},
	}
}

// surface is the platform window driven by the state machine.
type surface interface {
	// Rect is the client area in screen coordinates.
	Rect() image.Rectangle
	Minimize()
	Close()
}

// machine tracks the lifecycle of one window.
type machine struct {
	state atomic.Int32
	sleep func(time.Duration)
}

func newMachine() *machine {
	return &machine{sleep: time.Sleep}
}

func (m *machine) State() State { return State(m.state.Load()) }

func (m *machine) advance(from, to State) bool {
	if !m.state.CompareAndSwap(int32(from), int32(to)) {
		log.Printf("Display: ignoring transition %s -> %s in state %s", from, to, m.State())
		return false
	}
	log.Printf("Display: %s -> %s", from, to)
	return true
}

// replay runs the Replaying state: sample the rectangle, minimize, wait for
// the window manager, replay the click underneath and close.
func (m *machine) replay(s surface, click image.Point, opts Options) (Interaction, bool) {
	if !m.advance(AwaitingClick, Replaying) {
		return Interaction{}, false
	}

	rect := s.Rect()
	s.Minimize()
	m.sleep(opts.Settle)

	if opts.Clicker != nil {
		if err := opts.Clicker.Click(click); err != nil {
			log.Printf("Display: click replay at %v failed: %v", click, err)
		}
	}

	s.Close()
	m.advance(Replaying, Closed)

	window := screenshot.NullRegion()
	if !rect.Empty() {
		window = screenshot.RegionFromRect(rect)
	}
	log.Printf("Display: click at %v, window %s", click, window)
	return Interaction{Click: click, Clicked: true, Window: window}, true
}

// abandon closes a window that never received a click.
func (m *machine) abandon(s surface) Interaction {
	s.Close()
	m.state.Store(int32(Closed))
	return Interaction{Window: screenshot.NullRegion()}
}
