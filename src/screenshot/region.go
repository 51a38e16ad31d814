package screenshot

import (
	"errors"
	"fmt"
	"image"
)

// ErrIncompleteRegion is returned for a region with a missing component.
var ErrIncompleteRegion = errors.New("region has a missing component")

// Coord is one nullable region component.
type Coord struct {
	Value int
	Valid bool
}

func C(v int) Coord { return Coord{Value: v, Valid: true} }

func (c Coord) String() string {
	if !c.Valid {
		return "<nil>"
	}
	return fmt.Sprint(c.Value)
}

// Region is a screen rectangle stored in (x1, x2, y1, y2) order. Capture,
// compose and display all read it in that order, never as (x1, y1, x2, y2).
type Region struct {
	X1 Coord
	X2 Coord
	Y1 Coord
	Y2 Coord
}

// NewRegion builds a complete region from x1, x2, y1, y2.
func NewRegion(x1, x2, y1, y2 int) Region {
	return Region{X1: C(x1), X2: C(x2), Y1: C(y1), Y2: C(y2)}
}

// NullRegion is the region produced when no window geometry was recorded.
func NullRegion() Region { return Region{} }

// RegionFromRect converts an image rectangle in screen coordinates.
func RegionFromRect(r image.Rectangle) Region {
	return NewRegion(r.Min.X, r.Max.X, r.Min.Y, r.Max.Y)
}

// Complete reports whether every component is present.
func (r Region) Complete() bool {
	return r.X1.Valid && r.X2.Valid && r.Y1.Valid && r.Y2.Valid
}

// Validate checks completeness and x1<x2, y1<y2.
func (r Region) Validate() error {
	if !r.Complete() {
		return ErrIncompleteRegion
	}
	if r.X1.Value >= r.X2.Value || r.Y1.Value >= r.Y2.Value {
		return fmt.Errorf("invalid region dimensions: %s", r)
	}
	return nil
}

// Rect returns the region as an image rectangle. Only meaningful for a
// complete region.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X1.Value, r.Y1.Value, r.X2.Value, r.Y2.Value)
}

// TopLeft returns (x1, y1).
func (r Region) TopLeft() image.Point {
	return image.Pt(r.X1.Value, r.Y1.Value)
}

// ClampTo intersects a valid region with bounds. A region entirely outside
// bounds is an error.
func (r Region) ClampTo(bounds image.Rectangle) (Region, error) {
	if err := r.Validate(); err != nil {
		return NullRegion(), err
	}
	clipped := r.Rect().Intersect(bounds)
	if clipped.Empty() {
		return NullRegion(), fmt.Errorf("region %s lies outside the display %v", r, bounds)
	}
	return RegionFromRect(clipped), nil
}

func (r Region) Width() int  { return r.X2.Value - r.X1.Value }
func (r Region) Height() int { return r.Y2.Value - r.Y1.Value }

func (r Region) String() string {
	return fmt.Sprintf("(%s, %s, %s, %s)", r.X1, r.X2, r.Y1, r.Y2)
}
