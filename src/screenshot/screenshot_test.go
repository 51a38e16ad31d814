package screenshot

import (
	"errors"
	"image"
	"testing"
)

func TestCaptureRegion(t *testing.T) {
	// Invalid regions are rejected before touching the display
	if _, err := Capture(NewRegion(0, 0, 0, 0)); err == nil {
		t.Error("Expected error for zero-size region")
	}
	if _, err := Capture(Region{X1: C(0), X2: C(10), Y1: C(0)}); !errors.Is(err, ErrIncompleteRegion) {
		t.Errorf("Expected ErrIncompleteRegion, got %v", err)
	}

	// Valid region (may fail if no display available)
	img, err := Capture(NewRegion(0, 100, 0, 50))
	if err != nil {
		t.Logf("Failed to capture region (expected in headless environment): %v", err)
		return
	}
	if img.Bounds() != image.Rect(0, 0, 100, 50) {
		t.Errorf("Expected 100x50 image at origin, got %v", img.Bounds())
	}
}

func TestGetDisplayBounds(t *testing.T) {
	_, err := GetDisplayBounds()
	if err != nil {
		t.Logf("Failed to get display bounds (expected in headless environment): %v", err)
	}
}

func TestFitToDisplay(t *testing.T) {
	bounds, err := GetDisplayBounds()
	if err != nil {
		// Nothing to measure: the region passes through untouched.
		r := NewRegion(500, 1000, 0, 1000)
		if got, err := FitToDisplay(r); err != nil || got != r {
			t.Errorf("FitToDisplay without displays = %s, %v", got, err)
		}
		return
	}
	inside := RegionFromRect(image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Min.X+10, bounds.Min.Y+10))
	if got, err := FitToDisplay(inside); err != nil || got != inside {
		t.Errorf("FitToDisplay(%s) = %s, %v", inside, got, err)
	}
	outside := NewRegion(bounds.Max.X+10, bounds.Max.X+20, 0, 10)
	if _, err := FitToDisplay(outside); err == nil {
		t.Error("Expected error for a region beyond every display")
	}
}
