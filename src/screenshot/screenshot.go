package screenshot

import (
	"fmt"
	"image"
	"log"

	"github.com/kbinani/screenshot"
)

// Capturer produces a bitmap for a screen region.
type Capturer interface {
	Capture(region Region) (*image.RGBA, error)
}

// Screen is the Capturer backed by the OS screenshot service.
type Screen struct{}

func (Screen) Capture(region Region) (*image.RGBA, error) { return Capture(region) }

// Capture captures a specific region of the screen. The returned image is
// rebased so its bounds start at (0,0).
func Capture(region Region) (*image.RGBA, error) {
	if err := region.Validate(); err != nil {
		return nil, err
	}

	bounds := region.Rect()
	log.Printf("Screenshot: capturing region %s (%dx%d)", region, bounds.Dx(), bounds.Dy())

	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to capture region: %w", err)
	}

	if img.Rect.Min != (image.Point{}) {
		img.Rect = img.Rect.Sub(img.Rect.Min)
	}
	return img, nil
}

// GetDisplayBounds returns the rectangle spanning every active display.
func GetDisplayBounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	bounds := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		bounds = bounds.Union(screenshot.GetDisplayBounds(i))
	}
	return bounds, nil
}

// FitToDisplay validates region and clamps it to the desktop. Without a
// display to measure, a valid region is returned unchanged.
func FitToDisplay(region Region) (Region, error) {
	if err := region.Validate(); err != nil {
		return NullRegion(), err
	}
	bounds, err := GetDisplayBounds()
	if err != nil {
		log.Printf("Screenshot: cannot measure displays, keeping %s: %v", region, err)
		return region, nil
	}
	fitted, err := region.ClampTo(bounds)
	if err != nil {
		return NullRegion(), err
	}
	if fitted != region {
		log.Printf("Screenshot: region %s clamped to %s within %v", region, fitted, bounds)
	}
	return fitted, nil
}
