// Package ocr turns a bitmap into an ordered list of text detections.
package ocr

import (
	"context"
	"fmt"
	"image"
	"log"

	"screen-translate/src/logutil"
)

// BoundingBox is an axis-aligned pixel box with x1<x2 and y1<y2.
type BoundingBox struct {
	X1 int
	X2 int
	Y1 int
	Y2 int
}

func (b BoundingBox) Width() int  { return b.X2 - b.X1 }
func (b BoundingBox) Height() int { return b.Y2 - b.Y1 }

// Rect returns the box as an image rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Detection is one recognized text span. Extract fills Text, Box and
// Confidence; translation sets OriginalText and overwrites Text; the caption
// renderer sets Caption, which the compositor consumes.
type Detection struct {
	Text         string
	OriginalText string
	Box          BoundingBox
	// Confidence is informational only.
	Confidence float64
	Caption    image.Image
}

// RawDetection is what an OCR backend reports: a possibly rotated polygon.
type RawDetection struct {
	Polygon    []image.Point
	Text       string
	Confidence float64
}

// Backend is an OCR engine restricted to one language.
type Backend interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) ([]RawDetection, error)
}

// BoundsOf returns the axis-aligned bounding rectangle of a polygon.
func BoundsOf(polygon []image.Point) BoundingBox {
	if len(polygon) == 0 {
		return BoundingBox{}
	}
	b := BoundingBox{X1: polygon[0].X, X2: polygon[0].X, Y1: polygon[0].Y, Y2: polygon[0].Y}
	for _, p := range polygon[1:] {
		b.X1 = min(b.X1, p.X)
		b.X2 = max(b.X2, p.X)
		b.Y1 = min(b.Y1, p.Y)
		b.Y2 = max(b.Y2, p.Y)
	}
	return b
}

// Extractor runs a Backend and converts its output into Detections.
type Extractor struct {
	Backend Backend
}

// Extract keeps the backend's scan order, which is not necessarily reading
// order. Zero detections is a valid result; backend errors are returned.
func (e Extractor) Extract(ctx context.Context, img image.Image) ([]Detection, error) {
	if e.Backend == nil {
		return nil, fmt.Errorf("ocr: no backend configured")
	}
	raw, err := e.Backend.Recognize(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("ocr %s: %w", e.Backend.Name(), err)
	}

	// Backends report coordinates relative to the image's top-left corner.
	frame := image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy())
	detections := make([]Detection, 0, len(raw))
	for _, r := range raw {
		box, ok := clampBox(BoundsOf(r.Polygon), frame)
		if !ok {
			log.Printf("OCR: dropping %q with box outside image", logutil.Sanitize(r.Text))
			continue
		}
		detections = append(detections, Detection{
			Text:       r.Text,
			Box:        box,
			Confidence: r.Confidence,
		})
		log.Printf("OCR: %q at (%d,%d,%d,%d) conf=%.2f", logutil.Sanitize(r.Text), box.X1, box.X2, box.Y1, box.Y2, r.Confidence)
	}
	log.Printf("OCR: extracted %d text items using %s", len(detections), e.Backend.Name())
	return detections, nil
}

func clampBox(b BoundingBox, frame image.Rectangle) (BoundingBox, bool) {
	r := b.Rect().Intersect(frame)
	if r.Empty() {
		return BoundingBox{}, false
	}
	return BoundingBox{X1: r.Min.X, X2: r.Max.X, Y1: r.Min.Y, Y2: r.Max.Y}, true
}

func rectPolygon(r image.Rectangle) []image.Point {
	return []image.Point{
		{X: r.Min.X, Y: r.Min.Y},
		{X: r.Max.X, Y: r.Min.Y},
		{X: r.Max.X, Y: r.Max.Y},
		{X: r.Min.X, Y: r.Max.Y},
	}
}
