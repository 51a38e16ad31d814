// Package compose pastes caption images over the boxes they translate.
package compose

import (
	"image"
	"log"

	"golang.org/x/image/draw"

	"screen-translate/src/ocr"
)

// Composite returns a copy of base with each detection's caption resized to
// its box and alpha-blended at the box origin. Detections are painted in
// order, so later captions cover earlier ones where boxes overlap. Box
// coordinates are relative to base's top-left corner. base is not modified.
func Composite(base image.Image, detections []ocr.Detection) *image.RGBA {
	b := base.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), base, b.Min, draw.Src)

	for i, det := range detections {
		if det.Caption == nil {
			log.Printf("Compose: detection %d has no caption, skipping", i)
			continue
		}
		w, h := det.Box.Width(), det.Box.Height()
		if w <= 0 || h <= 0 {
			log.Printf("Compose: detection %d has degenerate box %+v, skipping", i, det.Box)
			continue
		}

		scaled := Fit(det.Caption, w, h)
		target := image.Rect(det.Box.X1, det.Box.Y1, det.Box.X2, det.Box.Y2)
		draw.Draw(out, target, scaled, image.Point{}, draw.Over)
	}

	log.Printf("Compose: composited %d detections onto %dx%d image", len(detections), b.Dx(), b.Dy())
	return out
}

// Fit resamples img to exactly w x h, keeping its alpha channel. The aspect
// ratio is not preserved.
func Fit(img image.Image, w, h int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
