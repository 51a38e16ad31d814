// Package preview shows a finished translation in a desktop window for the
// batch and clipboard entry points.
package preview

import (
	"fmt"
	"image"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"screen-translate/src/ocr"
)

const (
	maxWidth  = 1280
	maxHeight = 800
)

// Show opens a window with img and the list of translations and blocks
// until the window is closed. It must run on the main goroutine.
func Show(title string, img image.Image, detections []ocr.Detection) {
	a := app.New()
	w := a.NewWindow(title)

	picture := canvas.NewImageFromImage(img)
	picture.FillMode = canvas.ImageFillContain
	width, height := fitSize(img.Bounds().Dx(), img.Bounds().Dy(), maxWidth, maxHeight)
	picture.SetMinSize(fyne.NewSize(width, height))

	text := widget.NewLabel(Summary(detections))
	text.Wrapping = fyne.TextWrapWord
	side := container.NewVScroll(text)
	side.SetMinSize(fyne.NewSize(320, height))

	w.SetContent(container.NewBorder(nil, nil, nil, side, picture))
	w.Resize(fyne.NewSize(width+320, height))
	w.ShowAndRun()
}

// fitSize scales w x h down to fit within maxW x maxH, keeping the aspect
// ratio. Smaller images keep their size.
func fitSize(w, h, maxW, maxH int) (float32, float32) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	scale := 1.0
	if sx := float64(maxW) / float64(w); sx < scale {
		scale = sx
	}
	if sy := float64(maxH) / float64(h); sy < scale {
		scale = sy
	}
	return float32(float64(w) * scale), float32(float64(h) * scale)
}

// Summary lists each original span with its translation.
func Summary(detections []ocr.Detection) string {
	if len(detections) == 0 {
		return "No text detected."
	}
	var b strings.Builder
	for i, d := range detections {
		if i > 0 {
			b.WriteString("\n")
		}
		original := d.OriginalText
		if original == "" {
			original = d.Text
		}
		fmt.Fprintf(&b, "%d. %s\n   → %s\n", i+1, original, d.Text)
	}
	return b.String()
}
