// Package pipeline wires capture, OCR, translation, captioning, compositing
// and display into the click-driven translation loop.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"log"

	"screen-translate/src/compose"
	"screen-translate/src/display"
	"screen-translate/src/logutil"
	"screen-translate/src/ocr"
	"screen-translate/src/screenshot"
)

type Extractor interface {
	Extract(ctx context.Context, img image.Image) ([]ocr.Detection, error)
}

type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

type Renderer interface {
	Render(text string) *image.NRGBA
}

type Pipeline struct {
	Extractor  Extractor
	Translator Translator
	Renderer   Renderer
	Capturer   screenshot.Capturer
	Displayer  display.Displayer
}

// Process extracts, translates and captions every span in img and returns
// the composited result. A failed translation keeps the original text; only
// an OCR failure is returned.
func (p *Pipeline) Process(ctx context.Context, img image.Image) (*image.RGBA, []ocr.Detection, error) {
	detections, err := p.Extractor.Extract(ctx, img)
	if err != nil {
		return nil, nil, fmt.Errorf("text extraction failed: %w", err)
	}

	for i := range detections {
		det := &detections[i]
		det.OriginalText = det.Text

		translated, err := p.Translator.Translate(ctx, det.Text)
		if err != nil {
			log.Printf("Pipeline: translation of %q failed, keeping original: %v", logutil.Sanitize(det.Text), err)
			translated = det.Text
		}
		det.Text = translated
		det.Caption = p.Renderer.Render(det.Text)
		log.Printf("Pipeline: %q -> %q at %+v", logutil.Sanitize(det.OriginalText), logutil.Sanitize(det.Text), det.Box)
	}

	return compose.Composite(img, detections), detections, nil
}

// RunOnce performs one capture-to-click cycle. It returns the region to
// capture next, or ok=false when the cycle ended without one.
func (p *Pipeline) RunOnce(ctx context.Context, region screenshot.Region) (next screenshot.Region, ok bool) {
	if err := region.Validate(); err != nil {
		log.Printf("Pipeline: region %s rejected: %v", region, err)
		return screenshot.NullRegion(), false
	}

	img, err := p.Capturer.Capture(region)
	if err != nil {
		log.Printf("Pipeline: capture of %s failed: %v", region, err)
		return screenshot.NullRegion(), false
	}

	out, detections, err := p.Process(ctx, img)
	if err != nil {
		log.Printf("Pipeline: %v", err)
		return screenshot.NullRegion(), false
	}
	log.Printf("Pipeline: %d detections in %s", len(detections), region)

	// The client area goes exactly over the captured pixels.
	result, err := p.Displayer.Show(ctx, out, region.TopLeft())
	if err != nil {
		log.Printf("Pipeline: display failed: %v", err)
		return screenshot.NullRegion(), false
	}
	if !result.Clicked {
		log.Printf("Pipeline: display closed without a click")
		return screenshot.NullRegion(), false
	}
	return result.Window, true
}

// Run repeats RunOnce, feeding each window rectangle back in as the next
// region, until a cycle ends without one or ctx is cancelled. It returns the
// number of completed cycles.
func (p *Pipeline) Run(ctx context.Context, region screenshot.Region) int {
	cycles := 0
	for ctx.Err() == nil {
		next, ok := p.RunOnce(ctx, region)
		if !ok {
			break
		}
		cycles++
		region = next
	}
	log.Printf("Pipeline: loop ended after %d cycles", cycles)
	return cycles
}
