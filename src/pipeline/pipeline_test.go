package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"screen-translate/src/display"
	"screen-translate/src/ocr"
	"screen-translate/src/screenshot"
)

type fakeCapturer struct {
	regions []screenshot.Region
	err     error
}

func (c *fakeCapturer) Capture(region screenshot.Region) (*image.RGBA, error) {
	c.regions = append(c.regions, region)
	if c.err != nil {
		return nil, c.err
	}
	img := image.NewRGBA(image.Rect(0, 0, region.Width(), region.Height()))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 30, G: 60, B: 90, A: 255}), image.Point{}, draw.Src)
	return img, nil
}

type fakeBackend struct {
	raw []ocr.RawDetection
	err error
}

func (b fakeBackend) Name() string { return "fake" }

func (b fakeBackend) Recognize(ctx context.Context, img image.Image) ([]ocr.RawDetection, error) {
	return b.raw, b.err
}

type fakeTranslator struct {
	results map[string]string
	calls   []string
}

func (f *fakeTranslator) Translate(ctx context.Context, text string) (string, error) {
	f.calls = append(f.calls, text)
	if out, ok := f.results[text]; ok {
		return out, nil
	}
	return "", errors.New("translation unavailable")
}

// solidRenderer draws an opaque red plate whose size tracks the text length.
type solidRenderer struct {
	texts []string
}

func (r *solidRenderer) Render(text string) *image.NRGBA {
	r.texts = append(r.texts, text)
	img := image.NewNRGBA(image.Rect(0, 0, 10*len(text)+4, 20))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.NRGBA{R: 255, A: 255}), image.Point{}, draw.Src)
	return img
}

type fakeDisplayer struct {
	anchors []image.Point
	results []display.Interaction
	err     error
	onShow  func()
}

func (d *fakeDisplayer) Show(ctx context.Context, img image.Image, anchor image.Point) (display.Interaction, error) {
	d.anchors = append(d.anchors, anchor)
	if d.onShow != nil {
		d.onShow()
	}
	if d.err != nil {
		return display.Interaction{}, d.err
	}
	if len(d.results) == 0 {
		return display.Interaction{Window: screenshot.NullRegion()}, nil
	}
	r := d.results[0]
	d.results = d.results[1:]
	return r, nil
}

func rectPolygon(x1, x2, y1, y2 int) []image.Point {
	return []image.Point{{x1, y1}, {x2, y1}, {x2, y2}, {x1, y2}}
}

func newTestPipeline(raw []ocr.RawDetection, results map[string]string) (*Pipeline, *fakeCapturer, *fakeTranslator, *fakeDisplayer) {
	c := &fakeCapturer{}
	tr := &fakeTranslator{results: results}
	d := &fakeDisplayer{}
	p := &Pipeline{
		Extractor:  ocr.Extractor{Backend: fakeBackend{raw: raw}},
		Translator: tr,
		Renderer:   &solidRenderer{},
		Capturer:   c,
		Displayer:  d,
	}
	return p, c, tr, d
}

func TestRunOnceIncompleteRegionSkipsCapture(t *testing.T) {
	regions := []screenshot.Region{
		screenshot.NullRegion(),
		{X1: screenshot.C(0), X2: screenshot.C(100), Y1: screenshot.C(0)},
		{X2: screenshot.C(100), Y1: screenshot.C(0), Y2: screenshot.C(100)},
	}
	for _, region := range regions {
		p, c, _, d := newTestPipeline(nil, nil)
		if _, ok := p.RunOnce(context.Background(), region); ok {
			t.Errorf("RunOnce(%s) reported a next region", region)
		}
		if len(c.regions) != 0 {
			t.Errorf("RunOnce(%s) invoked capture", region)
		}
		if len(d.anchors) != 0 {
			t.Errorf("RunOnce(%s) invoked display", region)
		}
	}
}

func TestRunOnceInvalidDimensionsSkipsCapture(t *testing.T) {
	p, c, _, _ := newTestPipeline(nil, nil)
	if _, ok := p.RunOnce(context.Background(), screenshot.NewRegion(100, 50, 0, 10)); ok {
		t.Error("inverted region accepted")
	}
	if len(c.regions) != 0 {
		t.Error("capture invoked for inverted region")
	}
}

func TestRunOnceAnchorAndNextRegion(t *testing.T) {
	p, c, _, d := newTestPipeline(nil, nil)
	next := screenshot.NewRegion(40, 400, 60, 300)
	d.results = []display.Interaction{{Click: image.Pt(50, 70), Clicked: true, Window: next}}

	got, ok := p.RunOnce(context.Background(), screenshot.NewRegion(500, 1000, 100, 600))
	if !ok {
		t.Fatal("RunOnce failed")
	}
	if got != next {
		t.Errorf("next region = %s, want %s", got, next)
	}
	if c.regions[0] != screenshot.NewRegion(500, 1000, 100, 600) {
		t.Errorf("captured %s", c.regions[0])
	}
	if d.anchors[0] != image.Pt(500, 100) {
		t.Errorf("anchor = %v, want the region's top-left (500,100)", d.anchors[0])
	}
}

func TestRunOnceFailuresEndCycle(t *testing.T) {
	t.Run("capture", func(t *testing.T) {
		p, c, _, d := newTestPipeline(nil, nil)
		c.err = errors.New("no display")
		if _, ok := p.RunOnce(context.Background(), screenshot.NewRegion(0, 10, 0, 10)); ok {
			t.Error("expected no next region")
		}
		if len(d.anchors) != 0 {
			t.Error("display shown after capture failure")
		}
	})
	t.Run("ocr", func(t *testing.T) {
		p, _, _, d := newTestPipeline(nil, nil)
		p.Extractor = ocr.Extractor{Backend: fakeBackend{err: errors.New("engine crashed")}}
		if _, ok := p.RunOnce(context.Background(), screenshot.NewRegion(0, 10, 0, 10)); ok {
			t.Error("expected no next region")
		}
		if len(d.anchors) != 0 {
			t.Error("display shown after OCR failure")
		}
	})
	t.Run("display", func(t *testing.T) {
		p, _, _, d := newTestPipeline(nil, nil)
		d.err = display.ErrUnsupported
		if _, ok := p.RunOnce(context.Background(), screenshot.NewRegion(0, 10, 0, 10)); ok {
			t.Error("expected no next region")
		}
	})
	t.Run("no click", func(t *testing.T) {
		p, _, _, _ := newTestPipeline(nil, nil)
		if _, ok := p.RunOnce(context.Background(), screenshot.NewRegion(0, 10, 0, 10)); ok {
			t.Error("expected no next region")
		}
	})
}

func TestProcessTranslationFailureKeepsOriginal(t *testing.T) {
	raw := []ocr.RawDetection{
		{Polygon: rectPolygon(0, 50, 0, 20), Text: "好き", Confidence: 0.9},
		{Polygon: rectPolygon(0, 50, 30, 50), Text: "未知", Confidence: 0.4},
	}
	p, _, tr, _ := newTestPipeline(raw, map[string]string{"好き": "like"})
	r := p.Renderer.(*solidRenderer)

	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	_, dets, err := p.Process(context.Background(), img)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(dets) != 2 || len(tr.calls) != 2 {
		t.Fatalf("detections=%d translations=%d", len(dets), len(tr.calls))
	}
	if dets[0].Text != "like" || dets[0].OriginalText != "好き" {
		t.Errorf("first detection = %q / %q", dets[0].Text, dets[0].OriginalText)
	}
	if dets[1].Text != "未知" || dets[1].OriginalText != "未知" {
		t.Errorf("failed translation should keep original, got %q", dets[1].Text)
	}
	if r.texts[0] != "like" || r.texts[1] != "未知" {
		t.Errorf("captions rendered for %v", r.texts)
	}
	for i, d := range dets {
		if d.Caption == nil {
			t.Errorf("detection %d has no caption", i)
		}
	}
}

func TestProcessEndToEnd(t *testing.T) {
	raw := []ocr.RawDetection{{Polygon: rectPolygon(78, 1185, 222, 496), Text: "好きなだけ", Confidence: 0.95}}
	p, _, _, _ := newTestPipeline(raw, map[string]string{"好きなだけ": "As much as you like"})

	base := image.NewRGBA(image.Rect(0, 0, 1280, 720))
	draw.Draw(base, base.Bounds(), image.NewUniform(color.RGBA{G: 200, A: 255}), image.Point{}, draw.Src)

	out, dets, err := p.Process(context.Background(), base)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if dets[0].Text != "As much as you like" || dets[0].Confidence != 0.95 {
		t.Errorf("detection = %+v", dets[0])
	}

	plate := image.Rect(78, 222, 1185, 496)
	for y := 0; y < 720; y += 3 {
		for x := 0; x < 1280; x += 3 {
			got := out.RGBAAt(x, y)
			if image.Pt(x, y).In(plate) {
				if got != (color.RGBA{R: 255, A: 255}) {
					t.Fatalf("pixel (%d,%d) = %v, want caption red", x, y, got)
				}
			} else if got != base.RGBAAt(x, y) {
				t.Fatalf("pixel (%d,%d) outside the box changed", x, y)
			}
		}
	}
	for _, pt := range []image.Point{{77, 222}, {78, 221}, {1185, 300}, {600, 496}} {
		if out.RGBAAt(pt.X, pt.Y) != base.RGBAAt(pt.X, pt.Y) {
			t.Errorf("edge pixel %v changed", pt)
		}
	}
	for _, pt := range []image.Point{{78, 222}, {1184, 495}} {
		if out.RGBAAt(pt.X, pt.Y) != (color.RGBA{R: 255, A: 255}) {
			t.Errorf("corner pixel %v not covered", pt)
		}
	}
}

func TestRunFollowsWindowRegions(t *testing.T) {
	p, c, _, d := newTestPipeline(nil, nil)
	second := screenshot.NewRegion(10, 110, 20, 220)
	third := screenshot.NewRegion(15, 115, 25, 225)
	d.results = []display.Interaction{
		{Clicked: true, Click: image.Pt(1, 1), Window: second},
		{Clicked: true, Click: image.Pt(2, 2), Window: third},
		{Clicked: true, Click: image.Pt(3, 3), Window: screenshot.NullRegion()},
	}

	cycles := p.Run(context.Background(), screenshot.NewRegion(0, 100, 0, 200))

	if cycles != 3 {
		t.Errorf("cycles = %d, want 3", cycles)
	}
	want := []screenshot.Region{screenshot.NewRegion(0, 100, 0, 200), second, third}
	if len(c.regions) != len(want) {
		t.Fatalf("captured %v, want %v", c.regions, want)
	}
	for i := range want {
		if c.regions[i] != want[i] {
			t.Errorf("capture %d = %s, want %s", i, c.regions[i], want[i])
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	p, c, _, d := newTestPipeline(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	next := screenshot.NewRegion(0, 10, 0, 10)
	for i := 0; i < 10; i++ {
		d.results = append(d.results, display.Interaction{Clicked: true, Window: next})
	}
	d.onShow = func() {
		if len(d.anchors) == 2 {
			cancel()
		}
	}

	cycles := p.Run(ctx, next)

	if cycles != 2 || len(c.regions) != 2 {
		t.Errorf("cycles=%d captures=%d, want 2 and 2", cycles, len(c.regions))
	}
}

// framedDisplayer places a window the way the native display does: the outer
// frame goes to OuterOrigin and the client area sits frame pixels inside it.
// Each click reports the client rectangle, as the real window does.
type framedDisplayer struct {
	frame    image.Point
	override image.Point
	clicks   int
}

func (d *framedDisplayer) Show(ctx context.Context, img image.Image, anchor image.Point) (display.Interaction, error) {
	if d.clicks == 0 {
		return display.Interaction{Window: screenshot.NullRegion()}, nil
	}
	d.clicks--
	outer := display.OuterOrigin(anchor, d.frame, d.override)
	client := outer.Sub(d.frame)
	r := image.Rectangle{Min: client, Max: client.Add(img.Bounds().Size())}
	return display.Interaction{Clicked: true, Click: client, Window: screenshot.RegionFromRect(r)}, nil
}

func TestRunKeepsRegionStableAcrossCycles(t *testing.T) {
	tests := []struct {
		name     string
		frame    image.Point
		override image.Point
	}{
		{"measured frame", image.Pt(-3, -26), image.Point{}},
		{"matching override", image.Pt(-9, -38), image.Pt(9, 38)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, c, _, _ := newTestPipeline(nil, nil)
			p.Displayer = &framedDisplayer{frame: tt.frame, override: tt.override, clicks: 5}
			start := screenshot.NewRegion(500, 1000, 100, 600)

			if cycles := p.Run(context.Background(), start); cycles != 5 {
				t.Fatalf("cycles = %d, want 5", cycles)
			}
			if len(c.regions) != 6 {
				t.Fatalf("captures = %d, want 6", len(c.regions))
			}
			for i, r := range c.regions {
				if r != start {
					t.Errorf("capture %d = %s, want %s", i, r, start)
				}
			}
		})
	}
}
