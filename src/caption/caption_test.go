package caption

import (
	"image/color"
	"path/filepath"
	"testing"
)

func testRenderer(t *testing.T, size int) *Renderer {
	t.Helper()
	opts := DefaultOptions()
	opts.FontSize = size
	missing := filepath.Join(t.TempDir(), "missing.ttf")
	opts.JapaneseFont = missing
	opts.LatinFont = missing
	r := NewRenderer(opts)
	r.IsJapanese = func(string) bool { return false }
	return r
}

func TestMargins(t *testing.T) {
	tests := []struct {
		size int
		want Margins
	}{
		{360, Margins{Top: 36, Bottom: 108, Left: 36, Right: 36}},
		{48, Margins{Top: 4, Bottom: 14, Left: 4, Right: 4}},
		{7, Margins{Top: 0, Bottom: 2, Left: 0, Right: 0}},
	}
	for _, tt := range tests {
		r := testRenderer(t, tt.size)
		if got := r.Margins(); got != tt.want {
			t.Errorf("size %d: Margins = %+v, want %+v", tt.size, got, tt.want)
		}
	}
}

func TestRenderDimensionsAreExtentPlusMargins(t *testing.T) {
	for _, size := range []int{48, 120, 360} {
		r := testRenderer(t, size)
		text := "As much as you like"

		img := r.Render(text)
		ext := r.Extent(text)
		m := r.Margins()

		if got, want := img.Bounds().Dx(), ext.X+m.Left+m.Right; got != want {
			t.Errorf("size %d: width %d, want %d", size, got, want)
		}
		if got, want := img.Bounds().Dy(), ext.Y+m.Top+m.Bottom; got != want {
			t.Errorf("size %d: height %d, want %d", size, got, want)
		}
		if ext.X <= 0 || ext.Y <= 0 {
			t.Errorf("size %d: empty ink extent %v", size, ext)
		}
	}
}

func TestRenderPlateAndInk(t *testing.T) {
	r := testRenderer(t, 96)
	img := r.Render("Hello")

	corner := img.NRGBAAt(0, 0)
	if corner.A != 200 || corner.R < 254 || corner.G < 254 || corner.B < 254 {
		t.Errorf("corner pixel = %+v, want white plate at alpha 200", corner)
	}

	red := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			if c.R > 200 && c.G < 60 && c.B < 60 && c.A > 240 {
				red++
			}
		}
	}
	if red == 0 {
		t.Error("no red glyph pixels rendered")
	}

	m := r.Margins()
	for x := b.Min.X; x < b.Max.X; x++ {
		if c := img.NRGBAAt(x, b.Max.Y-1); c.G < 250 {
			t.Fatalf("ink bled into bottom margin at x=%d: %+v", x, c)
		}
	}
	if m.Bottom <= m.Top {
		t.Errorf("bottom margin %d should exceed top %d", m.Bottom, m.Top)
	}
}

func TestRenderCustomOpacity(t *testing.T) {
	opts := DefaultOptions()
	opts.FontSize = 40
	opts.Opacity = 0
	opts.LatinFont = ""
	r := NewRenderer(opts)
	r.IsJapanese = func(string) bool { return false }

	img := r.Render("x")
	if got := img.NRGBAAt(0, 0); got.A != 0 {
		t.Errorf("corner alpha = %d, want 0", got.A)
	}
}

func TestRenderChoosesFontByLanguage(t *testing.T) {
	opts := DefaultOptions()
	opts.FontSize = 32
	opts.JapaneseFont = "ja-missing.ttf"
	opts.LatinFont = "latin-missing.ttf"
	r := NewRenderer(opts)

	var asked []string
	r.IsJapanese = func(text string) bool {
		asked = append(asked, text)
		return text == "好き"
	}

	r.Render("好き")
	r.Render("like")

	if len(asked) != 2 {
		t.Fatalf("language detected %d times, want once per render", len(asked))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, path := range []string{"ja-missing.ttf", "latin-missing.ttf"} {
		if _, ok := r.fonts[path]; !ok {
			t.Errorf("font %s was never requested", path)
		}
	}
}

func TestRenderEmptyText(t *testing.T) {
	r := testRenderer(t, 100)
	img := r.Render("")
	m := r.Margins()
	if img.Bounds().Dx() != m.Left+m.Right || img.Bounds().Dy() != m.Top+m.Bottom {
		t.Errorf("empty caption bounds = %v", img.Bounds())
	}
	if got := img.NRGBAAt(0, 0); got != (color.NRGBA{R: 255, G: 255, B: 255, A: 200}) {
		t.Errorf("plate = %+v", got)
	}
}
