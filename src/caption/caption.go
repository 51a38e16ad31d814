// Package caption renders translated text onto a standalone plate image.
// The image size is driven by the text alone; fitting it to a target box is
// left to the compositor.
package caption

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"screen-translate/src/langdetect"
	"screen-translate/src/logutil"
)

type Options struct {
	FontSize int

	// Margins as fractions of FontSize.
	TopPct    float64
	BottomPct float64
	LeftPct   float64
	RightPct  float64

	// Opacity is the alpha of the plate, 0..255.
	Opacity uint8

	JapaneseFont string
	LatinFont    string

	Plate color.NRGBA
	Ink   color.NRGBA
}

func DefaultOptions() Options {
	return Options{
		FontSize:     360,
		TopPct:       0.1,
		BottomPct:    0.3,
		LeftPct:      0.1,
		RightPct:     0.1,
		Opacity:      200,
		JapaneseFont: "NotoSansJP-Regular.ttf",
		LatinFont:    "arial.ttf",
		Plate:        color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		Ink:          color.NRGBA{R: 255, A: 255},
	}
}

// Margins holds pixel margins around the ink.
type Margins struct {
	Top, Bottom, Left, Right int
}

// Renderer is safe for concurrent use; parsed fonts are shared.
type Renderer struct {
	opts Options

	// IsJapanese chooses the font face; defaults to langdetect.IsJapanese.
	IsJapanese func(text string) bool

	mu    sync.Mutex
	fonts map[string]*opentype.Font
}

func NewRenderer(opts Options) *Renderer {
	if opts.FontSize <= 0 {
		opts.FontSize = DefaultOptions().FontSize
	}
	return &Renderer{opts: opts, fonts: make(map[string]*opentype.Font)}
}

func (r *Renderer) Options() Options { return r.opts }

// Margins are floor(FontSize * pct) for each side.
func (r *Renderer) Margins() Margins {
	size := float64(r.opts.FontSize)
	return Margins{
		Top:    int(size * r.opts.TopPct),
		Bottom: int(size * r.opts.BottomPct),
		Left:   int(size * r.opts.LeftPct),
		Right:  int(size * r.opts.RightPct),
	}
}

// Render draws text in the ink color over a plate spanning the whole canvas.
// It never fails: an unreadable font file degrades to Go Regular.
func (r *Renderer) Render(text string) *image.NRGBA {
	face := r.face(text)
	defer face.Close()

	ink, _ := font.BoundString(face, text)
	minX, minY := ink.Min.X.Floor(), ink.Min.Y.Floor()
	w := ink.Max.X.Ceil() - minX
	h := ink.Max.Y.Ceil() - minY
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}

	m := r.Margins()
	canvas := image.NewNRGBA(image.Rect(0, 0, w+m.Left+m.Right, h+m.Top+m.Bottom))

	plate := r.opts.Plate
	plate.A = r.opts.Opacity
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(plate), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(r.opts.Ink),
		Face: face,
		Dot:  fixed.P(m.Left-minX, m.Top-minY),
	}
	d.DrawString(text)

	log.Printf("Caption: rendered %q as %dx%d", logutil.Sanitize(text), canvas.Bounds().Dx(), canvas.Bounds().Dy())
	return canvas
}

// Extent returns the ink size of text in the font Render would choose.
func (r *Renderer) Extent(text string) image.Point {
	face := r.face(text)
	defer face.Close()
	ink, _ := font.BoundString(face, text)
	return image.Pt(ink.Max.X.Ceil()-ink.Min.X.Floor(), ink.Max.Y.Ceil()-ink.Min.Y.Floor())
}

func (r *Renderer) face(text string) font.Face {
	isJapanese := r.IsJapanese
	if isJapanese == nil {
		isJapanese = langdetect.IsJapanese
	}
	path := r.opts.LatinFont
	if isJapanese(text) {
		path = r.opts.JapaneseFont
	}

	f := r.loadFont(path)
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(r.opts.FontSize),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		log.Printf("Caption: face for %s failed (%v); using Go Regular", path, err)
		face, _ = opentype.NewFace(r.loadFont(""), &opentype.FaceOptions{Size: float64(r.opts.FontSize), DPI: 72})
	}
	return face
}

// loadFont returns the parsed font for path, or the embedded Go Regular when
// path is empty or cannot be read or parsed.
func (r *Renderer) loadFont(path string) *opentype.Font {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.fonts[path]; ok {
		return f
	}

	var f *opentype.Font
	if path != "" {
		var err error
		f, err = parseFile(path)
		if err != nil {
			log.Printf("Caption: %v; using Go Regular", err)
		}
	}
	if f == nil {
		fallback, ok := r.fonts[""]
		if !ok {
			// goregular.TTF is embedded and always parses.
			fallback, _ = opentype.Parse(goregular.TTF)
			r.fonts[""] = fallback
		}
		f = fallback
	}
	r.fonts[path] = f
	return f
}

func parseFile(path string) (*opentype.Font, error) {
	var lastErr error
	for _, candidate := range fontCandidates(path) {
		data, err := os.ReadFile(candidate)
		if err != nil {
			lastErr = err
			continue
		}
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse font %s: %w", candidate, err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("load font %s: %w", path, lastErr)
}

// fontCandidates lists the paths tried for a font name: as given, then the
// system font directory for bare file names.
func fontCandidates(path string) []string {
	candidates := []string{path}
	if filepath.IsAbs(path) || filepath.Base(path) != path {
		return candidates
	}
	switch runtime.GOOS {
	case "windows":
		dir := os.Getenv("WINDIR")
		if dir == "" {
			dir = `C:\Windows`
		}
		candidates = append(candidates, filepath.Join(dir, "Fonts", path))
	case "darwin":
		candidates = append(candidates, filepath.Join("/Library/Fonts", path), filepath.Join("/System/Library/Fonts", path))
	default:
		candidates = append(candidates, filepath.Join("/usr/share/fonts/truetype", path))
	}
	return candidates
}
