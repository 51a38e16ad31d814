package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"unicode"

	"github.com/otiai10/gosseract/v2"
)

// TesseractBackend recognizes text lines with a local Tesseract install.
type TesseractBackend struct {
	Language      string
	clientFactory func() *gosseract.Client
}

// NewTesseractBackend constructs a backend for one Tesseract language
// (e.g. "jpn").
func NewTesseractBackend(language string) *TesseractBackend {
	if language == "" {
		language = "jpn"
	}
	return &TesseractBackend{Language: language, clientFactory: gosseract.NewClient}
}

func (b *TesseractBackend) Name() string { return "tesseract:" + b.Language }

func (b *TesseractBackend) Recognize(ctx context.Context, img image.Image) ([]RawDetection, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := b.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(b.Language); err != nil {
		return nil, fmt.Errorf("set language: %w", err)
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("bounding boxes: %w", err)
	}

	out := make([]RawDetection, 0, len(boxes))
	for _, box := range boxes {
		text := joinCJK(strings.TrimSpace(box.Word))
		if text == "" {
			continue
		}
		out = append(out, RawDetection{
			Polygon:    rectPolygon(box.Box),
			Text:       text,
			Confidence: box.Confidence / 100.0,
		})
	}
	return out, nil
}

// joinCJK removes the spaces Tesseract inserts between Japanese characters
// while keeping spaces that separate Latin words.
func joinCJK(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsSpace(r) && i > 0 && i < len(runes)-1 && isCJK(runes[i-1]) && isCJK(runes[i+1]) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana) ||
		(r >= 0x3000 && r <= 0x303F) || (r >= 0xFF00 && r <= 0xFFEF)
}
