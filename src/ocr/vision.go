package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"math"
	"strings"

	"screen-translate/src/llm"
)

const visionPrompt = "Find every line of Japanese text in this image. " +
	"Return ONLY a JSON array, no markdown, where each element is " +
	`{"text": "<text>", "polygon": [[x,y],[x,y],[x,y],[x,y]], "confidence": <0..1>} ` +
	"with pixel coordinates relative to the top-left corner of the image. " +
	"Return [] if there is no text."

// VisionBackend uses an OpenRouter vision model as the OCR engine.
type VisionBackend struct {
	query func(ctx context.Context, imageData []byte, prompt string) (string, error)
}

func NewVisionBackend() *VisionBackend {
	return &VisionBackend{query: llm.QueryVision}
}

func (b *VisionBackend) Name() string { return "llm-vision" }

func (b *VisionBackend) Recognize(ctx context.Context, img image.Image) ([]RawDetection, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	out, err := b.query(ctx, buf.Bytes(), visionPrompt)
	if err != nil {
		return nil, err
	}
	return parseVisionOutput(out)
}

type visionItem struct {
	Text       string       `json:"text"`
	Polygon    [][2]float64 `json:"polygon"`
	Confidence float64      `json:"confidence"`
}

func parseVisionOutput(out string) ([]RawDetection, error) {
	out = strings.TrimSpace(out)
	if strings.HasPrefix(out, "```") {
		out = strings.TrimPrefix(out, "```json")
		out = strings.TrimPrefix(out, "```")
		out = strings.TrimSuffix(strings.TrimSpace(out), "```")
	}

	var items []visionItem
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		return nil, fmt.Errorf("decode vision output: %w", err)
	}

	detections := make([]RawDetection, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Text) == "" || len(it.Polygon) == 0 {
			continue
		}
		poly := make([]image.Point, len(it.Polygon))
		for i, p := range it.Polygon {
			poly[i] = image.Pt(int(math.Round(p[0])), int(math.Round(p[1])))
		}
		detections = append(detections, RawDetection{Polygon: poly, Text: it.Text, Confidence: it.Confidence})
	}
	return detections, nil
}
