//go:build !windows

package display

import (
	"context"
	"image"

	"screen-translate/src/screenshot"
)

// Window is a stub for non-Windows platforms.
type Window struct {
	Options Options
}

func New(opts Options) *Window { return &Window{Options: opts} }

func (w *Window) Show(ctx context.Context, img image.Image, anchor image.Point) (Interaction, error) {
	return Interaction{Window: screenshot.NullRegion()}, ErrUnsupported
}
