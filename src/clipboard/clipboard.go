package clipboard

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"sync"

	"golang.design/x/clipboard"
)

// ErrNoImage is returned when the clipboard holds no decodable image.
var ErrNoImage = errors.New("clipboard holds no image")

// store is the system clipboard; tests substitute an in-memory one.
type store interface {
	Read(format clipboard.Format) []byte
	Write(format clipboard.Format, data []byte)
}

type systemStore struct{}

func (systemStore) Read(format clipboard.Format) []byte { return clipboard.Read(format) }

func (systemStore) Write(format clipboard.Format, data []byte) { clipboard.Write(format, data) }

var (
	// mu is held for the whole read or write so each call owns the
	// clipboard from open to close.
	mu      sync.Mutex
	backend store = systemStore{}
)

func Init() error {
	return clipboard.Init()
}

// Write performs a mutex-guarded clipboard write to prevent corruption under parallel writes.
func Write(text string) error {
	mu.Lock()
	defer mu.Unlock()
	backend.Write(clipboard.FmtText, []byte(text))
	return nil
}

// ReadImage decodes the image currently on the clipboard.
func ReadImage() (image.Image, error) {
	mu.Lock()
	defer mu.Unlock()

	data := backend.Read(clipboard.FmtImage)
	if len(data) == 0 {
		return nil, ErrNoImage
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoImage, err)
	}
	log.Printf("Clipboard: read %dx%d image", img.Bounds().Dx(), img.Bounds().Dy())
	return img, nil
}

// WriteImage encodes img to PNG before handing it to the clipboard; the
// raw raster is never written directly.
func WriteImage(img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode clipboard image: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	backend.Write(clipboard.FmtImage, buf.Bytes())
	log.Printf("Clipboard: wrote %dx%d image (%d bytes)", img.Bounds().Dx(), img.Bounds().Dy(), buf.Len())
	return nil
}
