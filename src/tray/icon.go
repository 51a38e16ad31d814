package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"runtime"
)

const iconSize = 32

// iconImage draws a white caption plate with red text bars.
func iconImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	plate := image.Rect(2, 6, 30, 26)
	draw.Draw(img, plate, image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: 230}), image.Point{}, draw.Src)
	ink := image.NewUniform(color.NRGBA{R: 220, G: 20, B: 20, A: 255})
	draw.Draw(img, image.Rect(6, 10, 26, 13), ink, image.Point{}, draw.Over)
	draw.Draw(img, image.Rect(6, 16, 20, 19), ink, image.Point{}, draw.Over)
	return img
}

// Icon returns the tray icon in the format systray expects on this
// platform: ICO on Windows, PNG elsewhere.
func Icon() []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, iconImage()); err != nil {
		return nil
	}
	if runtime.GOOS == "windows" {
		return wrapICO(buf.Bytes(), iconSize)
	}
	return buf.Bytes()
}

// wrapICO embeds a PNG in a single-image ICO container.
func wrapICO(pngData []byte, size int) []byte {
	var buf bytes.Buffer
	// ICONDIR
	_ = binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	// ICONDIRENTRY
	buf.WriteByte(byte(size))
	buf.WriteByte(byte(size))
	// palette, reserved
	buf.WriteByte(0)
	buf.WriteByte(0)
	// planes, bpp
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(32))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pngData)))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(6+16))
	buf.Write(pngData)
	return buf.Bytes()
}
