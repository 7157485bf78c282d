// Package textures produces CPU-side RGBA pixel buffers for texture
// registration: decoded image files and simple procedural patterns.
package textures

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"sprite-engine/core"
)

// Pixmap is a tightly packed RGBA8 pixel buffer, rows top to bottom.
type Pixmap struct {
	Width  uint32
	Height uint32
	Pixels []byte
}

// LoadFile decodes a PNG or JPEG file into a Pixmap.
func LoadFile(path string) (*Pixmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	pm := &Pixmap{
		Width:  uint32(width),
		Height: uint32(height),
		Pixels: make([]byte, width*height*4),
	}
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			pm.Pixels[i+0] = byte(r >> 8)
			pm.Pixels[i+1] = byte(g >> 8)
			pm.Pixels[i+2] = byte(b >> 8)
			pm.Pixels[i+3] = byte(a >> 8)
			i += 4
		}
	}
	return pm, nil
}

// Solid fills a Pixmap with one color.
func Solid(width, height uint32, color core.Color) *Pixmap {
	pm := &Pixmap{
		Width:  width,
		Height: height,
		Pixels: make([]byte, width*height*4),
	}
	r, g, b, a := colorBytes(color)
	for i := 0; i < len(pm.Pixels); i += 4 {
		pm.Pixels[i+0] = r
		pm.Pixels[i+1] = g
		pm.Pixels[i+2] = b
		pm.Pixels[i+3] = a
	}
	return pm
}

// Checkerboard alternates two colors in square cells of cellSize pixels.
func Checkerboard(width, height, cellSize uint32, a, b core.Color) *Pixmap {
	if cellSize == 0 {
		cellSize = 1
	}
	pm := &Pixmap{
		Width:  width,
		Height: height,
		Pixels: make([]byte, width*height*4),
	}
	ar, ag, ab, aa := colorBytes(a)
	br, bg, bb, ba := colorBytes(b)
	i := 0
	for y := uint32(0); y < height; y++ {
		for x := uint32(0); x < width; x++ {
			if (x/cellSize+y/cellSize)%2 == 0 {
				pm.Pixels[i+0], pm.Pixels[i+1], pm.Pixels[i+2], pm.Pixels[i+3] = ar, ag, ab, aa
			} else {
				pm.Pixels[i+0], pm.Pixels[i+1], pm.Pixels[i+2], pm.Pixels[i+3] = br, bg, bb, ba
			}
			i += 4
		}
	}
	return pm
}

func colorBytes(c core.Color) (r, g, b, a byte) {
	return floatByte(c.R), floatByte(c.G), floatByte(c.B), floatByte(c.A)
}

func floatByte(v float32) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v*255 + 0.5)
}
