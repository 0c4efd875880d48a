package embedding

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
)

// FrameFromImage resizes img to size x size (nearest neighbour) and converts
// it to an RGB CHW frame with values in [0, 1].
func FrameFromImage(id string, img image.Image, size int) (Frame, error) {
	if size <= 0 {
		return Frame{}, fmt.Errorf("frame size must be positive, got %d", size)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return Frame{}, fmt.Errorf("image %s is empty", id)
	}
	plane := size * size
	pixels := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		sy := b.Min.Y + y*b.Dy()/size
		for x := 0; x < size; x++ {
			sx := b.Min.X + x*b.Dx()/size
			r, g, bl, _ := img.At(sx, sy).RGBA()
			i := y*size + x
			pixels[i] = float32(r) / 0xffff
			pixels[plane+i] = float32(g) / 0xffff
			pixels[2*plane+i] = float32(bl) / 0xffff
		}
	}
	return Frame{ID: id, Width: size, Height: size, Channels: 3, Pixels: pixels}, nil
}

// LoadImageFrame decodes a PNG or JPEG file into a frame of size x size.
// The frame ID is the file's base name.
func LoadImageFrame(path string, size int) (Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return Frame{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return Frame{}, fmt.Errorf("decode image %s: %w", path, err)
	}
	return FrameFromImage(filepath.Base(path), img, size)
}
