package embedding

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestFrameFromImage(t *testing.T) {
	img := solidImage(10, 6, color.RGBA{R: 255, G: 0, B: 255, A: 255})
	f, err := FrameFromImage("red", img, 4)
	if err != nil {
		t.Fatal(err)
	}
	if f.Width != 4 || f.Height != 4 || f.Channels != 3 {
		t.Fatalf("unexpected shape %dx%dx%d", f.Width, f.Height, f.Channels)
	}
	if len(f.Pixels) != 3*16 {
		t.Fatalf("pixels=%d, want 48", len(f.Pixels))
	}
	if f.Pixels[0] != 1 || f.Pixels[16] != 0 || f.Pixels[32] != 1 {
		t.Errorf("CHW planes wrong: r=%v g=%v b=%v", f.Pixels[0], f.Pixels[16], f.Pixels[32])
	}
}

func TestFrameFromImage_Invalid(t *testing.T) {
	if _, err := FrameFromImage("x", solidImage(2, 2, color.Black), 0); err == nil {
		t.Error("expected error for zero size")
	}
	if _, err := FrameFromImage("x", image.NewRGBA(image.Rect(0, 0, 0, 0)), 4); err == nil {
		t.Error("expected error for empty image")
	}
}

func TestLoadImageFrame(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blue.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, solidImage(3, 3, color.RGBA{B: 255, A: 255})); err != nil {
		t.Fatal(err)
	}
	f.Close()

	frame, err := LoadImageFrame(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	if frame.ID != "blue.png" {
		t.Errorf("ID=%q", frame.ID)
	}
	if frame.Pixels[8] != 1 {
		t.Errorf("blue plane should be 1, got %v", frame.Pixels[8])
	}
	if _, err := LoadImageFrame(filepath.Join(dir, "missing.png"), 2); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMockEmbedder(t *testing.T) {
	e := NewMockEmbedder(16)
	defer e.Close()
	ctx := context.Background()
	a := Frame{ID: "a", Width: 1, Height: 1, Channels: 3, Pixels: []float32{0.1, 0.2, 0.3}}
	b := Frame{ID: "b", Width: 1, Height: 1, Channels: 3, Pixels: []float32{0.3, 0.2, 0.1}}

	ea1, err := e.Embed(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	ea2, _ := e.Embed(ctx, a)
	eb, _ := e.Embed(ctx, b)
	if len(ea1) != 16 || e.Dimensions() != 16 {
		t.Fatalf("dimension=%d", len(ea1))
	}
	var norm float64
	same, diff := true, false
	for i := range ea1 {
		norm += float64(ea1[i]) * float64(ea1[i])
		if ea1[i] != ea2[i] {
			same = false
		}
		if ea1[i] != eb[i] {
			diff = true
		}
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("embedding should be unit length, norm^2=%v", norm)
	}
	if !same {
		t.Error("same frame should give same embedding")
	}
	if !diff {
		t.Error("different frames should give different embeddings")
	}

	if _, err := e.Embed(ctx, Frame{ID: "empty"}); !errors.Is(err, ErrNoEmbedding) {
		t.Errorf("expected ErrNoEmbedding, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := e.Embed(cancelled, a); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMockEmbedder_DefaultDimensions(t *testing.T) {
	if NewMockEmbedder(0).Dimensions() != 512 {
		t.Error("expected default 512 dimensions")
	}
}
