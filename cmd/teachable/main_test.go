package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/teachable/internal/cli"
	"github.com/hyperjump/teachable/internal/config"
	"github.com/hyperjump/teachable/internal/embedding"
	"github.com/hyperjump/teachable/internal/engine"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after input are moved first",
			args:     []string{"samples.jsonl", "-out", "head.json"},
			expected: []string{"-out", "head.json", "samples.jsonl"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-out", "head.json", "samples.jsonl"},
			expected: []string{"-out", "head.json", "samples.jsonl"},
		},
		{
			name:     "input only returns unchanged",
			args:     []string{"samples.jsonl"},
			expected: []string{"samples.jsonl"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func newTestEngine(t *testing.T, window int) *engine.Engine {
	t.Helper()
	eng, err := engine.NewEngine(&config.ClassifierConfig{SmoothingWindow: &window})
	if err != nil {
		t.Fatal(err)
	}
	return eng
}

func TestReadSamples(t *testing.T) {
	input := `{"class":"A","embedding":[1,0,0]}

{"class":"B","embedding":[0,1,0]}
`
	samples, err := readSamples(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 2 || samples[1].Class != "B" {
		t.Errorf("samples: got %+v", samples)
	}

	if _, err := readSamples(strings.NewReader(`{"embedding":[1]}`)); err == nil {
		t.Error("expected error for missing class")
	}
	if _, err := readSamples(strings.NewReader("{\n")); err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Errorf("expected line number in error, got %v", err)
	}
}

func TestTrainAndClassify(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, 0)
	samples := []labeledSample{
		{Class: "A", Embedding: []float32{1, 0, 0}},
		{Class: "B", Embedding: []float32{0, 1, 0}},
		{Class: "A", Embedding: []float32{0.9, 0.1, 0}},
	}
	n, err := trainSamples(ctx, eng, samples)
	if err != nil || n != 3 {
		t.Fatalf("trainSamples: %d, %v", n, err)
	}
	classes := eng.Classes()
	if len(classes) != 2 || classes[0].Label != "A" || classes[0].Samples != 2 {
		t.Fatalf("classes: %+v", classes)
	}
	if err := eng.InstallHead(eng.Finalize("")); err != nil {
		t.Fatal(err)
	}
	eng.Start()

	input := `{"embedding":[0,1,0]}
not json
{"embedding":[1,0]}
{"embedding":[1,0,0]}
`
	var out bytes.Buffer
	predicted, err := classifyStream(eng, strings.NewReader(input), &out, cli.OutputCompact)
	if err != nil {
		t.Fatal(err)
	}
	if predicted != 2 {
		t.Errorf("predicted: got %d, want 2", predicted)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines: %q", lines)
	}
	if !strings.HasPrefix(lines[0], "1\tB\t") || lines[1] != "2\t-" || lines[2] != "3\t-" || !strings.HasPrefix(lines[3], "4\tA\t") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestTrainSamples_DimensionChangeResets(t *testing.T) {
	eng := newTestEngine(t, 0)
	samples := []labeledSample{
		{Class: "A", Embedding: []float32{1, 0, 0}},
		{Class: "B", Embedding: []float32{0, 1}},
	}
	if _, err := trainSamples(context.Background(), eng, samples); err != nil {
		t.Fatal(err)
	}
	h := eng.Finalize("")
	if h.Dimensions() != 2 || len(h.Classes) != 2 {
		t.Errorf("head: %d dims, %v", h.Dimensions(), h.Classes)
	}
}

func writePNG(t *testing.T, path string, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestTrainImageDir(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"red", "blue", ".hidden"} {
		if err := os.Mkdir(filepath.Join(root, dir), 0755); err != nil {
			t.Fatal(err)
		}
	}
	writePNG(t, filepath.Join(root, "red", "1.png"), color.RGBA{R: 255, A: 255})
	writePNG(t, filepath.Join(root, "red", "2.png"), color.RGBA{R: 200, A: 255})
	writePNG(t, filepath.Join(root, "blue", "1.png"), color.RGBA{B: 255, A: 255})
	if err := os.WriteFile(filepath.Join(root, "blue", "notes.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	classes, err := listImageDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(classes) != 2 || classes[0].Label != "blue" || len(classes[1].Paths) != 2 {
		t.Fatalf("classes: %+v", classes)
	}

	emb := embedding.NewMockEmbedder(8)
	eng, err := engine.NewEngine(nil, engine.WithEmbedder(emb))
	if err != nil {
		t.Fatal(err)
	}
	n, err := trainImageDir(context.Background(), eng, emb, root, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("trained %d samples, want 3", n)
	}
	h := eng.Finalize("")
	if !h.Usable() || h.Dimensions() != 8 || h.Classes[0] != "blue" {
		t.Errorf("head: %+v", h)
	}

	frame, err := embedding.LoadImageFrame(filepath.Join(root, "blue", "1.png"), 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.InstallHead(h); err != nil {
		t.Fatal(err)
	}
	eng.Start()
	p, ok := eng.TickFrame(context.Background(), frame)
	if !ok || p.Label != "blue" {
		t.Errorf("prediction: %+v, ok=%v", p, ok)
	}
}

func TestEmbedImages_PreservesOrderAndFails(t *testing.T) {
	root := t.TempDir()
	var paths []string
	for i, c := range []color.RGBA{{R: 255, A: 255}, {G: 255, A: 255}, {B: 255, A: 255}} {
		p := filepath.Join(root, string(rune('a'+i))+".png")
		writePNG(t, p, c)
		paths = append(paths, p)
	}
	emb := embedding.NewMockEmbedder(4)
	got, err := embedImages(context.Background(), emb, paths, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range paths {
		frame, _ := embedding.LoadImageFrame(p, 2)
		want, _ := emb.Embed(context.Background(), frame)
		if !reflect.DeepEqual(got[i], want) {
			t.Errorf("embedding %d out of order", i)
		}
	}

	if _, err := embedImages(context.Background(), emb, append(paths, filepath.Join(root, "missing.png")), 2, 2); err == nil {
		t.Error("expected error for missing image")
	}
}

func TestLoadConfig_Explicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9999\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != path || cfg.Server.Port != 9999 {
		t.Errorf("got port %d from %s", cfg.Server.Port, resolved)
	}
	if _, _, err := loadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for explicit missing config")
	}
}

func TestNewHeadStore(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.HeadsDir = t.TempDir()
	if _, err := newHeadStore(cfg); err != nil {
		t.Fatal(err)
	}
	cfg.Storage.HeadStore = "s3"
	cfg.Storage.S3.Endpoint = "localhost:9000"
	cfg.Storage.S3.Bucket = "heads"
	if _, err := newHeadStore(cfg); err != nil {
		t.Fatal(err)
	}
}
