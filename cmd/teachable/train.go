package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/teachable/internal/embedding"
	"github.com/hyperjump/teachable/internal/engine"
	"github.com/hyperjump/teachable/internal/head"
	"github.com/hyperjump/teachable/pkg/utils"
)

const maxLineBytes = 64 << 20

// labeledSample is one JSONL training record.
type labeledSample struct {
	Class     string    `json:"class"`
	Embedding []float32 `json:"embedding"`
}

func runTrain() {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	kind := fs.String("type", "", "head type: centroid or linear (default from config)")
	out := fs.String("out", "", "output head file (default: stdout)")
	saveAs := fs.String("save-as", "", "also save the head to the head store under this name")
	workers := fs.Int("workers", 4, "concurrent image embeddings")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() != 1 {
		fmt.Println("Usage: teachable train [flags] <samples.jsonl|image-dir>")
		os.Exit(1)
	}
	input := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewCLILogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var headKind head.Kind
	if *kind != "" {
		if headKind, err = head.ParseKind(*kind); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	components, err := initializeComponents(cfg, logger, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()
	eng := components.Engine

	ctx := context.Background()
	info, err := os.Stat(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to stat input: %v\n", err)
		os.Exit(1)
	}
	var n int
	if info.IsDir() {
		n, err = trainImageDir(ctx, eng, components.Embedder, input, cfg.Embedding.InputSize, *workers)
	} else {
		n, err = trainJSONLFile(ctx, eng, input)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Training failed: %v\n", err)
		os.Exit(1)
	}

	h := eng.Finalize(headKind)
	data, err := head.Marshal(h)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Head not usable: %v\n", err)
		os.Exit(1)
	}
	if *saveAs != "" {
		if err := eng.SaveHead(ctx, *saveAs, h); err != nil {
			fmt.Fprintf(os.Stderr, "Save failed: %v\n", err)
			os.Exit(1)
		}
	}
	if *out != "" {
		if err := head.SaveFile(*out, h); err != nil {
			fmt.Fprintf(os.Stderr, "Write failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Trained %s head: %d classes, %d samples, %d dims -> %s\n",
			h.Kind, len(h.Classes), n, h.Dimensions(), *out)
		return
	}
	if *saveAs == "" {
		fmt.Println(string(data))
	}
}

func trainJSONLFile(ctx context.Context, eng *engine.Engine, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	samples, err := readSamples(f)
	if err != nil {
		return 0, err
	}
	return trainSamples(ctx, eng, samples)
}

// readSamples parses JSONL training records. Blank lines are ignored.
func readSamples(r io.Reader) ([]labeledSample, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var samples []labeledSample
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var s labeledSample
		if err := json.Unmarshal([]byte(text), &s); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if s.Class == "" {
			return nil, fmt.Errorf("line %d: missing class", line)
		}
		samples = append(samples, s)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// trainSamples adds classes in first-seen order and teaches every sample.
func trainSamples(ctx context.Context, eng *engine.Engine, samples []labeledSample) (int, error) {
	classes := make(map[string]int)
	for i, s := range samples {
		idx, ok := classes[s.Class]
		if !ok {
			var err error
			idx, err = eng.AddClass(ctx, s.Class)
			if err != nil {
				return i, err
			}
			classes[s.Class] = idx
		}
		if err := eng.AddSample(ctx, idx, s.Embedding); err != nil {
			return i, fmt.Errorf("sample %d (%s): %w", i+1, s.Class, err)
		}
	}
	return len(samples), nil
}

// imageClass is one class directory of an image training set.
type imageClass struct {
	Label string
	Paths []string
}

var imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// listImageDir returns the class subdirectories of root and their images,
// both sorted by name.
func listImageDir(root string) ([]imageClass, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var classes []imageClass
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(root, e.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		c := imageClass{Label: e.Name()}
		for _, f := range files {
			if !f.IsDir() && imageExtensions[strings.ToLower(filepath.Ext(f.Name()))] {
				c.Paths = append(c.Paths, filepath.Join(dir, f.Name()))
			}
		}
		sort.Strings(c.Paths)
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Label < classes[j].Label })
	return classes, nil
}

// embedImages embeds paths with at most workers concurrent calls. Results are
// in input order.
func embedImages(ctx context.Context, emb embedding.Embedder, paths []string, size, workers int) ([][]float32, error) {
	if workers < 1 {
		workers = 1
	}
	out := make([][]float32, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range paths {
		g.Go(func() error {
			frame, err := embedding.LoadImageFrame(p, size)
			if err != nil {
				return err
			}
			v, err := emb.Embed(gctx, frame)
			if err != nil {
				return fmt.Errorf("embed %s: %w", p, err)
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// trainImageDir embeds every image under root concurrently and teaches the
// results in directory order, so the head does not depend on scheduling.
func trainImageDir(ctx context.Context, eng *engine.Engine, emb embedding.Embedder, root string, size, workers int) (int, error) {
	classes, err := listImageDir(root)
	if err != nil {
		return 0, err
	}
	if len(classes) == 0 {
		return 0, fmt.Errorf("%s has no class directories", root)
	}
	n := 0
	for _, c := range classes {
		idx, err := eng.AddClass(ctx, c.Label)
		if err != nil {
			return n, err
		}
		vectors, err := embedImages(ctx, emb, c.Paths, size, workers)
		if err != nil {
			return n, err
		}
		for _, v := range vectors {
			if err := eng.AddSample(ctx, idx, v); err != nil {
				return n, fmt.Errorf("class %s: %w", c.Label, err)
			}
			n++
		}
	}
	return n, nil
}
