package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperjump/teachable/internal/cli"
	"github.com/hyperjump/teachable/internal/engine"
	"github.com/hyperjump/teachable/internal/head"
	"github.com/hyperjump/teachable/pkg/utils"
)

// embeddingRecord is one JSONL classify input line.
type embeddingRecord struct {
	Embedding []float32 `json:"embedding"`
}

func runClassify() {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	headPath := fs.String("head", "", "head file to install")
	name := fs.String("name", "", "head name in the head store")
	window := fs.Int("window", -1, "smoothing window (default from config; 0 disables)")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if (*headPath == "") == (*name == "") {
		fmt.Println("Usage: teachable classify (--head <head.json> | --name <name>) [flags] [embeddings.jsonl]")
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *window >= 0 {
		cfg.Classifier.SmoothingWindow = window
	}
	logger, err := utils.NewCLILogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()
	eng := components.Engine

	if *name != "" {
		err = eng.InstallNamed(context.Background(), *name)
	} else {
		var h *head.Head
		if h, err = head.LoadFile(*headPath); err == nil {
			err = eng.InstallHead(h)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to install head: %v\n", err)
		os.Exit(1)
	}
	eng.Start()

	in := io.Reader(os.Stdin)
	if fs.NArg() > 0 {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open input: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	if _, err := classifyStream(eng, in, w, format); err != nil {
		_ = w.Flush()
		fmt.Fprintf(os.Stderr, "Classify failed: %v\n", err)
		os.Exit(1)
	}
}

// classifyStream ticks the engine once per JSONL line and writes one record
// per line. Unparseable lines and skipped ticks are reported as skips.
// It returns the number of predictions made.
func classifyStream(eng *engine.Engine, r io.Reader, w io.Writer, format cli.OutputFormat) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line, predicted := 0, 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		rec := cli.PredictionRecord{Line: line}
		var in embeddingRecord
		if err := json.Unmarshal([]byte(text), &in); err != nil {
			rec.Skipped = true
			rec.Reason = "invalid json: " + err.Error()
		} else if p, ok := eng.Tick(in.Embedding); ok {
			rec.Label = p.Label
			rec.ClassIndex = p.Class
			rec.Score = p.Score
			rec.RawClass = p.RawClass
			predicted++
		} else {
			rec.Skipped = true
			if err := eng.LastSkip(); err != nil {
				rec.Reason = err.Error()
			}
		}
		if err := cli.WritePrediction(w, rec, format); err != nil {
			return predicted, err
		}
	}
	return predicted, sc.Err()
}
