// Package main is the teachable CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/teachable/internal/cli"
	"github.com/hyperjump/teachable/internal/config"
	"github.com/hyperjump/teachable/internal/embedding"
	"github.com/hyperjump/teachable/internal/engine"
	"github.com/hyperjump/teachable/internal/head"
	"github.com/hyperjump/teachable/internal/headstore"
	"github.com/hyperjump/teachable/internal/models"
	"github.com/hyperjump/teachable/internal/server"
	"github.com/hyperjump/teachable/internal/storage"
	"github.com/hyperjump/teachable/internal/watcher"
	"github.com/hyperjump/teachable/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/teachable/config.yaml"

// loadConfig loads config from path. When path is the default and it does not
// exist, config.yaml in the current directory is tried, then built-in defaults.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if _, err := os.Stat(path); err != nil {
			if cwd, cwdErr := os.Getwd(); cwdErr == nil {
				fallback := filepath.Join(cwd, "config.yaml")
				if _, statErr := os.Stat(fallback); statErr == nil {
					cfg, loadErr := config.Load(fallback)
					if loadErr != nil {
						return nil, "", loadErr
					}
					return cfg, fallback, nil
				}
			}
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "train":
		runTrain()
	case "classify":
		runClassify()
	case "inspect":
		runInspect()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("teachable version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (head reloads, skipped ticks, etc.)")
	session := fs.String("session", "", "restore this stored session instead of starting a new one")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()
	eng := components.Engine

	ctx := context.Background()
	if *session != "" {
		if err := eng.Restore(ctx, *session); err != nil {
			logger.Fatal("Failed to restore session", zap.String("session_id", *session), zap.Error(err))
		}
	} else if _, err := eng.NewSession(ctx, "server"); err != nil {
		logger.Fatal("Failed to start session", zap.Error(err))
	}

	if name := cfg.Classifier.ActiveHead; name != "" {
		if err := eng.InstallNamed(ctx, name); err != nil {
			logger.Warn("active head not installed", zap.String("name", name), zap.Error(err))
		} else {
			eng.Start()
		}
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.EnabledOrDefault() && cfg.Storage.HeadStore == "file" {
		reloader := server.NewHeadReloader(eng, cfg.Classifier.ActiveHead, logger)
		watchOpts := []watcher.WatcherOption{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc := watcher.NewWatcher(cfg.Storage.HeadsDir, []string{".json"}, reloader.OnChange, reloader.OnRemove, watchOpts...)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(eng, &cfg.Server, logger, server.WithDiskUsage(cfg.Storage.DatabasePath, cfg.Storage.HeadsDir))
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if cs, ok := components.Embedder.(interface{ CacheStats() (uint64, uint64) }); ok {
		hits, misses := cs.CacheStats()
		logger.Info("embedding cache", zap.Uint64("hits", hits), zap.Uint64("misses", misses))
	}
	watchCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

func runInspect() {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for --name lookups)")
	name := fs.String("name", "", "inspect a head from the configured head store instead of a file")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var (
		h     *head.Head
		label string
	)
	switch {
	case *name != "":
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		heads, err := newHeadStore(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open head store: %v\n", err)
			os.Exit(1)
		}
		h, err = heads.Load(context.Background(), *name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid head: %v\n", err)
			os.Exit(1)
		}
		label = *name
	case fs.NArg() == 1:
		h, err = head.LoadFile(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid head: %v\n", err)
			os.Exit(1)
		}
		label = fs.Arg(0)
	default:
		fmt.Println("Usage: teachable inspect [flags] <head.json>")
		os.Exit(1)
	}

	if err := cli.WriteHeadSummary(os.Stdout, cli.SummarizeHead(label, h), format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8090", "server URL")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	st, err := statusViaHTTP(*serverURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*models.Status, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s models.Status
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// argsReorder moves any flags (and their values) that appear after the
// positional arguments to the front so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// Components holds initialized services.
type Components struct {
	Storage  storage.Storage
	Embedder embedding.Embedder
	Heads    headstore.Store
	Engine   *engine.Engine
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

// initializeComponents wires the engine. The sample store is opened only when
// persist is set; one-shot commands train in memory.
func initializeComponents(cfg *config.Config, logger *zap.Logger, persist bool) (*Components, error) {
	c := &Components{}
	opts := []engine.Option{engine.WithLogger(logger)}

	if persist {
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		c.Storage = store
		opts = append(opts, engine.WithStorage(store))
	}

	c.Embedder = newEmbedder(cfg, logger)
	opts = append(opts, engine.WithEmbedder(c.Embedder))

	heads, err := newHeadStore(cfg)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize head store: %w", err)
	}
	c.Heads = heads
	opts = append(opts, engine.WithHeadStore(heads))

	eng, err := engine.NewEngine(&cfg.Classifier, opts...)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Engine = eng
	return c, nil
}

// newEmbedder returns the ONNX embedder, or the mock embedder when the model
// cannot be loaded (no model file, or built without cgo).
func newEmbedder(cfg *config.Config, logger *zap.Logger) embedding.Embedder {
	onnxEmbedder, err := embedding.NewONNXEmbedder(embedding.ONNXOptions{
		ModelPath:  cfg.Embedding.ModelPath,
		InputName:  cfg.Embedding.InputName,
		OutputName: cfg.Embedding.OutputName,
		InputSize:  cfg.Embedding.InputSize,
		Dimensions: cfg.Embedding.Dimensions,
		CacheSize:  cfg.Embedding.CacheSize,
	})
	if err != nil {
		log := logger.Warn
		if _, statErr := os.Stat(cfg.Embedding.ModelPath); statErr != nil {
			log = logger.Info
		}
		log("onnx embedder unavailable, using mock embedder",
			zap.String("model_path", cfg.Embedding.ModelPath), zap.Error(err))
		return embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}
	return onnxEmbedder
}

func newHeadStore(cfg *config.Config) (headstore.Store, error) {
	if cfg.Storage.HeadStore != "s3" {
		return headstore.NewFileStore(cfg.Storage.HeadsDir), nil
	}
	s3 := cfg.Storage.S3
	client, err := headstore.NewMinioClient(headstore.MinioOptions{
		Endpoint:  s3.Endpoint,
		AccessKey: s3.AccessKey,
		SecretKey: s3.SecretKey,
		UseSSL:    s3.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return headstore.NewMinioStore(client, s3.Bucket, s3.Prefix), nil
}

func printUsage() {
	fmt.Println(`teachable - Online few-shot image classifier

Usage:
  teachable server [flags]              Start the HTTP server
  teachable train [flags] <input>       Train a head from JSONL samples or an image directory
  teachable classify [flags] [file]     Classify JSONL embeddings (stdin when no file)
  teachable inspect [flags] <head.json> Validate a head and print its summary
  teachable status [flags]              Show server status
  teachable version                     Show version
  teachable help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/teachable/config.yaml)
  --debug            Enable debug logging
  --session string   Restore a stored session

Train Flags:
  --config string    Config file path
  --type string      Head type: centroid or linear (default from config)
  --out string       Output head file (default: stdout)
  --save-as string   Also save the head to the head store under this name
  --workers int      Concurrent image embeddings (default: 4)

Classify Flags:
  --config string    Config file path
  --head string      Head file to install (required unless --name is given)
  --name string      Head name in the head store
  --window int       Smoothing window (default from config; 0 disables)
  --output string    Output format: text, compact, or json (default: text)

Inspect Flags:
  --name string      Inspect a head from the head store
  --output string    Output format: text, compact, or json

Status Flags:
  --server string    Server URL (default: http://localhost:8090)
  --output string    Output format: text, compact, or json

Examples:
  teachable server
  teachable train --out pets.json samples.jsonl
  teachable train --type linear --save-as pets ./photos
  teachable classify --head pets.json embeddings.jsonl
  teachable inspect pets.json
  teachable status --output json`)
}
