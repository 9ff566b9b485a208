// Package main is the specsim CLI entry point.
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

	"github.com/labdriver/specsim/internal/config"
	"github.com/labdriver/specsim/internal/extract"
	"github.com/labdriver/specsim/internal/keyword"
	"github.com/labdriver/specsim/internal/message"
	"github.com/labdriver/specsim/internal/processor"
	"github.com/labdriver/specsim/internal/server"
	"github.com/labdriver/specsim/internal/similarity"
	"github.com/labdriver/specsim/internal/storage"
	"github.com/labdriver/specsim/internal/tfidf"
	"github.com/labdriver/specsim/internal/watcher"
	"github.com/labdriver/specsim/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/specsim/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "specsim server" from the project dir uses the project's config.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
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
	case "process":
		runProcess()
	case "similar":
		runSimilar()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("specsim version %s\n", version)
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
	debug := fs.Bool("debug", false, "enable debug logging (watch events, parse decisions, etc.)")
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

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	proc := components.Processor
	watchOpts := []watcher.Option{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchSvc := watcher.NewWatcher(
		cfg.Watch.Directory,
		cfg.Watch.Extensions,
		cfg.Watch.DebounceDelay(),
		func(path string, change watcher.ChangeType) {
			switch change {
			case watcher.ChangeDeleted:
				if err := proc.ProcessDocumentDeletion(context.Background(), path); err != nil {
					logger.Warn("watch delete failed", zap.String("path", path), zap.Error(err))
				}
			default:
				if _, err := proc.ProcessDocumentUpdate(context.Background(), path); err != nil {
					logger.Warn("watch process failed", zap.String("path", path), zap.Error(err))
				}
			}
		},
		watchOpts...,
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	if cfg.Watch.ProcessExistingOrDefault() {
		watchSvc.SyncExistingFiles()
	}

	srv := server.NewServer(
		components.Repository,
		components.KeywordIndex,
		components.Processor,
		components.Messages,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	watchSvc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runProcess() {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: specsim process [flags] <file>")
		os.Exit(1)
	}
	path, _ := filepath.Abs(fs.Arg(0))

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	result := components.Processor.ProcessDocument(context.Background(), path)
	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	default:
		if result.Success {
			fmt.Printf("Processed: %s (document %s, %s)\n", path, result.DocumentID, result.Duration.Round(time.Millisecond))
			for k, v := range result.Metadata {
				fmt.Printf("  %s: %v\n", k, v)
			}
		} else {
			fmt.Printf("Processing failed: %s\n", result.Error)
		}
	}
	if !result.Success {
		os.Exit(1)
	}
}

func runSimilar() {
	fs := flag.NewFlagSet("similar", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: specsim similar [flags] <document-id-or-filename>")
		os.Exit(1)
	}
	ref := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	repo := components.Repository
	doc, err := repo.GetDocument(ctx, ref)
	if err != nil {
		// Allow lookup by file name as a convenience.
		doc, err = repo.GetDocumentByFileName(ctx, ref)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Document not found: %s\n", ref)
		os.Exit(1)
	}

	results, err := repo.ListSimilarityResults(ctx, doc.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Listing similarity results failed: %v\n", err)
		os.Exit(1)
	}

	if *outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if len(results) == 0 {
		fmt.Printf("No similarity results for %s\n", doc.FileName)
		return
	}
	fmt.Printf("Similar documents for %s:\n", doc.FileName)
	for _, res := range results {
		other := res.TargetDocumentID
		if other == doc.ID {
			other = res.SourceDocumentID
		}
		name := other
		if target, tErr := repo.GetDocument(ctx, other); tErr == nil {
			name = target.FileName
		}
		fmt.Printf("  %.3f  %s  (keyword %.3f, structural %.3f, semantic %.3f)\n",
			res.OverallScore, name, res.KeywordScore, res.StructuralScore, res.SemanticScore)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: specsim delete [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	if err := components.Repository.DeleteDocument(ctx, docID); err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	if components.KeywordIndex != nil {
		_ = components.KeywordIndex.Delete(ctx, docID)
	}
	fmt.Printf("Document deleted: %s\n", docID)
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Documents map[string]int64 `json:"documents"`
	Indexed   uint64           `json:"indexed,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		counts, err := components.Repository.CountByStatus(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count documents failed: %v\n", err)
			os.Exit(1)
		}
		status.Documents = make(map[string]int64, len(counts))
		for st, n := range counts {
			status.Documents[string(st)] = n
		}
		if components.KeywordIndex != nil {
			if indexed, cErr := components.KeywordIndex.Count(); cErr == nil {
				status.Indexed = indexed
			}
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		var total int64
		for _, n := range status.Documents {
			total += n
		}
		fmt.Printf("documents:  %d\n", total)
		for _, st := range []string{"Uploaded", "Processing", "Processed", "Failed"} {
			if n, ok := status.Documents[st]; ok {
				fmt.Printf("  %-11s %d\n", st+":", n)
			}
		}
		fmt.Printf("indexed:    %d\n", status.Indexed)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// Components holds initialized services.
type Components struct {
	Repository   storage.Repository
	KeywordIndex keyword.Index
	Engine       *similarity.Engine
	Processor    *processor.Processor
	Messages     *message.Service
}

func (c *Components) Close() {
	if c.Repository != nil {
		_ = c.Repository.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	repo, err := storage.NewSQLiteRepository(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	vectorizer := tfidf.NewVectorizer()
	engine := similarity.NewEngine(vectorizer)

	procOpts := []processor.Option{processor.WithKeywordIndex(keywordIndex)}
	if debug && logger != nil {
		procOpts = append(procOpts, processor.WithLogger(logger))
	}
	proc := processor.NewProcessor(repo, extract.NewExtractor(), engine, procOpts...)

	return &Components{
		Repository:   repo,
		KeywordIndex: keywordIndex,
		Engine:       engine,
		Processor:    proc,
		Messages:     message.NewService(),
	}, nil
}

func printUsage() {
	fmt.Println(`specsim - protocol specification ingestion and similarity analysis

Usage:
  specsim server [flags]            Start the watcher and HTTP server
  specsim process [flags] <file>    Process a single document
  specsim similar [flags] <id>      Show similarity results for a document
  specsim delete [flags] <id>       Delete a document
  specsim status [flags]            Show document and index counts
  specsim version                   Show version
  specsim help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/specsim/config.yaml)
  --debug            Enable debug logging (watch events, parse decisions, etc.)

Process Flags:
  --config string    Config file path
  --output string    Output format: text or json (default: text)

Similar Flags:
  --config string    Config file path
  --output string    Output format: text or json (default: text)

Status Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --output string    Output format: text or json (default: text)

Examples:
  specsim server
  specsim process specs/poct1a-glucose-meter.pdf
  specsim similar poct1a-glucose-meter.pdf
  specsim status --output json
  specsim delete 0b1f2c3d-...`)
}
