// Package main is the Soyamu CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/soyamu/soyamu/internal/cli"
	"github.com/soyamu/soyamu/internal/config"
	"github.com/soyamu/soyamu/internal/embedding"
	"github.com/soyamu/soyamu/internal/engine"
	"github.com/soyamu/soyamu/internal/models"
	"github.com/soyamu/soyamu/internal/relations"
	"github.com/soyamu/soyamu/internal/rl"
	"github.com/soyamu/soyamu/internal/server"
	"github.com/soyamu/soyamu/internal/storage"
	"github.com/soyamu/soyamu/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/soyamu/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists it
// is used, so that "soyamu server" from the project dir uses the project's
// config (including debug).
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
	case "add":
		runAdd()
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("soyamu version %s\n", version)
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
	debug := fs.Bool("debug", false, "enable debug logging")
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

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(
		components.Engine,
		components.Relations,
		components.Tuner,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	components.Engine.Flush()
	if err := components.Engine.WriteSnapshot(); err != nil {
		logger.Warn("shutdown snapshot failed", zap.Error(err))
	}
	if err := components.Tuner.Save(); err != nil {
		logger.Warn("qtable save failed", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runAdd() {
	args := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = run against local storage)")
	category := fs.String("category", "", "item category")
	id := fs.String("id", "", "item ID (generated when empty)")
	_ = fs.Parse(args)

	description := buildQueryText(fs.Args())
	if description == "" {
		fmt.Println("Usage: soyamu add [flags] <description>")
		os.Exit(1)
	}

	input := &models.ItemInput{ID: *id, Description: description, Category: *category}

	if *serverURL != "" {
		itemID, err := addViaHTTP(*serverURL, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Add failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Item indexed: %s\n", itemID)
		return
	}

	components := mustInitialize(*configPath)
	defer components.Close()

	item, err := components.Engine.Add(context.Background(), input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Add failed: %v\n", err)
		os.Exit(1)
	}
	components.Engine.Flush()
	if err := components.Engine.WriteSnapshot(); err != nil {
		fmt.Fprintf(os.Stderr, "Snapshot failed: %v\n", err)
	}
	fmt.Printf("Item indexed: %s\n", item.ID)
}

func runSearch() {
	args := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = run against local storage)")
	category := fs.String("category", "", "restrict results to one category")
	limit := fs.Int("limit", 10, "number of results")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(args)

	queryText := buildQueryText(fs.Args())
	if queryText == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	query := &models.SearchQuery{Text: queryText, Category: *category, Limit: *limit}

	var response *models.SearchResponse
	if *serverURL != "" {
		resp, err := searchViaHTTP(*serverURL, query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		response = resp
	} else {
		components := mustInitialize(*configPath)
		defer components.Close()
		resp, err := components.Engine.Search(context.Background(), query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		if *category != "" && components.Relations != nil {
			resp.RelatedCategories = components.Relations.Related(*category)
		}
		response = resp
	}

	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	State          string `json:"state"`
	Items          int    `json:"items"`
	Provider       string `json:"provider"`
	StoreConnected bool   `json:"store_connected"`
	// StoreItems is the durable catalog count, reported only when the status
	// command runs against local storage. A gap from Items means best-effort
	// writes were dropped.
	StoreItems *int `json:"store_items,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = run against local storage)")
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
		components := mustInitialize(*configPath)
		defer components.Close()
		status = statusResponse{
			State:          components.Engine.State().String(),
			Items:          components.Engine.Size(),
			Provider:       components.Engine.ProviderName(),
			StoreConnected: components.Engine.StoreConnected(),
		}
		if components.Store != nil {
			if n, err := components.Store.CountItems(context.Background()); err == nil {
				status.StoreItems = &n
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
		fmt.Printf("state:            %s\n", status.State)
		fmt.Printf("items:            %d\n", status.Items)
		fmt.Printf("provider:         %s\n", status.Provider)
		fmt.Printf("store_connected:  %t\n", status.StoreConnected)
		if status.StoreItems != nil {
			fmt.Printf("store_items:      %d\n", *status.StoreItems)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func addViaHTTP(serverURL string, input *models.ItemInput) (string, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	resp, err := http.Post(serverURL+"/api/v1/items", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out struct {
		ItemID string `json:"item_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.ItemID, nil
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
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

// buildQueryText joins all positional args with spaces so multi-word input
// works the same with or without shell quoting.
func buildQueryText(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after positional
// arguments to the front of the slice so that flag.Parse() sees them. Go's
// flag package stops at the first non-flag argument.
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

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: soyamu search [flags] <lost item description>\n\n")
	fmt.Fprintf(fs.Output(), "The description is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  soyamu search black leather wallet
  soyamu search "black leather wallet"         # same as above
  soyamu search --category wallet black wallet
  soyamu search --output json lost phone
`)
}

// Components holds initialized services.
type Components struct {
	Store     storage.Store
	Embedder  embedding.Embedder
	Engine    *engine.Engine
	Relations *relations.Graph
	Tuner     *rl.Agent
	logger    *zap.Logger
}

func (c *Components) Close() {
	if c.Engine != nil {
		_ = c.Engine.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func mustInitialize(configPath string) *Components {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return components
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	ctx := context.Background()

	// A store that cannot even open locally is treated like an unreachable
	// one: the engine runs standalone from its snapshot.
	var store storage.Store
	if cfg.Store.DatabasePath != "" {
		sqlStore, err := storage.NewSQLiteStore(cfg.Store.DatabasePath)
		if err != nil {
			logger.Warn("store unavailable", zap.Error(err))
		} else {
			store = sqlStore
		}
	}

	embedder, err := embedding.NewFromLadder(ctx, embedding.Ladder(&cfg.Embedding), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}

	snapshots := storage.NewSnapshotStore(cfg.Snapshot.Dir, logger)
	eng, err := engine.New(store, snapshots, embedder, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}
	if err := eng.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load engine: %w", err)
	}

	graph := relations.Load(cfg.Relations.GraphPath, logger)
	tuner := rl.NewAgent(cfg.RL.QTablePath, cfg.RL.SaveEveryN, time.Now().UnixNano())

	return &Components{
		Store:     store,
		Embedder:  embedder,
		Engine:    eng,
		Relations: graph,
		Tuner:     tuner,
		logger:    logger,
	}, nil
}

func printUsage() {
	fmt.Println(`soyamu - Hybrid semantic search for lost and found items

Usage:
  soyamu server [flags]                Start the HTTP server
  soyamu add [flags] <description>     Register a found item
  soyamu search [flags] <description>  Match a lost-item description
  soyamu status [flags]                Show engine status
  soyamu version                       Show version
  soyamu help                          Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/soyamu/config.yaml)
  --debug            Enable debug logging

Add Flags:
  --config string    Config file path (for local mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to run against local storage.
  --category string  Item category
  --id string        Item ID (generated when empty)

Search Flags:
  --config string    Config file path (for local mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to run against local storage.
  --category string  Restrict results to one category
  --limit int        Number of results (default: 10)
  --output string    Output format: text or json (default: text)

Status Flags:
  --config string    Config file path (for local mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for local storage.
  --output string    Output format: text or json (default: text)

Examples:
  soyamu server
  soyamu add --category wallet "black leather wallet found near the library"
  soyamu search black leather wallet
  soyamu search --category wallet --output json lost wallet
  soyamu status`)
}
