package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/agent-fabric/fabric/fabric"
	"github.com/agent-fabric/fabric/observability"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to fabric config file (JSON or YAML)")
		timeout    = flag.Duration("timeout", 5*time.Second, "Per-call timeout for demo calls")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	cfg := fabric.DefaultConfig()
	if *configFile != "" {
		loaded, err := fabric.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}

	level := cfg.SlogLevel()
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	f := fabric.New(ctx, cfg,
		fabric.WithLogger(logger),
		fabric.WithObserver(observability.NewMultiObserver(
			observability.NewSlogObserver(logger),
			observability.NewTracingObserver(),
		)),
	)
	defer f.Shutdown(5 * time.Second)

	srv, err := f.NewServer("toolbox")
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	registerBuiltinTools(srv)

	if err := runDemo(ctx, f, *timeout); err != nil {
		log.Fatalf("Demo failed: %v", err)
	}
}

// runDemo exercises discovery, direct calls, a capability call, and a
// validation failure, then prints the fabric's stats.
func runDemo(ctx context.Context, f *fabric.Fabric, timeout time.Duration) error {
	c := f.NewClient("demo-client")

	discovered, err := c.DiscoverTools(ctx, "", "")
	if err != nil {
		return fmt.Errorf("discovery: %w", err)
	}
	fmt.Printf("Discovered %d tools:\n", len(discovered))
	for _, tool := range discovered {
		fmt.Printf("  %-12s %s (agent: %s)\n", tool.Name, tool.Description, tool.AgentName)
	}

	result, err := c.CallToolWithTimeout(ctx, "echo", map[string]any{"text": "hello, fabric"}, timeout)
	if err != nil {
		return fmt.Errorf("echo call: %w", err)
	}
	fmt.Printf("\necho -> %v\n", result.Result)

	result, err = c.CallToolWithTimeout(ctx, "word_count", map[string]any{"text": "the quick brown fox"}, timeout)
	if err != nil {
		return fmt.Errorf("word_count call: %w", err)
	}
	fmt.Printf("word_count -> %v\n", result.Result)

	result, err = c.CallToolByCapability(ctx, "current date", nil)
	if err != nil {
		return fmt.Errorf("capability call: %w", err)
	}
	fmt.Printf("capability \"current date\" -> %v\n", result.Result)

	// Missing required parameter: rejected before the handler runs.
	result, err = c.CallToolWithTimeout(ctx, "echo", nil, timeout)
	if err != nil {
		return fmt.Errorf("invalid echo call: %w", err)
	}
	fmt.Printf("echo without text -> success=%v error=%q\n", result.Success, result.Error)

	stats, err := json.MarshalIndent(f.Stats(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	fmt.Printf("\nFabric stats:\n%s\n", stats)
	return nil
}
