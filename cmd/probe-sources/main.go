// Diagnostic program: runs one query through every source adapter on its
// own, bypassing the fallback chain, and prints what each one returns.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ppiankov/leadmaster/internal/model"
	"github.com/ppiankov/leadmaster/internal/source"
	"github.com/ppiankov/leadmaster/internal/worker"
	"go.uber.org/zap"
)

func main() {
	query := flag.String("q", "distribution center groundbreaking", "search query")
	limit := flag.Int("n", 5, "max results per adapter")
	timeout := flag.Duration("timeout", 30*time.Second, "per-adapter timeout")
	flag.Parse()

	_ = godotenv.Load()
	logger, _ := zap.NewDevelopment()
	zap.ReplaceGlobals(logger)
	defer func() { _ = logger.Sync() }()

	cfg := model.DefaultConfig()
	cfg.Search.NewsAPIKey = os.Getenv("NEWSAPI_KEY")

	chain, _ := source.DefaultChain(cfg, worker.NewLimiter(cfg.Search.RequestsPerSecond, 2))

	fmt.Printf("=== Source probe: %q ===\n\n", *query)

	failed := 0
	for _, a := range chain.Adapters() {
		fmt.Printf("%s (%s)\n", a.Name(), a.Origin())
		fmt.Println(strings.Repeat("-", 60))

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		start := time.Now()
		items, err := a.Fetch(ctx, *query, *limit)
		cancel()

		switch {
		case err != nil:
			failed++
			fmt.Printf("  error after %v: %v\n\n", time.Since(start).Round(time.Millisecond), err)
			continue
		case len(items) == 0:
			fmt.Printf("  no results (%v)\n\n", time.Since(start).Round(time.Millisecond))
			continue
		}

		fmt.Printf("  %d result(s) in %v\n", len(items), time.Since(start).Round(time.Millisecond))
		for _, c := range items {
			fmt.Printf("  %-9s %s\n", c.Date, c.Headline)
			if c.Publisher != "" {
				fmt.Printf("  %-9s via %s\n", "", c.Publisher)
			}
		}
		fmt.Println()
	}

	if cfg.Search.NewsAPIKey == "" {
		fmt.Println("newsapi skipped: NEWSAPI_KEY not set")
	}
	if failed > 0 {
		os.Exit(1)
	}
}
