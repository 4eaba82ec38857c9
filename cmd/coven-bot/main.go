// ABOUTME: Entry point for coven-bot, a Messenger chat bot server
// ABOUTME: Subcommands to serve the webhook, manage the messenger profile and check health

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/coven-bot/internal/bot"
	"github.com/2389/coven-bot/internal/config"
	"github.com/2389/coven-bot/internal/graph"
	"github.com/2389/coven-bot/internal/server"
	"github.com/2389/coven-bot/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                                        _           _
  ___ _____   _____ _ __               | |__   ___ | |_
 / __/ _ \ \ / / _ \ '_ \    _____     | '_ \ / _ \| __|
| (_| (_) \ V /  __/ | | |  |_____|    | |_) | (_) | |_
 \___\___/ \_/ \___|_| |_|             |_.__/ \___/ \__|
`

// pruneInterval is how often ledger rows older than the retention are removed.
const pruneInterval = time.Hour

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: coven-bot <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                  Start the webhook server")
		fmt.Println("  profile apply|clear    Configure the messenger profile")
		fmt.Println("  health                 Check server health")
		fmt.Println("  version                Print the version")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "profile":
		err = runProfile(ctx, os.Args[2:])
	case "health":
		err = runHealth(ctx)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (string, *config.Config, error) {
	configPath := config.DefaultPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return configPath, nil, fmt.Errorf("loading config: %w", err)
	}
	return configPath, cfg, nil
}

func newGraphClient(cfg *config.Config, logger *slog.Logger) (*graph.Client, error) {
	client, err := graph.New(graph.Config{
		PageToken:  cfg.Messenger.PageToken,
		AppSecret:  cfg.Messenger.AppSecret,
		BaseURL:    cfg.Messenger.GraphURL,
		APIVersion: cfg.Messenger.APIVersion,
		RateLimit:  cfg.Messenger.RateLimit,
		Burst:      cfg.Messenger.Burst,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating graph client: %w", err)
	}
	return client, nil
}

func runServe(ctx context.Context) error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	configPath, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Print(" [funnel]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	} else {
		green.Print("    ▶ ")
		fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	}
	green.Print("    ▶ ")
	fmt.Printf("Webhook:   %s\n", cfg.Webhook.Path)
	if cfg.Database.Path != "" {
		green.Print("    ▶ ")
		fmt.Printf("Ledger:    %s\n", cfg.Database.Path)
	}
	fmt.Println()

	logger.Info("starting coven-bot",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"webhook_path", cfg.Webhook.Path,
	)

	client, err := newGraphClient(cfg, logger)
	if err != nil {
		return err
	}

	opts := []bot.Option{
		bot.WithLogger(logger),
		bot.WithBroadcastEchoes(cfg.Messenger.BroadcastEchoes),
	}

	if cfg.Database.Path != "" {
		ledger, err := store.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("opening ledger: %w", err)
		}
		defer ledger.Close()
		opts = append(opts, bot.WithLedger(ledger))

		if cfg.Database.Retention > 0 {
			go pruneLedger(ctx, ledger, cfg.Database.Retention, logger)
		}
	}

	b := bot.New(client, opts...)
	b.Module(newGreeter(logger))

	if cfg.Messenger.GreetingText != "" {
		if err := b.SetGreetingText(ctx, cfg.Messenger.GreetingText); err != nil {
			logger.Warn("setting greeting text", "error", err)
		}
	}

	srv, err := server.New(cfg, b, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	return srv.Run(ctx)
}

// pruneLedger removes rows older than retention until ctx is done.
func pruneLedger(ctx context.Context, ledger store.Store, retention time.Duration, logger *slog.Logger) {
	logger = logger.With("component", "ledger")
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		n, err := ledger.PruneEvents(ctx, time.Now().Add(-retention))
		switch {
		case err != nil && !errors.Is(err, context.Canceled):
			logger.Error("pruning ledger", "error", err)
		case n > 0:
			logger.Info("pruned ledger", "removed", n, "retention", retention)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func runProfile(ctx context.Context, args []string) error {
	if len(args) != 1 || (args[0] != "apply" && args[0] != "clear") {
		return errors.New("usage: coven-bot profile apply|clear")
	}

	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	client, err := newGraphClient(cfg, logger)
	if err != nil {
		return err
	}
	b := bot.New(client, bot.WithLogger(logger))
	green := color.New(color.FgGreen)

	if args[0] == "clear" {
		if err := b.DeleteGetStartedButton(ctx); err != nil {
			return err
		}
		if err := b.DeletePersistentMenu(ctx); err != nil {
			return err
		}
		green.Println("  ✓ Removed get started button and persistent menu")
		return nil
	}

	if cfg.Messenger.GreetingText != "" {
		if err := b.SetGreetingText(ctx, cfg.Messenger.GreetingText); err != nil {
			return err
		}
		green.Println("  ✓ Set greeting text")
	}
	if err := b.SetGetStartedButton(ctx, nil); err != nil {
		return err
	}
	green.Println("  ✓ Set get started button")
	if err := b.SetPersistentMenu(ctx, menuButtons(), false); err != nil {
		return err
	}
	green.Println("  ✓ Set persistent menu")
	return nil
}

func runHealth(ctx context.Context) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Server.HTTPAddr == "" {
		return errors.New("server.http_addr is not set (health is only reachable over tailscale)")
	}

	url := fmt.Sprintf("http://%s/healthz", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}
