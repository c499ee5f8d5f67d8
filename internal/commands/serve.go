package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/spf13/cobra"

	"github.com/karstlabs/platform-infra/internal/alert"
	"github.com/karstlabs/platform-infra/internal/config"
	"github.com/karstlabs/platform-infra/internal/drift"
	"github.com/karstlabs/platform-infra/internal/edge"
	"github.com/karstlabs/platform-infra/internal/server"
	"github.com/karstlabs/platform-infra/pkg/types"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var configDir string
	var addr string
	var apiKey string
	var interval time.Duration
	var verbose bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve drift reports over HTTP, re-detecting on an interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configDir, addr, apiKey, interval, verbose)
		},
	}

	cmd.Flags().StringVarP(&configDir, "config", "C", ".", "Directory containing platform.yaml")
	cmd.Flags().StringVar(&addr, "addr", ":3000", "Listen address")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Require X-API-Key on report endpoints")
	cmd.Flags().DurationVar(&interval, "interval", 10*time.Minute, "Time between detection runs")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Stream refresh/preview progress")
	return cmd
}

func runServe(ctx context.Context, configDir, addr, apiKey string, interval time.Duration, verbose bool) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(verbose)
	progress := io.Discard
	if verbose {
		progress = os.Stdout
	}

	detector := drift.New(cfg.Project, cfg.Drift,
		func(env types.Environment) pulumi.RunFunc { return edge.Program() },
		drift.WithLogger(logger),
		drift.WithProgressWriter(progress),
	)
	dispatcher, err := alert.NewDispatcher(cfg.Alerts, logger)
	if err != nil {
		return fmt.Errorf("creating alert dispatcher: %w", err)
	}

	store := server.NewStore()
	srv := server.New(addr, store, apiKey, 1<<20, logger)

	detectCtx, cancelDetect := context.WithCancel(ctx)
	defer cancelDetect()
	go detectLoop(detectCtx, detector, dispatcher, store, cfg.Environments, interval)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	color.Green("Serving drift reports on %s (detection every %s)", addr, interval)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		color.Yellow("\nReceived %s, shutting down...", sig)
		cancelDetect()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		color.Green("Server stopped gracefully")
		return nil
	}
}

// detectLoop runs detection immediately and then on every tick, feeding the
// store and the alert sinks.
func detectLoop(ctx context.Context, detector *drift.Detector, dispatcher *alert.Dispatcher, store *server.Store, envs []types.Environment, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for _, report := range detector.DetectAll(ctx, envs) {
			store.Put(report)
			dispatcher.Dispatch(ctx, report)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
