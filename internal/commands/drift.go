package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/spf13/cobra"

	"github.com/karstlabs/platform-infra/internal/alert"
	"github.com/karstlabs/platform-infra/internal/config"
	"github.com/karstlabs/platform-infra/internal/drift"
	"github.com/karstlabs/platform-infra/internal/edge"
	"github.com/karstlabs/platform-infra/pkg/types"
)

// NewDriftCmd creates the drift command.
func NewDriftCmd() *cobra.Command {
	var configDir string
	var verbose bool
	var failOn string

	cmd := &cobra.Command{
		Use:   "drift [environment...]",
		Short: "Detect drift between declared stacks and live cloud state",
		Long: `Runs a refresh and preview against each environment's stack and classifies
the change summary. Reports go to the configured alert sinks; the command
exits non-zero when drift reaches the fail-on severity.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrift(cmd.Context(), configDir, args, failOn, verbose)
		},
	}

	cmd.Flags().StringVarP(&configDir, "config", "C", ".", "Directory containing platform.yaml")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Stream refresh/preview progress")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "Severity that fails the run (overrides config)")
	return cmd
}

func runDrift(ctx context.Context, configDir string, envNames []string, failOn string, verbose bool) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	envs, err := selectEnvironments(cfg, envNames)
	if err != nil {
		return err
	}

	failSeverity := cfg.Drift.FailOn
	if failOn != "" {
		failSeverity = types.Severity(failOn)
		if failSeverity != types.SeverityOK && failSeverity != types.SeverityWarning && failSeverity != types.SeverityCritical {
			return fmt.Errorf("invalid fail-on severity %q", failOn)
		}
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

	_, _ = color.New(color.Bold).Printf("Checking %d environment(s) for drift...\n\n", len(envs))
	reports := detector.DetectAll(ctx, envs)
	printReports(os.Stdout, reports)

	dispatcher, err := alert.NewDispatcher(cfg.Alerts, logger)
	if err != nil {
		return fmt.Errorf("creating alert dispatcher: %w", err)
	}
	for _, report := range reports {
		dispatcher.Dispatch(ctx, report)
	}

	if shouldFail(reports, failSeverity) {
		return fmt.Errorf("drift at or above %s severity detected", failSeverity)
	}
	return nil
}
