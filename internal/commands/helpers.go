// Package commands implements the CLI subcommands for the karst binary.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/karstlabs/platform-infra/pkg/types"
)

const timeRounding = 10 * time.Millisecond

// newLogger returns a JSON logger at debug level when verbose, otherwise a
// logger that drops everything below warn.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// selectEnvironments resolves the environments named on the command line, or
// all configured environments when none are named.
func selectEnvironments(cfg *types.ProjectConfig, names []string) ([]types.Environment, error) {
	if len(names) == 0 {
		return cfg.Environments, nil
	}
	envs := make([]types.Environment, 0, len(names))
	for _, name := range names {
		env := cfg.Env(name)
		if env == nil {
			return nil, fmt.Errorf("unknown environment %q", name)
		}
		envs = append(envs, *env)
	}
	return envs, nil
}

// severityString colors a severity for terminal output.
func severityString(s types.Severity) string {
	switch s {
	case types.SeverityCritical:
		return color.RedString(string(s))
	case types.SeverityWarning:
		return color.YellowString(string(s))
	default:
		return color.GreenString(string(s))
	}
}

// printReports renders the drift run outcome as a table.
func printReports(w io.Writer, reports []types.DriftReport) {
	bold := color.New(color.Bold)
	_, _ = bold.Fprintf(w, "%-12s %-16s %-10s %8s %8s %8s %8s  %s\n",
		"ENVIRONMENT", "STACK", "SEVERITY", "CREATE", "UPDATE", "DELETE", "REPLACE", "DURATION")
	for _, r := range reports {
		fmt.Fprintf(w, "%-12s %-16s %-19s %8d %8d %8d %8d  %s\n",
			r.Environment, r.Stack, severityString(r.Severity),
			r.Counts.Create, r.Counts.Update, r.Counts.Delete, r.Counts.Replace,
			r.Duration.Round(timeRounding))
		if r.Error != "" {
			fmt.Fprintf(w, "  %s %s\n", color.RedString("error:"), r.Error)
		}
	}
}

// shouldFail reports whether any report reached the fail-on severity.
func shouldFail(reports []types.DriftReport, failOn types.Severity) bool {
	for _, r := range reports {
		if r.Severity.AtLeast(failOn) && r.Severity != types.SeverityOK {
			return true
		}
	}
	return false
}
