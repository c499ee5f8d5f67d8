package alert

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"github.com/karstlabs/platform-infra/pkg/types"
)

// ConsoleSink writes drift reports to the terminal with color.
type ConsoleSink struct{}

// NewConsoleSink creates a new console report sink.
func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{}
}

// Name returns the sink identifier.
func (s *ConsoleSink) Name() string { return "console" }

// Send writes a report line to the terminal with color-coded severity.
func (s *ConsoleSink) Send(_ context.Context, report types.DriftReport) error {
	var prefix string
	switch report.Severity {
	case types.SeverityCritical:
		prefix = color.RedString("[CRITICAL]")
	case types.SeverityWarning:
		prefix = color.YellowString("[WARN]")
	default:
		prefix = color.GreenString("[OK]")
	}

	if report.Error != "" {
		fmt.Printf("%s %s/%s: detection failed: %s\n", prefix, report.Environment, report.Stack, report.Error)
		return nil
	}

	c := report.Counts
	fmt.Printf("%s %s/%s: +%d ~%d -%d ±%d (%d unchanged)\n",
		prefix, report.Environment, report.Stack, c.Create, c.Update, c.Delete, c.Replace, c.Same)
	return nil
}
