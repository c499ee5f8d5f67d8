package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/karstlabs/platform-infra/internal/commands"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "karst",
		Short: "Operations CLI for the karst platform",
		Long: `karst drives the platform's infrastructure operations: drift detection
against deployed Pulumi stacks, the recurring detection schedule, edge Lambda
log tailing, and the drift report server.`,
		Version: version,
	}

	root.AddCommand(
		commands.NewDriftCmd(),
		commands.NewScheduleCmd(),
		commands.NewTailCmd(),
		commands.NewServeCmd(),
		commands.NewVersionCmd(version),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
