// Package cmd contains all CLI commands for the scadaflat binary.
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/scadaflat/cmd/completion"
	cmdconfig "github.com/klytics/scadaflat/cmd/config"
	"github.com/klytics/scadaflat/cmd/convert"
	"github.com/klytics/scadaflat/cmd/inspect"
	"github.com/klytics/scadaflat/cmd/read"
	"github.com/klytics/scadaflat/cmd/version"
	cmdwatch "github.com/klytics/scadaflat/cmd/watch"
)

var (
	jsonOutput bool
	verbose    bool
	noColor    bool
	configFile string
)

// NewRootCommand creates and returns the root cobra command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "scadaflat",
		Short: "Flatten SCADA tag exports into batch workbooks",
		Long: `scadaflat reads daily SCADA exports (one station per spreadsheet, one column
per tag, one row per minute) and rewrites them as long-format batch workbooks
with the columns Zone, Name of Station, Date, Time, SCADA Tag and Data.

Each zone is an input folder paired with an output folder. Every 50 directory
entries of a zone become one Batch_<n>_Extracted_SCADA_Tag_Data.xlsx.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	// Global persistent flags
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as machine-readable JSON")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable ANSI color output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ./scadaflat.yaml or ~/.scadaflat/scadaflat.yaml)")

	// Register subcommands
	rootCmd.AddCommand(convert.NewCommand())
	rootCmd.AddCommand(inspect.NewCommand())
	rootCmd.AddCommand(read.NewCommand())
	rootCmd.AddCommand(cmdwatch.NewCommand())
	rootCmd.AddCommand(cmdconfig.NewCommand())
	rootCmd.AddCommand(completion.NewCommand(rootCmd))
	rootCmd.AddCommand(version.NewCommand())

	return rootCmd
}

// Execute runs the root command and handles any returned errors.
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
