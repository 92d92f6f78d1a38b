// Package inspect provides the "scadaflat inspect" command.
package inspect

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/klytics/scadaflat/internal/config"
	"github.com/klytics/scadaflat/internal/logging"
	"github.com/klytics/scadaflat/internal/output"
	"github.com/klytics/scadaflat/internal/scada"
)

// NewCommand creates the "inspect" command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file> [file...]",
		Short: "Show what would be extracted from SCADA exports",
		Long: `Print the station, date, tag columns and data row coverage of each export
using the configured layout. Nothing is written.

Example:
  scadaflat inspect BGM_testing/station_001.xlsx
  scadaflat inspect BGM_testing/*.xls --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			cfgFile, _ := cmd.Flags().GetString("config")

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			tf, err := scada.NewTransformer(cfg.Layout, logging.Discard())
			if err != nil {
				return fmt.Errorf("invalid layout: %w", err)
			}

			summaries := make([]scada.FileSummary, 0, len(args))
			for _, path := range args {
				sum, err := tf.Inspect(path)
				if err != nil {
					return err
				}
				summaries = append(summaries, sum)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return output.JSON(out, summaries)
			}

			for _, sum := range summaries {
				printSummary(out, sum, cfg.Layout.Rows)
			}
			return nil
		},
	}
	return cmd
}

func printSummary(w io.Writer, sum scada.FileSummary, rows int) {
	headerStyle := color.New(color.Bold, color.FgCyan)
	dim := color.New(color.FgHiBlack)
	yellow := color.New(color.FgYellow)

	headerStyle.Fprintf(w, "%s\n", sum.Path)
	fmt.Fprintf(w, "  Sheet:    %s\n", sum.Sheet)
	fmt.Fprintf(w, "  Station:  %s\n", sum.Station)
	fmt.Fprintf(w, "  Date:     %s\n", sum.Date)

	coverage := fmt.Sprintf("%d/%d rows", sum.Coverage, rows)
	if sum.Coverage < rows {
		yellow.Fprintf(w, "  Coverage: %s (rest padded with N/A)\n", coverage)
	} else {
		fmt.Fprintf(w, "  Coverage: %s\n", coverage)
	}

	if len(sum.Tags) == 0 {
		dim.Fprintln(w, "  Tags:     (none)")
		fmt.Fprintln(w)
		return
	}
	cols := make([]string, len(sum.Tags))
	for i, tc := range sum.Tags {
		name, _ := excelize.ColumnNumberToName(tc.Column + 1)
		cols[i] = fmt.Sprintf("%s (%s)", tc.Tag, name)
	}
	fmt.Fprintf(w, "  Tags:     %d\n", len(sum.Tags))
	fmt.Fprintf(w, "    %s\n\n", strings.Join(cols, ", "))
}
