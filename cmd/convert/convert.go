// Package convert provides the "scadaflat convert" command.
package convert

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/klytics/scadaflat/internal/config"
	"github.com/klytics/scadaflat/internal/logging"
	"github.com/klytics/scadaflat/internal/output"
	"github.com/klytics/scadaflat/internal/progress"
	"github.com/klytics/scadaflat/internal/scada"
)

// NewCommand creates the "convert" command.
func NewCommand() *cobra.Command {
	var (
		inputs  []string
		outputs []string
		strict  bool
		quiet   bool
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert zone folders into batch workbooks",
		Long: `Convert every spreadsheet in each zone's input folder into long-format rows
and write them as Batch_<n>_Extracted_SCADA_Tag_Data.xlsx into the zone's
output folder. Zones run one after another unless --workers is raised; a
failing zone does not stop the others.

Zones come from the config file unless --input/--output pairs are given.
The zone name is the input folder name up to the first '_'.

Examples:
  scadaflat convert
  scadaflat convert -i ./BGM_testing -o ./output_BGM -i ./BGK_testing -o ./output_BGK
  scadaflat convert --on-error skip --batch-size 20 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			verbose, _ := cmd.Flags().GetBool("verbose")
			cfgFile, _ := cmd.Flags().GetString("config")

			bindFlags(cmd)
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			zones := cfg.ScadaZones()
			if len(inputs) > 0 || len(outputs) > 0 {
				zones, err = scada.PairZones(inputs, outputs)
				if err != nil {
					return err
				}
			}
			if len(zones) == 0 {
				return fmt.Errorf("no zones to convert: pass --input/--output or run 'scadaflat config init'")
			}

			bars := progress.NewZones(!jsonOut)
			logger := logging.New(bars.Writer(cmd.ErrOrStderr()), logging.Options{
				Verbose: verbose,
				Quiet:   quiet,
			})

			conv, err := cfg.Converter(logger, bars.Update)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, runErr := conv.Run(ctx, zones)
			bars.Done()

			out := cmd.OutOrStdout()
			totals := report.Totals()
			if jsonOut {
				if err := output.JSON(out, map[string]any{"zones": report.Zones, "totals": totals}); err != nil {
					return err
				}
			} else {
				printReport(out, report)
			}

			if runErr != nil {
				return fmt.Errorf("%d of %d zone(s) failed: %w", totals.Errors, totals.Zones, runErr)
			}
			if strict && totals.Failed > 0 {
				return fmt.Errorf("%d file(s) could not be read", totals.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&inputs, "input", "i", nil, "Zone input folder (repeatable, paired with --output by position)")
	cmd.Flags().StringArrayVarP(&outputs, "output", "o", nil, "Zone output folder (repeatable)")
	cmd.Flags().Int("batch-size", scada.DefaultBatchSize, "Directory entries per output workbook")
	cmd.Flags().String("on-error", string(scada.PolicyAbort), "On an unreadable file: abort the zone or skip the file")
	cmd.Flags().Int("workers", 1, "Zones converted at the same time")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any file was skipped as unreadable")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors")

	return cmd
}

// bindFlags lets explicitly set flags override config file and environment.
func bindFlags(cmd *cobra.Command) {
	viper.BindPFlag("batch_size", cmd.Flags().Lookup("batch-size"))
	viper.BindPFlag("on_file_error", cmd.Flags().Lookup("on-error"))
	viper.BindPFlag("workers", cmd.Flags().Lookup("workers"))
}

func printReport(w io.Writer, report *scada.Report) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)
	dim := color.New(color.FgHiBlack)

	for _, z := range report.Zones {
		bold.Fprintf(w, "Zone %s", z.Zone)
		dim.Fprintf(w, "  %s → %s\n", z.Input, z.Output)

		for _, b := range z.Batches {
			if b.Written {
				green.Fprintf(w, "  ✓ ")
				fmt.Fprintf(w, "batch %d: %d file(s), %d row(s) → %s\n",
					b.Number, len(b.Converted), b.Rows, filepath.Base(b.Path))
			}
			for _, f := range b.Failed {
				yellow.Fprintf(w, "  ! ")
				fmt.Fprintf(w, "%s: %s\n", filepath.Base(f.Path), f.Error)
			}
			if len(b.Skipped) > 0 {
				dim.Fprintf(w, "    skipped %d non-spreadsheet entr(ies)\n", len(b.Skipped))
			}
		}
		if z.Error != "" {
			red.Fprintf(w, "  ✗ %s\n", z.Error)
		}
		fmt.Fprintln(w)
	}

	t := report.Totals()
	summary := fmt.Sprintf("%d zone(s), %d batch(es), %d file(s) converted, %d row(s)",
		t.Zones, t.Batches, t.Converted, t.Rows)
	switch {
	case t.Errors > 0:
		red.Fprintf(w, "%s, %d zone(s) failed\n", summary, t.Errors)
	case t.Failed > 0:
		yellow.Fprintf(w, "%s, %d file(s) unreadable\n", summary, t.Failed)
	default:
		green.Fprintln(w, summary)
	}
}
