// Package read provides the "scadaflat read" command.
package read

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/scadaflat/internal/output"
	"github.com/klytics/scadaflat/internal/scada"
)

// NewCommand creates the "read" command.
func NewCommand() *cobra.Command {
	var (
		csvOutput bool
		limit     int
		tag       string
	)

	cmd := &cobra.Command{
		Use:   "read <batch.xlsx>",
		Short: "Print the rows of a written batch workbook",
		Long: `Read a Batch_<n>_Extracted_SCADA_Tag_Data.xlsx workbook back and print its rows
as a table, CSV or JSON. Missing readings appear as N/A.

Example:
  scadaflat read output_BGM/Batch_1_Extracted_SCADA_Tag_Data.xlsx --limit 20
  scadaflat read output_BGM/Batch_1_Extracted_SCADA_Tag_Data.xlsx --tag FLOW --csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			rows, err := scada.ReadBatch(args[0])
			if err != nil {
				return err
			}
			total := len(rows)
			rows = filter(rows, tag, limit)

			out := cmd.OutOrStdout()
			switch {
			case jsonOut:
				return output.JSON(out, rows)
			case csvOutput:
				return writeCSV(out, rows)
			default:
				printTable(out, rows, total)
				return nil
			}
		},
	}

	cmd.Flags().BoolVar(&csvOutput, "csv", false, "Output as CSV")
	cmd.Flags().IntVar(&limit, "limit", 0, "Print at most this many rows (0 for all)")
	cmd.Flags().StringVar(&tag, "tag", "", "Only rows of this SCADA tag")

	return cmd
}

func filter(rows []scada.OutputRow, tag string, limit int) []scada.OutputRow {
	if tag != "" {
		kept := rows[:0]
		for _, r := range rows {
			if r.Tag == tag {
				kept = append(kept, r)
			}
		}
		rows = kept
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func record(r scada.OutputRow) []string {
	return []string{r.Zone, r.Station.String(), r.Date.String(), r.Time, r.Tag, r.Data.String()}
}

func writeCSV(w io.Writer, rows []scada.OutputRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(scada.Header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(record(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func printTable(w io.Writer, rows []scada.OutputRow, total int) {
	dim := color.New(color.FgHiBlack)

	colWidths := make([]int, len(scada.Header))
	for j, h := range scada.Header {
		colWidths[j] = len(h)
	}
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = record(r)
		for j, cell := range records[i] {
			colWidths[j] = max(colWidths[j], len(cell))
		}
	}
	for i := range colWidths {
		colWidths[i] = min(colWidths[i], 40)
	}

	printRow(w, scada.Header, colWidths, color.New(color.Bold))
	dim.Fprint(w, "  ")
	for j, width := range colWidths {
		if j > 0 {
			dim.Fprint(w, "+-")
		}
		dim.Fprint(w, strings.Repeat("-", width+1))
	}
	dim.Fprintln(w)

	for _, rec := range records {
		printRow(w, rec, colWidths, nil)
	}

	if len(rows) < total {
		dim.Fprintf(w, "  (%d of %d rows)\n", len(rows), total)
	} else {
		dim.Fprintf(w, "  (%d rows)\n", total)
	}
}

func printRow(w io.Writer, row []string, colWidths []int, style *color.Color) {
	fmt.Fprint(w, "  ")
	for j := range colWidths {
		if j > 0 {
			fmt.Fprint(w, "| ")
		}
		cell := ""
		if j < len(row) {
			cell = row[j]
		}
		if len(cell) > colWidths[j] {
			cell = cell[:colWidths[j]-1] + "~"
		}
		padded := cell + strings.Repeat(" ", colWidths[j]-len(cell)+1)
		if style != nil {
			style.Fprint(w, padded)
		} else {
			fmt.Fprint(w, padded)
		}
	}
	fmt.Fprintln(w)
}
