// Package watch provides the "scadaflat watch" commands.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/scadaflat/internal/config"
	"github.com/klytics/scadaflat/internal/logging"
	"github.com/klytics/scadaflat/internal/scada"
	w "github.com/klytics/scadaflat/internal/watch"
)

// NewCommand creates the "watch" command with subcommands.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-convert zones when their input folders change",
		Long: `Watch the configured zone input folders and re-convert a zone whenever an
.xls or .xlsx file in it is created or modified. Bursts of changes are
debounced into one conversion per zone.

Example:
  scadaflat watch start --initial
  scadaflat watch status
  scadaflat watch stop`,
	}

	cmd.AddCommand(newStartCmd())
	cmd.AddCommand(newStopCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

func newStartCmd() *cobra.Command {
	var (
		debounce int
		initial  bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start watching the configured zones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			jsonOut, _ := cmd.Flags().GetBool("json")
			cfgFile, _ := cmd.Flags().GetString("config")

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			zones := cfg.ScadaZones()
			if len(zones) == 0 {
				return fmt.Errorf("no zones configured: run 'scadaflat config init' first")
			}
			if !cmd.Flags().Changed("debounce") {
				debounce = cfg.Watch.DebounceMs
			}

			logger := logging.New(cmd.ErrOrStderr(), logging.Options{Verbose: verbose, JSON: jsonOut})
			conv, err := cfg.Converter(logger, nil)
			if err != nil {
				return err
			}

			handler := func(ctx context.Context, zone scada.Zone) error {
				res, err := conv.ConvertZone(ctx, zone)
				written := 0
				for _, b := range res.Batches {
					if b.Written {
						written++
					}
				}
				if !jsonOut {
					if err != nil {
						color.New(color.FgRed).Printf("[%s] %s: %v\n", time.Now().Format("15:04:05"), zone.Name, err)
					} else {
						color.New(color.FgGreen).Printf("[%s] %s: %d batch(es) written\n", time.Now().Format("15:04:05"), zone.Name, written)
					}
				}
				return err
			}

			watcher, err := w.New(zones, time.Duration(debounce)*time.Millisecond, handler)
			if err != nil {
				return err
			}
			watcher.Logger = logger

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if initial {
				if _, err := conv.Run(ctx, zones); err != nil {
					logger.Warn("initial conversion had failures", "error", err)
				}
			}

			stateDir := w.DefaultStateDir()
			if err := w.WritePIDFile(stateDir); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not write PID file: %v\n", err)
			}
			defer w.RemovePIDFile(stateDir)

			if !jsonOut {
				fmt.Printf("Watching %d zone(s)\n", len(zones))
				for _, z := range zones {
					fmt.Printf("  %s: %s → %s\n", z.Name, z.Input, z.Output)
				}
				fmt.Println("Press Ctrl+C to stop")
			}

			err = watcher.Start(ctx)
			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]any{"events": watcher.Events()})
			}
			return err
		},
	}

	cmd.Flags().IntVar(&debounce, "debounce", 500, "Debounce interval in milliseconds (default from watch.debounce_ms)")
	cmd.Flags().BoolVar(&initial, "initial", false, "Convert every zone once before watching")

	return cmd
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			stateDir := w.DefaultStateDir()
			pid, err := w.ReadPIDFile(stateDir)
			if err != nil {
				return fmt.Errorf("no watcher running (PID file not found)")
			}

			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("could not find process %d: %w", pid, err)
			}

			if err := process.Signal(syscall.SIGTERM); err != nil {
				w.RemovePIDFile(stateDir)
				return fmt.Errorf("could not stop watcher (PID %d): %w", pid, err)
			}

			w.RemovePIDFile(stateDir)

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"stopped": true,
					"pid":     pid,
				})
			}

			fmt.Printf("Stopped watcher (PID %d)\n", pid)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a watcher is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			stateDir := w.DefaultStateDir()

			pid, err := w.ReadPIDFile(stateDir)
			running := err == nil

			if running {
				process, err := os.FindProcess(pid)
				if err != nil {
					running = false
				} else if err := process.Signal(syscall.Signal(0)); err != nil {
					// Stale PID file from a watcher that did not exit cleanly.
					running = false
					w.RemovePIDFile(stateDir)
				}
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				status := map[string]any{"running": running}
				if running {
					status["pid"] = pid
				}
				return json.NewEncoder(os.Stdout).Encode(status)
			}

			if !running {
				fmt.Println("Watcher is not running")
				return nil
			}
			fmt.Printf("Watcher is running (PID %d)\n", pid)
			return nil
		},
	}
}
