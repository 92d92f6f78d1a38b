// Package config provides CLI commands for configuration management.
package config

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/scadaflat/internal/config"
	"github.com/klytics/scadaflat/internal/output"
)

// NewCommand returns the config command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage scadaflat configuration",
		Long: `View, create and modify the scadaflat.yaml configuration: zone folders,
batch size, file error policy and the input layout.`,
	}

	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newSetCommand())
	cmd.AddCommand(newGetCommand())
	cmd.AddCommand(newPathCommand())
	cmd.AddCommand(newValidateCommand())

	return cmd
}

func load(cmd *cobra.Command) (*config.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	return config.Load(cfgFile)
}

func newInitCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default scadaflat.yaml",
		Long:  "Write the default configuration to ./scadaflat.yaml or the given path.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FileName
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")
			cfg, err := load(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonFlag {
				return output.JSON(out, cfg)
			}

			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			color.New(color.FgHiBlack).Fprintf(out, "# %s\n", config.ConfigPath())
			fmt.Fprint(out, string(data))
			return nil
		},
	}
}

func newSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Example: `  scadaflat config set batch_size 20
  scadaflat config set layout.exclude SPARE`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := load(cmd); err != nil {
				return err
			}
			if err := config.Set(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], args[1])
			return nil
		},
	}
}

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := load(cmd); err != nil {
				return err
			}
			val := config.Get(args[0])
			if val == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: (not set)\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], val)
			}
			return nil
		},
	}
}

func newPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := load(cmd); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), config.ConfigPath())
			return nil
		},
	}
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")
			cfg, err := load(cmd)
			if err != nil {
				return err
			}

			issues := config.Validate(cfg)
			out := cmd.OutOrStdout()

			if jsonFlag {
				if err := output.JSON(out, issues); err != nil {
					return err
				}
			} else {
				printIssues(cmd, issues)
			}

			if config.HasErrors(issues) {
				return fmt.Errorf("configuration is invalid")
			}
			return nil
		},
	}
}

func printIssues(cmd *cobra.Command, issues []config.Issue) {
	out := cmd.OutOrStdout()
	errors := 0
	warnings := 0
	for _, issue := range issues {
		switch issue.Severity {
		case "error":
			errors++
		case "warning":
			warnings++
		}
	}

	if errors == 0 && warnings == 0 {
		color.New(color.FgGreen).Fprintln(out, "Configuration is valid")
		return
	}

	fmt.Fprintf(out, "Config validation: %d errors, %d warnings\n\n", errors, warnings)

	for _, issue := range issues {
		switch issue.Severity {
		case "error":
			color.New(color.FgRed).Fprintf(out, "  %s: %s\n", issue.Key, issue.Message)
		case "warning":
			color.New(color.FgYellow).Fprintf(out, "  %s: %s\n", issue.Key, issue.Message)
		default:
			color.New(color.FgGreen).Fprintf(out, "  %s: %s\n", issue.Key, issue.Message)
		}
		if issue.Fix != "" {
			fmt.Fprintf(out, "   Fix: %s\n", issue.Fix)
		}
	}
}
