package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chris/anchor/config"
	"github.com/chris/anchor/internal/logger"
	"github.com/chris/anchor/internal/reminder"
	"github.com/chris/anchor/internal/service"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "anchor",
		Short:         "A gentle reminder companion for people living with dementia",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd(), chatCmd(), parseCmd(), serviceCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and installs the global logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Setup("anchor", cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, scheduler and Discord bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func chatCmd() *cobra.Command {
	var patientID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the agent from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), cfg, patientID, os.Stdin, os.Stdout)
		},
	}
	cmd.Flags().StringVarP(&patientID, "patient", "p", "cli", "patient ID to chat as")
	return cmd
}

func parseCmd() *cobra.Command {
	var tz string
	cmd := &cobra.Command{
		Use:   "parse <text>",
		Short: "Show how a reminder sentence would be understood",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc := time.Local
			if tz != "" {
				l, err := time.LoadLocation(tz)
				if err != nil {
					return fmt.Errorf("invalid timezone %q: %w", tz, err)
				}
				loc = l
			}
			parsed, err := reminder.Parse(args[0], time.Now().In(loc))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(parsed)
		},
	}
	cmd.Flags().StringVar(&tz, "tz", "", "IANA time zone to parse in (default: local)")
	return cmd
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage anchor as a background service (launchd or systemd)",
	}
	for _, sub := range []struct {
		use, short string
		fn         func() error
	}{
		{"install", "Install the binary and start the service on login", service.Install},
		{"uninstall", "Stop the service and remove it", service.Uninstall},
		{"start", "Start the service", service.Start},
		{"stop", "Stop the service", service.Stop},
		{"restart", "Restart the service", service.Restart},
		{"status", "Show service status", service.Status},
		{"logs", "Follow service logs", service.Logs},
	} {
		fn := sub.fn
		cmd.AddCommand(&cobra.Command{
			Use:   sub.use,
			Short: sub.short,
			Args:  cobra.NoArgs,
			RunE:  func(*cobra.Command, []string) error { return fn() },
		})
	}
	return cmd
}
