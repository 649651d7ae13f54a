package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dbehnke/dstar-gateway/pkg/config"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
	"github.com/dbehnke/dstar-gateway/pkg/web"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	web.SetVersionInfo(version, commit, buildTime)

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "dstar-gateway",
		Short: "D-STAR repeater gateway",
		Long: `dstar-gateway links D-STAR repeaters to reflectors and routes
calls through the directory service.

Running without a subcommand starts the gateway.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGateway(cmd.Context(), configFile)
		},
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration file")

	root.AddCommand(
		newRunCmd(&configFile),
		newValidateCmd(&configFile),
		newHostsCmd(&configFile),
		newVersionCmd(),
	)
	return root
}

func newRunCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGateway(cmd.Context(), *configFile)
		},
	}
}

func newValidateCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid: gateway %s with %d repeater(s)\n",
				cfg.GatewayCallsign(), len(cfg.Repeaters))
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), web.VersionString())
		},
	}
}

// newLogger builds the root logger from the logging section. The returned
// closer releases the log file, if any.
func newLogger(cfg config.LoggingConfig) (*logger.Logger, io.Closer, error) {
	var out io.Writer = os.Stdout
	var closer io.Closer = io.NopCloser(nil)

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, f)
		closer = f
	}

	return logger.New(logger.Config{
		Level:      cfg.Level,
		Format:     cfg.Format,
		TimeFormat: cfg.TimeFormat,
		Output:     out,
	}), closer, nil
}
