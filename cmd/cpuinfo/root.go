package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/cpuinfo/config"
)

// errUnhealthy makes the process exit with status 1 without printing an
// error; the command has already reported the status.
var errUnhealthy = errors.New("unhealthy")

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cpuinfo",
		Short:         "Processor listing parser and inventory collector",
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
		},
	}

	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")

	cobra.EnableCommandSorting = false

	rootCmd.AddCommand(
		newParseCmd(),
		newCheckCmd(),
		newCollectCmd(),
		newHostsCmd(),
		newShowCmd(),
	)

	return rootCmd
}

// newLogger builds the command logger from the config file's logging
// section, overridden by the --log-level and --log-format flags. Logs go to
// stderr so they never mix with command output.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	logging := config.LoggingConfig{}
	if cfg != nil && cfg.Logging != nil {
		logging = *cfg.Logging
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		logging.Level = level
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		logging.Format = format
	}
	if logging.Level == "" {
		logging.Level = "warn"
	}
	return logging.NewLogger(cmd.ErrOrStderr())
}

// loadConfig loads the --config file, or searches the working directory and
// its parents when the flag is empty. A missing file yields an empty config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.Load(path)
	}

	cfg, err := config.LoadFromDir(".")
	if errors.Is(err, config.ErrNotFound) {
		return &config.Config{}, nil
	}
	return cfg, err
}
