package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/sift-go/cmd/config"
	"github.com/tphakala/sift-go/cmd/export"
	"github.com/tphakala/sift-go/cmd/extract"
	"github.com/tphakala/sift-go/internal/buildinfo"
	"github.com/tphakala/sift-go/internal/conf"
	"github.com/tphakala/sift-go/internal/logger"
)

// rootFlags holds the persistent flags that are not settings keys
type rootFlags struct {
	configFile string
	logFile    string
}

// RootCommand creates and returns the root command
func RootCommand(info *buildinfo.Context) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "sift-go",
		Short:         "SIFT feature extraction into a COLMAP-style database",
		Version:       info.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, flags); err != nil {
		conf.GetLogger().Error("failed to set up flags", logger.Error(err))
	}

	rootCmd.AddCommand(
		extract.Command(),
		export.Command(),
		config.Command(),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initialize(flags)
	}

	return rootCmd
}

// initialize loads the settings and installs the global logger. It runs before
// every subcommand, after the flags were parsed and bound to viper.
func initialize(flags *rootFlags) error {
	settings, err := conf.Load(flags.configFile)
	if err != nil {
		return err
	}

	if flags.logFile != "" {
		settings.Logging.FileOutput = &logger.FileOutput{
			Enabled: true,
			Path:    flags.logFile,
			Level:   settings.Logging.DefaultLevel,
		}
	}
	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
		if settings.Logging.FileOutput != nil {
			settings.Logging.FileOutput.Level = "debug"
		}
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)
	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, flags *rootFlags) error {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "Path to a YAML config file")
	pf.BoolP("debug", "d", conf.DefaultDebug, "Enable debug output")
	pf.String("log_level", logger.DefaultLogLevel, "Default log level: debug, info, warn or error")
	pf.StringVar(&flags.logFile, "log_file", "", "Also write JSON logs to this file")

	if err := viper.BindPFlag("debug", pf.Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("logging.default_level", pf.Lookup("log_level")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("logging.console.level", pf.Lookup("log_level")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
