package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"certmailer/internal/config"
	"certmailer/internal/failure"
	"certmailer/internal/logger"
)

var (
	cfgFile  string
	appCfg   config.Config
	appLog   = slog.Default()
	closeLog = func() {}
)

// rootCmd is the base command called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "certmailer",
	Short:         "Generate, convert and deliver personalized certificates",
	Long:          "Fills a PowerPoint certificate template for every recipient of a CSV file, converts it to PDF through iLovePDF, then emails or prints it.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and flushes the log sinks it opened.
func Execute() error {
	defer func() { closeLog() }()
	return rootCmd.Execute()
}

func init() {
	// Set here rather than in the literal to avoid an initialization cycle
	// (initConfig refers to rootCmd).
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initConfig()
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./certmailer.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})
}

// exactArgs is cobra.ExactArgs with the error classified as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
		return nil
	}
}

func initConfig() error {
	v := viper.GetViper()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("certmailer")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/certmailer")
		v.AddConfigPath("configs")
	}
	config.BindEnv(v)
	_ = v.BindPFlag("app.log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return fmt.Errorf("%w: read config: %w", failure.ErrConfiguration, err)
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	appCfg = cfg

	log, closer, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		File:        cfg.App.LogFile,
		SentryDSN:   cfg.App.SentryDSN,
		Environment: cfg.App.Environment,
	})
	if err != nil {
		return fmt.Errorf("%w: logger: %w", failure.ErrConfiguration, err)
	}
	appLog, closeLog = log, closer
	slog.SetDefault(log)
	if used := v.ConfigFileUsed(); used != "" {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", used)
	}
	return nil
}

// GetConfig exposes the loaded configuration to subcommands.
func GetConfig() config.Config {
	return appCfg
}
