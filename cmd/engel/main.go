package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/app"
	"github.com/ternarybob/engel/internal/common"
)

var (
	// Command-line flags
	configFiles []string // Multiple --config flags supported, later files win
	serverPort  int
	serverHost  string

	// Global state
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:           "engel",
	Short:         "Bulk relation actions against a rate-limited site",
	Long:          `Engel blocks, mutes or un-blocks whole audiences (favoriters, followers, title authors, saved lists) one account at a time, waiting out throttling and reporting progress as it goes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return loadConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&configFiles, "config", "c", nil, "Configuration file path (can be specified multiple times, later files override earlier ones)")
	rootCmd.PersistentFlags().IntVarP(&serverPort, "port", "p", 0, "Server port (overrides config)")
	rootCmd.PersistentFlags().StringVar(&serverHost, "host", "", "Server host (overrides config)")

	rootCmd.AddCommand(serveCmd, runCmd, migrateCmd, listCmd, summariesCmd, versionCmd)
}

func main() {
	defer common.RecoverWithCrashFile()

	if err := rootCmd.Execute(); err != nil {
		if logger == nil {
			// Config failed to load, use the bootstrap console logger
			logger = common.GetLogger()
		}
		logger.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// loadConfig runs the startup sequence (REQUIRED ORDER):
// 1. Load config (defaults -> file1 -> file2 -> ... -> .env -> env)
// 2. Apply CLI overrides (highest priority)
// 3. Initialize logger
// 4. Print banner
func loadConfig() error {
	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("engel.toml"); err == nil {
			configFiles = append(configFiles, "engel.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration %v: %w", configFiles, err)
	}

	common.ApplyFlagOverrides(config, serverPort, serverHost)

	logger = common.SetupLogger(config)
	common.PrintBanner(config, logger)

	logger.Debug().
		Strs("config_files", configFiles).
		Str("badger_path", config.Storage.Badger.Path).
		Str("log_level", config.Logging.Level).
		Strs("log_output", config.Logging.Output).
		Msg("Resolved configuration (sanitized)")

	return nil
}

// newApp initializes the application for a command
func newApp() (*app.App, error) {
	application, err := app.New(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return application, nil
}

// watchSignals cancels the active operation on the first SIGINT/SIGTERM and
// calls onFirst, the second signal exits immediately.
func watchSignals(application *app.App, onFirst func()) func() {
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigChan:
		case <-done:
			return
		}

		if application.Coordinator.Cancel() {
			logger.Warn().Msg("Interrupt received - cancelling active operation (press Ctrl+C again to exit)")
		} else {
			logger.Info().Msg("Interrupt signal received")
		}
		if onFirst != nil {
			onFirst()
		}

		select {
		case <-sigChan:
			logger.Warn().Msg("Second interrupt - exiting")
			os.Exit(1)
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}
