package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tlvu/thunderbird/internal/config"
	"github.com/tlvu/thunderbird/internal/server"
)

var (
	// Global flags
	debug        bool
	settingsPath string
	listenAddr   string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "thunderbird",
	Short: "thunderbird - climatology generation service",
	Long: `thunderbird runs climatological mean/std computations over netCDF
datasets and publishes the produced files through an HTTP API.

Jobs are submitted as one request naming a dataset, an operation, a set of
climatological periods, and output resolutions; progress and outputs are
read back incrementally over the same API.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if debug {
			config = zap.NewDevelopmentConfig()
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// serveCmd runs the HTTP service
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the climatology generation HTTP service",
	Long: `Loads settings, checks the external tool dependencies, and serves
the job API until interrupted.

Example:
  thunderbird serve --listen :8095`,
	RunE: runServe,
}

// diagnoseCmd runs the dependency checks once and prints the outcome
var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Check external tool dependencies and exit",
	RunE:  runDiagnose,
}

func runServe(cmd *cobra.Command, args []string) error {
	store := config.NewJSONStore(settingsPath)

	srv, err := server.New(store, logger)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	report := srv.Diagnostics()
	for _, item := range report.Items {
		if item.Status == "fail" {
			logger.Warn("dependency check failed",
				zap.String("check", item.ID),
				zap.String("message", item.Message),
				zap.String("hint", item.Hint))
		}
	}

	addr := srv.Settings().ListenAddr
	if listenAddr != "" {
		addr = listenAddr
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("listening", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	store := config.NewJSONStore(settingsPath)

	srv, err := server.New(store, logger)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	report := srv.Diagnostics()
	for _, item := range report.Items {
		fmt.Printf("%-4s %-20s %s\n", item.Status, item.Name, item.Message)
		if item.Hint != "" {
			fmt.Printf("     hint: %s\n", item.Hint)
		}
	}
	if report.HasFailures {
		return fmt.Errorf("dependency checks failed")
	}
	return nil
}

func defaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "thunderbird-settings.json"
	}
	return filepath.Join(home, ".thunderbird", "settings.json")
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", defaultSettingsPath(), "Path to the settings file")

	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides settings)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(diagnoseCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
