package cli

import (
	"fmt"
	"os"

	"go-sales-dashboard/internal/backend"
	cfgpkg "go-sales-dashboard/internal/config"
	"go-sales-dashboard/internal/logger"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile     string
	debug       bool
	flagBackend string

	// Loaded configuration
	cfg *cfgpkg.Config
)

var rootCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Sales dashboard: charts, filters and reports over car sales data",
	Long: `dashboard parses CSV and JSON sales data, aggregates it by company, month or model
and draws filterable charts. It talks to a report backend to submit multi-source
reports and fetch their analytics, and can serve the dashboard API over HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.dashboard/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "report backend base URL (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = &cfgpkg.Config{BackendURL: "http://localhost:8001", ListenAddr: ":8080", ExportDir: "outputs"}
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("backend") && flagBackend != "" {
		cfg.BackendURL = flagBackend
	}
	if debug {
		cfg.LogLevel = "debug"
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
}

func newClient() *backend.Client {
	return backend.New(cfg.BackendURL, cfg.HTTPTimeout())
}
