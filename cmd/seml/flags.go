package main

import (
	"flag"
	"fmt"
	"os"
)

// CLIConfig holds command-line configuration. Endpoint flags default to
// empty and, when set, override both the config file and the environment.
type CLIConfig struct {
	ConfigPath  string
	MLLPAddress string
	PagerURL    string
	Database    string
	HistoryCSV  string
	MetricsPort int
	LogLevel    string
	LogFormat   string
	ShowVersion bool
	ShowHelp    bool
	Validate    bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("SEML_CONFIG", ""),
		"Path to JSON configuration file, empty for defaults (env: SEML_CONFIG)")
	flag.StringVar(&cfg.MLLPAddress, "mllp", "",
		"host:port of the MLLP message source (overrides config and MLLP_ADDRESS)")
	flag.StringVar(&cfg.PagerURL, "pager", "",
		"Base URL of the paging service (overrides config and PAGER_ADDRESS)")
	flag.StringVar(&cfg.Database, "database", "",
		"Path to the patient database file (overrides config)")
	flag.StringVar(&cfg.HistoryCSV, "history", "",
		"Path to the historical results CSV to seed on first run (overrides config)")
	flag.IntVar(&cfg.MetricsPort, "metrics-port", 0,
		"Metrics HTTP port, 0 keeps the configured value")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("SEML_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error (env: SEML_LOG_LEVEL)")
	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("SEML_LOG_FORMAT", ""),
		"Log format: text, json (env: SEML_LOG_FORMAT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Usage = printDetailedHelp

	flag.Parse()
	return cfg
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - HL7 creatinine stream processor with AKI paging

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run against the ward simulator
  %s --mllp=localhost:8440 --pager=http://localhost:8441

  # Run with a config file and seeded history
  %s --config=/etc/seml/config.json --history=/data/history.csv

  # Validate configuration only
  %s --config=/etc/seml/config.json --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
