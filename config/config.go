// Package config resolves sheetql settings from defaults, SHEETQL_*
// environment variables and command-line flags, in that precedence order.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// Config carries the runtime settings for one sheetql process.
type Config struct {
	// DataDir is the directory searched for spreadsheet/CSV/parquet files.
	DataDir string
	// Query, when set, runs one statement and exits instead of starting
	// the shell.
	Query string
	// Format selects the display format: table, csv or jsonl.
	Format string
	// LogLevel is the minimum level written to stderr.
	LogLevel string
	// LogDir holds the query history log. Empty disables history logging.
	LogDir string
	// HistoryFile stores shell line-editing history.
	HistoryFile string
	// MaxRows caps interactive table rendering; 0 shows everything.
	MaxRows int
	// NoCache disables the per-file relation cache.
	NoCache bool
}

// Default returns the built-in settings before env and flag overrides.
func Default() *Config {
	home, _ := os.UserHomeDir()
	histFile := ".sheetql_history"
	if home != "" {
		histFile = home + "/.sheetql_history"
	}
	return &Config{
		DataDir:     ".",
		Format:      "table",
		LogLevel:    "warn",
		LogDir:      ".sheetql",
		HistoryFile: histFile,
		MaxRows:     200,
	}
}

// Load builds the configuration from defaults, then SHEETQL_* environment
// variables, then the given command-line arguments.
func Load(args []string) (*Config, error) {
	cfg := Default()
	cfg.applyEnv()

	fs := flag.NewFlagSet("sheetql", flag.ContinueOnError)
	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir, "directory containing spreadsheet/CSV/parquet files")
	fs.StringVar(&cfg.Query, "q", cfg.Query, "run one statement and exit")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "output format: table, csv or jsonl")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error, off")
	fs.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "directory for the query history log, empty to disable")
	fs.IntVar(&cfg.MaxRows, "max-rows", cfg.MaxRows, "interactive display row cap, 0 for all")
	fs.BoolVar(&cfg.NoCache, "no-cache", cfg.NoCache, "reload files on every query instead of caching")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch cfg.Format {
	case "table", "csv", "jsonl":
	default:
		return nil, fmt.Errorf("invalid format %q: want table, csv or jsonl", cfg.Format)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SHEETQL_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("SHEETQL_FORMAT"); v != "" {
		c.Format = v
	}
	if v := os.Getenv("SHEETQL_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("SHEETQL_LOG_DIR"); v != "" {
		c.LogDir = v
	}
	if v := os.Getenv("SHEETQL_HISTORY"); v != "" {
		c.HistoryFile = v
	}
	if v := os.Getenv("SHEETQL_NO_CACHE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.NoCache = b
		}
	}
	if v := os.Getenv("SHEETQL_MAX_ROWS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRows = n
		}
	}
}
