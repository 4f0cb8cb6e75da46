// Package config loads engine configuration from the environment, with a
// .env file loaded first when present. Explicit environment variables
// win, a .env file fills gaps, built-in defaults fill the rest.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all tunables the engine and its ambient services need.
type Config struct {
	// DataDir is where the run-history database lives. Resolved to an
	// absolute path and created if missing.
	DataDir string
	// InputDir is where the CSV input files live. Defaults to
	// DataDir/inputs.
	InputDir string

	LogLevel string
	// LogPretty enables the human-readable console writer.
	LogPretty bool

	// NCNT caps the number of ticker subsets the allocator examines per
	// leaf.
	NCNT int
	// MXRT caps the depth below which a rebalance node may perform more
	// than one allocation iteration.
	MXRT int
	// Inflation is a percent, used by the No-CPI-Annuity synthesizer.
	Inflation float64

	// SPHigh, SPClose, SPToday are the market anchors for the equity
	// adjustments: SPClose with SPToday drives the close-vs-today
	// adjustment, SPHigh with SPToday the hyperbolic adjuster. nil means
	// "not set" — the corresponding adjustment is skipped.
	SPHigh  *float64
	SPClose *float64
	SPToday *float64

	HTTPPort    int
	HTTPDevMode bool

	// BackupBucket / BackupPrefix configure the optional S3 snapshot
	// backup (internal/reliability). Backup is disabled when BackupBucket
	// is empty.
	BackupBucket string
	BackupPrefix string
}

const (
	defaultNCNT      = 20
	defaultMXRT      = 2
	defaultInflation = 3.0
	defaultHTTPPort  = 8080
	defaultDataDir   = "./data"
)

// Load reads configuration from the environment (after loading a .env file
// from the current directory, if one exists — godotenv.Load silently no-ops
// when the file is absent).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := firstNonEmpty(os.Getenv("REBALANCE_DATA_DIR"), os.Getenv("DATA_DIR"), defaultDataDir)
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory to absolute: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	inputDir := firstNonEmpty(os.Getenv("INPUT_DIR"), filepath.Join(absDataDir, "inputs"))
	absInputDir, err := filepath.Abs(inputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve input directory to absolute: %w", err)
	}
	if err := os.MkdirAll(absInputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create input directory: %w", err)
	}

	cfg := &Config{
		DataDir:      absDataDir,
		InputDir:     absInputDir,
		LogLevel:     firstNonEmpty(os.Getenv("LOG_LEVEL"), "info"),
		LogPretty:    envBool("LOG_PRETTY", true),
		NCNT:         envInt("NCNT", defaultNCNT),
		MXRT:         envInt("MXRT", defaultMXRT),
		Inflation:    envFloat("INFLATION", defaultInflation),
		SPHigh:       envOptionalFloat("SP_HIGH"),
		SPClose:      envOptionalFloat("SP_CLOSE"),
		SPToday:      envOptionalFloat("SP_TODAY"),
		HTTPPort:     envInt("HTTP_PORT", defaultHTTPPort),
		HTTPDevMode:  envBool("HTTP_DEV_MODE", false),
		BackupBucket: os.Getenv("BACKUP_BUCKET"),
		BackupPrefix: firstNonEmpty(os.Getenv("BACKUP_PREFIX"), "rebalance"),
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envOptionalFloat(key string) *float64 {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
