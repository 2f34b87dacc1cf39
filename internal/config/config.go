package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"flowcast/internal/ingest"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	DataPath     string
	LogDir       string
	WorkflowFile string
	ReportDir    string

	ColumnMode ingest.ColumnMode
	Completion ingest.CompletionPolicy

	Simulations      int
	MinWindowSamples int
	Seed             int64

	EnableMermaidCharts bool
}

// IngestOptions returns the parser options implied by the configuration.
func (c *AppConfig) IngestOptions() ingest.Options {
	return ingest.Options{
		ColumnMode: c.ColumnMode,
		Completion: c.Completion,
	}
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory (highest priority for MCP servers)
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory (useful for development/go run)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	return fromEnv(exeDir)
}

func fromEnv(exeDir string) (*AppConfig, error) {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	columns, err := ingest.ParseColumnMode(getEnv("FLOWCAST_COLUMN_MODE", ""))
	if err != nil {
		return nil, fmt.Errorf("FLOWCAST_COLUMN_MODE: %w", err)
	}
	completion, err := ingest.ParseCompletionPolicy(getEnv("FLOWCAST_COMPLETION", ""))
	if err != nil {
		return nil, fmt.Errorf("FLOWCAST_COMPLETION: %w", err)
	}

	sims, err := getEnvInt("FLOWCAST_SIMULATIONS", 10000)
	if err != nil {
		return nil, err
	}
	minSamples, err := getEnvInt("FLOWCAST_MIN_WINDOW_SAMPLES", 1)
	if err != nil {
		return nil, err
	}
	seed, err := getEnvInt("FLOWCAST_SEED", 0)
	if err != nil {
		return nil, err
	}

	cfg := &AppConfig{
		DataPath:            dataPath,
		LogDir:              filepath.Join(dataPath, "logs"),
		WorkflowFile:        getEnv("FLOWCAST_WORKFLOW_FILE", filepath.Join(dataPath, "workflow.yaml")),
		ReportDir:           getEnv("FLOWCAST_REPORT_DIR", filepath.Join(dataPath, "reports")),
		ColumnMode:          columns,
		Completion:          completion,
		Simulations:         sims,
		MinWindowSamples:    minSamples,
		Seed:                int64(seed),
		EnableMermaidCharts: getEnvBool("ENABLE_MERMAID_CHARTS", false),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, value)
	}
	return n, nil
}
