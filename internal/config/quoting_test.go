package config

import (
	"os"
	"path/filepath"
	"testing"

	"flowcast/internal/ingest"

	"github.com/joho/godotenv"
)

func TestDotenv_QuotedValues(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := `FLOWCAST_WORKFLOW_FILE='/srv/team "alpha"/workflow.yaml'
FLOWCAST_COLUMN_MODE="compat"
# comments are ignored
FLOWCAST_SEED=11
`
	if err := os.WriteFile(envPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := godotenv.Load(envPath); err != nil {
		t.Fatalf("Error loading env: %v", err)
	}

	cfg, err := fromEnv(dir)
	if err != nil {
		t.Fatalf("fromEnv failed: %v", err)
	}

	if expected := `/srv/team "alpha"/workflow.yaml`; cfg.WorkflowFile != expected {
		t.Errorf("Expected %s, got %s", expected, cfg.WorkflowFile)
	}
	if cfg.ColumnMode != ingest.ColumnsCompat {
		t.Errorf("Expected compat column mode, got %v", cfg.ColumnMode)
	}
	if cfg.Seed != 11 {
		t.Errorf("Expected seed 11, got %d", cfg.Seed)
	}
}

func TestDotenv_DoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("FLOWCAST_SIMULATIONS", "2500")

	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("FLOWCAST_SIMULATIONS=500\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := godotenv.Load(envPath); err != nil {
		t.Fatalf("Error loading env: %v", err)
	}

	cfg, err := fromEnv("")
	if err != nil {
		t.Fatalf("fromEnv failed: %v", err)
	}
	if cfg.Simulations != 2500 {
		t.Errorf("Process environment should win over .env, got %d simulations", cfg.Simulations)
	}
}
