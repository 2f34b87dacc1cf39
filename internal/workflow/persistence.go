package workflow

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Load reads a workflow definition from a YAML file.
// A missing file is not an error: ok is false and the caller keeps its default.
func Load(path string) (Definition, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Definition{}, false, nil
		}
		return Definition{}, false, fmt.Errorf("read workflow file: %w", err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, false, fmt.Errorf("parse workflow file %s: %w", path, err)
	}
	if err := Validate(def.States); err != nil {
		return Definition{}, false, fmt.Errorf("workflow file %s: %w", path, err)
	}

	// Fill any flags the file omitted.
	reconciled, err := def.Reconcile(def.States)
	if err != nil {
		return Definition{}, false, err
	}
	for _, s := range def.States {
		if _, ok := def.InProgress[s]; ok {
			reconciled.InProgress[s] = def.InProgress[s]
		}
	}

	log.Debug().Str("path", path).Strs("states", reconciled.States).Msg("Loaded workflow definition")
	return reconciled, true, nil
}

// Save writes the definition as YAML, creating parent directories as needed.
func Save(path string, def Definition) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create workflow directory: %w", err)
	}

	data, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal workflow: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write workflow file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace workflow file: %w", err)
	}
	return nil
}
