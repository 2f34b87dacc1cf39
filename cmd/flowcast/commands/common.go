package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"flowcast/internal/dates"
	"flowcast/internal/store"
	"flowcast/internal/workflow"

	"github.com/rs/zerolog/log"
)

// openStore builds a store seeded with the persisted workflow, saving every
// later workflow change back to the same file.
func openStore() (*store.Store, error) {
	opts := []store.Option{store.WithIngestOptions(cfg.IngestOptions())}

	def, found, err := workflow.Load(cfg.WorkflowFile)
	if err != nil {
		return nil, err
	}
	if found {
		log.Debug().Str("path", cfg.WorkflowFile).Strs("states", def.States).Msg("Loaded workflow definition")
		opts = append(opts, store.WithDefinition(def))
	}

	opts = append(opts, store.OnWorkflowChange(func(def workflow.Definition) {
		if err := workflow.Save(cfg.WorkflowFile, def); err != nil {
			log.Warn().Err(err).Str("path", cfg.WorkflowFile).Msg("Failed to persist workflow definition")
		}
	}))
	return store.New(opts...), nil
}

// loadCSV ingests a file; structural errors fail the command.
func loadCSV(st *store.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	res, warnings := st.IngestFrom(filepath.Base(path), string(data))
	if !res.OK() {
		return fmt.Errorf("%s rejected: %s", path, strings.Join(res.Errors, "; "))
	}
	for _, w := range append(res.Warnings, warnings...) {
		log.Warn().Str("path", path).Msg(w)
	}
	log.Info().Str("path", path).Int("items", len(res.Items)).Strs("states", res.WorkflowStates).Msg("CSV ingested")
	return nil
}

func parseDateFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, ok := dates.Parse(value)
	if !ok {
		return nil, fmt.Errorf("--%s: invalid date %q (want YYYY-MM-DD)", name, value)
	}
	return &t, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
