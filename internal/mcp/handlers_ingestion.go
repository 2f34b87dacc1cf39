package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"flowcast/internal/ingest"
)

func (s *Server) handleIngestCSV(_ context.Context, in IngestInput) (any, error) {
	text, source := in.CSVText, "inline"
	if text == "" {
		if in.Path == "" {
			return nil, errors.New("either csv_text or path is required")
		}
		data, err := os.ReadFile(in.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", in.Path, err)
		}
		text, source = string(data), filepath.Base(in.Path)
	}

	res, workflowWarnings := s.store.IngestFrom(source, text)
	if !res.OK() {
		return nil, fmt.Errorf("CSV rejected: %s", strings.Join(res.Errors, "; "))
	}

	st := s.store.Snapshot()
	data := map[string]any{
		"items":          len(res.Items),
		"workflowStates": res.WorkflowStates,
		"summary":        st.Summary,
	}
	return WrapResponse(data, st, append(res.Warnings, workflowWarnings...), nil, nil), nil
}

func (s *Server) handleGetCSVTemplate(_ context.Context, _ NoInput) (any, error) {
	def := s.store.Workflow()
	return WrapResponse(map[string]any{
		"template": ingest.Template(def.States),
	}, s.store.Snapshot(), nil, nil, nil), nil
}
