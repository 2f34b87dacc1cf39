package mcp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"flowcast/internal/dates"
	"flowcast/internal/store"

	"github.com/google/jsonschema-go/jsonschema"
)

// ResponseEnvelope is the common shape of every successful tool result.
type ResponseEnvelope struct {
	Data       any               `json:"data"`
	Context    EnvelopeContext   `json:"context"`
	Warnings   []string          `json:"warnings,omitempty"`
	Guardrails []string          `json:"guardrails,omitempty"`
	Visuals    map[string]string `json:"visuals,omitempty"`
}

// EnvelopeContext identifies the dataset a result was computed from.
type EnvelopeContext struct {
	Revision uint64 `json:"revision"`
	Source   string `json:"source,omitempty"`
	Today    string `json:"today"`
	Items    int    `json:"items"`
}

// WrapResponse builds an envelope; empty visuals are dropped.
func WrapResponse(data any, st *store.State, warnings, guardrails []string, visuals map[string]string) ResponseEnvelope {
	env := ResponseEnvelope{
		Data:       data,
		Warnings:   warnings,
		Guardrails: guardrails,
	}
	if st != nil {
		env.Context = EnvelopeContext{
			Revision: st.Revision,
			Source:   st.Source,
			Today:    dates.Format(st.Today),
			Items:    len(st.Items),
		}
	}
	for k, v := range visuals {
		if v == "" {
			continue
		}
		if env.Visuals == nil {
			env.Visuals = make(map[string]string)
		}
		env.Visuals[k] = v
	}
	return env
}

func formatResult(data any) string {
	out, _ := json.MarshalIndent(data, "", "  ")
	return string(out)
}

// parseWindow turns optional YYYY-MM-DD bounds into window pointers.
func parseWindow(start, end string) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if strings.TrimSpace(start) != "" {
		t, ok := dates.Parse(start)
		if !ok {
			return nil, nil, fmt.Errorf("invalid window_start %q (want YYYY-MM-DD)", start)
		}
		from = &t
	}
	if strings.TrimSpace(end) != "" {
		t, ok := dates.Parse(end)
		if !ok {
			return nil, nil, fmt.Errorf("invalid window_end %q (want YYYY-MM-DD)", end)
		}
		to = &t
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, fmt.Errorf("window_end %s is before window_start %s", dates.Format(*to), dates.Format(*from))
	}
	return from, to, nil
}

func minimum(schema *jsonschema.Schema, prop string, v float64) {
	if p, ok := schema.Properties[prop]; ok {
		p.Minimum = &v
	}
}

func enum(schema *jsonschema.Schema, prop string, values ...string) {
	if p, ok := schema.Properties[prop]; ok {
		p.Enum = make([]any, len(values))
		for i, v := range values {
			p.Enum[i] = v
		}
	}
}
