package mcp

import (
	"context"
	"encoding/json"
	"slices"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func connectClient(t *testing.T, s *Server) *sdk.ClientSession {
	t.Helper()
	ctx := context.Background()
	clientTransport, serverTransport := sdk.NewInMemoryTransports()

	if _, err := s.Connect(ctx, serverTransport); err != nil {
		t.Fatalf("Server connect failed: %v", err)
	}
	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "v0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("Client connect failed: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func callText(t *testing.T, session *sdk.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := session.CallTool(context.Background(), &sdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool %s failed: %v", name, err)
	}
	if len(res.Content) != 1 {
		t.Fatalf("Expected one content block from %s, got %d", name, len(res.Content))
	}
	text, ok := res.Content[0].(*sdk.TextContent)
	if !ok {
		t.Fatalf("Expected text content from %s, got %T", name, res.Content[0])
	}
	return text.Text, res.IsError
}

func TestServer_ListsTools(t *testing.T) {
	session := connectClient(t, newTestServer(t))

	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	for _, want := range []string{
		"ingest_csv", "get_workflow", "set_workflow", "toggle_in_progress", "toggle_visibility",
		"get_metrics", "forecast_how_many", "forecast_when", "get_csv_template",
	} {
		if !slices.Contains(names, want) {
			t.Errorf("Tool %s is not registered (have %v)", want, names)
		}
	}
}

func TestServer_IngestThenForecastOverTransport(t *testing.T) {
	session := connectClient(t, newTestServer(t))

	if text, isErr := callText(t, session, "ingest_csv", map[string]any{"csv_text": twentyItemsCSV()}); isErr {
		t.Fatalf("ingest_csv returned an error: %s", text)
	}

	text, isErr := callText(t, session, "forecast_how_many", map[string]any{"days": 7})
	if isErr {
		t.Fatalf("forecast_how_many returned an error: %s", text)
	}
	var env struct {
		Data struct {
			Days        int `json:"days"`
			Percentiles struct {
				P50 *int `json:"p50"`
			} `json:"percentiles"`
		} `json:"data"`
		Context EnvelopeContext `json:"context"`
	}
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		t.Fatalf("Response is not JSON: %v", err)
	}
	if env.Data.Days != 7 || env.Data.Percentiles.P50 == nil {
		t.Errorf("Unexpected forecast payload: %s", text)
	}
	if env.Context.Items != 20 {
		t.Errorf("Expected context for 20 items, got %+v", env.Context)
	}
}

func TestServer_ToolErrorsAreReported(t *testing.T) {
	session := connectClient(t, newTestServer(t))

	text, isErr := callText(t, session, "toggle_visibility", map[string]any{"state": "Nowhere"})
	if !isErr {
		t.Errorf("Expected an error result, got %s", text)
	}
}
