package mcp

import (
	"context"
	"fmt"

	"flowcast/internal/config"
	"flowcast/internal/simulation"
	"flowcast/internal/store"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// Server exposes a store and the simulation worker as MCP tools.
type Server struct {
	cfg    *config.AppConfig
	store  *store.Store
	engine *simulation.Engine
	worker *simulation.Worker
	sdk    *sdk.Server
}

// NewServer creates a new MCP server with every tool registered.
func NewServer(cfg *config.AppConfig, st *store.Store, version string) *Server {
	engine := simulation.NewEngine()
	engine.SetSeed(cfg.Seed)

	s := &Server{
		cfg:    cfg,
		store:  st,
		engine: engine,
		worker: simulation.NewWorker(engine),
		sdk:    sdk.NewServer(&sdk.Implementation{Name: "flowcast", Version: version}, nil),
	}
	s.registerTools()
	return s
}

// Start serves over stdin/stdout until the client disconnects or ctx ends.
func (s *Server) Start(ctx context.Context) error {
	defer s.worker.Close()
	log.Info().Msg("MCP Server starting Stdio loop")
	return s.sdk.Run(ctx, &sdk.StdioTransport{})
}

// Connect attaches the server to an arbitrary transport.
func (s *Server) Connect(ctx context.Context, t sdk.Transport) (*sdk.ServerSession, error) {
	return s.sdk.Connect(ctx, t, nil)
}

// Close stops the simulation worker.
func (s *Server) Close() {
	s.worker.Close()
}

// addTool registers a handler whose input schema is derived from In. The
// tweak hook adds bounds and enums the struct tags cannot express.
func addTool[In any](s *Server, name, description string, tweak func(*jsonschema.Schema), handle func(context.Context, In) (any, error)) {
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		panic(fmt.Sprintf("schema for tool %s: %v", name, err))
	}
	if tweak != nil {
		tweak(schema)
	}

	sdk.AddTool(s.sdk, &sdk.Tool{Name: name, Description: description, InputSchema: schema},
		func(ctx context.Context, _ *sdk.CallToolRequest, in In) (*sdk.CallToolResult, any, error) {
			data, err := handle(ctx, in)
			if err != nil {
				log.Warn().Err(err).Str("tool", name).Msg("Tool call failed")
				return &sdk.CallToolResult{
					IsError: true,
					Content: []sdk.Content{&sdk.TextContent{Text: err.Error()}},
				}, nil, nil
			}
			return &sdk.CallToolResult{
				Content: []sdk.Content{&sdk.TextContent{Text: formatResult(data)}},
			}, nil, nil
		})
}
