// Package bridge exposes the Task API to language models as MCP tools. The
// API key stays on this side; models only ever see tool names and text.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/reinhart/mcpdemo/internal/logger"
)

// Tool defines the interface for a tool
type Tool interface {
	Definition() *mcp.Tool
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// ToolRegistry manages the available tools
type ToolRegistry struct {
	tools map[string]Tool
}

// NewToolRegistry creates a new tool registry
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry
func (r *ToolRegistry) Register(t Tool) {
	r.tools[t.Definition().Name] = t
}

// Get retrieves a tool by name
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the definitions of all registered tools, sorted by name
func (r *ToolRegistry) Definitions() []*mcp.Tool {
	defs := make([]*mcp.Tool, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Install adds every registered tool to server. Tool failures become MCP
// tool errors so the calling model can read them.
func (r *ToolRegistry) Install(server *mcp.Server) {
	for _, def := range r.Definitions() {
		name := def.Name
		tool, _ := r.Get(name)
		server.AddTool(def, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			logger.Info("Tool Call Request: %s(%s)", name, string(req.Params.Arguments))
			text, err := tool.Execute(ctx, req.Params.Arguments)
			if err != nil {
				logger.Error("Error executing %s: %v", name, err)
				return &mcp.CallToolResult{
					IsError: true,
					Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
				}, nil
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: text}},
			}, nil
		})
	}
}

// inputSchema reflects the argument struct into a plain JSON Schema object.
func inputSchema(args any) map[string]any {
	reflector := jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	schema := reflector.ReflectFromType(reflect.TypeOf(args))
	data, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("tool schema for %T: %v", args, err))
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("tool schema for %T: %v", args, err))
	}
	delete(out, "$schema")
	delete(out, "$id")
	if _, ok := out["properties"]; !ok {
		out["properties"] = map[string]any{}
	}
	return out
}

// parseArgs decodes tool arguments. Missing arguments decode as the zero value.
func parseArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
