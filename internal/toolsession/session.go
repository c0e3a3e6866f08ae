// Package toolsession manages the MCP connection used by one orchestration run.
package toolsession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/reinhart/mcpdemo/internal/assistant"
	"github.com/reinhart/mcpdemo/internal/logger"
)

// Version is reported to servers during the initialize handshake.
var Version = "dev"

// Dialer opens a fresh Session per run against a fixed endpoint spec.
type Dialer struct {
	Endpoint string
	Name     string
}

// NewDialer returns a Dialer for the endpoint spec.
func NewDialer(endpoint string) *Dialer {
	return &Dialer{Endpoint: endpoint, Name: "mcpdemo"}
}

// Open satisfies assistant.SessionOpener.
func (d *Dialer) Open(ctx context.Context) (assistant.ToolSession, error) {
	return Open(ctx, d.Endpoint, d.Name)
}

// Session is one connected MCP client session. It is not meant to be shared
// between runs.
type Session struct {
	endpoint string
	session  *mcp.ClientSession

	closeOnce sync.Once
	closeErr  error
}

// Open connects to the tool-provider and completes the initialize handshake.
func Open(ctx context.Context, endpoint, clientName string) (*Session, error) {
	if clientName == "" {
		clientName = "mcpdemo"
	}
	transport, err := transportBuilder(ctx, endpoint)
	if err != nil {
		return nil, &assistant.SessionError{Op: "open", Err: fmt.Errorf("build transport: %w", err)}
	}

	client := mcp.NewClient(&mcp.Implementation{Name: clientName, Version: Version}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, &assistant.SessionError{Op: "open", Err: err}
	}
	logger.Debug("Connected to MCP server at %s", endpoint)
	return &Session{endpoint: endpoint, session: session}, nil
}

// ListTools queries the provider once. Results are not cached.
func (s *Session) ListTools(ctx context.Context) ([]assistant.ToolDefinition, error) {
	var tools []assistant.ToolDefinition
	for tool, err := range s.session.Tools(ctx, nil) {
		if err != nil {
			return nil, &assistant.SessionError{Op: "list tools", Err: err}
		}
		def, err := toToolDefinition(tool)
		if err != nil {
			return nil, &assistant.SessionError{Op: "list tools", Err: err}
		}
		tools = append(tools, def)
	}
	logger.Debug("MCP server %s exposes %d tools", s.endpoint, len(tools))
	return tools, nil
}

// Call invokes one tool and reduces its result to text. Failures are returned
// as text too, so the model can read them on its next turn.
func (s *Session) Call(ctx context.Context, name string, args map[string]any) string {
	if args == nil {
		args = map[string]any{}
	}
	result, err := s.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		logger.Warn("Tool Execution Error (%s): %v", name, err)
		return (&assistant.ToolExecutionError{Tool: name, Err: err}).Error()
	}
	text := normalizeResult(result)
	if result.IsError {
		logger.Warn("Tool %s reported an error: %s", name, text)
		return (&assistant.ToolExecutionError{Tool: name, Err: errors.New(text)}).Error()
	}
	return text
}

// Close shuts the session down. Calling it more than once is safe.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.session != nil {
			s.closeErr = s.session.Close()
		}
	})
	return s.closeErr
}

func toToolDefinition(tool *mcp.Tool) (assistant.ToolDefinition, error) {
	def := assistant.ToolDefinition{
		Name:        tool.Name,
		Description: tool.Description,
	}
	if tool.InputSchema == nil {
		return def, nil
	}
	// The schema arrives as whatever the SDK decoded; normalize to a plain map.
	data, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return def, fmt.Errorf("tool %s schema: %w", tool.Name, err)
	}
	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		return def, fmt.Errorf("tool %s schema: %w", tool.Name, err)
	}
	def.Parameters = schema
	return def, nil
}

// normalizeResult takes the first text block, falling back to the structured
// content and then to the whole content list as JSON.
func normalizeResult(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	for _, c := range result.Content {
		if text, ok := c.(*mcp.TextContent); ok {
			return text.Text
		}
	}
	var payload any = result.Content
	if result.StructuredContent != nil {
		payload = result.StructuredContent
	}
	if len(result.Content) == 0 && result.StructuredContent == nil {
		return ""
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%v", payload)
	}
	return string(data)
}
