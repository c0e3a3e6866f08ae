package bridge

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ServerName identifies the bridge during the MCP handshake.
const ServerName = "task-api-mcp-server"

// NewServer builds an MCP server exposing the Task API tools.
func NewServer(api TaskAPI, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)
	registry := NewToolRegistry()
	RegisterTaskTools(registry, api)
	registry.Install(server)
	return server
}

// HTTPHandler serves server over MCP streamable HTTP.
func HTTPHandler(server *mcp.Server) http.Handler {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
	return otelhttp.NewHandler(handler, "mcpbridge")
}

// ServeStdio runs server over stdin/stdout until ctx is done or the client disconnects.
func ServeStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
