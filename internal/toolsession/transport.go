package toolsession

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// transportBuilder is overridden in tests to stub the transport factory.
var transportBuilder = buildTransport

const (
	stdioSchemePrefix = "stdio://"
	sseSchemePrefix   = "sse://"
)

// buildTransport turns an endpoint spec into an MCP client transport:
//
//	http(s)://host/mcp        streamable HTTP
//	http+sse://host/sse       server-sent events
//	sse://host/sse            server-sent events, https assumed
//	stdio://command args      subprocess speaking MCP over stdio
func buildTransport(ctx context.Context, spec string) (mcp.Transport, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("transport spec is empty")
	}

	lowered := strings.ToLower(spec)
	switch {
	case strings.HasPrefix(lowered, stdioSchemePrefix):
		return buildStdioTransport(ctx, spec[len(stdioSchemePrefix):])
	case strings.HasPrefix(lowered, sseSchemePrefix):
		endpoint, err := normalizeHTTPURL(spec[len(sseSchemePrefix):], true)
		if err != nil {
			return nil, fmt.Errorf("invalid SSE endpoint: %w", err)
		}
		return &mcp.SSEClientTransport{Endpoint: endpoint, HTTPClient: instrumentedClient()}, nil
	}

	u, err := url.Parse(spec)
	if err != nil || u.Scheme == "" {
		return nil, fmt.Errorf("unsupported transport spec %q", spec)
	}
	base, hint, hasHint := strings.Cut(strings.ToLower(u.Scheme), "+")
	if base != "http" && base != "https" {
		return nil, fmt.Errorf("unsupported transport scheme %q", u.Scheme)
	}
	normalized := *u
	normalized.Scheme = base
	endpoint, err := normalizeHTTPURL(normalized.String(), false)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP endpoint: %w", err)
	}

	if !hasHint {
		return &mcp.StreamableClientTransport{Endpoint: endpoint, HTTPClient: instrumentedClient()}, nil
	}
	switch hint {
	case "sse":
		return &mcp.SSEClientTransport{Endpoint: endpoint, HTTPClient: instrumentedClient()}, nil
	case "stream", "streamable", "http":
		return &mcp.StreamableClientTransport{Endpoint: endpoint, HTTPClient: instrumentedClient()}, nil
	default:
		return nil, fmt.Errorf("unsupported HTTP transport hint %q", hint)
	}
}

func buildStdioTransport(ctx context.Context, cmdSpec string) (mcp.Transport, error) {
	parts := strings.Fields(cmdSpec)
	if len(parts) == 0 {
		return nil, fmt.Errorf("stdio command is empty")
	}
	// #nosec G204 -- the command comes from local configuration
	command := exec.CommandContext(ctx, parts[0], parts[1:]...)
	return &mcp.CommandTransport{Command: command}, nil
}

func instrumentedClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

func normalizeHTTPURL(raw string, allowSchemeGuess bool) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("endpoint is empty")
	}
	if allowSchemeGuess && !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("missing host")
	}
	parsed.Scheme = scheme
	return parsed.String(), nil
}
