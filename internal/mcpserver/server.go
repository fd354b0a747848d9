// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the read-only vault tools over stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/muninn/internal/index"
	"github.com/starford/muninn/internal/tools"
)

// StructureURI names the vault structure resource.
const StructureURI = "muninn://vault-structure"

// Server wraps the MCP server with the registry's immediate tools. Tools
// that need approval are not exposed.
type Server struct {
	mcp    *server.MCPServer
	reg    *tools.Registry
	idx    *index.VaultIndex
	logger *slog.Logger
	names  []string
}

// New creates a new MCP server with every immediate tool of reg registered.
func New(reg *tools.Registry, idx *index.VaultIndex, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{reg: reg, idx: idx, logger: logger}

	s.mcp = server.NewMCPServer(
		"Muninn",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	for _, t := range reg.Immediate() {
		s.mcp.AddTool(toolSchema(t), s.handler(t.Name))
		s.names = append(s.names, t.Name)
	}

	s.mcp.AddResource(
		mcp.NewResource(StructureURI, "Vault Structure",
			mcp.WithResourceDescription("Folders of the vault with their file counts and first file names."),
			mcp.WithMIMEType("text/plain"),
		),
		s.readStructure,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// ToolNames lists the exposed tools in registration order.
func (s *Server) ToolNames() []string {
	return s.names
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolSchema translates a tool declaration into an MCP tool.
func toolSchema(t tools.Tool) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(t.Description)}
	for _, p := range t.Params {
		props := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			props = append(props, mcp.Required())
		}
		switch p.Type {
		case tools.TypeInteger:
			opts = append(opts, mcp.WithNumber(p.Name, props...))
		case tools.TypeBoolean:
			opts = append(opts, mcp.WithBoolean(p.Name, props...))
		default:
			if len(p.Enum) > 0 {
				props = append(props, mcp.Enum(p.Enum...))
			}
			opts = append(opts, mcp.WithString(p.Name, props...))
		}
	}
	return mcp.NewTool(t.Name, opts...)
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := s.reg.Execute(ctx, name, req.GetArguments())
		if !res.Success {
			s.logger.Debug("mcp: tool failed", slog.String("tool", name), slog.String("error", res.Error))
			return mcp.NewToolResultError(res.Error), nil
		}
		return mcp.NewToolResultText(resultText(res)), nil
	}
}

// resultText renders a successful result: the text content, or the
// structured data as indented JSON when there is no text.
func resultText(res tools.Result) string {
	if res.Content != "" || res.Data == nil {
		return res.Content
	}
	out, err := json.MarshalIndent(res.Data, "", "  ")
	if err != nil {
		return res.Content
	}
	return string(out)
}

func (s *Server) readStructure(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      StructureURI,
			MIMEType: "text/plain",
			Text:     s.idx.StructureSummary(),
		},
	}, nil
}
