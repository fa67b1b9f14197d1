// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes Easel's templates and designs for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hollis/easel/internal/designstore"
	"github.com/hollis/easel/internal/library"
)

// Server wraps the MCP server with Easel tools.
type Server struct {
	mcp *server.MCPServer
	lib *library.Library
	svc *designstore.Service
}

// New creates a new MCP server with all Easel tools registered.
func New(lib *library.Library, svc *designstore.Service) *Server {
	s := &Server{lib: lib, svc: svc}

	s.mcp = server.NewMCPServer(
		"Easel",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List the surfaced template images with their dimensions and preview URLs."),
	), s.listTemplates)

	s.mcp.AddTool(mcp.NewTool("list_designs",
		mcp.WithDescription("List stored designs, newest first, optionally filtered by template."),
		mcp.WithString("template", mcp.Description("Optional template ID to filter by")),
	), s.listDesigns)

	s.mcp.AddTool(mcp.NewTool("get_design",
		mcp.WithDescription("Read the full stored document of a design."),
		mcp.WithString("design_id", mcp.Required(), mcp.Description("Design identifier (e.g. design_a1b2c3d4e5f6)")),
	), s.getDesign)

	s.mcp.AddTool(mcp.NewTool("save_design",
		mcp.WithDescription("Persist a design layout as JSON. Omit design_id to create a new design; "+
			"supplying an existing design_id overwrites it."),
		mcp.WithString("design_id", mcp.Description("Optional design identifier to overwrite")),
		mcp.WithString("template_id", mcp.Required(), mcp.Description("Template filename the design is built on")),
		mcp.WithString("design_json", mcp.Required(), mcp.Description("The layout document as a JSON string")),
	), s.saveDesign)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listTemplates(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templates, err := s.lib.Templates()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(templates, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listDesigns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templateID := ""
	if t, err := req.RequireString("template"); err == nil {
		templateID = t
	}
	designs, _, err := s.svc.List(ctx, 0, 0, templateID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(designs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getDesign(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	designID, err := req.RequireString("design_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.Get(ctx, designID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", designID)), nil
	}
	out, _ := json.MarshalIndent(doc, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) saveDesign(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templateID, err := req.RequireString("template_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	designJSON, err := req.RequireString("design_json")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !json.Valid([]byte(designJSON)) {
		return mcp.NewToolResultError("design_json is not valid JSON"), nil
	}

	designID := ""
	if id, idErr := req.RequireString("design_id"); idErr == nil {
		designID = id
	}

	doc, err := s.svc.Save(ctx, designID, templateID, json.RawMessage(designJSON))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", doc.DesignID)), nil
}
