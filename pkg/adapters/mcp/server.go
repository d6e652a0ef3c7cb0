// Package mcp exposes the tool-call pipeline as an MCP server, so MCP-capable
// agent hosts can drive the same validated, idempotent pipeline the realtime
// bridge uses.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Pipeline defines the interface required to handle tool calls.
type Pipeline interface {
	Handle(ctx context.Context, req domain.ToolCallRequest) domain.ToolResult
}

// Server wraps the pipeline and exposes it as an MCP Server.
type Server struct {
	pipeline  Pipeline
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(pipeline Pipeline) *Server {
	s := &Server{
		pipeline:  pipeline,
		mcpServer: server.NewMCPServer("parley-mcp", parley.Version),
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(domain.ToolCreateAppointment,
		mcp.WithDescription("Create a calendar appointment and send a confirmation email. Deduplicated by appointment content."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Appointment title")),
		mcp.WithString("start_time", mcp.Required(), mcp.Description("Start time, ISO-8601 with offset")),
		mcp.WithString("end_time", mcp.Required(), mcp.Description("End time, ISO-8601 with offset")),
		mcp.WithString("attendee_email", mcp.Required(), mcp.Description("Primary attendee email address")),
		mcp.WithString("description", mcp.Description("Appointment description")),
		mcp.WithString("timezone", mcp.Description("IANA timezone label (default UTC)")),
		mcp.WithBoolean("send_email", mcp.Description("Send a confirmation email (default true)")),
		mcp.WithString("call_id", mcp.Description("Associated call ID")),
		mcp.WithString("org_id", mcp.Description("Organization ID")),
	), s.handleTool(domain.ToolCreateAppointment))

	s.mcpServer.AddTool(mcp.NewTool(domain.ToolEscalateCall,
		mcp.WithDescription("Escalate the current call to a human agent."),
		mcp.WithString("reason", mcp.Description("Why the call is being escalated")),
		mcp.WithString("urgency", mcp.Description("low, medium or high (default medium)")),
		mcp.WithString("call_id", mcp.Description("Associated call ID")),
	), s.handleTool(domain.ToolEscalateCall))

	s.mcpServer.AddTool(mcp.NewTool(domain.ToolCompleteIntake,
		mcp.WithDescription("Mark the intake conversation as completed."),
		mcp.WithString("call_id", mcp.Description("Associated call ID")),
	), s.handleTool(domain.ToolCompleteIntake))

	s.mcpServer.AddTool(mcp.NewTool(domain.ToolEndCall,
		mcp.WithDescription("End the current call."),
		mcp.WithString("reason", mcp.Description("Why the call ended (default completed)")),
		mcp.WithString("call_id", mcp.Description("Associated call ID")),
	), s.handleTool(domain.ToolEndCall))
}

func (s *Server) handleTool(toolName string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		callID, _ := args["call_id"].(string)
		orgID, _ := args["org_id"].(string)

		result := s.pipeline.Handle(ctx, domain.ToolCallRequest{
			ToolName: toolName,
			ToolArgs: args,
			CallID:   callID,
			OrgID:    orgID,
		})

		jsonBytes, err := json.Marshal(result)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
		}
		if !result.Success && !result.ShouldRetry {
			return mcp.NewToolResultError(string(jsonBytes)), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	}
}
