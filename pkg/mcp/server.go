// Package mcp exposes the calculator as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/l3aro/go-calculadora/internal/log"
	"github.com/l3aro/go-calculadora/pkg/calculator"
	"github.com/l3aro/go-calculadora/pkg/client"
)

// Computer runs a named operation. *client.Router satisfies it.
type Computer interface {
	Compute(ctx context.Context, op calculator.Op, a, b int) (client.Outcome, error)
}

// OperationResult is the JSON body returned by the add and divide tools
type OperationResult struct {
	Operation string `json:"operation"`
	A         int    `json:"a"`
	B         int    `json:"b"`
	Result    int    `json:"result"`
	Via       string `json:"via"`
}

// CalcServer wraps the MCP server with the calculator tools registered
type CalcServer struct {
	server   *server.MCPServer
	computer Computer
	logger   log.Logger
	version  string
}

// NewCalcServer creates an MCP server answering through computer
func NewCalcServer(version string, computer Computer, logger log.Logger) *CalcServer {
	if logger == nil {
		logger = log.Discard()
	}
	s := &CalcServer{
		server:   server.NewMCPServer("Calculadora MCP", version),
		computer: computer,
		logger:   logger,
		version:  version,
	}

	s.registerTools()

	return s
}

// Server returns the underlying MCP server
func (s *CalcServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio serves MCP requests on stdin/stdout until EOF
func (s *CalcServer) ServeStdio() error {
	return server.ServeStdio(s.server)
}

func (s *CalcServer) registerTools() {
	pingTool := mcp.NewTool("ping",
		mcp.WithDescription("Simple ping tool to test connection"),
	)
	s.server.AddTool(pingTool, s.Ping)

	addTool := mcp.NewTool("add",
		mcp.WithDescription("Add two integers"),
		mcp.WithNumber("a",
			mcp.Required(),
			mcp.Description("First addend"),
		),
		mcp.WithNumber("b",
			mcp.Required(),
			mcp.Description("Second addend"),
		),
	)
	s.server.AddTool(addTool, s.Add)

	divideTool := mcp.NewTool("divide",
		mcp.WithDescription("Divide two integers, truncating toward zero. Fails when b is 0"),
		mcp.WithNumber("a",
			mcp.Required(),
			mcp.Description("Dividend"),
		),
		mcp.WithNumber("b",
			mcp.Required(),
			mcp.Description("Divisor"),
		),
	)
	s.server.AddTool(divideTool, s.Divide)
}

// Ping handles the ping command
func (s *CalcServer) Ping(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Debug("Received ping request")
	return mcp.NewToolResultText("pong - Calculadora " + s.version + " is connected!"), nil
}

// Add handles the add command
func (s *CalcServer) Add(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.compute(ctx, calculator.OpAdd, request)
}

// Divide handles the divide command
func (s *CalcServer) Divide(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.compute(ctx, calculator.OpDivide, request)
}

func (s *CalcServer) compute(ctx context.Context, op calculator.Op, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Debug("Received operation request", "op", string(op))

	a, err := intArgument(request, "a")
	if err != nil {
		return newErrorResult("%v", err), nil
	}
	b, err := intArgument(request, "b")
	if err != nil {
		return newErrorResult("%v", err), nil
	}

	out, err := s.computer.Compute(ctx, op, a, b)
	if err != nil {
		if errors.Is(err, calculator.ErrDivisionByZero) {
			s.logger.Debug("Division by zero", "a", a)
		} else {
			s.logger.Error("Operation failed", "op", string(op), "error", err)
		}
		return newErrorResult("%v", err), nil
	}

	return newToolResultJSON(OperationResult{
		Operation: string(op),
		A:         a,
		B:         b,
		Result:    out.Value,
		Via:       out.Via,
	})
}

// intArgument reads a required integral number argument
func intArgument(request mcp.CallToolRequest, name string) (int, error) {
	raw, ok := request.Params.Arguments[name]
	if !ok || raw == nil {
		return 0, fmt.Errorf("missing required argument %q", name)
	}
	f, ok := raw.(float64)
	if !ok {
		return 0, fmt.Errorf("argument %q must be a number", name)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("argument %q must be an integer, got %v", name, f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("argument %q out of range", name)
	}
	return int(f), nil
}

func newToolResultJSON(data interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return newErrorResult("failed to serialize data: %v", err), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// newErrorResult creates a tool result that represents an error
func newErrorResult(format string, args ...interface{}) *mcp.CallToolResult {
	result := mcp.NewToolResultText(fmt.Sprintf("Error: "+format, args...))
	result.IsError = true
	return result
}
