package tool

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"parley/internal/domain"
)

// fakeMCPClient scripts MCP server behavior.
type fakeMCPClient struct {
	tools      []mcp.Tool
	listErr    error
	callResult *mcp.CallToolResult
	callErr    error
	closed     bool
}

func (f *fakeMCPClient) ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &mcp.ListToolsResult{Tools: f.tools}, nil
}

func (f *fakeMCPClient) CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	return f.callResult, nil
}

func (f *fakeMCPClient) Close() error {
	f.closed = true
	return nil
}

func TestMCPBridgeDiscoversAndNamesTools(t *testing.T) {
	client := &fakeMCPClient{tools: []mcp.Tool{
		{Name: "read-file", Description: "Read a file"},
		{Name: "calc", Description: "Calculate"},
	}}

	b, err := newMCPBridgeWithClients(context.Background(), []mcpServerConn{
		{name: "local", client: client},
	}, discardLogger())
	if err != nil {
		t.Fatalf("newMCPBridgeWithClients: %v", err)
	}

	tools := b.Tools()
	if len(tools) != 2 {
		t.Fatalf("tools = %d, want 2", len(tools))
	}
	if tools[0].Name() != "mcp_local_read_file" {
		t.Errorf("name = %q", tools[0].Name())
	}
}

func TestMCPBridgeAllServersFailing(t *testing.T) {
	client := &fakeMCPClient{listErr: fmt.Errorf("connection refused")}

	_, err := newMCPBridgeWithClients(context.Background(), []mcpServerConn{
		{name: "broken", client: client},
	}, discardLogger())
	if err == nil {
		t.Error("expected error when every server fails discovery")
	}
}

func TestMCPBridgePartialFailureIsTolerated(t *testing.T) {
	good := &fakeMCPClient{tools: []mcp.Tool{{Name: "calc"}}}
	bad := &fakeMCPClient{listErr: fmt.Errorf("down")}

	b, err := newMCPBridgeWithClients(context.Background(), []mcpServerConn{
		{name: "good", client: good},
		{name: "bad", client: bad},
	}, discardLogger())
	if err != nil {
		t.Fatalf("partial failure must not abort: %v", err)
	}
	if len(b.Tools()) != 1 {
		t.Errorf("tools = %d, want 1", len(b.Tools()))
	}
}

func TestMCPToolAdapterExecute(t *testing.T) {
	client := &fakeMCPClient{
		tools: []mcp.Tool{{Name: "calc"}},
		callResult: &mcp.CallToolResult{
			Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "42"}},
		},
	}
	b, err := newMCPBridgeWithClients(context.Background(), []mcpServerConn{
		{name: "local", client: client},
	}, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	out, err := b.Tools()[0].Execute(context.Background(), map[string]any{"query": "6*7"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	result := out.(map[string]any)
	if result["content"] != "42" {
		t.Errorf("content = %v", result["content"])
	}
}

func TestMCPToolAdapterErrorResult(t *testing.T) {
	client := &fakeMCPClient{
		tools: []mcp.Tool{{Name: "calc"}},
		callResult: &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "division by zero"}},
		},
	}
	b, err := newMCPBridgeWithClients(context.Background(), []mcpServerConn{
		{name: "local", client: client},
	}, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	_, err = b.Tools()[0].Execute(context.Background(), map[string]any{"query": "1/0"})
	if !errors.Is(err, domain.ErrToolFailure) {
		t.Errorf("err = %v, want ErrToolFailure", err)
	}
}

func TestMCPBridgeClose(t *testing.T) {
	client := &fakeMCPClient{tools: []mcp.Tool{{Name: "calc"}}}
	b, err := newMCPBridgeWithClients(context.Background(), []mcpServerConn{
		{name: "local", client: client},
	}, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	b.Close()
	if !client.closed {
		t.Error("client not closed")
	}
}
