package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// defaultMCPTimeout bounds the connect-and-list round trip against a
// user-supplied server.
const defaultMCPTimeout = 300 * time.Second

type MCPHandler struct {
	// Dial overrides transport construction, used by tests to swap in an
	// in-memory transport.
	Dial func(req MCPServerMetadataRequest) (mcp.Transport, error)
}

func (h *MCPHandler) Register(g *echo.Group) {
	g.POST("/mcp/server/metadata", h.serverMetadata)
}

// serverMetadata connects to an MCP server, lists its tools and echoes the
// request back with the tool inventory attached.
func (h *MCPHandler) serverMetadata(c echo.Context) error {
	var req MCPServerMetadataRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	dial := h.Dial
	if dial == nil {
		dial = dialTransport
	}
	transport, err := dial(req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	timeout := defaultMCPTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{Name: "deepwander", Version: "0.1.0"}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("connect to mcp server: %v", err))
	}
	defer session.Close()

	listed, err := session.ListTools(ctx, nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("list tools: %v", err))
	}

	resp := MCPServerMetadataResponse{
		Transport: req.Transport,
		Command:   req.Command,
		Args:      req.Args,
		Env:       req.Env,
		URL:       req.URL,
		Tools:     []MCPTool{},
	}
	for _, tool := range listed.Tools {
		resp.Tools = append(resp.Tools, MCPTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func dialTransport(req MCPServerMetadataRequest) (mcp.Transport, error) {
	switch req.Transport {
	case "stdio":
		if req.Command == "" {
			return nil, fmt.Errorf("command is required for stdio transport")
		}
		cmd := exec.Command(req.Command, req.Args...)
		cmd.Env = os.Environ()
		for k, v := range req.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
		return &mcp.CommandTransport{Command: cmd}, nil
	case "sse":
		if req.URL == "" {
			return nil, fmt.Errorf("url is required for sse transport")
		}
		return &mcp.SSEClientTransport{Endpoint: req.URL}, nil
	default:
		return nil, fmt.Errorf("unsupported transport: %s", req.Transport)
	}
}
