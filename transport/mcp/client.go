package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"huddle/formation"
	"huddle/room"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string, version string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer(version)
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer(version string) {
	c.mcpServer = server.NewMCPServer(
		"Huddle Relay",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Huddle Relay - MCP Interface

This is a thin client that proxies all requests to the REST API server.

Huddle relays controller input from phones to a host screen. Each room is
identified by a six-character code; players join with a name and a jersey
number (1-15), and the host screen renders the lineup.

AVAILABLE TOOLS:
- list_rooms: List all live rooms
- room_state: Inspect one room (players, jersey numbers, connection counts)
- create_room: Create a room, generating a code if none is given
- delete_room: Tear down a room
- list_formations: List saved lineup formations
- get_formation: Fetch one formation, or "default" for the standard XV

Rooms hold no persistent state; deleting one drops its player directory and
the room is recreated on the next connection for that code.`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Rooms
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List all live rooms with player and connection counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "room_state",
		Description: "Get the state of one room: joined players, jersey numbers, host and connection counts",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"code": map[string]interface{}{
					"type":        "string",
					"description": "Six-character room code (case-insensitive)",
				},
			},
			Required: []string{"code"},
		},
	}, c.handleRoomState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_room",
		Description: "Create a room. A code is generated when none is given.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"code": map[string]interface{}{
					"type":        "string",
					"description": "Six-character room code to use (optional)",
				},
			},
		},
	}, c.handleCreateRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_room",
		Description: "Delete a room and drop its player directory",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"code": map[string]interface{}{
					"type":        "string",
					"description": "Six-character room code (case-insensitive)",
				},
			},
			Required: []string{"code"},
		},
	}, c.handleDeleteRoom)

	// Formations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_formations",
		Description: "List saved lineup formations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListFormations)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_formation",
		Description: "Fetch one lineup formation by name. Use \"default\" for the standard XV.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Formation name",
				},
			},
			Required: []string{"name"},
		},
	}, c.handleGetFormation)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count int         `json:"count"`
		Rooms []room.Info `json:"rooms"`
	}

	err := c.apiCall("GET", "/api/rooms", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Live Rooms (%d):\n\n", response.Count)
	for _, info := range response.Rooms {
		result += fmt.Sprintf("- %s (players: %d, hosts: %d, connections: %d, created: %s)\n",
			info.Code, len(info.Players), info.HostCount, info.Connections,
			info.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleRoomState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	code, _ := args["code"].(string)

	var info room.Info
	err := c.apiCall("GET", fmt.Sprintf("/api/rooms/%s", code), nil, &info)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoomInfo(&info)), nil
}

func (c *Client) handleCreateRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	code, _ := args["code"].(string)

	body := map[string]string{}
	if code != "" {
		body["code"] = code
	}

	var info room.Info
	err := c.apiCall("POST", "/api/rooms", body, &info)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created room: %s\nJoin URL path: /ws/%s\n", info.Code, info.Code)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleDeleteRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	code, _ := args["code"].(string)

	err := c.apiCall("DELETE", fmt.Sprintf("/api/rooms/%s", code), nil, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Deleted room %s", strings.ToUpper(code))), nil
}

func (c *Client) handleListFormations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count      int      `json:"count"`
		Formations []string `json:"formations"`
	}

	err := c.apiCall("GET", "/api/formations", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Saved Formations (%d):\n\n", response.Count)
	for _, name := range response.Formations {
		result += fmt.Sprintf("- %s\n", name)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetFormation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	name, _ := args["name"].(string)

	var f formation.Formation
	err := c.apiCall("GET", fmt.Sprintf("/api/formations/%s", name), nil, &f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatFormation(&f)), nil
}

// Formatting helpers

func formatRoomInfo(info *room.Info) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Room %s\n", info.Code)
	fmt.Fprintf(&sb, "Hosts: %d, Connections: %d\n", info.HostCount, info.Connections)
	fmt.Fprintf(&sb, "Created: %s, Last active: %s\n\n",
		info.CreatedAt.Format(time.RFC3339), info.LastActiveAt.Format(time.RFC3339))

	if len(info.Players) == 0 {
		sb.WriteString("No players joined.\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "Players (%d):\n", len(info.Players))
	for _, p := range info.Players {
		fmt.Fprintf(&sb, "  #%-2d %s (%s)\n", p.Number, p.Name, p.PlayerID)
	}
	return sb.String()
}

func formatFormation(f *formation.Formation) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Formation %q (%d positions):\n", f.Name, len(f.Positions))

	numbers := make([]int, 0, len(f.Positions))
	for number := range f.Positions {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)

	for _, number := range numbers {
		pos := f.Positions[number]
		fmt.Fprintf(&sb, "  #%-2d x=%.2f y=%.2f\n", number, pos.X, pos.Y)
	}
	return sb.String()
}
