// Package mcp provides the Model Context Protocol interface for the Huddle
// relay server.
//
// The mcp package implements:
//   - MCP server for AI agent integration
//   - Tool definitions for room and formation inspection
//   - A thin HTTP proxy onto the REST API
//
// MCP Tools:
//
// The package exposes the following tools for AI agents:
//   - list_rooms: List all live rooms
//   - room_state: Inspect one room's players and connection counts
//   - create_room: Create a room, generating a code when none is given
//   - delete_room: Tear down a room
//   - list_formations: List saved lineup formations
//   - get_formation: Fetch one formation by name
//
// Architecture:
//
// The Client never touches room state directly. Every tool call becomes a
// REST request against the API server, so MCP sees exactly what any other
// API consumer sees, and the relay keeps a single mutation path.
//
// Transport Modes:
//
// The server supports two transport modes:
//   - Stdio: Direct stdio communication for local MCP clients
//   - HTTP: POST /mcp endpoint on the main server
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080", version)
//
//	// Stdio mode
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP mode
//	http.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
//		body, _ := io.ReadAll(r.Body)
//		resp := client.GetMCPServer().HandleMessage(r.Context(), body)
//		json.NewEncoder(w).Encode(resp)
//	})
package mcp
