// Package websocket provides the WebSocket transport for Huddle rooms.
//
// The package implements:
//   - Connection upgrade and room resolution by code
//   - Per-client read/write pumps with ping/pong keepalive
//   - Non-blocking, drop-on-full delivery into each client
//   - Disconnect reporting into the room on read-pump exit
//
// Architecture:
//
// The Hub is deliberately thin. It resolves the room code, upgrades the
// connection, and hands the resulting Client to the room. All routing,
// identity, and broadcast decisions live in the room package; the hub only
// moves bytes. Each connection gets two goroutines: readPump feeds inbound
// text frames to room.HandleMessage, writePump drains the client's buffered
// send channel one frame per protocol message.
//
// Delivery Semantics:
//
// Sends are fire-and-forget. Client.Send never blocks: a full buffer drops
// the frame and returns an error the room ignores. A dying peer therefore
// cannot stall a room or the other connections in it.
//
// Usage:
//
//	manager := room.NewManager()
//	hub := websocket.NewHub(manager)
//	mux.HandleFunc("/ws/{code}", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, mux.Vars(r)["code"])
//	})
package websocket
