package room

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Room coordinates one lineup session: it routes inbound frames, runs the
// join protocol against the player directory, and forwards lifecycle and
// input events to every host connection.
//
// All state mutation happens under a single mutex, so each inbound event
// (one frame, one connect, one disconnect) runs to completion before the
// next begins.
type Room struct {
	code string

	mu         sync.Mutex
	directory  *Directory
	registry   *Registry
	createdAt  time.Time
	lastActive time.Time
}

// Info is an observable snapshot of a room, served by the REST API and the
// MCP tools.
type Info struct {
	Code         string         `json:"code"`
	Players      []PlayerRecord `json:"players"`
	HostCount    int            `json:"host_count"`
	Connections  int            `json:"connections"`
	CreatedAt    time.Time      `json:"created_at"`
	LastActiveAt time.Time      `json:"last_active_at"`
}

// New creates an empty room for the given (already normalized) code.
func New(code string) *Room {
	now := time.Now()
	return &Room{
		code:       code,
		directory:  NewDirectory(),
		registry:   NewRegistry(),
		createdAt:  now,
		lastActive: now,
	}
}

// Code returns the room code.
func (r *Room) Code() string {
	return r.code
}

// HandleConnect registers a fresh, unassigned connection.
func (r *Room) HandleConnect(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.registry.Track(c)
	r.lastActive = time.Now()
}

// HandleMessage processes one text frame from c. Every outcome, including
// malformed input, leaves the room able to keep serving; nothing here is
// fatal to the session.
func (r *Room) HandleMessage(c Conn, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		r.sendTo(c, errorMsg{Type: TypeError, Error: ErrCodeInvalidJSON})
		return
	}

	switch {
	case in.Type == TypeJoin && in.Role == "host":
		r.handleHostJoin(c)
	case in.Type == TypeJoinRequest && in.Role == "player":
		r.handleJoinRequest(c, in)
	case in.Type == TypeInput:
		r.handleInput(c, in)
	default:
		r.sendTo(c, errorMsg{Type: TypeError, Error: ErrCodeUnknownMessageType})
	}
}

// handleHostJoin binds the sender as a host and acknowledges with "ready".
// Any number of connections may become hosts; each one is a broadcast target
// until it disconnects. A repeated host join from the same connection is an
// idempotent acknowledgment.
func (r *Room) handleHostJoin(c Conn) {
	if !r.registry.Attach(c, Identity{Role: RoleHost}) {
		// Bound as a player already; identities are immutable per connection.
		log.Printf("room %s: host join from player connection ignored", r.code)
		return
	}
	r.sendTo(c, readyMsg{Type: TypeReady})
}

// handleJoinRequest runs the directory transaction for a player join. On
// acceptance the sender is bound to the player identity, acknowledged, and
// announced to the hosts; on rejection only the sender hears about it.
func (r *Room) handleJoinRequest(c Conn, in inbound) {
	number, ok := jerseyNumber(in.Number)
	if !ok {
		r.sendTo(c, joinRejectedMsg{Type: TypeJoinRejected, Reason: RejectInvalidNumber})
		return
	}

	res := r.directory.Join(in.PlayerID, in.Name, number)
	if !res.Accepted {
		r.sendTo(c, joinRejectedMsg{Type: TypeJoinRejected, Reason: res.Reason})
		return
	}

	r.registry.Attach(c, Identity{Role: RolePlayer, PlayerID: res.Player.PlayerID})

	r.sendTo(c, joinAcceptedMsg{
		Type:     TypeJoinAccepted,
		PlayerID: res.Player.PlayerID,
		Name:     res.Player.Name,
		Number:   res.Player.Number,
	})
	r.sendToHosts(playerJoinedMsg{
		Type:     TypePlayerJoined,
		PlayerID: res.Player.PlayerID,
		Name:     res.Player.Name,
		Number:   res.Player.Number,
	})
}

// handleInput forwards a movement frame to the hosts. The playerId on the
// frame itself is never trusted; the identity bound at join time is the one
// that gets forwarded. Velocities pass through unclamped, the host clamps on
// its side.
func (r *Room) handleInput(c Conn, in inbound) {
	id := r.registry.IdentityOf(c)
	if id.Role != RolePlayer {
		r.sendTo(c, errorMsg{Type: TypeError, Error: ErrCodeNotAPlayer})
		return
	}
	if _, ok := r.directory.Lookup(id.PlayerID); !ok {
		r.sendTo(c, errorMsg{Type: TypeError, Error: ErrCodeNotJoined})
		return
	}

	r.sendToHosts(inputMsg{
		Type:     TypeInput,
		PlayerID: id.PlayerID,
		Vx:       in.Vx,
		Vy:       in.Vy,
		T:        in.T,
	})
}

// HandleDisconnect removes a closed connection. A departing player frees
// their jersey number and the hosts are told; a departing host needs no
// cleanup, the room keeps serving the remaining connections and a later host
// join is accepted as usual.
func (r *Room) HandleDisconnect(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.registry.IdentityOf(c)
	r.registry.Detach(c)
	r.lastActive = time.Now()

	if id.Role == RolePlayer && r.directory.Leave(id.PlayerID) {
		r.sendToHosts(playerLeftMsg{Type: TypePlayerLeft, PlayerID: id.PlayerID})
	}
}

// Snapshot returns the room's observable state.
func (r *Room) Snapshot() Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Info{
		Code:         r.code,
		Players:      r.directory.Players(),
		HostCount:    r.registry.HostCount(),
		Connections:  r.registry.Len(),
		CreatedAt:    r.createdAt,
		LastActiveAt: r.lastActive,
	}
}

// ConnectionCount returns the number of live connections in the room.
func (r *Room) ConnectionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registry.Len()
}

// LastActive returns the time of the room's most recent connect, frame, or
// disconnect.
func (r *Room) LastActive() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActive
}

// sendTo delivers one message to a single connection.
func (r *Room) sendTo(c Conn, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("room %s: marshal %T: %v", r.code, msg, err)
		return
	}
	// Fire-and-forget: the transport owns teardown of broken connections.
	_ = c.Send(data)
}

// sendToHosts serializes msg once and delivers it to every host connection.
// A failed send to one host never blocks delivery to the others.
func (r *Room) sendToHosts(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("room %s: marshal %T: %v", r.code, msg, err)
		return
	}
	for _, host := range r.registry.Hosts() {
		_ = host.Send(data)
	}
}
