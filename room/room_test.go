package room

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

// fakeConn captures frames the room sends, optionally failing every send.
type fakeConn struct {
	frames  [][]byte
	sendErr error
}

func (c *fakeConn) Send(data []byte) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.frames = append(c.frames, data)
	return nil
}

func (c *fakeConn) decoded(t *testing.T) []map[string]any {
	t.Helper()
	result := make([]map[string]any, 0, len(c.frames))
	for _, frame := range c.frames {
		var msg map[string]any
		if err := json.Unmarshal(frame, &msg); err != nil {
			t.Fatalf("Failed to unmarshal sent frame %q: %v", frame, err)
		}
		result = append(result, msg)
	}
	return result
}

func (c *fakeConn) lastMessage(t *testing.T) map[string]any {
	t.Helper()
	msgs := c.decoded(t)
	if len(msgs) == 0 {
		t.Fatal("Expected at least one sent frame")
	}
	return msgs[len(msgs)-1]
}

func send(r *Room, c Conn, format string, args ...any) {
	r.HandleMessage(c, []byte(fmt.Sprintf(format, args...)))
}

func joinHost(t *testing.T, r *Room) *fakeConn {
	t.Helper()
	h := &fakeConn{}
	r.HandleConnect(h)
	send(r, h, `{"type":"join","role":"host"}`)
	if got := h.lastMessage(t)["type"]; got != TypeReady {
		t.Fatalf("Expected host to receive %q, got %v", TypeReady, got)
	}
	return h
}

func joinPlayer(t *testing.T, r *Room, playerID, name string, number int) *fakeConn {
	t.Helper()
	p := &fakeConn{}
	r.HandleConnect(p)
	send(r, p, `{"type":"join_request","role":"player","playerId":%q,"name":%q,"number":%d}`, playerID, name, number)
	if got := p.lastMessage(t)["type"]; got != TypeJoinAccepted {
		t.Fatalf("Expected %q for player %s, got %v", TypeJoinAccepted, playerID, got)
	}
	return p
}

// Scenario: a host joins and is acknowledged with "ready".
func TestHostJoinReady(t *testing.T) {
	r := New("ABC234")
	joinHost(t, r)
}

// Scenario: a first player join is accepted and announced to the host.
func TestPlayerJoinAcceptedAndBroadcast(t *testing.T) {
	r := New("ABC234")
	h := joinHost(t, r)
	p1 := joinPlayer(t, r, "p1", "Alice", 7)

	accepted := p1.lastMessage(t)
	if accepted["playerId"] != "p1" || accepted["name"] != "Alice" || accepted["number"] != float64(7) {
		t.Errorf("Unexpected join_accepted payload: %v", accepted)
	}

	joined := h.lastMessage(t)
	if joined["type"] != TypePlayerJoined {
		t.Fatalf("Expected host to receive %q, got %v", TypePlayerJoined, joined["type"])
	}
	if joined["playerId"] != "p1" || joined["name"] != "Alice" || joined["number"] != float64(7) {
		t.Errorf("Unexpected player_joined payload: %v", joined)
	}
}

// Scenario: a second player requesting a taken number is rejected and the
// host hears nothing about it.
func TestPlayerJoinNumberTaken(t *testing.T) {
	r := New("ABC234")
	h := joinHost(t, r)
	joinPlayer(t, r, "p1", "Alice", 7)
	hostFrames := len(h.frames)

	p2 := &fakeConn{}
	r.HandleConnect(p2)
	send(r, p2, `{"type":"join_request","role":"player","playerId":"p2","name":"Bob","number":7}`)

	rejected := p2.lastMessage(t)
	if rejected["type"] != TypeJoinRejected || rejected["reason"] != RejectNumberTaken {
		t.Errorf("Expected join_rejected/number_taken, got %v", rejected)
	}
	if len(h.frames) != hostFrames {
		t.Errorf("Expected no broadcast for a rejected join, host got %d new frames", len(h.frames)-hostFrames)
	}
}

func TestPlayerJoinInvalidNumber(t *testing.T) {
	r := New("ABC234")

	tests := []struct {
		name  string
		frame string
	}{
		{"missing number", `{"type":"join_request","role":"player","playerId":"p1","name":"Alice"}`},
		{"fractional number", `{"type":"join_request","role":"player","playerId":"p1","name":"Alice","number":7.5}`},
		{"number out of range", `{"type":"join_request","role":"player","playerId":"p1","name":"Alice","number":16}`},
		{"empty name", `{"type":"join_request","role":"player","playerId":"p1","name":"  ","number":7}`},
		{"empty playerId", `{"type":"join_request","role":"player","playerId":"","name":"Alice","number":7}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeConn{}
			r.HandleConnect(p)
			r.HandleMessage(p, []byte(tt.frame))

			got := p.lastMessage(t)
			if got["type"] != TypeJoinRejected || got["reason"] != RejectInvalidNumber {
				t.Errorf("Expected join_rejected/invalid_number, got %v", got)
			}
		})
	}
}

// Scenario: input from a joined player reaches the host unchanged.
func TestInputForwardedToHost(t *testing.T) {
	r := New("ABC234")
	h := joinHost(t, r)
	p1 := joinPlayer(t, r, "p1", "Alice", 7)

	send(r, p1, `{"type":"input","playerId":"p1","vx":0.5,"vy":-0.5,"t":1000}`)

	forwarded := h.lastMessage(t)
	if forwarded["type"] != TypeInput {
		t.Fatalf("Expected host to receive input, got %v", forwarded["type"])
	}
	if forwarded["playerId"] != "p1" || forwarded["vx"] != 0.5 || forwarded["vy"] != -0.5 || forwarded["t"] != float64(1000) {
		t.Errorf("Unexpected forwarded input: %v", forwarded)
	}
}

// The playerId on an input frame is never trusted; the identity bound at
// join time is what the hosts see.
func TestInputPlayerIDSpoofIgnored(t *testing.T) {
	r := New("ABC234")
	h := joinHost(t, r)
	joinPlayer(t, r, "p2", "Bob", 8)
	p1 := joinPlayer(t, r, "p1", "Alice", 7)

	send(r, p1, `{"type":"input","playerId":"p2","vx":1,"vy":0,"t":5}`)

	forwarded := h.lastMessage(t)
	if forwarded["playerId"] != "p1" {
		t.Errorf("Expected forwarded playerId p1 (bound identity), got %v", forwarded["playerId"])
	}
}

func TestInputFromNonPlayer(t *testing.T) {
	r := New("ABC234")
	h := joinHost(t, r)
	hostFrames := len(h.frames)

	// Never joined at all.
	stranger := &fakeConn{}
	r.HandleConnect(stranger)
	send(r, stranger, `{"type":"input","playerId":"p1","vx":1,"vy":1,"t":1}`)
	if got := stranger.lastMessage(t); got["type"] != TypeError || got["error"] != ErrCodeNotAPlayer {
		t.Errorf("Expected error/not_a_player for stranger, got %v", got)
	}

	// Bound as host.
	send(r, h, `{"type":"input","playerId":"p1","vx":1,"vy":1,"t":1}`)
	if got := h.lastMessage(t); got["type"] != TypeError || got["error"] != ErrCodeNotAPlayer {
		t.Errorf("Expected error/not_a_player for host, got %v", got)
	}

	// Neither produced a host-visible input event (the host's own frames are
	// its ready ack plus the error reply).
	for _, msg := range h.decoded(t)[hostFrames:] {
		if msg["type"] == TypeInput {
			t.Errorf("Expected no forwarded input, host saw %v", msg)
		}
	}
}

func TestInputFromStalePlayer(t *testing.T) {
	r := New("ABC234")
	joinHost(t, r)
	p1 := joinPlayer(t, r, "p1", "Alice", 7)

	// Directory cleared out-of-band while the connection stays bound.
	r.mu.Lock()
	r.directory.Leave("p1")
	r.mu.Unlock()

	send(r, p1, `{"type":"input","playerId":"p1","vx":1,"vy":0,"t":1}`)
	if got := p1.lastMessage(t); got["type"] != TypeError || got["error"] != ErrCodeNotJoined {
		t.Errorf("Expected error/not_joined, got %v", got)
	}
}

func TestMalformedAndUnknownFrames(t *testing.T) {
	r := New("ABC234")
	c := &fakeConn{}
	r.HandleConnect(c)

	r.HandleMessage(c, []byte(`{not json`))
	if got := c.lastMessage(t); got["error"] != ErrCodeInvalidJSON {
		t.Errorf("Expected invalid_json, got %v", got)
	}

	r.HandleMessage(c, []byte(`{"type":"dance"}`))
	if got := c.lastMessage(t); got["error"] != ErrCodeUnknownMessageType {
		t.Errorf("Expected unknown_message_type, got %v", got)
	}

	// A join with the wrong role is not a recognized frame either.
	r.HandleMessage(c, []byte(`{"type":"join","role":"player"}`))
	if got := c.lastMessage(t); got["error"] != ErrCodeUnknownMessageType {
		t.Errorf("Expected unknown_message_type for join without host role, got %v", got)
	}

	// None of this binds an identity or touches the directory.
	snap := r.Snapshot()
	if len(snap.Players) != 0 || snap.HostCount != 0 {
		t.Errorf("Expected untouched room state, got %+v", snap)
	}
}

// Multiple host connections are an intentional property of the relay: every
// connection that ever completed a host join receives broadcasts until it
// disconnects.
func TestMultipleHostsAllReceiveBroadcasts(t *testing.T) {
	r := New("ABC234")
	h1 := joinHost(t, r)
	h2 := joinHost(t, r)

	joinPlayer(t, r, "p1", "Alice", 7)

	for i, h := range []*fakeConn{h1, h2} {
		if got := h.lastMessage(t)["type"]; got != TypePlayerJoined {
			t.Errorf("Expected host %d to receive player_joined, got %v", i+1, got)
		}
	}
}

func TestRepeatedHostJoinIdempotent(t *testing.T) {
	r := New("ABC234")
	h := joinHost(t, r)

	send(r, h, `{"type":"join","role":"host"}`)
	if got := h.lastMessage(t)["type"]; got != TypeReady {
		t.Errorf("Expected repeated host join to be acknowledged, got %v", got)
	}
	if n := r.Snapshot().HostCount; n != 1 {
		t.Errorf("Expected a single host binding, got %d", n)
	}
}

// A player connection keeps its identity even if it later sends a host join.
func TestPlayerCannotBecomeHost(t *testing.T) {
	r := New("ABC234")
	h := joinHost(t, r)
	p1 := joinPlayer(t, r, "p1", "Alice", 7)

	send(r, p1, `{"type":"join","role":"host"}`)

	// Still only the real host receives broadcasts.
	joinPlayer(t, r, "p2", "Bob", 8)
	if got := h.lastMessage(t)["type"]; got != TypePlayerJoined {
		t.Errorf("Expected host to receive player_joined, got %v", got)
	}
	for _, msg := range p1.decoded(t) {
		if msg["type"] == TypePlayerJoined {
			t.Errorf("Expected player connection to receive no broadcasts, saw %v", msg)
		}
	}
}

// Scenario: a player disconnect frees the number and notifies the hosts.
func TestPlayerDisconnect(t *testing.T) {
	r := New("ABC234")
	h := joinHost(t, r)
	p1 := joinPlayer(t, r, "p1", "Alice", 7)

	r.HandleDisconnect(p1)

	left := h.lastMessage(t)
	if left["type"] != TypePlayerLeft || left["playerId"] != "p1" {
		t.Errorf("Expected player_left for p1, got %v", left)
	}

	// Number 7 is free again for anyone.
	joinPlayer(t, r, "p9", "Nina", 7)
}

func TestHostDisconnectIsQuiet(t *testing.T) {
	r := New("ABC234")
	h1 := joinHost(t, r)
	h2 := joinHost(t, r)

	r.HandleDisconnect(h1)

	// The room keeps serving the remaining host.
	joinPlayer(t, r, "p1", "Alice", 7)
	if got := h2.lastMessage(t)["type"]; got != TypePlayerJoined {
		t.Errorf("Expected surviving host to receive player_joined, got %v", got)
	}
	// And a fresh host join is accepted as usual.
	joinHost(t, r)
}

func TestUnassignedDisconnectIsQuiet(t *testing.T) {
	r := New("ABC234")
	h := joinHost(t, r)
	hostFrames := len(h.frames)

	c := &fakeConn{}
	r.HandleConnect(c)
	r.HandleDisconnect(c)

	if len(h.frames) != hostFrames {
		t.Errorf("Expected no broadcast for an unassigned disconnect, host got %d new frames", len(h.frames)-hostFrames)
	}
	if r.ConnectionCount() != 1 {
		t.Errorf("Expected 1 remaining connection, got %d", r.ConnectionCount())
	}
}

// A failing host socket must not stop delivery to the healthy ones.
func TestBroadcastSurvivesFailingHost(t *testing.T) {
	r := New("ABC234")
	broken := &fakeConn{sendErr: errors.New("use of closed network connection")}
	r.HandleConnect(broken)
	send(r, broken, `{"type":"join","role":"host"}`) // ready ack fails, binding still holds
	healthy := joinHost(t, r)

	joinPlayer(t, r, "p1", "Alice", 7)

	if got := healthy.lastMessage(t)["type"]; got != TypePlayerJoined {
		t.Errorf("Expected healthy host to receive player_joined, got %v", got)
	}
}

func TestSnapshot(t *testing.T) {
	r := New("ABC234")
	joinHost(t, r)
	joinPlayer(t, r, "p1", "Alice", 7)
	joinPlayer(t, r, "p2", "Bob", 3)

	snap := r.Snapshot()
	if snap.Code != "ABC234" {
		t.Errorf("Expected code ABC234, got %s", snap.Code)
	}
	if snap.HostCount != 1 || snap.Connections != 3 {
		t.Errorf("Expected 1 host / 3 connections, got %d / %d", snap.HostCount, snap.Connections)
	}
	if len(snap.Players) != 2 || snap.Players[0].Number != 3 || snap.Players[1].Number != 7 {
		t.Errorf("Expected players sorted by number, got %v", snap.Players)
	}
	if snap.CreatedAt.IsZero() || snap.LastActiveAt.IsZero() {
		t.Error("Expected snapshot timestamps to be set")
	}
}

// The t field on input frames is an opaque passthrough, whatever its shape.
func TestInputTimestampPassthrough(t *testing.T) {
	r := New("ABC234")
	h := joinHost(t, r)
	p1 := joinPlayer(t, r, "p1", "Alice", 7)

	send(r, p1, `{"type":"input","vx":0,"vy":0,"t":1700000000123.5}`)
	if got := h.lastMessage(t)["t"]; got != 1700000000123.5 {
		t.Errorf("Expected timestamp passed through, got %v", got)
	}

	send(r, p1, `{"type":"input","vx":0,"vy":0}`)
	if _, present := h.lastMessage(t)["t"]; present {
		t.Error("Expected absent timestamp to stay absent")
	}
}
