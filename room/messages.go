package room

import "encoding/json"

// Inbound message types (client to room).
const (
	TypeJoin        = "join"
	TypeJoinRequest = "join_request"
	TypeInput       = "input"
)

// Outbound message types (room to client).
const (
	TypeReady        = "ready"
	TypeJoinAccepted = "join_accepted"
	TypeJoinRejected = "join_rejected"
	TypePlayerJoined = "player_joined"
	TypePlayerLeft   = "player_left"
	TypeError        = "error"
)

// Error codes carried on outbound "error" messages.
const (
	ErrCodeInvalidJSON        = "invalid_json"
	ErrCodeNotAPlayer         = "not_a_player"
	ErrCodeNotJoined          = "not_joined"
	ErrCodeUnknownMessageType = "unknown_message_type"
)

// inbound is the envelope every client frame is decoded into. Which fields
// are meaningful depends on Type. Number is a pointer so a missing or
// fractional value can be told apart from a real jersey number, and T stays
// raw so the client timestamp passes through untouched whatever its shape.
type inbound struct {
	Type     string          `json:"type"`
	Role     string          `json:"role,omitempty"`
	PlayerID string          `json:"playerId,omitempty"`
	Name     string          `json:"name,omitempty"`
	Number   *float64        `json:"number,omitempty"`
	Vx       float64         `json:"vx,omitempty"`
	Vy       float64         `json:"vy,omitempty"`
	T        json.RawMessage `json:"t,omitempty"`
}

// jerseyNumber extracts an integer jersey number from the raw inbound field.
// It returns false when the field is absent or not an integer.
func jerseyNumber(raw *float64) (int, bool) {
	if raw == nil {
		return 0, false
	}
	n := int(*raw)
	if float64(n) != *raw {
		return 0, false
	}
	return n, true
}

type readyMsg struct {
	Type string `json:"type"`
}

type joinAcceptedMsg struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Number   int    `json:"number"`
}

type joinRejectedMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type playerJoinedMsg struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Number   int    `json:"number"`
}

type playerLeftMsg struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
}

type inputMsg struct {
	Type     string          `json:"type"`
	PlayerID string          `json:"playerId"`
	Vx       float64         `json:"vx"`
	Vy       float64         `json:"vy"`
	T        json.RawMessage `json:"t,omitempty"`
}

type errorMsg struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
