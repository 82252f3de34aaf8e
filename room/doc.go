// Package room implements the per-session relay at the heart of Huddle.
//
// A Room is the single stateful coordinator for one lineup session. One
// privileged "host" screen (or several; every host connection receives
// broadcasts) and up to fifteen players share a room identified by a
// 6-character code. Players join with a name and a jersey number, and the
// room enforces that each jersey number is held by at most one player at a
// time. Once a player is in, their movement input frames are forwarded to
// the host connections, which run the actual field simulation.
//
// Core Types:
//
// Directory is the authoritative player registry: playerId to record, plus
// the inverse jersey-number index used to enforce uniqueness. Registry is the
// connection-to-identity side table; a connection's identity is bound exactly
// once, at join time, and is the only identity the room ever trusts. Room
// ties both together with the message router and the host broadcast path.
// Manager owns the code-to-room table and room lifecycle.
//
// Wire Protocol:
//
// Every frame is a JSON object with a "type" discriminator. Clients send
// "join" (host), "join_request" (player), and "input"; the room answers with
// "ready", "join_accepted", "join_rejected", "player_joined", "player_left",
// "input", and "error". See messages.go for the exact shapes.
//
// Concurrency:
//
// Each room serializes all of its state mutation behind one mutex: a frame or
// a disconnect is processed to completion before the next begins. Directory
// and Registry are therefore plain maps with no locking of their own. Sends
// to connections are fire-and-forget; a failed send is ignored and never
// retried.
package room
