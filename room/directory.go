package room

import (
	"sort"
	"strings"
)

// Jersey numbers follow a rugby union starting XV: 1 through 15.
const (
	MinJerseyNumber = 1
	MaxJerseyNumber = 15
)

// Reject reasons returned to a player whose join request failed.
const (
	RejectInvalidNumber = "invalid_number"
	RejectNumberTaken   = "number_taken"
)

// PlayerRecord is one joined player as the room knows them.
type PlayerRecord struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Number   int    `json:"number"`
}

// JoinResult is the outcome of a Directory.Join call. When Accepted is false,
// Reason holds one of the reject reason codes and the directory is unchanged.
type JoinResult struct {
	Accepted bool
	Reason   string
	Player   PlayerRecord
}

// Directory is the authoritative player registry for one room. It keeps the
// playerId-to-record map and the inverse jersey-number index mutually
// consistent across every operation.
//
// Directory is not safe for concurrent use; the owning Room serializes all
// access behind its mutex.
type Directory struct {
	players  map[string]PlayerRecord
	byNumber map[int]string
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		players:  make(map[string]PlayerRecord),
		byNumber: make(map[int]string),
	}
}

// Join validates a join request and, on success, commits the player record
// and its jersey-number claim in one step.
//
// A playerId that already holds a record is treated as a reconnect: its old
// number is released before the new claim, so rejoining with the same or a
// different free number never self-conflicts. A number held by a different
// player rejects the request and leaves the directory untouched.
func (d *Directory) Join(playerID, name string, number int) JoinResult {
	playerID = strings.TrimSpace(playerID)
	name = strings.TrimSpace(name)

	if playerID == "" || name == "" || number < MinJerseyNumber || number > MaxJerseyNumber {
		return JoinResult{Reason: RejectInvalidNumber}
	}

	// Conflict check ignores the requester's own current number, which a
	// rejoin is about to release anyway. Checking before releasing means a
	// rejected join needs no rollback.
	if owner, taken := d.byNumber[number]; taken && owner != playerID {
		return JoinResult{Reason: RejectNumberTaken}
	}

	if prev, ok := d.players[playerID]; ok {
		delete(d.byNumber, prev.Number)
	}

	rec := PlayerRecord{PlayerID: playerID, Name: name, Number: number}
	d.players[playerID] = rec
	d.byNumber[number] = playerID

	return JoinResult{Accepted: true, Player: rec}
}

// Leave removes the player and frees their jersey number. It reports whether
// a record existed, which callers use to decide whether hosts get notified.
func (d *Directory) Leave(playerID string) bool {
	rec, ok := d.players[playerID]
	if !ok {
		return false
	}
	delete(d.players, playerID)
	delete(d.byNumber, rec.Number)
	return true
}

// Lookup returns the record for playerID, if any.
func (d *Directory) Lookup(playerID string) (PlayerRecord, bool) {
	rec, ok := d.players[playerID]
	return rec, ok
}

// Players returns all records ordered by jersey number.
func (d *Directory) Players() []PlayerRecord {
	result := make([]PlayerRecord, 0, len(d.players))
	for _, rec := range d.players {
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Number < result[j].Number
	})
	return result
}

// Len returns the number of joined players.
func (d *Directory) Len() int {
	return len(d.players)
}
