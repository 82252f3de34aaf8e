package room

import (
	"crypto/rand"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrInvalidRoomCode = errors.New("invalid room code")
)

// Room codes are six characters, A-Z and 0-9, matched case-insensitively and
// stored uppercase.
var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// codeAlphabet omits 0, O, 1, I and L so generated codes survive being read
// aloud or typed from a whiteboard.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Manager owns the code-to-room table. Rooms are created on first connection
// for a valid code and reaped once they have sat idle with no connections.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewManager creates an empty room manager.
func NewManager() *Manager {
	return &Manager{rooms: make(map[string]*Room)}
}

// NormalizeCode uppercases and validates a room code.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !codePattern.MatchString(code) {
		return "", ErrInvalidRoomCode
	}
	return code, nil
}

// GetOrCreate returns the room for code, creating it if this is the first
// connection for that code.
func (m *Manager) GetOrCreate(code string) (*Room, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.rooms[code]; ok {
		return r, nil
	}
	r := New(code)
	m.rooms[code] = r
	return r, nil
}

// Get returns the room for code if it exists.
func (m *Manager) Get(code string) (*Room, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// List returns all live rooms.
func (m *Manager) List() []*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		result = append(result, r)
	}
	return result
}

// Delete removes a room.
func (m *Manager) Delete(code string) error {
	code, err := NormalizeCode(code)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[code]; !ok {
		return ErrRoomNotFound
	}
	delete(m.rooms, code)
	return nil
}

// Count returns the number of live rooms.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// GenerateCode returns a fresh random room code. The alphabet has exactly 32
// characters, so reducing each random byte modulo its length stays uniform.
func (m *Manager) GenerateCode() string {
	bytes := make([]byte, 6)
	rand.Read(bytes)

	code := make([]byte, len(bytes))
	for i, b := range bytes {
		code[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(code)
}

// CleanupIdleRooms removes rooms that have had zero connections for longer
// than maxIdle and returns how many were removed.
func (m *Manager) CleanupIdleRooms(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	removed := 0

	for code, r := range m.rooms {
		if r.ConnectionCount() == 0 && r.LastActive().Before(cutoff) {
			delete(m.rooms, code)
			removed++
		}
	}

	return removed
}
