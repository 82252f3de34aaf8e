package room

// Conn is the transport-side handle for one live client connection. Send
// delivers a single serialized text frame and must not block; when the peer
// is gone or its buffer is full the implementation returns an error, which
// the room ignores by design.
type Conn interface {
	Send(data []byte) error
}

// Role classifies a connection within its room.
type Role string

const (
	RoleUnassigned Role = "unassigned"
	RoleHost       Role = "host"
	RolePlayer     Role = "player"
)

// Identity is the server-bound identity of a connection. PlayerID is set only
// when Role is RolePlayer. Once bound, an identity never changes for the
// lifetime of the connection; it is the only identity the room trusts when
// authorizing later frames.
type Identity struct {
	Role     Role
	PlayerID string
}

// Registry is the connection-to-identity side table for one room.
//
// Registry is not safe for concurrent use; the owning Room serializes all
// access behind its mutex.
type Registry struct {
	identities map[Conn]Identity
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{identities: make(map[Conn]Identity)}
}

// Track records a fresh connection as unassigned.
func (r *Registry) Track(c Conn) {
	if _, ok := r.identities[c]; !ok {
		r.identities[c] = Identity{Role: RoleUnassigned}
	}
}

// Attach binds identity to c. The binding happens at most once: attaching the
// identical identity again is an idempotent success, attaching a different
// one to an already-bound connection is refused.
func (r *Registry) Attach(c Conn, id Identity) bool {
	if cur, ok := r.identities[c]; ok && cur.Role != RoleUnassigned {
		return cur == id
	}
	r.identities[c] = id
	return true
}

// IdentityOf returns the bound identity of c, or an unassigned identity for
// connections the registry has never bound.
func (r *Registry) IdentityOf(c Conn) Identity {
	if id, ok := r.identities[c]; ok {
		return id
	}
	return Identity{Role: RoleUnassigned}
}

// Detach removes c on close.
func (r *Registry) Detach(c Conn) {
	delete(r.identities, c)
}

// Hosts returns a snapshot of every connection currently bound as host.
func (r *Registry) Hosts() []Conn {
	var hosts []Conn
	for c, id := range r.identities {
		if id.Role == RoleHost {
			hosts = append(hosts, c)
		}
	}
	return hosts
}

// Conns returns a snapshot of every tracked connection.
func (r *Registry) Conns() []Conn {
	result := make([]Conn, 0, len(r.identities))
	for c := range r.identities {
		result = append(result, c)
	}
	return result
}

// Len returns the number of tracked connections.
func (r *Registry) Len() int {
	return len(r.identities)
}

// HostCount returns the number of connections bound as host.
func (r *Registry) HostCount() int {
	n := 0
	for _, id := range r.identities {
		if id.Role == RoleHost {
			n++
		}
	}
	return n
}
