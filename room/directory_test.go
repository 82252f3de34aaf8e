package room

import "testing"

// checkConsistent verifies the two directory maps stay mutually consistent:
// every number index entry points at a record holding that exact number, and
// every record's number is indexed back to that player.
func checkConsistent(t *testing.T, d *Directory) {
	t.Helper()

	for number, playerID := range d.byNumber {
		rec, ok := d.players[playerID]
		if !ok {
			t.Fatalf("number %d maps to %q, but no record exists", number, playerID)
		}
		if rec.Number != number {
			t.Fatalf("number %d maps to %q, whose record holds number %d", number, playerID, rec.Number)
		}
	}
	for playerID, rec := range d.players {
		owner, ok := d.byNumber[rec.Number]
		if !ok {
			t.Fatalf("player %q holds number %d, but the number index has no entry", playerID, rec.Number)
		}
		if owner != playerID {
			t.Fatalf("player %q holds number %d, but the number index says %q owns it", playerID, rec.Number, owner)
		}
	}
}

func TestDirectoryJoinAccept(t *testing.T) {
	d := NewDirectory()

	res := d.Join("p1", "Alice", 7)
	if !res.Accepted {
		t.Fatalf("Expected join to be accepted, got rejection %q", res.Reason)
	}
	if res.Player.PlayerID != "p1" || res.Player.Name != "Alice" || res.Player.Number != 7 {
		t.Errorf("Unexpected committed record: %+v", res.Player)
	}

	rec, ok := d.Lookup("p1")
	if !ok {
		t.Fatal("Expected lookup to find p1")
	}
	if rec.Number != 7 {
		t.Errorf("Expected number 7, got %d", rec.Number)
	}
	checkConsistent(t, d)
}

func TestDirectoryJoinTrimsFields(t *testing.T) {
	d := NewDirectory()

	res := d.Join("  p1  ", "  Alice  ", 7)
	if !res.Accepted {
		t.Fatalf("Expected join to be accepted, got rejection %q", res.Reason)
	}
	if res.Player.PlayerID != "p1" || res.Player.Name != "Alice" {
		t.Errorf("Expected trimmed fields, got %+v", res.Player)
	}
}

func TestDirectoryJoinInvalid(t *testing.T) {
	tests := []struct {
		name     string
		playerID string
		player   string
		number   int
	}{
		{"empty name", "p1", "", 7},
		{"whitespace name", "p1", "   ", 7},
		{"empty playerId", "", "Alice", 7},
		{"whitespace playerId", "   ", "Alice", 7},
		{"number below range", "p1", "Alice", 0},
		{"number above range", "p1", "Alice", 16},
		{"negative number", "p1", "Alice", -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDirectory()
			res := d.Join(tt.playerID, tt.player, tt.number)
			if res.Accepted {
				t.Fatal("Expected rejection")
			}
			if res.Reason != RejectInvalidNumber {
				t.Errorf("Expected reason %q, got %q", RejectInvalidNumber, res.Reason)
			}
			if d.Len() != 0 {
				t.Errorf("Expected directory unchanged, got %d players", d.Len())
			}
		})
	}
}

func TestDirectoryNumberTaken(t *testing.T) {
	d := NewDirectory()
	d.Join("p1", "Alice", 7)

	res := d.Join("p2", "Bob", 7)
	if res.Accepted {
		t.Fatal("Expected rejection for taken number")
	}
	if res.Reason != RejectNumberTaken {
		t.Errorf("Expected reason %q, got %q", RejectNumberTaken, res.Reason)
	}

	// The rejected join must leave p1's claim intact.
	rec, ok := d.Lookup("p1")
	if !ok || rec.Number != 7 {
		t.Errorf("Expected p1 to still hold number 7, got %+v (found=%v)", rec, ok)
	}
	if _, ok := d.Lookup("p2"); ok {
		t.Error("Expected no record for p2 after rejection")
	}
	checkConsistent(t, d)
}

func TestDirectoryRejoinSameNumber(t *testing.T) {
	d := NewDirectory()
	d.Join("p1", "Alice", 7)

	// Reconnecting with the same number must never self-reject.
	res := d.Join("p1", "Alice", 7)
	if !res.Accepted {
		t.Fatalf("Expected rejoin with own number to be accepted, got %q", res.Reason)
	}
	if d.Len() != 1 {
		t.Errorf("Expected 1 player after rejoin, got %d", d.Len())
	}
	checkConsistent(t, d)
}

func TestDirectoryRejoinNewNumberFreesOld(t *testing.T) {
	d := NewDirectory()
	d.Join("p1", "Alice", 7)

	res := d.Join("p1", "Alice", 10)
	if !res.Accepted {
		t.Fatalf("Expected rejoin with a free number to be accepted, got %q", res.Reason)
	}
	checkConsistent(t, d)

	// The old number is released and claimable by someone else.
	res = d.Join("p2", "Bob", 7)
	if !res.Accepted {
		t.Fatalf("Expected number 7 to be free after p1 moved to 10, got %q", res.Reason)
	}
	checkConsistent(t, d)
}

func TestDirectoryRejoinConflictLeavesStateIntact(t *testing.T) {
	d := NewDirectory()
	d.Join("p1", "Alice", 7)
	d.Join("p2", "Bob", 10)

	// p1 tries to grab Bob's number; the rejection must not lose p1's own.
	res := d.Join("p1", "Alice", 10)
	if res.Accepted {
		t.Fatal("Expected rejection for a number held by another player")
	}
	if res.Reason != RejectNumberTaken {
		t.Errorf("Expected reason %q, got %q", RejectNumberTaken, res.Reason)
	}

	rec, ok := d.Lookup("p1")
	if !ok || rec.Number != 7 {
		t.Errorf("Expected p1 to still hold number 7, got %+v (found=%v)", rec, ok)
	}
	checkConsistent(t, d)
}

func TestDirectoryNoDuplicateNumbers(t *testing.T) {
	d := NewDirectory()

	// A churn of joins, rejoins and leaves; the maps must stay consistent and
	// no two players may ever share a number.
	steps := []struct {
		playerID string
		name     string
		number   int
	}{
		{"p1", "Alice", 7},
		{"p2", "Bob", 8},
		{"p3", "Cara", 7},  // rejected, 7 is Alice's
		{"p1", "Alice", 9}, // Alice moves, 7 frees up
		{"p3", "Cara", 7},
		{"p2", "Bob", 8},
		{"p4", "Dan", 9}, // rejected, 9 is Alice's
	}
	for _, s := range steps {
		d.Join(s.playerID, s.name, s.number)
		checkConsistent(t, d)
	}

	seen := make(map[int]string)
	for _, rec := range d.Players() {
		if other, dup := seen[rec.Number]; dup {
			t.Fatalf("Number %d held by both %q and %q", rec.Number, other, rec.PlayerID)
		}
		seen[rec.Number] = rec.PlayerID
	}
}

func TestDirectoryLeave(t *testing.T) {
	d := NewDirectory()
	d.Join("p1", "Alice", 7)

	if !d.Leave("p1") {
		t.Error("Expected Leave to report an existing record")
	}
	if d.Leave("p1") {
		t.Error("Expected second Leave to report no record")
	}
	if d.Leave("ghost") {
		t.Error("Expected Leave of unknown player to report no record")
	}
	checkConsistent(t, d)

	// The freed number is claimable again.
	res := d.Join("p9", "Nina", 7)
	if !res.Accepted {
		t.Errorf("Expected number 7 to be free after leave, got %q", res.Reason)
	}
}

func TestDirectoryPlayersSorted(t *testing.T) {
	d := NewDirectory()
	d.Join("p3", "Cara", 12)
	d.Join("p1", "Alice", 2)
	d.Join("p2", "Bob", 9)

	players := d.Players()
	if len(players) != 3 {
		t.Fatalf("Expected 3 players, got %d", len(players))
	}
	for i := 1; i < len(players); i++ {
		if players[i-1].Number > players[i].Number {
			t.Errorf("Expected players sorted by number, got %v", players)
		}
	}
}
