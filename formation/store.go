// Package formation stores named lineup formations: one normalized field
// position per jersey number, saved by the host screen and reloaded later.
// Formations live outside the realtime relay; losing one never affects a
// running room.
package formation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	ErrFormationNotFound = errors.New("formation not found")
	ErrInvalidFormation  = errors.New("invalid formation")
)

// Formation names double as file names, so they are restricted to a safe
// character set.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _-]{0,63}$`)

// Position is a normalized location on the field, 0..1 on both axes with
// (0,0) the top-left corner as the host screen draws it.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Formation is a named lineup. Positions is keyed by jersey number; a
// formation may place any subset of the fifteen numbers.
type Formation struct {
	Name      string           `json:"name"`
	Positions map[int]Position `json:"positions"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Validate checks the formation can be stored and rendered: a usable name,
// jersey numbers 1..15, coordinates inside the field.
func (f *Formation) Validate() error {
	if !namePattern.MatchString(strings.TrimSpace(f.Name)) {
		return fmt.Errorf("%w: name %q", ErrInvalidFormation, f.Name)
	}
	for number, pos := range f.Positions {
		if number < 1 || number > 15 {
			return fmt.Errorf("%w: jersey number %d out of range", ErrInvalidFormation, number)
		}
		if pos.X < 0 || pos.X > 1 || pos.Y < 0 || pos.Y > 1 {
			return fmt.Errorf("%w: position for number %d outside the field: (%v, %v)", ErrInvalidFormation, number, pos.X, pos.Y)
		}
	}
	return nil
}

// Store is the persistence contract for formations.
type Store interface {
	// Save validates and persists a formation, overwriting any previous
	// version of the same name.
	Save(f *Formation) error

	// Load retrieves a formation by name.
	Load(name string) (*Formation, error)

	// Delete removes a formation.
	Delete(name string) error

	// List returns all stored formation names.
	List() ([]string, error)

	// Exists checks whether a formation is stored.
	Exists(name string) bool
}

// FileStore implements Store with one JSON file per formation.
type FileStore struct {
	dir string
}

// NewFileStore creates the storage directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create formations directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save persists a formation to a JSON file.
func (fs *FileStore) Save(f *Formation) error {
	if f == nil {
		return fmt.Errorf("%w: nil formation", ErrInvalidFormation)
	}
	if err := f.Validate(); err != nil {
		return err
	}

	f.Name = strings.TrimSpace(f.Name)
	now := time.Now()
	if f.CreatedAt.IsZero() {
		if prev, err := fs.Load(f.Name); err == nil {
			f.CreatedAt = prev.CreatedAt
		} else {
			f.CreatedAt = now
		}
	}
	f.UpdatedAt = now

	jsonData, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal formation: %w", err)
	}

	if err := os.WriteFile(fs.filePath(f.Name), jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write formation file: %w", err)
	}
	return nil
}

// Load retrieves a formation from its JSON file.
func (fs *FileStore) Load(name string) (*Formation, error) {
	if !namePattern.MatchString(name) {
		return nil, ErrFormationNotFound
	}

	jsonData, err := os.ReadFile(fs.filePath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFormationNotFound
		}
		return nil, fmt.Errorf("failed to read formation file: %w", err)
	}

	var f Formation
	if err := json.Unmarshal(jsonData, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal formation %q: %w", name, err)
	}
	return &f, nil
}

// Delete removes a formation file.
func (fs *FileStore) Delete(name string) error {
	if !fs.Exists(name) {
		return ErrFormationNotFound
	}
	if err := os.Remove(fs.filePath(name)); err != nil {
		return fmt.Errorf("failed to remove formation file: %w", err)
	}
	return nil
}

// List returns all stored formation names.
func (fs *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read formations directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(entry.Name(), ".json"); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// Exists checks whether a formation file exists.
func (fs *FileStore) Exists(name string) bool {
	if !namePattern.MatchString(name) {
		return false
	}
	_, err := os.Stat(fs.filePath(name))
	return err == nil
}

func (fs *FileStore) filePath(name string) string {
	return filepath.Join(fs.dir, fmt.Sprintf("%s.json", name))
}
