// Package locations persists each chat user's stated location so place
// searches can be biased near them.
package locations

import (
	"fmt"
	"os"
	"sync"

	"github.com/bytedance/sonic"
)

// Store is a JSON-file map of user ID to free-text location. The file is
// created on first write; a missing or corrupt file reads as empty.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Get returns the user's stored location, or ok=false if none is set.
func (s *Store) Get(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	locations := s.load()
	loc, ok := locations[userID]
	return loc, ok
}

// Set stores the user's location.
func (s *Store) Set(userID, location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locations := s.load()
	locations[userID] = location

	data, err := sonic.Marshal(locations)
	if err != nil {
		return fmt.Errorf("failed to encode locations: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write location file: %w", err)
	}
	return nil
}

func (s *Store) load() map[string]string {
	locations := make(map[string]string)
	data, err := os.ReadFile(s.path)
	if err != nil {
		return locations
	}
	if err := sonic.Unmarshal(data, &locations); err != nil {
		// Corrupt file reads as empty rather than blocking every lookup.
		return make(map[string]string)
	}
	return locations
}
