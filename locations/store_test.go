package locations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSetGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_locations.json")
	s := NewStore(path)

	_, ok := s.Get("user-1")
	assert.False(t, ok)

	require.NoError(t, s.Set("user-1", "San Francisco, CA"))
	loc, ok := s.Get("user-1")
	assert.True(t, ok)
	assert.Equal(t, "San Francisco, CA", loc)

	// Updates overwrite.
	require.NoError(t, s.Set("user-1", "Oakland, CA"))
	loc, _ = s.Get("user-1")
	assert.Equal(t, "Oakland, CA", loc)
}

func TestStoreSurvivesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_locations.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	s := NewStore(path)
	_, ok := s.Get("user-1")
	assert.False(t, ok)

	require.NoError(t, s.Set("user-1", "Lisbon"))
	loc, ok := s.Get("user-1")
	assert.True(t, ok)
	assert.Equal(t, "Lisbon", loc)
}

func TestStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_locations.json")
	require.NoError(t, NewStore(path).Set("user-2", "Tokyo"))

	loc, ok := NewStore(path).Get("user-2")
	assert.True(t, ok)
	assert.Equal(t, "Tokyo", loc)
}
