package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveListNewestFirst(t *testing.T) {
	s := openTemp(t)

	for i, label := range []string{"first", "second", "third"} {
		require.NoError(t, s.Save(HistoryItem{
			Label:     label,
			Timestamp: time.Now(),
			Workers:   i + 1,
			Summary:   Summary{Runs: 1, SuccessPct: 100},
		}))
		// v7 ids are ordered by millisecond
		time.Sleep(2 * time.Millisecond)
	}

	items, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "third", items[0].Label)
	assert.Equal(t, "first", items[2].Label)

	limited, err := s.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestGet(t *testing.T) {
	s := openTemp(t)
	item := HistoryItem{ID: NewID(), Label: "MooseFS", Summary: Summary{Mbps: 812.5}}
	require.NoError(t, s.Save(item))

	got, err := s.Get(item.ID)
	require.NoError(t, err)
	assert.Equal(t, "MooseFS", got.Label)
	assert.Equal(t, 812.5, got.Summary.Mbps)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
