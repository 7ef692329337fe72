package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatebench/internal/storage"
)

func TestRenderHistory(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	items := []storage.HistoryItem{{
		ID:        "0190a1b2-c3d4-7e5f-8a9b-0c1d2e3f4a5b",
		Timestamp: now.Add(-2 * time.Hour),
		Label:     "MooseFS",
		Mode:      "parallel",
		Workers:   8,
		Summary:   storage.Summary{Runs: 3, MovedMiB: 150, Mbps: 226.42, SuccessPct: 100},
	}}

	var out bytes.Buffer
	require.NoError(t, RenderHistory(&out, items, now))

	text := out.String()
	assert.Contains(t, text, "0190a1b2")
	assert.NotContains(t, text, "c3d4")
	assert.Contains(t, text, "2 hours ago")
	assert.Contains(t, text, "MooseFS")
	assert.Contains(t, text, "150 MiB")
	assert.Contains(t, text, "226.42")
	assert.Contains(t, text, "100.00%")
}

func TestRenderEmptyHistory(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RenderHistory(&out, nil, time.Now()))
	assert.Equal(t, "No benchmark history yet.\n", out.String())
}
