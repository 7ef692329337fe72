package components

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestSparklineWindow(t *testing.T) {
	s := NewSparkline(3, "run time", "s", lipgloss.NewStyle())
	for _, v := range []float64{1, 8, 2, 4} {
		s.Add(v)
	}

	assert.Equal(t, []float64{8, 2, 4}, s.Data)
	assert.Equal(t, 8.0, s.Max)
	assert.Equal(t, 4.0, s.Last())
	assert.Equal(t, "█▂▄", s.Bars())
}

func TestSparklineEmpty(t *testing.T) {
	s := NewSparkline(4, "run time", "s", lipgloss.NewStyle())
	assert.Equal(t, 0.0, s.Last())
	assert.Equal(t, "", s.Bars())
	assert.Contains(t, s.View(), "run time")
}
