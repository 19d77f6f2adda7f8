package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "djimini3", NormalizeName("  DJI Mini\t3\n"))
}

func TestMatchName(t *testing.T) {
	require.True(t, MatchName("DJI Mavic 3", []string{"phantom", "mavic"}))
	require.False(t, MatchName("Autel Evo", []string{"phantom", "mavic"}))
}

func TestBestMatch(t *testing.T) {
	drones := []string{"DJI Mini 3", "DJI Mavic 3 Pro", "Phantom 4"}

	table := []struct {
		target   string
		expected int
	}{
		{target: "dji mini 3", expected: 0},
		{target: "mavic 3 pro", expected: 1},
		{target: "Phantom", expected: 2},
	}
	for _, row := range table {
		t.Run(row.target, func(t *testing.T) {
			i, similarity := BestMatch(row.target, drones)
			require.Equal(t, row.expected, i)
			require.Greater(t, similarity, 0.0)
		})
	}

	i, _ := BestMatch("anything", nil)
	require.Equal(t, -1, i)
}
