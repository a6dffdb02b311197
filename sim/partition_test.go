package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPartition_EvenSplit(t *testing.T) {
	// GIVEN 12 cells over 3 workers
	// WHEN each rank derives its partition
	// THEN ranges are contiguous, disjoint and cover the bar
	next := 0
	for rank := 0; rank < 3; rank++ {
		p, err := NewPartition(12, 3, rank)
		require.NoError(t, err)
		assert.Equal(t, 4, p.LocalN)
		assert.Equal(t, next, p.Offset)
		next += p.LocalN
	}
	assert.Equal(t, 12, next)
}

func TestNewPartition_Neighbours(t *testing.T) {
	tests := []struct {
		rank        int
		left, right int
	}{
		{0, NoNeighbor, 1},
		{1, 0, 2},
		{3, 2, NoNeighbor},
	}
	for _, tc := range tests {
		p, err := NewPartition(8, 4, tc.rank)
		require.NoError(t, err)
		assert.Equal(t, tc.left, p.Left, "rank %d left", tc.rank)
		assert.Equal(t, tc.right, p.Right, "rank %d right", tc.rank)
		assert.Equal(t, tc.left != NoNeighbor, p.HasLeft())
		assert.Equal(t, tc.right != NoNeighbor, p.HasRight())
	}
}

func TestNewPartition_SingleWorker_NoNeighbours(t *testing.T) {
	p, err := NewPartition(5, 1, 0)
	require.NoError(t, err)
	assert.False(t, p.HasLeft())
	assert.False(t, p.HasRight())
	assert.Equal(t, 5, p.LocalN)
}

func TestNewPartition_Idempotent(t *testing.T) {
	a, err := NewPartition(300, 4, 2)
	require.NoError(t, err)
	b, err := NewPartition(300, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNewPartition_Invalid(t *testing.T) {
	tests := []struct {
		name             string
		n, workers, rank int
		field            string
	}{
		{"uneven split", 10, 3, 0, "n"},
		{"zero cells", 0, 1, 0, "n"},
		{"zero workers", 4, 0, 0, "workers"},
		{"negative rank", 4, 2, -1, "rank"},
		{"rank past end", 4, 2, 2, "rank"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPartition(tc.n, tc.workers, tc.rank)
			var ce *ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.field, ce.Field)
		})
	}
}

func TestPartition_IndexMapping(t *testing.T) {
	p, err := NewPartition(12, 3, 1)
	require.NoError(t, err)

	assert.False(t, p.Owns(3))
	assert.True(t, p.Owns(4))
	assert.True(t, p.Owns(7))
	assert.False(t, p.Owns(8))

	assert.Equal(t, 1, p.LocalIndex(4))
	assert.Equal(t, 4, p.LocalIndex(7))
	for local := 1; local <= p.LocalN; local++ {
		assert.Equal(t, local, p.LocalIndex(p.GlobalIndex(local)))
	}
	assert.Equal(t, "rank 1/3 cells [4,8)", p.String())
}
