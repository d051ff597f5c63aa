package cluster

import (
	"context"
	"errors"
	"testing"

	"github.com/specialistvlad/clusterprops/internal/faults"
	"github.com/specialistvlad/clusterprops/internal/partition"
	"github.com/specialistvlad/clusterprops/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelectorValidation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		rank    int
		nodes   int
		wantErr bool
	}{
		{name: "largest", rank: 1, nodes: 6},
		{name: "rank equal to domain", rank: 6, nodes: 6},
		{name: "zero rank", rank: 0, nodes: 6, wantErr: true},
		{name: "negative rank", rank: -3, nodes: 6, wantErr: true},
		{name: "rank above domain", rank: 7, nodes: 6, wantErr: true},
		{name: "empty domain", rank: 1, nodes: 0, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s, err := NewSelector(tc.rank, tc.nodes)
			if tc.wantErr {
				require.Error(t, err)
				assert.Nil(t, s)
				assert.True(t, errors.Is(err, faults.ErrInvalidConfiguration))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.rank, s.Rank())
		})
	}
}

func TestSelectSixNodeScenario(t *testing.T) {
	p, err := partition.FromComponents(6, [][]int{{0, 2, 4}, {1, 3}, {5}})
	require.NoError(t, err)
	ctx := context.Background()

	want := map[int][]int{1: {0, 2, 4}, 2: {1, 3}, 3: {5}}
	for rank, members := range want {
		s, err := NewSelector(rank, 6)
		require.NoError(t, err)

		got, err := s.Select(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, members, got, "rank %d", rank)

		size, err := p.SizeOfRank(rank)
		require.NoError(t, err)
		assert.Len(t, got, size)
	}

	s, err := NewSelector(4, 6)
	require.NoError(t, err, "rank 4 is within the node domain")
	_, err = s.Select(ctx, p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, faults.ErrPartitionUnavailable))
	assert.True(t, errors.Is(err, partition.ErrRankOutOfRange))
}

func TestSelectDeduplicatesAndSorts(t *testing.T) {
	p := &testutil.ScriptedPartition{Nodes: 5, Members: [][]int{{4, 1, 4, 1, 3}}}
	s, err := NewSelector(1, 5)
	require.NoError(t, err)

	got, err := s.Select(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 4}, got)
}

func TestSelectRejectsForeignMembers(t *testing.T) {
	p := &testutil.ScriptedPartition{Nodes: 3, Members: [][]int{{0, 3}}}
	s, err := NewSelector(1, 3)
	require.NoError(t, err)

	_, err = s.Select(context.Background(), p)
	assert.True(t, errors.Is(err, faults.ErrPartitionUnavailable))
}

func TestSelectRejectsResizedPartition(t *testing.T) {
	p := &testutil.ScriptedPartition{Nodes: 4, Members: [][]int{{0}}}
	s, err := NewSelector(1, 3)
	require.NoError(t, err)

	_, err = s.Select(context.Background(), p)
	assert.True(t, errors.Is(err, faults.ErrPartitionUnavailable))
	assert.ErrorContains(t, err, "partition covers 4 nodes")
}

func TestSelectIsDeterministicAndReadOnly(t *testing.T) {
	p := &testutil.ScriptedPartition{Nodes: 6, Members: [][]int{{5, 0, 2}}}
	s, err := NewSelector(1, 6)
	require.NoError(t, err)

	first, err := s.Select(context.Background(), p)
	require.NoError(t, err)
	second, err := s.Select(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []int{5, 0, 2}, p.Members[0], "partition must not be mutated")
	assert.Equal(t, 2, p.Calls())
}
