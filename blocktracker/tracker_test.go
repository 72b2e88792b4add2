package blocktracker_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sequenceos/chainmonitor/blocktracker"
)

func TestTracker_SequentialObserveIsClean(t *testing.T) {
	tr := blocktracker.New(8)
	for n := uint64(1); n <= 5; n++ {
		dup, err := tr.Observe("ethereum_mainnet", n)
		require.NoError(t, err)
		assert.False(t, dup)
	}
}

func TestTracker_DuplicateIsDropped(t *testing.T) {
	tr := blocktracker.New(8)
	_, err := tr.Observe("ethereum_mainnet", 1)
	require.NoError(t, err)

	dup, err := tr.Observe("ethereum_mainnet", 1)
	require.NoError(t, err)
	assert.True(t, dup)
}

func TestTracker_GapIsDetected(t *testing.T) {
	tr := blocktracker.New(8)
	_, err := tr.Observe("ethereum_mainnet", 1)
	require.NoError(t, err)

	_, err = tr.Observe("ethereum_mainnet", 3)
	require.Error(t, err)
	var gapErr blocktracker.ErrGap
	require.True(t, errors.As(err, &gapErr))
	assert.Equal(t, uint64(2), gapErr.Expected)
	assert.Equal(t, uint64(3), gapErr.Got)
}

func TestTracker_ResetForgetsNetwork(t *testing.T) {
	tr := blocktracker.New(8)
	_, err := tr.Observe("ethereum_mainnet", 1)
	require.NoError(t, err)

	tr.Reset("ethereum_mainnet")

	dup, err := tr.Observe("ethereum_mainnet", 1)
	require.NoError(t, err)
	assert.False(t, dup, "after reset, a previously-seen number should not be reported as duplicate")
}

func TestTracker_RetentionEvictsOldest(t *testing.T) {
	tr := blocktracker.New(2)
	for n := uint64(1); n <= 3; n++ {
		_, err := tr.Observe("ethereum_mainnet", n)
		require.NoError(t, err)
	}
	// number 1 fell out of the retention window, but the tracker still
	// knows the sequence continued at 4 without reporting a gap.
	_, err := tr.Observe("ethereum_mainnet", 4)
	require.NoError(t, err)
}

func TestTracker_NetworksAreIndependent(t *testing.T) {
	tr := blocktracker.New(8)
	_, err := tr.Observe("ethereum_mainnet", 1)
	require.NoError(t, err)
	_, err = tr.Observe("polygon_mainnet", 1)
	require.NoError(t, err, "each network tracks its own sequence")
}
