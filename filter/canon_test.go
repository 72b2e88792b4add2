package filter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sequenceos/chainmonitor/filter"
)

func TestCanonicalSignature_IntAlias(t *testing.T) {
	a, err := filter.CanonicalSignature("transfer(address,uint)")
	require.NoError(t, err)
	b, err := filter.CanonicalSignature("transfer(address, uint256 )")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, "transfer(address,uint256)", a)
}

func TestCanonicalSignature_Event(t *testing.T) {
	got, err := filter.CanonicalSignature("Transfer(address indexed from, address indexed to, uint256 value)")
	require.NoError(t, err)
	assert.Equal(t, "Transfer(address,address,uint256)", got)
}
