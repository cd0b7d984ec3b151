package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvRoundTrip(t *testing.T) {
	i := &Inv{Items: []InvItem{
		{Type: InvTypeBlock, Hash: [32]byte{1}},
		{Type: InvTypeTx, Hash: [32]byte{2}},
	}}
	raw := i.Encode()
	got, err := DecodeInv(raw)
	require.NoError(t, err)
	assert.Equal(t, i.Items, got.Items)
}

func TestInvExceedsCap(t *testing.T) {
	i := &Inv{Items: make([]InvItem, maxInvEntries+1)}
	raw := i.Encode()
	_, err := DecodeInv(raw)
	assert.Error(t, err)
}
