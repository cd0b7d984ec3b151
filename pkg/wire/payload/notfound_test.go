package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotFoundRoundTrip(t *testing.T) {
	n := &NotFound{Items: []InvItem{{Type: InvTypeBlock, Hash: [32]byte{7}}}}
	raw := n.Encode()
	got, err := DecodeNotFound(raw)
	require.NoError(t, err)
	assert.Equal(t, n.Items, got.Items)
}

func TestNotFoundEmpty(t *testing.T) {
	n := &NotFound{}
	raw := n.Encode()
	got, err := DecodeNotFound(raw)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}
