package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderHashDeterministic(t *testing.T) {
	raw := []byte("some serialized header bytes")
	h1 := HeaderHash(raw)
	h2 := HeaderHash(raw)
	assert.Equal(t, h1, h2)
}

func TestHeaderHashDiffers(t *testing.T) {
	h1 := HeaderHash([]byte{0x01})
	h2 := HeaderHash([]byte{0x02})
	assert.NotEqual(t, h1, h2)
}

func TestNameHashDeterministicAndDistinct(t *testing.T) {
	h1 := NameHash("example")
	h2 := NameHash("example")
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, NameHash("example"), NameHash("other"))
}
