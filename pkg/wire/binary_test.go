package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteU64LE(t *testing.T) {
	var val uint64 = 0xbadc0de15a11dead
	want := []byte{0xad, 0xde, 0x11, 0x5a, 0xe1, 0x0d, 0xdc, 0xba}

	bw := NewBufBinWriter()
	bw.WriteU64LE(val)
	require.NoError(t, bw.Error())
	assert.Equal(t, want, bw.Bytes())

	br := NewBinReaderFromBuf(want)
	assert.Equal(t, val, br.ReadU64LE())
	assert.NoError(t, br.Err)
}

func TestVarIntRoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 0xFC, 0xFD, 0xFFFF, 0x10000, 0xFFFFFFFF}
	for _, u := range cases {
		bw := NewBufBinWriter()
		bw.WriteVarInt(u)
		require.NoError(t, bw.Error())

		br := NewBinReaderFromBuf(bw.Bytes())
		got := br.ReadVarInt()
		require.NoError(t, br.Err)
		assert.Equal(t, u, got)
	}
}

func TestVarIntWidths(t *testing.T) {
	bw := NewBufBinWriter()
	bw.WriteVarInt(0xFC)
	assert.Len(t, bw.Bytes(), 1)

	bw = NewBufBinWriter()
	bw.WriteVarInt(0xFFFF)
	assert.Len(t, bw.Bytes(), 3)

	bw = NewBufBinWriter()
	bw.WriteVarInt(0x10000)
	assert.Len(t, bw.Bytes(), 5)
}

func TestVarBytesRoundTrip(t *testing.T) {
	payload := []byte("handshake name resolver")

	bw := NewBufBinWriter()
	bw.WriteVarBytes(payload)
	require.NoError(t, bw.Error())

	br := NewBinReaderFromBuf(bw.Bytes())
	got := br.ReadVarBytes(1024)
	require.NoError(t, br.Err)
	assert.Equal(t, payload, got)
}

func TestVarBytesExceedsCap(t *testing.T) {
	bw := NewBufBinWriter()
	bw.WriteVarBytes([]byte("too long for the cap"))

	br := NewBinReaderFromBuf(bw.Bytes())
	br.ReadVarBytes(4)
	assert.Error(t, br.Err)
}

func TestReaderShortCircuitsAfterError(t *testing.T) {
	br := NewBinReaderFromBuf([]byte{0x01})
	_ = br.ReadU64LE() // not enough bytes
	require.Error(t, br.Err)

	// further reads must not panic and must preserve the first error
	firstErr := br.Err
	_ = br.ReadByte()
	assert.Equal(t, firstErr, br.Err)
}
