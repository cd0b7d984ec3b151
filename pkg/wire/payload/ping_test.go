package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingPongRoundTrip(t *testing.T) {
	p := &Ping{Nonce: 0xdeadbeefcafef00d}
	raw := p.Encode()
	require.Len(t, raw, PingSize)

	got, err := DecodePing(raw)
	require.NoError(t, err)
	assert.Equal(t, p.Nonce, got.Nonce)

	pong := &Pong{Nonce: got.Nonce}
	gotPong, err := DecodePong(pong.Encode())
	require.NoError(t, err)
	assert.Equal(t, p.Nonce, gotPong.Nonce)
}

func TestPingWrongSize(t *testing.T) {
	_, err := DecodePing([]byte{0x01})
	assert.Error(t, err)
}
