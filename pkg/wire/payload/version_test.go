package payload

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionRoundTrip(t *testing.T) {
	v := &Version{
		Version:  1,
		Services: ServiceNetwork,
		Time:     1700000000,
		Remote: NetAddress{
			Time:     1700000000,
			Services: ServiceNetwork,
			Host:     net.ParseIP("203.0.113.7"),
			Port:     13038,
		},
		Nonce:   [8]byte{1, 2, 3, 4, 5, 6, 7, 8},
		Agent:   "/hns-spv:0.1.0/",
		Height:  12345,
		NoRelay: true,
	}

	raw := v.Encode()
	got, err := DecodeVersion(raw)
	require.NoError(t, err)

	assert.Equal(t, v.Version, got.Version)
	assert.Equal(t, v.Services, got.Services)
	assert.Equal(t, v.Time, got.Time)
	assert.True(t, v.Remote.Host.Equal(got.Remote.Host))
	assert.Equal(t, v.Remote.Port, got.Remote.Port)
	assert.Equal(t, v.Nonce, got.Nonce)
	assert.Equal(t, v.Agent, got.Agent)
	assert.Equal(t, v.Height, got.Height)
	assert.Equal(t, v.NoRelay, got.NoRelay)
	assert.True(t, got.HasNetwork())
}

func TestVersionRemoteNetAddrIs88Bytes(t *testing.T) {
	v := &Version{Remote: NetAddress{Host: net.ParseIP("127.0.0.1")}}
	raw := v.Encode()
	// version(4) + services(8) + time(8) + remote_netaddr(88) = 108
	// bytes before nonce/agent/height/norelay.
	require.GreaterOrEqual(t, len(raw), 108)
}

func TestVersionDecodeTruncated(t *testing.T) {
	_, err := DecodeVersion([]byte{0x01, 0x02})
	assert.Error(t, err)
	assert.Equal(t, ErrMalformedVersion, err)
}

func TestHasNetworkFalseWhenBitUnset(t *testing.T) {
	v := &Version{Services: 0}
	assert.False(t, v.HasNetwork())
}
