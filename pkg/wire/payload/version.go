package payload

import (
	"errors"
	"net"

	"github.com/hnsresolver/hns-spv/pkg/wire"
)

// ServiceNetwork is bit 0 of the services bitmask: the peer advertises
// full-block storage and can serve name proofs (spec §6).
const ServiceNetwork uint64 = 1

// maxAgentLen bounds the user-agent string per spec §6 ("ASCII, <= 255
// bytes" is the wire limit; a single byte length prefix enforces it).
const maxAgentLen = 255

// NetAddress is a peer address entry as carried in Addr messages:
// time(8) + services(8) + ip(16, v6-mapped) + port(2) = 34 bytes.
type NetAddress struct {
	Time     uint64
	Services uint64
	Host     net.IP
	Port     uint16
}

// NetAddressSize is the wire size of a single Addr-list entry.
const NetAddressSize = 8 + 8 + 16 + 2

func (n *NetAddress) encode(bw *wire.BinWriter) {
	bw.WriteU64LE(n.Time)
	bw.WriteU64LE(n.Services)
	var ip [16]byte
	copy(ip[:], n.Host.To16())
	bw.WriteBytes(ip[:])
	bw.WriteU16LE(n.Port)
}

func decodeNetAddress(br *wire.BinReader) NetAddress {
	var n NetAddress
	n.Time = br.ReadU64LE()
	n.Services = br.ReadU64LE()
	var ip [16]byte
	br.ReadBytes(ip[:])
	n.Host = net.IP(ip[:])
	n.Port = br.ReadU16LE()
	return n
}

// remoteNetAddrBlockSize is the size of the "peer address block" that
// remote_netaddr wraps (spec §3: remote_netaddr is 88 bytes total,
// prefixed by time(8) and services(8), leaving 72 bytes for the
// block). The block carries the host/port plus reserved padding.
const remoteNetAddrBlockSize = 72

// Version is the handshake payload both sides send on connect (spec
// §3). Remote is encoded as the full 88-byte remote_netaddr: its own
// Time/Services prefix the 72-byte address block.
type Version struct {
	Version  uint32
	Services uint64
	Time     uint64
	Remote   NetAddress
	Nonce    [8]byte
	Agent    string
	Height   uint32
	NoRelay  bool
}

func (v *Version) encodeRemote(bw *wire.BinWriter) {
	bw.WriteU64LE(v.Remote.Time)
	bw.WriteU64LE(v.Remote.Services)
	var ip [16]byte
	copy(ip[:], v.Remote.Host.To16())
	bw.WriteBytes(ip[:])
	bw.WriteU16LE(v.Remote.Port)
	var pad [remoteNetAddrBlockSize - 16 - 2]byte
	bw.WriteBytes(pad[:])
}

func decodeRemote(br *wire.BinReader) NetAddress {
	var n NetAddress
	n.Time = br.ReadU64LE()
	n.Services = br.ReadU64LE()
	var ip [16]byte
	br.ReadBytes(ip[:])
	n.Host = net.IP(ip[:])
	n.Port = br.ReadU16LE()
	var pad [remoteNetAddrBlockSize - 16 - 2]byte
	br.ReadBytes(pad[:])
	return n
}

// Encode serializes a Version payload.
func (v *Version) Encode() []byte {
	bw := wire.NewBufBinWriter()
	bw.WriteU32LE(v.Version)
	bw.WriteU64LE(v.Services)
	bw.WriteU64LE(v.Time)
	v.encodeRemote(bw)
	bw.WriteBytes(v.Nonce[:])
	agent := []byte(v.Agent)
	if len(agent) > maxAgentLen {
		agent = agent[:maxAgentLen]
	}
	bw.WriteByte(byte(len(agent)))
	bw.WriteBytes(agent)
	bw.WriteU32LE(v.Height)
	if v.NoRelay {
		bw.WriteByte(1)
	} else {
		bw.WriteByte(0)
	}
	return bw.Bytes()
}

// DecodeVersion parses a Version payload.
func DecodeVersion(raw []byte) (*Version, error) {
	br := wire.NewBinReaderFromBuf(raw)
	v := &Version{}
	v.Version = br.ReadU32LE()
	v.Services = br.ReadU64LE()
	v.Time = br.ReadU64LE()
	v.Remote = decodeRemote(br)
	br.ReadBytes(v.Nonce[:])
	agentLen := br.ReadByte()
	agent := make([]byte, agentLen)
	br.ReadBytes(agent)
	v.Agent = string(agent)
	v.Height = br.ReadU32LE()
	noRelay := br.ReadByte()
	v.NoRelay = noRelay != 0
	if br.Err != nil {
		return nil, ErrMalformedVersion
	}
	return v, nil
}

// HasNetwork reports whether the peer advertises the NETWORK service
// bit and can therefore serve name proofs (spec §4.G).
func (v *Version) HasNetwork() bool {
	return v.Services&ServiceNetwork != 0
}

// ErrMalformedVersion is returned when a version payload cannot be
// decoded; spec §4.D classifies this as a handshake failure.
var ErrMalformedVersion = errors.New("payload: malformed version message")
