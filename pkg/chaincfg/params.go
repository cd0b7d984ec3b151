// Package chaincfg holds the compiled-in network parameters this
// client ships with: the wire magic, protocol version, default port,
// checkpoint range and DNS seed lists. Mirrors the teacher's
// pkg/chainparams in shape (compiled-in string slices) and
// pkg/chaincfg in name.
package chaincfg

// MagicMainnet is the mainnet wire magic prefixed to every framed
// message (spec §4.A, §6).
const MagicMainnet uint32 = 0x6a657466

// ProtocolVersion is the version number this client advertises in its
// own Version payload.
const ProtocolVersion uint32 = 4

// DefaultP2PPort is the Handshake mainnet P2P port, used when a peer
// address carries no explicit port (spec §3 "Peer address").
const DefaultP2PPort = 13038

// CheckpointHeight is the block height of the compiled-in checkpoint
// header; the header chain treats it as the genesis of verified
// state (spec §3, §4.E).
const CheckpointHeight = 2016000

// MainnetSeeds is the compiled-in DNS seed list queried by peer
// discovery (spec §4.C), following the teacher's
// pkg/chainparams.MainnetSeedList naming.
var MainnetSeeds = []string{
	"seed.easyhandshake.com",
	"hnsseed.bob.sh",
	"seed.htools.work",
}

// FallbackSeeds is a small compiled-in set of known-stable full-node
// addresses used only when DNS discovery and the persisted fallback
// list are both empty (spec §4.C, last resort).
var FallbackSeeds = []string{
	"173.255.209.126:13038",
	"139.162.53.42:13038",
}
