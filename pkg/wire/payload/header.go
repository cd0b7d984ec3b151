// Package payload defines the message bodies exchanged over the
// Handshake P2P wire, encoded with the pkg/wire binary primitives.
package payload

import (
	"github.com/hnsresolver/hns-spv/pkg/wire"
)

// HeaderSize is the fixed wire size of a block header. The field
// layout is part of the Handshake consensus protocol itself (out of
// scope to redefine per spec §3) and is reproduced here only so this
// client can parse what a full node sends.
const HeaderSize = 236

// BlockHeader is a single Handshake block header. It carries a
// previous-hash reference, the name-tree root committed by the block,
// a timestamp, and a proof-of-work commitment (nonce/extra-nonce/bits
// plus the reserved/witness/merkle/mask commitment fields a full
// validator would use to verify a share; this client treats them as
// opaque bytes it passes through unvalidated, per spec §1's
// "Non-goals: full-block validation").
type BlockHeader struct {
	Nonce        uint32
	Time         uint64
	PrevBlock    [32]byte
	NameRoot     [32]byte
	ExtraNonce   [24]byte
	ReservedRoot [32]byte
	WitnessRoot  [32]byte
	MerkleRoot   [32]byte
	Version      uint32
	Bits         uint32
	Mask         [32]byte
}

// Encode serializes the header to its fixed 236-byte wire form.
func (h *BlockHeader) Encode() []byte {
	bw := wire.NewBufBinWriter()
	bw.WriteU32LE(h.Nonce)
	bw.WriteU64LE(h.Time)
	bw.WriteBytes(h.PrevBlock[:])
	bw.WriteBytes(h.NameRoot[:])
	bw.WriteBytes(h.ExtraNonce[:])
	bw.WriteBytes(h.ReservedRoot[:])
	bw.WriteBytes(h.WitnessRoot[:])
	bw.WriteBytes(h.MerkleRoot[:])
	bw.WriteU32LE(h.Version)
	bw.WriteU32LE(h.Bits)
	bw.WriteBytes(h.Mask[:])
	return bw.Bytes()
}

// DecodeHeader parses a single fixed-width header from raw.
func DecodeHeader(raw []byte) (*BlockHeader, error) {
	if len(raw) != HeaderSize {
		return nil, errHeaderSize(len(raw))
	}
	br := wire.NewBinReaderFromBuf(raw)
	h := &BlockHeader{}
	h.Nonce = br.ReadU32LE()
	h.Time = br.ReadU64LE()
	br.ReadBytes(h.PrevBlock[:])
	br.ReadBytes(h.NameRoot[:])
	br.ReadBytes(h.ExtraNonce[:])
	br.ReadBytes(h.ReservedRoot[:])
	br.ReadBytes(h.WitnessRoot[:])
	br.ReadBytes(h.MerkleRoot[:])
	h.Version = br.ReadU32LE()
	h.Bits = br.ReadU32LE()
	br.ReadBytes(h.Mask[:])
	if br.Err != nil {
		return nil, br.Err
	}
	return h, nil
}

// Hash returns the header's domain digest (see pkg/wire.HeaderHash),
// the value chained via PrevBlock and indexed by the header chain.
func (h *BlockHeader) Hash() [32]byte {
	return wire.HeaderHash(h.Encode())
}
