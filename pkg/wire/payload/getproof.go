package payload

import (
	"errors"

	"github.com/hnsresolver/hns-spv/pkg/wire"
)

// GetProofSize is the exact wire size of a GetProof payload: root(32)
// || name_hash(32). Field order is root-first and load-bearing per
// spec §4.D — full nodes reject the reversed order.
const GetProofSize = 64

// GetProof requests a name-tree proof keyed by NameHash against Root,
// the requester's current chain-tip name-tree root (spec §3).
type GetProof struct {
	Root     [32]byte
	NameHash [32]byte
}

// Encode serializes root then name hash, exactly 64 bytes.
func (g *GetProof) Encode() []byte {
	bw := wire.NewBufBinWriter()
	bw.WriteBytes(g.Root[:])
	bw.WriteBytes(g.NameHash[:])
	return bw.Bytes()
}

// DecodeGetProof parses a GetProof payload.
func DecodeGetProof(raw []byte) (*GetProof, error) {
	if len(raw) != GetProofSize {
		return nil, errors.New("payload: getproof must be exactly 64 bytes")
	}
	br := wire.NewBinReaderFromBuf(raw)
	g := &GetProof{}
	br.ReadBytes(g.Root[:])
	br.ReadBytes(g.NameHash[:])
	if br.Err != nil {
		return nil, br.Err
	}
	return g, nil
}
