package payload

import "github.com/hnsresolver/hns-spv/pkg/wire"

// maxLocatorHashes is a sanity cap on the number of locator hashes a
// peer may send us; spec §4.E bounds our own locator to 10 entries,
// but we decode defensively in case a peer sends more.
const maxLocatorHashes = 128

// GetHeaders requests headers from a peer given a block locator (spec
// §4.D). An empty Locator serializes as a single zero hash (genesis),
// per spec's boundary requirement.
type GetHeaders struct {
	Locator  [][32]byte
	StopHash [32]byte
}

// Encode serializes the payload: varint count, count*32-byte locator
// hashes, 32-byte stop hash.
func (g *GetHeaders) Encode() []byte {
	bw := wire.NewBufBinWriter()
	locator := g.Locator
	if len(locator) == 0 {
		locator = [][32]byte{{}}
	}
	bw.WriteVarInt(uint32(len(locator)))
	for _, h := range locator {
		bw.WriteBytes(h[:])
	}
	bw.WriteBytes(g.StopHash[:])
	return bw.Bytes()
}

// DecodeGetHeaders parses a GetHeaders payload.
func DecodeGetHeaders(raw []byte) (*GetHeaders, error) {
	br := wire.NewBinReaderFromBuf(raw)
	count := br.ReadVarInt()
	if count > maxLocatorHashes {
		return nil, errTooManyLocatorHashes(count)
	}
	g := &GetHeaders{Locator: make([][32]byte, count)}
	for i := range g.Locator {
		br.ReadBytes(g.Locator[i][:])
	}
	br.ReadBytes(g.StopHash[:])
	if br.Err != nil {
		return nil, br.Err
	}
	return g, nil
}

// IsZeroStop reports whether StopHash means "no stop" (all-zero).
func (g *GetHeaders) IsZeroStop() bool {
	return g.StopHash == [32]byte{}
}
