package payload

import "github.com/hnsresolver/hns-spv/pkg/wire"

// maxAddrEntries bounds an Addr message; full nodes keep gossip
// batches small, this only guards against a hostile oversized batch.
const maxAddrEntries = 2500

// Addr carries a list of peer addresses, sent in reply to GetAddr.
type Addr struct {
	Peers []NetAddress
}

// Encode serializes a varint count followed by each 34-byte entry.
func (a *Addr) Encode() []byte {
	bw := wire.NewBufBinWriter()
	bw.WriteVarInt(uint32(len(a.Peers)))
	for i := range a.Peers {
		a.Peers[i].encode(bw)
	}
	return bw.Bytes()
}

// DecodeAddr parses an Addr payload.
func DecodeAddr(raw []byte) (*Addr, error) {
	br := wire.NewBinReaderFromBuf(raw)
	count := br.ReadVarInt()
	if count > maxAddrEntries {
		return nil, errTooManyAddrs(count)
	}
	peers := make([]NetAddress, count)
	for i := range peers {
		peers[i] = decodeNetAddress(br)
	}
	if br.Err != nil {
		return nil, br.Err
	}
	return &Addr{Peers: peers}, nil
}
