package payload

import "github.com/hnsresolver/hns-spv/pkg/wire"

// InvType identifies what kind of object an inventory entry names.
type InvType uint32

const (
	InvTypeTx    InvType = 1
	InvTypeBlock InvType = 2
)

// maxInvEntries bounds an Inv or NotFound message at 50000 entries;
// it only guards against a hostile oversized batch.
const maxInvEntries = 50000

// InvItem names a single advertised or missing object.
type InvItem struct {
	Type InvType
	Hash [32]byte
}

func (it *InvItem) encode(bw *wire.BinWriter) {
	bw.WriteU32LE(uint32(it.Type))
	bw.WriteBytes(it.Hash[:])
}

func decodeInvItem(br *wire.BinReader) InvItem {
	var it InvItem
	it.Type = InvType(br.ReadU32LE())
	br.ReadBytes(it.Hash[:])
	return it
}

// Inv advertises objects a peer has available. The client does not
// request anything in response to it; spec §4.F treats it as
// something to acknowledge and ignore during header sync.
type Inv struct {
	Items []InvItem
}

// Encode serializes a varint count followed by each 36-byte entry.
func (i *Inv) Encode() []byte {
	bw := wire.NewBufBinWriter()
	bw.WriteVarInt(uint32(len(i.Items)))
	for idx := range i.Items {
		i.Items[idx].encode(bw)
	}
	return bw.Bytes()
}

// DecodeInv parses an Inv payload.
func DecodeInv(raw []byte) (*Inv, error) {
	br := wire.NewBinReaderFromBuf(raw)
	count := br.ReadVarInt()
	if count > maxInvEntries {
		return nil, errTooManyInv(count)
	}
	items := make([]InvItem, count)
	for idx := range items {
		items[idx] = decodeInvItem(br)
	}
	if br.Err != nil {
		return nil, br.Err
	}
	return &Inv{Items: items}, nil
}
