package payload

import "github.com/hnsresolver/hns-spv/pkg/wire"

// NotFound tells the requester that one or more previously-requested
// objects are unavailable. pkg/query counts NotFound replies from
// distinct peers toward a name query's not-found threshold; an error
// from another peer in between does not reset the count.
type NotFound struct {
	Items []InvItem
}

// Encode serializes a varint count followed by each 36-byte entry.
func (n *NotFound) Encode() []byte {
	bw := wire.NewBufBinWriter()
	bw.WriteVarInt(uint32(len(n.Items)))
	for idx := range n.Items {
		n.Items[idx].encode(bw)
	}
	return bw.Bytes()
}

// DecodeNotFound parses a NotFound payload.
func DecodeNotFound(raw []byte) (*NotFound, error) {
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
	return &NotFound{Items: items}, nil
}
