package payload

import "github.com/hnsresolver/hns-spv/pkg/wire"

// MaxHeadersPerBatch is the maximum number of headers a full node
// sends in one Headers message (spec §4.F: a batch of exactly 2000
// signals "peer has more").
const MaxHeadersPerBatch = 2000

// Headers carries a batch of block headers.
type Headers struct {
	Items []*BlockHeader
}

// Encode serializes the payload as a varint count followed by each
// header's fixed 236-byte encoding.
func (h *Headers) Encode() []byte {
	bw := wire.NewBufBinWriter()
	bw.WriteVarInt(uint32(len(h.Items)))
	for _, item := range h.Items {
		bw.WriteBytes(item.Encode())
	}
	return bw.Bytes()
}

// DecodeHeaders parses a Headers payload.
func DecodeHeaders(raw []byte) (*Headers, error) {
	br := wire.NewBinReaderFromBuf(raw)
	count := br.ReadVarInt()
	if count > MaxHeadersPerBatch {
		return nil, errTooManyHeaders(count)
	}
	items := make([]*BlockHeader, count)
	for i := range items {
		buf := make([]byte, HeaderSize)
		br.ReadBytes(buf)
		if br.Err != nil {
			return nil, br.Err
		}
		hdr, err := DecodeHeader(buf)
		if err != nil {
			return nil, err
		}
		items[i] = hdr
	}
	if br.Err != nil {
		return nil, br.Err
	}
	return &Headers{Items: items}, nil
}
