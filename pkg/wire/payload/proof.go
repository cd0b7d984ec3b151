package payload

import "github.com/hnsresolver/hns-spv/pkg/wire"

// maxRecordSize and maxProofBlobSize bound an individual record and
// the trailing proof blob; decoding the records themselves is out of
// scope (spec §3), they are carried as opaque byte strings.
const (
	maxRecordSize    = 64 * 1024
	maxProofBlobSize = 1 << 20
	maxRecordCount   = 4096
)

// Proof is the response to a GetProof request: a sequence of opaque
// resource-record blobs plus an optional Merkle-style proof blob.
type Proof struct {
	Records   [][]byte
	ProofBlob []byte
}

// Encode serializes a varint record count, each record as a varbytes
// entry, followed by the proof blob as varbytes.
func (p *Proof) Encode() []byte {
	bw := wire.NewBufBinWriter()
	bw.WriteVarInt(uint32(len(p.Records)))
	for _, rec := range p.Records {
		bw.WriteVarBytes(rec)
	}
	bw.WriteVarBytes(p.ProofBlob)
	return bw.Bytes()
}

// DecodeProof parses a Proof payload.
func DecodeProof(raw []byte) (*Proof, error) {
	br := wire.NewBinReaderFromBuf(raw)
	count := br.ReadVarInt()
	if count > maxRecordCount {
		return nil, errTooManyRecords(count)
	}
	p := &Proof{Records: make([][]byte, count)}
	for i := range p.Records {
		p.Records[i] = br.ReadVarBytes(maxRecordSize)
	}
	p.ProofBlob = br.ReadVarBytes(maxProofBlobSize)
	if br.Err != nil {
		return nil, br.Err
	}
	return p, nil
}

// IsEmpty reports whether the proof carries neither records nor a
// proof blob; spec §4.G treats an empty proof payload as an Error.
func (p *Proof) IsEmpty() bool {
	return len(p.Records) == 0 && len(p.ProofBlob) == 0
}
